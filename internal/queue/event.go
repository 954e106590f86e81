// Package queue defines the broker message payloads and the background
// consumer that feeds detector batches into the reconciliation engine.
package queue

// TableDetection is one table's reading within a telemetry batch.
type TableDetection struct {
	TableID     uint64   `json:"table_id"`
	PersonCount uint32   `json:"person_count"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// TelemetryBatchMessage is published by the edge detector on the
// vision.telemetry queue.  One message carries one detection cycle; a
// table missing from Detections was simply not covered this cycle.
type TelemetryBatchMessage struct {
	DeviceID   string           `json:"device_id"`
	ObservedAt string           `json:"observed_at"`
	Detections []TableDetection `json:"detections"`
}

// TableStateChangedEvent is published to the table.state_changed queue
// whenever a table's canonical occupancy state flips.  It mirrors the
// in-process broadcast event so external consumers see the same stream
// the dashboards do.
type TableStateChangedEvent struct {
	TableID       uint64 `json:"table_id"`
	PreviousState string `json:"previous_state"`
	NewState      string `json:"new_state"`
	Cause         string `json:"cause"`
	PersonCount   uint32 `json:"person_count"`
	OccurredAt    string `json:"occurred_at"`
}
