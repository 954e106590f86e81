package model

import "time"

// ChangeCause identifies which input drove a state change.
type ChangeCause string

const (
    CauseReservation ChangeCause = "RESERVATION"
    CauseTelemetry   ChangeCause = "TELEMETRY"
    CauseManual      ChangeCause = "MANUAL"
    CauseExpiry      ChangeCause = "EXPIRY"
)

// StateChangeEvent is the unit of information flowing through the
// broadcast hub.  Exactly one event is produced per reconciliation that
// flips a table's occupancy state; person-count-only updates produce none.
type StateChangeEvent struct {
    TableID       uint64      `json:"table_id"`
    PreviousState TableState  `json:"previous_state"`
    NewState      TableState  `json:"new_state"`
    Cause         ChangeCause `json:"cause"`
    PersonCount   uint32      `json:"person_count"`
    OccurredAt    time.Time   `json:"occurred_at"`
}

// TelemetrySample is one "N people observed at table T" reading from the
// detector.  Samples are ephemeral: only the latest count per table is
// retained (on the table row) and only derived state transitions are
// persisted.
type TelemetrySample struct {
    TableID     uint64    `json:"table_id"`
    PersonCount uint32    `json:"person_count"`
    ObservedAt  time.Time `json:"observed_at"`
    Confidence  *float64  `json:"confidence,omitempty"`
}

// ManualOverride is an operator's explicit statement of a table's state.
// It has the highest reconciliation precedence and holds until the next
// override or a reservation-driven change; telemetry alone never clears it.
type ManualOverride struct {
    TableID        uint64     `json:"table_id"`
    RequestedState TableState `json:"requested_state"`
    OperatorID     uint64     `json:"operator_id"`
    IssuedAt       time.Time  `json:"issued_at"`
}
