package model

import "time"

// TableState is the canonical occupancy state of a table.  The value is
// stored verbatim in the `tables.state` column and carried on every
// broadcast event, so the constants double as the wire representation.
type TableState string

const (
    TableAvailable TableState = "AVAILABLE"
    TableOccupied  TableState = "OCCUPIED"
    TableReserved  TableState = "RESERVED"
)

// ValidTableState reports whether s is one of the known occupancy states.
// It is used to validate manual override requests before they reach the
// reconciliation engine.
func ValidTableState(s TableState) bool {
    switch s {
    case TableAvailable, TableOccupied, TableReserved:
        return true
    }
    return false
}

// Table represents a physical restaurant table.  Its identity is assigned
// externally (by provisioning or by the detector's table map) and its
// occupancy state is owned exclusively by the reconciliation engine:
// telemetry and operators only submit proposed updates.
//
// Fields:
//  ID              – primary key; matches the detector's table numbering.
//  TypeID          – optional table type; capacity is inherited on create.
//  Capacity        – number of guests the table seats.
//  State           – canonical occupancy state (see TableState).
//  PersonCount     – last person count observed by telemetry.
//  LastStateChange – when State last flipped; drives the flap debounce.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Table struct {
    ID              uint64     `json:"id"`
    TypeID          *uint64    `json:"type_id,omitempty"`
    Capacity        uint32     `json:"capacity"`
    State           TableState `json:"state"`
    PersonCount     uint32     `json:"person_count"`
    LastStateChange time.Time  `json:"last_state_change"`
    CreatedAt       time.Time  `json:"created_at"`
    UpdatedAt       time.Time  `json:"updated_at"`
}
