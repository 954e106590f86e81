package model

import "time"

// TableType groups tables with the same seating capacity ("standard four
// top", "window booth", ...).  A table created with a type inherits the
// type's seat count as its capacity unless one is given explicitly.
type TableType struct {
    ID        uint64    `json:"id"`
    Name      string    `json:"name"`
    Seats     uint32    `json:"seats"`
    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
}
