package model

import "time"

// ReservationStatus enumerates the lifecycle states of a reservation.
// Transitions are owned by the engine: the allocator creates PENDING or
// CONFIRMED rows, telemetry drives PENDING/CONFIRMED -> IN_PROGRESS ->
// COMPLETED, the sweeper produces EXPIRED, and an explicit cancel request
// produces CANCELLED at any point before completion.
type ReservationStatus string

const (
    ReservationPending    ReservationStatus = "PENDING"
    ReservationConfirmed  ReservationStatus = "CONFIRMED"
    ReservationInProgress ReservationStatus = "IN_PROGRESS"
    ReservationCompleted  ReservationStatus = "COMPLETED"
    ReservationCancelled  ReservationStatus = "CANCELLED"
    ReservationExpired    ReservationStatus = "EXPIRED"
)

// Active reports whether the status can claim a table.  Only active
// reservations participate in conflict checks and in the reconciler's
// claim precedence.
func (s ReservationStatus) Active() bool {
    switch s {
    case ReservationPending, ReservationConfirmed, ReservationInProgress:
        return true
    }
    return false
}

// Reservation records a booking for a party at a specific service time.
// TableID is nil until allocation succeeds.  All timestamps are UTC.
type Reservation struct {
    ID           uint64            `json:"id"`
    PartySize    uint32            `json:"party_size"`
    StartsAt     time.Time         `json:"starts_at"`
    TableID      *uint64           `json:"table_id,omitempty"`
    Status       ReservationStatus `json:"status"`
    ContactName  string            `json:"contact_name"`
    ContactPhone string            `json:"contact_phone,omitempty"`
    CreatedAt    time.Time         `json:"created_at"`
    UpdatedAt    time.Time         `json:"updated_at"`
}

// EffectiveInterval returns the half-open interval the reservation claims
// on its table: the service window expanded symmetrically by the arrival
// buffer, [starts_at-buffer, starts_at+window+buffer).
func (r Reservation) EffectiveInterval(window, buffer time.Duration) (time.Time, time.Time) {
    return r.StartsAt.Add(-buffer), r.StartsAt.Add(window + buffer)
}

// ClaimsAt reports whether the reservation actively claims its table at
// the given instant: the status must be active and the instant must fall
// inside the effective interval.
func (r Reservation) ClaimsAt(now time.Time, window, buffer time.Duration) bool {
    if !r.Status.Active() {
        return false
    }
    start, end := r.EffectiveInterval(window, buffer)
    return !now.Before(start) && now.Before(end)
}

// Overlaps is the half-open interval overlap test used for conflict
// detection.  Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
    return aStart.Before(bEnd) && bStart.Before(aEnd)
}
