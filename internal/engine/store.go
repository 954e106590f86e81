package engine

import (
    "context"
    "time"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Store is the persistence collaborator the engine needs.  The production
// implementation wraps the MySQL repositories; tests use an in-memory
// fake.  Implementations return the repository sentinel errors
// (ErrTableNotFound, ErrReservationNotFound, ErrConflict) so callers can
// branch with errors.Is.
type Store interface {
    // Table returns one table by id.
    Table(ctx context.Context, id uint64) (model.Table, error)
    // Tables returns all tables ordered by id.
    Tables(ctx context.Context) ([]model.Table, error)
    // SaveTable persists a table's reconciled state, person count and
    // last-state-change timestamp.
    SaveTable(ctx context.Context, t model.Table) error

    // Reservation returns one reservation by id.
    Reservation(ctx context.Context, id uint64) (model.Reservation, error)
    // ActiveReservations returns the active reservations claiming a table.
    ActiveReservations(ctx context.Context, tableID uint64) ([]model.Reservation, error)
    // ListActiveReservations returns every active reservation.
    ListActiveReservations(ctx context.Context) ([]model.Reservation, error)
    // ExpirableReservations returns PENDING/CONFIRMED reservations whose
    // service time is at or before latestStart.
    ExpirableReservations(ctx context.Context, latestStart time.Time) ([]model.Reservation, error)
    // SaveReservation persists a reservation's status transition.
    SaveReservation(ctx context.Context, r model.Reservation) error

    // Allocate atomically assigns the reservation to the table and
    // inserts it.  The implementation must re-validate inside its
    // transaction that no active reservation with an overlapping
    // effective interval already claims the table, returning ErrConflict
    // when one does.  Either the reservation row and the table claim both
    // commit, or neither does.
    Allocate(ctx context.Context, r *model.Reservation, tableID uint64) error
}
