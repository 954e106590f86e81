// Package store adapts the MySQL repositories to the engine's Store
// interface.  It owns the one transaction the engine requires: the
// allocation commit that must re-validate and insert atomically.
package store

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// SQLStore implements engine.Store over the table and reservation
// repositories.  The window and buffer durations must match the engine's
// policy so the commit-time overlap re-check agrees with the resolver.
type SQLStore struct {
    db           *sql.DB
    tables       *repository.TableRepo
    reservations *repository.ReservationRepo
    window       time.Duration
    buffer       time.Duration
}

// New returns a SQLStore over the given repositories.
func New(db *sql.DB, tables *repository.TableRepo, reservations *repository.ReservationRepo, window, buffer time.Duration) *SQLStore {
    return &SQLStore{db: db, tables: tables, reservations: reservations, window: window, buffer: buffer}
}

func (s *SQLStore) Table(ctx context.Context, id uint64) (model.Table, error) {
    return s.tables.GetByID(ctx, id)
}

func (s *SQLStore) Tables(ctx context.Context) ([]model.Table, error) {
    return s.tables.List(ctx, "")
}

func (s *SQLStore) SaveTable(ctx context.Context, t model.Table) error {
    return s.tables.SaveState(ctx, t.ID, t.State, t.PersonCount, t.LastStateChange)
}

func (s *SQLStore) Reservation(ctx context.Context, id uint64) (model.Reservation, error) {
    return s.reservations.GetByID(ctx, id)
}

func (s *SQLStore) ActiveReservations(ctx context.Context, tableID uint64) ([]model.Reservation, error) {
    return s.reservations.ActiveByTable(ctx, tableID)
}

func (s *SQLStore) ListActiveReservations(ctx context.Context) ([]model.Reservation, error) {
    return s.reservations.ListActive(ctx)
}

func (s *SQLStore) ExpirableReservations(ctx context.Context, latestStart time.Time) ([]model.Reservation, error) {
    return s.reservations.ListExpirable(ctx, latestStart)
}

func (s *SQLStore) SaveReservation(ctx context.Context, r model.Reservation) error {
    return s.reservations.UpdateStatus(ctx, r.ID, r.Status)
}

// Allocate inserts the reservation against the table inside one
// transaction.  The table's active reservations are re-read with FOR
// UPDATE and re-checked for overlap at commit time, so two concurrent
// bookings that resolved to the same table cannot both commit; the loser
// gets repository.ErrConflict.
func (s *SQLStore) Allocate(ctx context.Context, r *model.Reservation, tableID uint64) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    existing, err := s.reservations.ActiveByTableTx(ctx, tx, tableID, true)
    if err != nil {
        return err
    }
    reqStart, reqEnd := r.EffectiveInterval(s.window, s.buffer)
    for _, other := range existing {
        start, end := other.EffectiveInterval(s.window, s.buffer)
        if model.Overlaps(reqStart, reqEnd, start, end) {
            return repository.ErrConflict
        }
    }

    r.TableID = &tableID
    if err := s.reservations.CreateTx(ctx, tx, r); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
