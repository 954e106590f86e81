package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  Rows are
// keyed by an auto-increment id; service times are stored as UTC DATETIME.
// The Tx-suffixed methods run inside a caller-owned transaction so the
// allocation guard can re-validate and insert as one atomic unit.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, party_size, starts_at, table_id, status, contact_name, contact_phone, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (model.Reservation, error) {
    var r model.Reservation
    var tableID sql.NullInt64
    var phone sql.NullString
    err := row.Scan(&r.ID, &r.PartySize, &r.StartsAt, &tableID, &r.Status, &r.ContactName, &phone, &r.CreatedAt, &r.UpdatedAt)
    if err != nil {
        return model.Reservation{}, err
    }
    if tableID.Valid {
        id := uint64(tableID.Int64)
        r.TableID = &id
    }
    if phone.Valid {
        r.ContactPhone = phone.String
    }
    return r, nil
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction.  It populates the generated ID and timestamps on the
// provided record.  The caller must commit or rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    result, err := tx.ExecContext(ctx,
        `INSERT INTO reservations (party_size, starts_at, table_id, status, contact_name, contact_phone) VALUES (?, ?, ?, ?, ?, ?)`,
        res.PartySize, res.StartsAt.UTC(), res.TableID, res.Status, res.ContactName, res.ContactPhone)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    // Query back the full row to populate timestamps and defaults.
    got, err := scanReservation(tx.QueryRowContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, res.ID))
    if err != nil {
        return err
    }
    *res = got
    return nil
}

// GetByID returns a single reservation.  ErrReservationNotFound is
// returned when the id does not exist.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
    res, err := scanReservation(r.db.QueryRowContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Reservation{}, ErrReservationNotFound
    }
    return res, err
}

// UpdateStatus persists a lifecycle transition for a single reservation.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE reservations SET status = ? WHERE id = ?`, status, id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        if _, err := r.GetByID(ctx, id); err != nil {
            return err
        }
    }
    return nil
}

// ActiveByTableTx returns the active reservations claiming a table, read
// inside the provided transaction.  When forUpdate is true the rows are
// locked with FOR UPDATE so a concurrent allocation against the same
// table blocks until this transaction resolves; this is the commit-time
// re-check that guards the double-booking race.
func (r *ReservationRepo) ActiveByTableTx(ctx context.Context, tx *sql.Tx, tableID uint64, forUpdate bool) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations
          WHERE table_id = ? AND status IN ('PENDING','CONFIRMED','IN_PROGRESS')
          ORDER BY starts_at`
    if forUpdate {
        q += ` FOR UPDATE`
    }
    return collectReservations(tx.QueryContext(ctx, q, tableID))
}

// ActiveByTable returns the active reservations claiming a table.
func (r *ReservationRepo) ActiveByTable(ctx context.Context, tableID uint64) ([]model.Reservation, error) {
    return collectReservations(r.db.QueryContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations
         WHERE table_id = ? AND status IN ('PENDING','CONFIRMED','IN_PROGRESS')
         ORDER BY starts_at`, tableID))
}

// ListActive returns every active reservation, ordered by table then
// service time.  The availability resolver consumes this to build its
// per-table conflict sets.
func (r *ReservationRepo) ListActive(ctx context.Context) ([]model.Reservation, error) {
    return collectReservations(r.db.QueryContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations
         WHERE status IN ('PENDING','CONFIRMED','IN_PROGRESS')
         ORDER BY table_id, starts_at`))
}

// ListExpirable returns PENDING and CONFIRMED reservations whose service
// time is at or before latestStart.  The sweeper computes latestStart as
// now minus the service window and grace period, so every returned row is
// past its abandonment deadline without ever having been seated.
func (r *ReservationRepo) ListExpirable(ctx context.Context, latestStart time.Time) ([]model.Reservation, error) {
    return collectReservations(r.db.QueryContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations
         WHERE status IN ('PENDING','CONFIRMED') AND starts_at <= ?
         ORDER BY starts_at`, latestStart.UTC()))
}

// ListRecent returns the most recently created reservations, newest first.
func (r *ReservationRepo) ListRecent(ctx context.Context, limit int) ([]model.Reservation, error) {
    if limit <= 0 {
        limit = 50
    }
    return collectReservations(r.db.QueryContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations ORDER BY created_at DESC LIMIT ?`, limit))
}

func collectReservations(rows *sql.Rows, err error) ([]model.Reservation, error) {
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        r, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, r)
    }
    return out, rows.Err()
}
