package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// TableRepo provides CRUD operations for tables.  Occupancy state writes
// flow through SaveState so that every persisted flip also records the
// person count and the moment of the change.  All timestamp fields are
// stored in UTC.
type TableRepo struct {
    db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span tables and reservations.
func (r *TableRepo) DB() *sql.DB { return r.db }

const tableColumns = `id, type_id, capacity, state, person_count, last_state_change, created_at, updated_at`

func scanTable(row interface{ Scan(...any) error }) (model.Table, error) {
    var t model.Table
    var typeID sql.NullInt64
    var lastChange sql.NullTime
    err := row.Scan(&t.ID, &typeID, &t.Capacity, &t.State, &t.PersonCount, &lastChange, &t.CreatedAt, &t.UpdatedAt)
    if err != nil {
        return model.Table{}, err
    }
    if typeID.Valid {
        id := uint64(typeID.Int64)
        t.TypeID = &id
    }
    if lastChange.Valid {
        t.LastStateChange = lastChange.Time
    }
    return t, nil
}

// GetByID returns a single table.  ErrTableNotFound is returned when the
// id does not exist.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (model.Table, error) {
    const q = `SELECT ` + tableColumns + ` FROM tables WHERE id = ?`
    t, err := scanTable(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Table{}, ErrTableNotFound
    }
    return t, err
}

// List returns all tables ordered by id.  When state is non-empty the
// result is filtered to tables currently in that state.
func (r *TableRepo) List(ctx context.Context, state model.TableState) ([]model.Table, error) {
    q := `SELECT ` + tableColumns + ` FROM tables`
    args := []any{}
    if state != "" {
        q += ` WHERE state = ?`
        args = append(args, state)
    }
    q += ` ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Table, 0)
    for rows.Next() {
        t, err := scanTable(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}

// Create inserts a new table.  When t.ID is non-zero the row is created
// with that id so that provisioning can mirror the detector's table
// numbering; otherwise the id is auto-assigned and populated on t.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
    if t.State == "" {
        t.State = model.TableAvailable
    }
    if t.ID != 0 {
        _, err := r.db.ExecContext(ctx,
            `INSERT INTO tables (id, type_id, capacity, state, person_count) VALUES (?, ?, ?, ?, ?)`,
            t.ID, t.TypeID, t.Capacity, t.State, t.PersonCount)
        if err != nil {
            return err
        }
    } else {
        res, err := r.db.ExecContext(ctx,
            `INSERT INTO tables (type_id, capacity, state, person_count) VALUES (?, ?, ?, ?)`,
            t.TypeID, t.Capacity, t.State, t.PersonCount)
        if err != nil {
            return err
        }
        id, err := res.LastInsertId()
        if err != nil {
            return err
        }
        t.ID = uint64(id)
    }
    // Query back the full row to populate timestamps and defaults.
    got, err := r.GetByID(ctx, t.ID)
    if err != nil {
        return err
    }
    *t = got
    return nil
}

// Update changes a table's type and capacity.  Occupancy state is not
// touched here; it belongs to the engine.
func (r *TableRepo) Update(ctx context.Context, t model.Table) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE tables SET type_id = ?, capacity = ? WHERE id = ?`,
        t.TypeID, t.Capacity, t.ID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        if _, err := r.GetByID(ctx, t.ID); err != nil {
            return err
        }
    }
    return nil
}

// SaveState persists the outcome of a reconciliation: the canonical state,
// the latest observed person count and the moment of the last state flip.
func (r *TableRepo) SaveState(ctx context.Context, id uint64, state model.TableState, personCount uint32, lastChange time.Time) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE tables SET state = ?, person_count = ?, last_state_change = ? WHERE id = ?`,
        state, personCount, lastChange.UTC(), id)
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

// Delete removes a table.  It refuses with ErrConflict while the table
// still has active reservations, matching the intake rule that physical
// table removal is an explicit operation and never a telemetry side
// effect.
func (r *TableRepo) Delete(ctx context.Context, id uint64) error {
    var active int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM reservations WHERE table_id = ? AND status IN ('PENDING','CONFIRMED','IN_PROGRESS')`,
        id).Scan(&active)
    if err != nil {
        return err
    }
    if active > 0 {
        return ErrConflict
    }
    res, err := r.db.ExecContext(ctx, `DELETE FROM tables WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrTableNotFound
    }
    return nil
}
