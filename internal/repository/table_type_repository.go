package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// TableTypeRepo provides CRUD operations for table types.
type TableTypeRepo struct {
    db *sql.DB
}

// NewTableTypeRepo returns a new TableTypeRepo bound to the given database.
func NewTableTypeRepo(db *sql.DB) *TableTypeRepo { return &TableTypeRepo{db: db} }

// GetByID returns a single table type, or ErrTableTypeNotFound.
func (r *TableTypeRepo) GetByID(ctx context.Context, id uint64) (model.TableType, error) {
    var t model.TableType
    err := r.db.QueryRowContext(ctx,
        `SELECT id, name, seats, created_at, updated_at FROM table_types WHERE id = ?`, id).
        Scan(&t.ID, &t.Name, &t.Seats, &t.CreatedAt, &t.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return model.TableType{}, ErrTableTypeNotFound
    }
    return t, err
}

// List returns all table types ordered by id.
func (r *TableTypeRepo) List(ctx context.Context) ([]model.TableType, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, name, seats, created_at, updated_at FROM table_types ORDER BY id`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.TableType, 0)
    for rows.Next() {
        var t model.TableType
        if err := rows.Scan(&t.ID, &t.Name, &t.Seats, &t.CreatedAt, &t.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}

// Create inserts a new table type and populates the generated id and
// timestamps on t.
func (r *TableTypeRepo) Create(ctx context.Context, t *model.TableType) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO table_types (name, seats) VALUES (?, ?)`, t.Name, t.Seats)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    got, err := r.GetByID(ctx, t.ID)
    if err != nil {
        return err
    }
    *t = got
    return nil
}

// Update changes a table type's name and seat count.
func (r *TableTypeRepo) Update(ctx context.Context, t model.TableType) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE table_types SET name = ?, seats = ? WHERE id = ?`, t.Name, t.Seats, t.ID)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        if _, err := r.GetByID(ctx, t.ID); err != nil {
            return err
        }
    }
    return nil
}

// Delete removes a table type.  Tables referencing it keep their copied
// capacity; the foreign key nulls their type_id.
func (r *TableTypeRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, `DELETE FROM table_types WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrTableTypeNotFound
    }
    return nil
}
