package engine

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Expired reports one reservation the sweeper abandoned, together with
// the table it released (0 when the reservation was never allocated).
type Expired struct {
    ReservationID uint64
    TableID       uint64
}

// Sweep expires every PENDING or CONFIRMED reservation whose service
// window plus grace period has elapsed without the party ever being
// seated, and reconciles each released table.  Each expiry is its own
// atomic transition: the sweep can be cancelled between items without
// leaving partially-expired state, failures are isolated per reservation,
// and re-running over the same rows is a no-op.
func (e *Engine) Sweep(ctx context.Context, now time.Time) ([]Expired, error) {
    latestStart := now.Add(-(e.pol.ServiceWindow + e.pol.GracePeriod))
    stale, err := e.store.ExpirableReservations(ctx, latestStart)
    if err != nil {
        return nil, err
    }

    var out []Expired
    var errs []error
    for _, r := range stale {
        if ctx.Err() != nil {
            break
        }
        released, err := e.expireOne(ctx, r.ID, r.TableID)
        if err != nil {
            errs = append(errs, fmt.Errorf("reservation %d: %w", r.ID, err))
            continue
        }
        if released >= 0 {
            out = append(out, Expired{ReservationID: r.ID, TableID: uint64(released)})
        }
    }
    return out, errors.Join(errs...)
}

// expireOne transitions a single reservation to EXPIRED under its table's
// lock.  The status is re-read after acquiring the lock so a concurrent
// seating or cancellation wins; returns -1 when nothing was expired.
func (e *Engine) expireOne(ctx context.Context, id uint64, tableID *uint64) (int64, error) {
    if tableID != nil {
        unlock := e.lockTable(*tableID)
        defer unlock()
    }

    cur, err := e.store.Reservation(ctx, id)
    if err != nil {
        return -1, err
    }
    if cur.Status != model.ReservationPending && cur.Status != model.ReservationConfirmed {
        return -1, nil // seated, cancelled or already expired since listing
    }

    cur.Status = model.ReservationExpired
    if err := e.store.SaveReservation(ctx, cur); err != nil {
        return -1, err
    }
    if cur.TableID == nil {
        return 0, nil
    }
    if _, _, err := e.reconcileLocked(ctx, *cur.TableID, model.CauseExpiry, nil); err != nil {
        return -1, err
    }
    return int64(*cur.TableID), nil
}

// Sweeper runs Sweep on a fixed interval until its context is cancelled.
type Sweeper struct {
    eng      *Engine
    interval time.Duration
}

// NewSweeper returns a sweeper over the engine.  A non-positive interval
// defaults to five minutes.
func NewSweeper(eng *Engine, interval time.Duration) *Sweeper {
    if interval <= 0 {
        interval = 5 * time.Minute
    }
    return &Sweeper{eng: eng, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.  Sweep
// errors are logged and the loop continues; a mid-sweep cancellation
// stops cleanly between reservations.
func (s *Sweeper) Run(ctx context.Context) {
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            expired, err := s.eng.Sweep(ctx, time.Now().UTC())
            if err != nil {
                log.Printf("sweeper: %v", err)
            }
            if len(expired) > 0 {
                log.Printf("sweeper: expired %d reservation(s)", len(expired))
            }
        }
    }
}
