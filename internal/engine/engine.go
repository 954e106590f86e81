// Package engine implements the table state reconciliation and
// reservation allocation core: the conflict-aware booking allocator, the
// precedence-based occupancy reconciler, the telemetry ingestion bridge
// and the expiry sweeper.  All writes to a given table and its
// reservations are serialized through a per-table mutex; writers to
// different tables never block each other.
package engine

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/iliyamo/restaurant-table-reservation/internal/hub"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// ErrNoCapacity is returned by Allocate when no table can seat the
// requested party at the requested time.  It is an expected, user-facing
// outcome rather than a fault.
var ErrNoCapacity = errors.New("no table available for the requested time and party size")

// Engine owns the mutable table/reservation state.  Manual overrides are
// ephemeral and live only in memory; they survive until the next override
// or a reservation-driven change clears them.
type Engine struct {
    store Store
    hub   *hub.Hub
    pol   Policy

    mu        sync.Mutex
    locks     map[uint64]*sync.Mutex
    overrides map[uint64]model.ManualOverride

    now func() time.Time
}

// New constructs an engine over the given store and broadcast hub.
func New(store Store, h *hub.Hub, pol Policy) *Engine {
    return &Engine{
        store:     store,
        hub:       h,
        pol:       pol,
        locks:     make(map[uint64]*sync.Mutex),
        overrides: make(map[uint64]model.ManualOverride),
        now:       func() time.Time { return time.Now().UTC() },
    }
}

// Policy returns the engine's booking and reconciliation tunables.
func (e *Engine) Policy() Policy { return e.pol }

// lockTable acquires the per-table mutex and returns its release func.
func (e *Engine) lockTable(id uint64) func() {
    e.mu.Lock()
    m, ok := e.locks[id]
    if !ok {
        m = &sync.Mutex{}
        e.locks[id] = m
    }
    e.mu.Unlock()
    m.Lock()
    return m.Unlock
}

func (e *Engine) override(id uint64) *model.ManualOverride {
    e.mu.Lock()
    defer e.mu.Unlock()
    if ov, ok := e.overrides[id]; ok {
        return &ov
    }
    return nil
}

func (e *Engine) setOverride(ov model.ManualOverride) {
    e.mu.Lock()
    e.overrides[ov.TableID] = ov
    e.mu.Unlock()
}

func (e *Engine) clearOverride(id uint64) {
    e.mu.Lock()
    delete(e.overrides, id)
    e.mu.Unlock()
}

// BookingRequest is the input to Allocate.
type BookingRequest struct {
    PartySize    uint32
    StartsAt     time.Time
    ContactName  string
    ContactPhone string
    // Confirmed creates the reservation as CONFIRMED instead of PENDING
    // (walk-in desks confirm immediately; online intake leaves it pending).
    Confirmed bool
}

// Allocate resolves availability, picks the best-fitting table and commits
// the reservation atomically.  When the commit-time re-check loses the
// race to a concurrent booking the resolution is retried once from
// scratch; a second loss returns ErrConflict.  ErrNoCapacity is returned
// when no table qualifies.
func (e *Engine) Allocate(ctx context.Context, req BookingRequest) (model.Reservation, error) {
    status := model.ReservationPending
    if req.Confirmed {
        status = model.ReservationConfirmed
    }

    for attempt := 0; attempt < 2; attempt++ {
        tables, err := e.store.Tables(ctx)
        if err != nil {
            return model.Reservation{}, err
        }
        actives, err := e.store.ListActiveReservations(ctx)
        if err != nil {
            return model.Reservation{}, err
        }
        byTable := make(map[uint64][]model.Reservation)
        for _, r := range actives {
            if r.TableID != nil {
                byTable[*r.TableID] = append(byTable[*r.TableID], r)
            }
        }

        candidates := ResolveAvailability(tables, byTable, req.StartsAt, req.PartySize, e.pol)
        if len(candidates) == 0 {
            return model.Reservation{}, ErrNoCapacity
        }
        target := candidates[0]

        unlock := e.lockTable(target.ID)
        res := model.Reservation{
            PartySize:    req.PartySize,
            StartsAt:     req.StartsAt.UTC(),
            Status:       status,
            ContactName:  req.ContactName,
            ContactPhone: req.ContactPhone,
        }
        err = e.store.Allocate(ctx, &res, target.ID)
        if errors.Is(err, repository.ErrConflict) {
            unlock()
            continue // lost the race; re-resolve once
        }
        if err != nil {
            unlock()
            return model.Reservation{}, err
        }
        // The table's visible state only changes when the new claim
        // covers the present moment; the reconciler decides that.
        _, _, rerr := e.reconcileLocked(ctx, target.ID, model.CauseReservation, nil)
        unlock()
        if rerr != nil {
            return res, rerr
        }
        return res, nil
    }
    return model.Reservation{}, repository.ErrConflict
}

// Cancel sets a reservation to CANCELLED and re-evaluates its table.
// Completed reservations cannot be cancelled.  Cancelling twice is a
// no-op.
func (e *Engine) Cancel(ctx context.Context, id uint64) error {
    res, err := e.store.Reservation(ctx, id)
    if err != nil {
        return err
    }
    switch res.Status {
    case model.ReservationCompleted:
        return repository.ErrConflict
    case model.ReservationCancelled:
        return nil
    }

    if res.TableID == nil {
        res.Status = model.ReservationCancelled
        return e.store.SaveReservation(ctx, res)
    }

    tableID := *res.TableID
    unlock := e.lockTable(tableID)
    defer unlock()

    res.Status = model.ReservationCancelled
    if err := e.store.SaveReservation(ctx, res); err != nil {
        return err
    }
    _, _, err = e.reconcileLocked(ctx, tableID, model.CauseReservation, nil)
    return err
}

// Override records an operator's explicit state override for a table and
// reconciles immediately.  It fails only when the table does not exist.
// The override holds until the next override or a reservation-driven
// change; telemetry keeps updating person counts underneath it but can
// never displace it.
func (e *Engine) Override(ctx context.Context, tableID uint64, state model.TableState, operatorID uint64) (model.Table, error) {
    if _, err := e.store.Table(ctx, tableID); err != nil {
        return model.Table{}, err
    }
    unlock := e.lockTable(tableID)
    defer unlock()

    e.setOverride(model.ManualOverride{
        TableID:        tableID,
        RequestedState: state,
        OperatorID:     operatorID,
        IssuedAt:       e.now(),
    })
    t, _, err := e.reconcileLocked(ctx, tableID, model.CauseManual, nil)
    return t, err
}

// Availability resolves the eligible tables for a prospective booking
// without committing anything.
func (e *Engine) Availability(ctx context.Context, startsAt time.Time, partySize uint32) ([]model.Table, error) {
    tables, err := e.store.Tables(ctx)
    if err != nil {
        return nil, err
    }
    actives, err := e.store.ListActiveReservations(ctx)
    if err != nil {
        return nil, err
    }
    byTable := make(map[uint64][]model.Reservation)
    for _, r := range actives {
        if r.TableID != nil {
            byTable[*r.TableID] = append(byTable[*r.TableID], r)
        }
    }
    return ResolveAvailability(tables, byTable, startsAt, partySize, e.pol), nil
}

// Snapshot returns the current state of every table, used as the initial
// event on a new observer stream.
func (e *Engine) Snapshot(ctx context.Context) ([]model.Table, error) {
    return e.store.Tables(ctx)
}

// reconcileLocked loads the table and its claim, runs the pure reconciler
// and persists whatever changed.  The caller must hold the table's lock.
// Reservation-driven causes clear any standing manual override first, so
// an override never outlives the change that supersedes it.
func (e *Engine) reconcileLocked(ctx context.Context, tableID uint64, cause model.ChangeCause, sample *model.TelemetrySample) (model.Table, *model.StateChangeEvent, error) {
    if cause == model.CauseReservation || cause == model.CauseExpiry {
        e.clearOverride(tableID)
    }

    t, err := e.store.Table(ctx, tableID)
    if err != nil {
        return model.Table{}, nil, err
    }
    actives, err := e.store.ActiveReservations(ctx, tableID)
    if err != nil {
        return t, nil, err
    }

    now := e.now()
    var claim *model.Reservation
    for i := range actives {
        if actives[i].ClaimsAt(now, e.pol.ServiceWindow, e.pol.ArrivalBuffer) {
            claim = &actives[i]
            break // store orders by starts_at, so the earliest claim wins
        }
    }

    out := Reconcile(ReconcileInput{
        Table:    t,
        Claim:    claim,
        Sample:   sample,
        Override: e.override(tableID),
        Cause:    cause,
        Now:      now,
    }, e.pol)

    if out.ClaimStatus != "" && claim != nil {
        claim.Status = out.ClaimStatus
        if err := e.store.SaveReservation(ctx, *claim); err != nil {
            return t, nil, err
        }
    }

    changed := out.State != t.State
    if changed || out.PersonCount != t.PersonCount {
        t.State = out.State
        t.PersonCount = out.PersonCount
        if changed {
            t.LastStateChange = now
        }
        if err := e.store.SaveTable(ctx, t); err != nil {
            return t, nil, err
        }
    }

    if out.Event != nil && e.hub != nil {
        e.hub.Publish(*out.Event)
    }
    return t, out.Event, nil
}
