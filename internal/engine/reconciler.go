package engine

import (
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "time"
)

// ReconcileInput gathers everything that may influence a table's state at
// one instant.  Claim is the active reservation currently claiming the
// table, if any; Sample is the telemetry reading being applied, if this
// reconciliation was telemetry-driven; Override is the operator's
// standing override, if one is in force.
type ReconcileInput struct {
    Table    model.Table
    Claim    *model.Reservation
    Sample   *model.TelemetrySample
    Override *model.ManualOverride
    Cause    model.ChangeCause
    Now      time.Time
}

// ReconcileResult is the outcome of one reconciliation.  Event is non-nil
// only when the occupancy state actually flipped; ClaimStatus is non-empty
// only when the claiming reservation's lifecycle advanced.
type ReconcileResult struct {
    State       model.TableState
    PersonCount uint32
    ClaimStatus model.ReservationStatus
    Event       *model.StateChangeEvent
}

// Reconcile computes a table's canonical occupancy state from its three
// inputs with fixed precedence: manual override, then active reservation
// claim, then telemetry, then the default of Available.  It is pure and
// deterministic; re-running it on unchanged inputs is a no-op.
//
// Under an active claim the state is pinned to Reserved and telemetry may
// not displace it, but the sample still updates the displayed person
// count and drives the reservation's own lifecycle: a first non-zero
// count inside the window seats the party (-> IN_PROGRESS), and a zero
// count after seating completes it (-> COMPLETED), which releases the
// claim within the same reconciliation.
//
// Telemetry-driven flips are debounced by dwell time: a flip is
// suppressed while the table has held its state for less than
// pol.DebounceDwell.  Reservation, manual and expiry causes are never
// debounced.
func Reconcile(in ReconcileInput, pol Policy) ReconcileResult {
    prev := in.Table.State
    if prev == "" {
        prev = model.TableAvailable
    }

    count := in.Table.PersonCount
    if in.Sample != nil {
        count = in.Sample.PersonCount
    }

    out := ReconcileResult{State: prev, PersonCount: count}

    claimed := false
    if in.Claim != nil && in.Claim.ClaimsAt(in.Now, pol.ServiceWindow, pol.ArrivalBuffer) {
        claimed = true
        if in.Sample != nil {
            switch in.Claim.Status {
            case model.ReservationPending, model.ReservationConfirmed:
                if count > 0 {
                    out.ClaimStatus = model.ReservationInProgress
                }
            case model.ReservationInProgress:
                if count == 0 {
                    out.ClaimStatus = model.ReservationCompleted
                    claimed = false
                }
            }
        }
    }

    next := prev
    switch {
    case in.Override != nil:
        next = in.Override.RequestedState
    case claimed:
        next = model.TableReserved
    default:
        want := model.TableAvailable
        if count > 0 {
            want = model.TableOccupied
        }
        if want != prev && in.Cause == model.CauseTelemetry &&
            in.Now.Sub(in.Table.LastStateChange) < pol.DebounceDwell {
            want = prev // noisy single-sample flip; hold until dwell elapses
        }
        next = want
    }

    out.State = next
    if next != prev {
        out.Event = &model.StateChangeEvent{
            TableID:       in.Table.ID,
            PreviousState: prev,
            NewState:      next,
            Cause:         in.Cause,
            PersonCount:   count,
            OccurredAt:    in.Now,
        }
    }
    return out
}
