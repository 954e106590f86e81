package engine

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

func settledTable(id uint64, state model.TableState, count uint32) model.Table {
    // last_state_change far enough back that the debounce dwell is over
    return model.Table{
        ID:              id,
        Capacity:        4,
        State:           state,
        PersonCount:     count,
        LastStateChange: at(12, 0),
    }
}

func sample(count uint32) *model.TelemetrySample {
    return &model.TelemetrySample{TableID: 1, PersonCount: count, ObservedAt: at(19, 0)}
}

func TestReconcileTelemetryOccupiesQuietTable(t *testing.T) {
    out := Reconcile(ReconcileInput{
        Table:  settledTable(1, model.TableAvailable, 0),
        Sample: sample(3),
        Cause:  model.CauseTelemetry,
        Now:    at(19, 0),
    }, testPolicy)

    assert.Equal(t, model.TableOccupied, out.State)
    assert.Equal(t, uint32(3), out.PersonCount)
    require.NotNil(t, out.Event)
    assert.Equal(t, model.TableAvailable, out.Event.PreviousState)
    assert.Equal(t, model.TableOccupied, out.Event.NewState)
    assert.Equal(t, model.CauseTelemetry, out.Event.Cause)
}

func TestReconcileTelemetryFreesEmptiedTable(t *testing.T) {
    out := Reconcile(ReconcileInput{
        Table:  settledTable(1, model.TableOccupied, 2),
        Sample: sample(0),
        Cause:  model.CauseTelemetry,
        Now:    at(19, 0),
    }, testPolicy)

    assert.Equal(t, model.TableAvailable, out.State)
    assert.Equal(t, uint32(0), out.PersonCount)
    require.NotNil(t, out.Event)
}

func TestReconcileNoChangeEmitsNoEvent(t *testing.T) {
    out := Reconcile(ReconcileInput{
        Table:  settledTable(1, model.TableOccupied, 2),
        Sample: sample(2),
        Cause:  model.CauseTelemetry,
        Now:    at(19, 0),
    }, testPolicy)

    assert.Equal(t, model.TableOccupied, out.State)
    assert.Nil(t, out.Event)
}

func TestReconcileDebounceHoldsRecentFlip(t *testing.T) {
    tb := settledTable(1, model.TableOccupied, 2)
    tb.LastStateChange = at(19, 0).Add(-time.Second) // flipped one second ago

    out := Reconcile(ReconcileInput{
        Table:  tb,
        Sample: sample(0),
        Cause:  model.CauseTelemetry,
        Now:    at(19, 0),
    }, testPolicy)

    // The zero reading inside the dwell is treated as noise.
    assert.Equal(t, model.TableOccupied, out.State)
    assert.Nil(t, out.Event)
    // But the displayed count still follows the sample.
    assert.Equal(t, uint32(0), out.PersonCount)
}

func TestReconcileClaimPinsTableToReserved(t *testing.T) {
    claim := resv(1, at(19, 0), model.ReservationConfirmed)

    out := Reconcile(ReconcileInput{
        Table: settledTable(1, model.TableAvailable, 0),
        Claim: &claim,
        Cause: model.CauseReservation,
        Now:   at(18, 50), // inside the arrival buffer
    }, testPolicy)

    assert.Equal(t, model.TableReserved, out.State)
    require.NotNil(t, out.Event)
    assert.Equal(t, model.CauseReservation, out.Event.Cause)
}

func TestReconcileTelemetryCannotDisplaceClaim(t *testing.T) {
    claim := resv(1, at(19, 0), model.ReservationConfirmed)

    out := Reconcile(ReconcileInput{
        Table:  settledTable(1, model.TableReserved, 0),
        Claim:  &claim,
        Sample: sample(0), // empty reading while the window is claimed
        Cause:  model.CauseTelemetry,
        Now:    at(19, 10),
    }, testPolicy)

    assert.Equal(t, model.TableReserved, out.State)
    assert.Nil(t, out.Event)
}

func TestReconcileSeatingAdvancesClaimToInProgress(t *testing.T) {
    claim := resv(1, at(19, 0), model.ReservationConfirmed)

    out := Reconcile(ReconcileInput{
        Table:  settledTable(1, model.TableReserved, 0),
        Claim:  &claim,
        Sample: sample(2),
        Cause:  model.CauseTelemetry,
        Now:    at(19, 5),
    }, testPolicy)

    assert.Equal(t, model.ReservationInProgress, out.ClaimStatus)
    assert.Equal(t, model.TableReserved, out.State)
}

func TestReconcileDepartureCompletesClaimAndReleasesTable(t *testing.T) {
    claim := resv(1, at(19, 0), model.ReservationInProgress)

    out := Reconcile(ReconcileInput{
        Table:  settledTable(1, model.TableReserved, 2),
        Claim:  &claim,
        Sample: sample(0),
        Cause:  model.CauseTelemetry,
        Now:    at(20, 0),
    }, testPolicy)

    // Completion releases the claim within the same reconciliation.
    assert.Equal(t, model.ReservationCompleted, out.ClaimStatus)
    assert.Equal(t, model.TableAvailable, out.State)
    require.NotNil(t, out.Event)
    assert.Equal(t, model.TableAvailable, out.Event.NewState)
}

func TestReconcileExpiredClaimNoLongerPins(t *testing.T) {
    // A claim whose effective interval has fully elapsed cannot hold the
    // table, whatever its stored status says.
    claim := resv(1, at(12, 0), model.ReservationConfirmed)

    out := Reconcile(ReconcileInput{
        Table: settledTable(1, model.TableReserved, 0),
        Claim: &claim,
        Cause: model.CauseExpiry,
        Now:   at(19, 0),
    }, testPolicy)

    assert.Equal(t, model.TableAvailable, out.State)
}

func TestReconcileOverrideBeatsEverything(t *testing.T) {
    claim := resv(1, at(19, 0), model.ReservationConfirmed)
    ov := &model.ManualOverride{TableID: 1, RequestedState: model.TableAvailable, OperatorID: 7, IssuedAt: at(18, 59)}

    out := Reconcile(ReconcileInput{
        Table:    settledTable(1, model.TableReserved, 0),
        Claim:    &claim,
        Sample:   sample(3),
        Override: ov,
        Cause:    model.CauseManual,
        Now:      at(19, 0),
    }, testPolicy)

    assert.Equal(t, model.TableAvailable, out.State)
    require.NotNil(t, out.Event)
    assert.Equal(t, model.CauseManual, out.Event.Cause)
}

func TestReconcileIsIdempotent(t *testing.T) {
    in := ReconcileInput{
        Table:  settledTable(1, model.TableAvailable, 0),
        Sample: sample(3),
        Cause:  model.CauseTelemetry,
        Now:    at(19, 0),
    }

    first := Reconcile(in, testPolicy)

    // Re-run with the first outcome applied: no further change.
    in.Table.State = first.State
    in.Table.PersonCount = first.PersonCount
    in.Table.LastStateChange = at(19, 0)
    second := Reconcile(in, testPolicy)

    assert.Equal(t, first.State, second.State)
    assert.Nil(t, second.Event)
}
