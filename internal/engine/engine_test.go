package engine

import (
    "context"
    "errors"
    "sort"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/restaurant-table-reservation/internal/hub"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// memStore is an in-memory Store used by the engine tests.  Allocate
// performs the same overlap re-check the SQL implementation does, and a
// test can force a one-shot conflict to exercise the retry path.
type memStore struct {
    mu           sync.Mutex
    tables       map[uint64]model.Table
    reservations map[uint64]model.Reservation
    nextResID    uint64

    window time.Duration
    buffer time.Duration

    forcedConflicts int // Allocate fails with ErrConflict this many times
}

func newMemStore(pol Policy, tables ...model.Table) *memStore {
    s := &memStore{
        tables:       make(map[uint64]model.Table),
        reservations: make(map[uint64]model.Reservation),
        window:       pol.ServiceWindow,
        buffer:       pol.ArrivalBuffer,
    }
    for _, t := range tables {
        s.tables[t.ID] = t
    }
    return s
}

func (s *memStore) Table(ctx context.Context, id uint64) (model.Table, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    t, ok := s.tables[id]
    if !ok {
        return model.Table{}, repository.ErrTableNotFound
    }
    return t, nil
}

func (s *memStore) Tables(ctx context.Context) ([]model.Table, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Table, 0, len(s.tables))
    for _, t := range s.tables {
        out = append(out, t)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (s *memStore) SaveTable(ctx context.Context, t model.Table) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.tables[t.ID]; !ok {
        return repository.ErrTableNotFound
    }
    s.tables[t.ID] = t
    return nil
}

func (s *memStore) Reservation(ctx context.Context, id uint64) (model.Reservation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.reservations[id]
    if !ok {
        return model.Reservation{}, repository.ErrReservationNotFound
    }
    return r, nil
}

func (s *memStore) ActiveReservations(ctx context.Context, tableID uint64) ([]model.Reservation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Reservation, 0)
    for _, r := range s.reservations {
        if r.TableID != nil && *r.TableID == tableID && r.Status.Active() {
            out = append(out, r)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
    return out, nil
}

func (s *memStore) ListActiveReservations(ctx context.Context) ([]model.Reservation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Reservation, 0)
    for _, r := range s.reservations {
        if r.Status.Active() {
            out = append(out, r)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
    return out, nil
}

func (s *memStore) ExpirableReservations(ctx context.Context, latestStart time.Time) ([]model.Reservation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Reservation, 0)
    for _, r := range s.reservations {
        if (r.Status == model.ReservationPending || r.Status == model.ReservationConfirmed) && !r.StartsAt.After(latestStart) {
            out = append(out, r)
        }
    }
    return out, nil
}

func (s *memStore) SaveReservation(ctx context.Context, r model.Reservation) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.reservations[r.ID]; !ok {
        return repository.ErrReservationNotFound
    }
    s.reservations[r.ID] = r
    return nil
}

func (s *memStore) Allocate(ctx context.Context, r *model.Reservation, tableID uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.forcedConflicts > 0 {
        s.forcedConflicts--
        return repository.ErrConflict
    }
    reqStart, reqEnd := r.EffectiveInterval(s.window, s.buffer)
    for _, other := range s.reservations {
        if other.TableID == nil || *other.TableID != tableID || !other.Status.Active() {
            continue
        }
        start, end := other.EffectiveInterval(s.window, s.buffer)
        if model.Overlaps(reqStart, reqEnd, start, end) {
            return repository.ErrConflict
        }
    }
    s.nextResID++
    r.ID = s.nextResID
    r.TableID = &tableID
    s.reservations[r.ID] = *r
    return nil
}

// newTestEngine wires an engine over a memStore with a fixed clock.
func newTestEngine(t *testing.T, now time.Time, tables ...model.Table) (*Engine, *memStore, *hub.Hub) {
    t.Helper()
    s := newMemStore(testPolicy, tables...)
    h := hub.New(16)
    t.Cleanup(h.Close)
    eng := New(s, h, testPolicy)
    eng.now = func() time.Time { return now }
    return eng, s, h
}

func drainEvents(sub *hub.Subscriber) []model.StateChangeEvent {
    out := []model.StateChangeEvent{}
    for {
        select {
        case ev := <-sub.Events():
            out = append(out, ev)
        default:
            return out
        }
    }
}

func TestAllocatePicksBestFitAndReservesCurrentWindow(t *testing.T) {
    now := at(19, 0)
    eng, s, h := newTestEngine(t, now, settledTable(1, model.TableAvailable, 0), tbl(2, 8))
    sub := h.Subscribe()
    defer sub.Close()

    res, err := eng.Allocate(context.Background(), BookingRequest{
        PartySize:   2,
        StartsAt:    now, // window covers the present moment
        ContactName: "Ana",
        Confirmed:   true,
    })
    require.NoError(t, err)
    require.NotNil(t, res.TableID)
    assert.Equal(t, uint64(1), *res.TableID) // capacity 4 beats capacity 8
    assert.Equal(t, model.ReservationConfirmed, res.Status)

    got, err := s.Table(context.Background(), 1)
    require.NoError(t, err)
    assert.Equal(t, model.TableReserved, got.State)

    evs := drainEvents(sub)
    require.Len(t, evs, 1)
    assert.Equal(t, model.TableReserved, evs[0].NewState)
    assert.Equal(t, model.CauseReservation, evs[0].Cause)
}

func TestAllocateFutureBookingLeavesTableAlone(t *testing.T) {
    now := at(12, 0)
    eng, s, h := newTestEngine(t, now, settledTable(1, model.TableAvailable, 0))
    sub := h.Subscribe()
    defer sub.Close()

    _, err := eng.Allocate(context.Background(), BookingRequest{
        PartySize:   2,
        StartsAt:    at(20, 0), // hours away
        ContactName: "Ben",
    })
    require.NoError(t, err)

    got, _ := s.Table(context.Background(), 1)
    assert.Equal(t, model.TableAvailable, got.State)
    assert.Empty(t, drainEvents(sub))
}

func TestAllocateNoCapacity(t *testing.T) {
    eng, _, _ := newTestEngine(t, at(12, 0), settledTable(1, model.TableAvailable, 0))

    _, err := eng.Allocate(context.Background(), BookingRequest{
        PartySize:   9, // larger than any table
        StartsAt:    at(20, 0),
        ContactName: "Cara",
    })
    assert.ErrorIs(t, err, ErrNoCapacity)
}

func TestAllocateRetriesOnceAfterConflict(t *testing.T) {
    eng, s, _ := newTestEngine(t, at(12, 0), settledTable(1, model.TableAvailable, 0))
    s.forcedConflicts = 1

    res, err := eng.Allocate(context.Background(), BookingRequest{
        PartySize:   2,
        StartsAt:    at(20, 0),
        ContactName: "Dan",
    })
    require.NoError(t, err)
    assert.NotZero(t, res.ID)
}

func TestAllocateGivesUpAfterSecondConflict(t *testing.T) {
    eng, s, _ := newTestEngine(t, at(12, 0), settledTable(1, model.TableAvailable, 0))
    s.forcedConflicts = 2

    _, err := eng.Allocate(context.Background(), BookingRequest{
        PartySize:   2,
        StartsAt:    at(20, 0),
        ContactName: "Eve",
    })
    assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestCancelReleasesReservedTable(t *testing.T) {
    now := at(19, 0)
    eng, s, h := newTestEngine(t, now, settledTable(1, model.TableAvailable, 0))

    res, err := eng.Allocate(context.Background(), BookingRequest{
        PartySize: 2, StartsAt: now, ContactName: "Fay",
    })
    require.NoError(t, err)

    sub := h.Subscribe()
    defer sub.Close()

    require.NoError(t, eng.Cancel(context.Background(), res.ID))

    got, _ := s.Reservation(context.Background(), res.ID)
    assert.Equal(t, model.ReservationCancelled, got.Status)
    tb, _ := s.Table(context.Background(), 1)
    assert.Equal(t, model.TableAvailable, tb.State)

    evs := drainEvents(sub)
    require.Len(t, evs, 1)
    assert.Equal(t, model.TableAvailable, evs[0].NewState)

    // Cancelling again is a no-op.
    assert.NoError(t, eng.Cancel(context.Background(), res.ID))
}

func TestCancelCompletedIsRefused(t *testing.T) {
    now := at(19, 0)
    eng, s, _ := newTestEngine(t, now, settledTable(1, model.TableAvailable, 0))

    res, err := eng.Allocate(context.Background(), BookingRequest{
        PartySize: 2, StartsAt: now, ContactName: "Gil",
    })
    require.NoError(t, err)

    res.Status = model.ReservationCompleted
    require.NoError(t, s.SaveReservation(context.Background(), res))

    assert.ErrorIs(t, eng.Cancel(context.Background(), res.ID), repository.ErrConflict)
}

func TestIngestUnknownTableIsSkipped(t *testing.T) {
    eng, s, _ := newTestEngine(t, at(19, 0), settledTable(1, model.TableAvailable, 0))

    err := eng.Ingest(context.Background(), []model.TelemetrySample{
        {TableID: 99, PersonCount: 4, ObservedAt: at(19, 0)}, // not provisioned
        {TableID: 1, PersonCount: 2, ObservedAt: at(19, 0)},
    })
    require.NoError(t, err)

    // No table 99 was created, and table 1 still got its update.
    _, err = s.Table(context.Background(), 99)
    assert.ErrorIs(t, err, repository.ErrTableNotFound)
    tb, _ := s.Table(context.Background(), 1)
    assert.Equal(t, model.TableOccupied, tb.State)
    assert.Equal(t, uint32(2), tb.PersonCount)
}

func TestIngestAppliesSamplesInOrder(t *testing.T) {
    eng, s, _ := newTestEngine(t, at(19, 0), settledTable(1, model.TableAvailable, 0))

    err := eng.Ingest(context.Background(), []model.TelemetrySample{
        {TableID: 1, PersonCount: 2, ObservedAt: at(19, 0)},
        {TableID: 1, PersonCount: 3, ObservedAt: at(19, 0)},
    })
    require.NoError(t, err)

    tb, _ := s.Table(context.Background(), 1)
    assert.Equal(t, model.TableOccupied, tb.State)
    assert.Equal(t, uint32(3), tb.PersonCount) // last sample wins
}

func TestOverrideHoldsAgainstTelemetry(t *testing.T) {
    now := at(19, 0)
    eng, s, _ := newTestEngine(t, now, settledTable(1, model.TableAvailable, 0))

    tb, err := eng.Override(context.Background(), 1, model.TableOccupied, 7)
    require.NoError(t, err)
    assert.Equal(t, model.TableOccupied, tb.State)

    // An empty telemetry reading cannot displace the override.
    require.NoError(t, eng.Ingest(context.Background(), []model.TelemetrySample{
        {TableID: 1, PersonCount: 0, ObservedAt: now},
    }))
    got, _ := s.Table(context.Background(), 1)
    assert.Equal(t, model.TableOccupied, got.State)
}

func TestOverrideClearedByReservationChange(t *testing.T) {
    now := at(19, 0)
    eng, s, _ := newTestEngine(t, now, settledTable(1, model.TableAvailable, 0))

    _, err := eng.Override(context.Background(), 1, model.TableOccupied, 7)
    require.NoError(t, err)

    // Allocating the table for the current window supersedes the override.
    res, err := eng.Allocate(context.Background(), BookingRequest{
        PartySize: 2, StartsAt: now, ContactName: "Hal",
    })
    require.NoError(t, err)
    require.NotNil(t, res.TableID)
    assert.Equal(t, uint64(1), *res.TableID)

    got, _ := s.Table(context.Background(), 1)
    assert.Equal(t, model.TableReserved, got.State)

    // With the override gone, telemetry rules again after the claim ends.
    require.NoError(t, eng.Cancel(context.Background(), res.ID))
    got, _ = s.Table(context.Background(), 1)
    assert.Equal(t, model.TableAvailable, got.State)
}

func TestOverrideUnknownTable(t *testing.T) {
    eng, _, _ := newTestEngine(t, at(19, 0))

    _, err := eng.Override(context.Background(), 42, model.TableOccupied, 7)
    assert.ErrorIs(t, err, repository.ErrTableNotFound)
}

func TestSweepExpiresAbandonedReservations(t *testing.T) {
    booked := at(12, 0)
    eng, s, h := newTestEngine(t, booked, settledTable(1, model.TableAvailable, 0))

    res, err := eng.Allocate(context.Background(), BookingRequest{
        PartySize: 2, StartsAt: booked, ContactName: "Ivy",
    })
    require.NoError(t, err)

    // Advance past starts_at + window + grace without anyone being seated.
    late := booked.Add(testPolicy.ServiceWindow + testPolicy.GracePeriod + time.Minute)
    eng.now = func() time.Time { return late }

    sub := h.Subscribe()
    defer sub.Close()

    expired, err := eng.Sweep(context.Background(), late)
    require.NoError(t, err)
    require.Len(t, expired, 1)
    assert.Equal(t, res.ID, expired[0].ReservationID)
    assert.Equal(t, uint64(1), expired[0].TableID)

    got, _ := s.Reservation(context.Background(), res.ID)
    assert.Equal(t, model.ReservationExpired, got.Status)
    tb, _ := s.Table(context.Background(), 1)
    assert.Equal(t, model.TableAvailable, tb.State)

    evs := drainEvents(sub)
    require.Len(t, evs, 1)
    assert.Equal(t, model.CauseExpiry, evs[0].Cause)

    // A second sweep over the same rows is a no-op.
    expired, err = eng.Sweep(context.Background(), late)
    require.NoError(t, err)
    assert.Empty(t, expired)
}

func TestSweepLeavesSeatedPartiesAlone(t *testing.T) {
    booked := at(12, 0)
    eng, s, _ := newTestEngine(t, booked, settledTable(1, model.TableAvailable, 0))

    res, err := eng.Allocate(context.Background(), BookingRequest{
        PartySize: 2, StartsAt: booked, ContactName: "Jon",
    })
    require.NoError(t, err)

    // The party arrives: telemetry seats them.
    require.NoError(t, eng.Ingest(context.Background(), []model.TelemetrySample{
        {TableID: 1, PersonCount: 2, ObservedAt: booked.Add(10 * time.Minute)},
    }))
    got, _ := s.Reservation(context.Background(), res.ID)
    require.Equal(t, model.ReservationInProgress, got.Status)

    late := booked.Add(testPolicy.ServiceWindow + testPolicy.GracePeriod + time.Minute)
    eng.now = func() time.Time { return late }

    expired, err := eng.Sweep(context.Background(), late)
    require.NoError(t, err)
    assert.Empty(t, expired)

    got, _ = s.Reservation(context.Background(), res.ID)
    assert.Equal(t, model.ReservationInProgress, got.Status)
}

func TestAvailabilityDoesNotCommit(t *testing.T) {
    eng, s, _ := newTestEngine(t, at(12, 0), settledTable(1, model.TableAvailable, 0))

    tables, err := eng.Availability(context.Background(), at(19, 0), 2)
    require.NoError(t, err)
    assert.Len(t, tables, 1)

    actives, _ := s.ListActiveReservations(context.Background())
    assert.Empty(t, actives)
}

func TestConcurrentBookingsNeverDoubleBook(t *testing.T) {
    now := at(12, 0)
    eng, s, _ := newTestEngine(t, now, settledTable(1, model.TableAvailable, 0))

    const attempts = 8
    var wg sync.WaitGroup
    errs := make([]error, attempts)
    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            _, errs[i] = eng.Allocate(context.Background(), BookingRequest{
                PartySize: 2, StartsAt: at(20, 0), ContactName: "Kim",
            })
        }(i)
    }
    wg.Wait()

    wins := 0
    for _, err := range errs {
        switch {
        case err == nil:
            wins++
        case errors.Is(err, repository.ErrConflict), errors.Is(err, ErrNoCapacity):
        default:
            t.Fatalf("unexpected error: %v", err)
        }
    }
    assert.Equal(t, 1, wins)

    actives, _ := s.ListActiveReservations(context.Background())
    assert.Len(t, actives, 1)
}
