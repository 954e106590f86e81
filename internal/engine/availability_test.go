package engine

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

var testPolicy = Policy{
    ServiceWindow: 2 * time.Hour,
    ArrivalBuffer: 15 * time.Minute,
    GracePeriod:   30 * time.Minute,
    DebounceDwell: 3 * time.Second,
}

func at(hour, min int) time.Time {
    return time.Date(2026, 9, 1, hour, min, 0, 0, time.UTC)
}

func tbl(id uint64, capacity uint32) model.Table {
    return model.Table{ID: id, Capacity: capacity, State: model.TableAvailable}
}

func resv(tableID uint64, startsAt time.Time, status model.ReservationStatus) model.Reservation {
    return model.Reservation{ID: tableID*100 + 1, PartySize: 2, StartsAt: startsAt, TableID: &tableID, Status: status}
}

func TestResolveAvailabilityFiltersByCapacity(t *testing.T) {
    tables := []model.Table{tbl(1, 2), tbl(2, 4), tbl(3, 8)}

    got := ResolveAvailability(tables, nil, at(19, 0), 4, testPolicy)

    assert.Len(t, got, 2)
    assert.Equal(t, uint64(2), got[0].ID)
    assert.Equal(t, uint64(3), got[1].ID)
}

func TestResolveAvailabilityExcludesOverlappingReservations(t *testing.T) {
    // A 19:00 reservation with a 2h window and 15m buffer holds its table
    // for 18:45-21:15.  A request at 20:00 collides; 21:30 does not.
    tables := []model.Table{tbl(1, 4)}
    active := map[uint64][]model.Reservation{
        1: {resv(1, at(19, 0), model.ReservationConfirmed)},
    }

    assert.Empty(t, ResolveAvailability(tables, active, at(20, 0), 2, testPolicy))
    assert.Len(t, ResolveAvailability(tables, active, at(21, 30), 2, testPolicy), 1)
}

func TestResolveAvailabilityTouchingIntervalsCoexist(t *testing.T) {
    // The 19:00 hold ends at 21:15 exactly; a request whose own buffer
    // starts at 21:15 (starts_at 21:30) touches without overlap.
    tables := []model.Table{tbl(1, 4)}
    active := map[uint64][]model.Reservation{
        1: {resv(1, at(19, 0), model.ReservationPending)},
    }

    got := ResolveAvailability(tables, active, at(21, 30), 2, testPolicy)
    assert.Len(t, got, 1)
}

func TestResolveAvailabilityOrdersBestFitFirst(t *testing.T) {
    tables := []model.Table{tbl(5, 8), tbl(2, 4), tbl(7, 4), tbl(1, 6)}

    got := ResolveAvailability(tables, nil, at(19, 0), 3, testPolicy)

    ids := make([]uint64, 0, len(got))
    for _, tb := range got {
        ids = append(ids, tb.ID)
    }
    // Smallest sufficient capacity first, id breaks ties.
    assert.Equal(t, []uint64{2, 7, 1, 5}, ids)
}

func TestResolveAvailabilityIgnoresInactiveReservations(t *testing.T) {
    tables := []model.Table{tbl(1, 4)}
    cancelled := resv(1, at(19, 0), model.ReservationCancelled)
    expired := resv(1, at(19, 0), model.ReservationExpired)
    active := map[uint64][]model.Reservation{1: {cancelled, expired}}

    got := ResolveAvailability(tables, active, at(19, 0), 2, testPolicy)
    assert.Len(t, got, 1)
}

func TestResolveAvailabilityEmptyIsNotAnError(t *testing.T) {
    got := ResolveAvailability(nil, nil, at(19, 0), 2, testPolicy)
    assert.NotNil(t, got)
    assert.Empty(t, got)
}
