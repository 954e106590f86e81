package engine

import (
    "sort"
    "time"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Policy carries the booking and reconciliation tunables.  The defaults
// live in config; the engine never reads the environment itself.
type Policy struct {
    // ServiceWindow is the nominal duration a reservation occupies a
    // table (D).
    ServiceWindow time.Duration
    // ArrivalBuffer expands the window symmetrically to absorb early and
    // late arrivals (B).
    ArrivalBuffer time.Duration
    // GracePeriod is the extra time after the service window before a
    // never-seated reservation is considered abandoned.
    GracePeriod time.Duration
    // DebounceDwell is the minimum time a table must hold its state
    // before a telemetry sample may flip it again.
    DebounceDwell time.Duration
}

// ResolveAvailability returns the tables that can seat partySize at
// startsAt, ordered smallest sufficient capacity first and by id among
// equals.  active maps table id to that table's active reservations.  A
// candidate is excluded when any active reservation's effective interval
// overlaps the requested one (half-open; touching intervals coexist).
// An empty result is a normal outcome, not an error.
func ResolveAvailability(tables []model.Table, active map[uint64][]model.Reservation, startsAt time.Time, partySize uint32, pol Policy) []model.Table {
    reqStart := startsAt.Add(-pol.ArrivalBuffer)
    reqEnd := startsAt.Add(pol.ServiceWindow + pol.ArrivalBuffer)

    out := make([]model.Table, 0, len(tables))
    for _, t := range tables {
        if t.Capacity < partySize {
            continue
        }
        conflict := false
        for _, r := range active[t.ID] {
            if !r.Status.Active() {
                continue
            }
            s, e := r.EffectiveInterval(pol.ServiceWindow, pol.ArrivalBuffer)
            if model.Overlaps(reqStart, reqEnd, s, e) {
                conflict = true
                break
            }
        }
        if !conflict {
            out = append(out, t)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Capacity != out[j].Capacity {
            return out[i].Capacity < out[j].Capacity
        }
        return out[i].ID < out[j].ID
    })
    return out
}
