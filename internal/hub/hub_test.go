package hub

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

func event(tableID uint64, next model.TableState) model.StateChangeEvent {
    return model.StateChangeEvent{
        TableID:       tableID,
        PreviousState: model.TableAvailable,
        NewState:      next,
        Cause:         model.CauseTelemetry,
        OccurredAt:    time.Now().UTC(),
    }
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
    h := New(4)
    defer h.Close()

    a := h.Subscribe()
    b := h.Subscribe()

    h.Publish(event(1, model.TableOccupied))

    select {
    case ev := <-a.Events():
        assert.Equal(t, uint64(1), ev.TableID)
    default:
        t.Fatal("subscriber a received nothing")
    }
    select {
    case ev := <-b.Events():
        assert.Equal(t, uint64(1), ev.TableID)
    default:
        t.Fatal("subscriber b received nothing")
    }
    assert.Equal(t, uint64(1), h.Published())
}

func TestEventsArriveInPublishOrder(t *testing.T) {
    h := New(8)
    defer h.Close()

    sub := h.Subscribe()
    for i := uint64(1); i <= 5; i++ {
        h.Publish(event(i, model.TableOccupied))
    }

    for i := uint64(1); i <= 5; i++ {
        ev := <-sub.Events()
        assert.Equal(t, i, ev.TableID)
    }
}

func TestFullMailboxShedsOldestKeepsNewest(t *testing.T) {
    h := New(2)
    defer h.Close()

    sub := h.Subscribe()
    h.Publish(event(1, model.TableOccupied))
    h.Publish(event(2, model.TableOccupied))
    h.Publish(event(3, model.TableOccupied)) // sheds event 1

    assert.Equal(t, uint64(1), sub.Dropped())
    assert.Equal(t, uint64(1), h.Dropped())

    ev := <-sub.Events()
    assert.Equal(t, uint64(2), ev.TableID)
    ev = <-sub.Events()
    assert.Equal(t, uint64(3), ev.TableID)
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
    h := New(1)
    defer h.Close()

    slow := h.Subscribe()
    fast := h.Subscribe()

    done := make(chan struct{})
    go func() {
        for i := 0; i < 100; i++ {
            h.Publish(event(uint64(i+1), model.TableOccupied))
        }
        close(done)
    }()

    select {
    case <-done:
    case <-time.After(2 * time.Second):
        t.Fatal("publish blocked on a slow subscriber")
    }

    // The fast subscriber still holds the newest event.
    var last model.StateChangeEvent
    for {
        select {
        case ev := <-fast.Events():
            last = ev
            continue
        default:
        }
        break
    }
    assert.Equal(t, uint64(100), last.TableID)
    assert.Positive(t, slow.Dropped())
}

func TestCloseUnsubscribes(t *testing.T) {
    h := New(4)
    defer h.Close()

    sub := h.Subscribe()
    sub.Close()
    sub.Close() // idempotent

    h.Publish(event(1, model.TableOccupied))

    _, open := <-sub.Events()
    assert.False(t, open)
    assert.Equal(t, uint64(0), sub.Dropped())
}

func TestHubCloseClosesMailboxes(t *testing.T) {
    h := New(4)
    sub := h.Subscribe()

    h.Close()
    h.Publish(event(1, model.TableOccupied)) // no-op after close

    _, open := <-sub.Events()
    require.False(t, open)

    late := h.Subscribe()
    _, open = <-late.Events()
    assert.False(t, open)
}
