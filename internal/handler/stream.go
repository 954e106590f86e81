package handler

import (
    "encoding/json"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-table-reservation/internal/engine"
    "github.com/iliyamo/restaurant-table-reservation/internal/hub"
)

// StreamHandler serves the live floor view over Server-Sent Events.
// Every connection gets a full snapshot first, then incremental state
// change events, with comment pings to keep proxies from closing idle
// streams.
type StreamHandler struct {
    Engine *engine.Engine
    Hub    *hub.Hub
    Ping   time.Duration
}

func NewStreamHandler(eng *engine.Engine, h *hub.Hub, ping time.Duration) *StreamHandler {
    if ping <= 0 {
        ping = 15 * time.Second
    }
    return &StreamHandler{Engine: eng, Hub: h, Ping: ping}
}

// Stream handles GET /v1/tables/stream.  The subscription is taken out
// before the snapshot is read so no flip between the two can be missed;
// at worst the client sees a change twice, which is harmless because
// events carry absolute states.
func (h *StreamHandler) Stream(c echo.Context) error {
    sub := h.Hub.Subscribe()
    defer sub.Close()

    snapshot, err := h.Engine.Snapshot(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "snapshot failed"})
    }

    resp := c.Response()
    resp.Header().Set(echo.HeaderContentType, "text/event-stream")
    resp.Header().Set("Cache-Control", "no-cache")
    resp.Header().Set("Connection", "keep-alive")
    resp.WriteHeader(http.StatusOK)

    if err := writeEvent(resp, "snapshot", snapshot); err != nil {
        return nil
    }

    ticker := time.NewTicker(h.Ping)
    defer ticker.Stop()

    ctx := c.Request().Context()
    for {
        select {
        case <-ctx.Done():
            return nil
        case ev, ok := <-sub.Events():
            if !ok {
                return nil // hub shut down
            }
            if err := writeEvent(resp, "state", ev); err != nil {
                return nil
            }
        case <-ticker.C:
            if _, err := fmt.Fprint(resp, ": ping\n\n"); err != nil {
                return nil
            }
            resp.Flush()
        }
    }
}

func writeEvent(resp *echo.Response, event string, payload any) error {
    data, err := json.Marshal(payload)
    if err != nil {
        return err
    }
    if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", event, data); err != nil {
        return err
    }
    resp.Flush()
    return nil
}
