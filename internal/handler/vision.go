package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-table-reservation/internal/engine"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "github.com/iliyamo/restaurant-table-reservation/internal/queue"
)

// VisionHandler is the HTTP intake for detector batches, used by edge
// devices that speak HTTP instead of AMQP.  Both intakes funnel into the
// same engine path.
type VisionHandler struct {
    Engine *engine.Engine
}

func NewVisionHandler(eng *engine.Engine) *VisionHandler {
    return &VisionHandler{Engine: eng}
}

// PostDetections accepts one detection cycle.  Unknown table ids are
// skipped server-side; a 202 means the batch was applied (possibly
// partially), matching the at-least-once semantics of the AMQP path.
func (h *VisionHandler) PostDetections(c echo.Context) error {
    var msg queue.TelemetryBatchMessage
    if err := c.Bind(&msg); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if len(msg.Detections) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "detections required"})
    }

    observedAt := time.Now().UTC()
    if msg.ObservedAt != "" {
        t, err := time.Parse(time.RFC3339, msg.ObservedAt)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "observed_at must be RFC3339"})
        }
        observedAt = t.UTC()
    }

    samples := make([]model.TelemetrySample, 0, len(msg.Detections))
    for _, d := range msg.Detections {
        samples = append(samples, model.TelemetrySample{
            TableID:     d.TableID,
            PersonCount: d.PersonCount,
            ObservedAt:  observedAt,
            Confidence:  d.Confidence,
        })
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    if err := h.Engine.Ingest(ctx, samples); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ingest failed"})
    }
    return c.JSON(http.StatusAccepted, echo.Map{"accepted": len(samples)})
}
