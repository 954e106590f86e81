package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-table-reservation/internal/engine"
    "github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// BookingHandler exposes reservation intake: availability lookup,
// booking, inspection and cancellation.  Allocation itself lives in the
// engine; this layer only translates HTTP.
type BookingHandler struct {
    Engine       *engine.Engine
    Reservations *repository.ReservationRepo
}

func NewBookingHandler(eng *engine.Engine, reservations *repository.ReservationRepo) *BookingHandler {
    if eng == nil || reservations == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{Engine: eng, Reservations: reservations}
}

type bookingReq struct {
    PartySize    uint32 `json:"party_size"`
    Date         string `json:"date"` // YYYY-MM-DD
    Time         string `json:"time"` // HH:MM, 24h
    ContactName  string `json:"contact_name"`
    ContactPhone string `json:"contact_phone"`
    Confirmed    bool   `json:"confirmed"`
}

// parseStartsAt combines the date and time fields into a UTC instant.
func parseStartsAt(date, clock string) (time.Time, error) {
    return time.Parse("2006-01-02 15:04", strings.TrimSpace(date)+" "+strings.TrimSpace(clock))
}

// Create books a reservation.  The engine resolves the best-fitting table
// and commits atomically; 422 means nothing can seat the party at that
// time, 409 means concurrent bookings exhausted the retry.
func (h *BookingHandler) Create(c echo.Context) error {
    var req bookingReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.PartySize == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "party_size required"})
    }
    if strings.TrimSpace(req.ContactName) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "contact_name required"})
    }
    startsAt, err := parseStartsAt(req.Date, req.Time)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD and time HH:MM"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    res, err := h.Engine.Allocate(ctx, engine.BookingRequest{
        PartySize:    req.PartySize,
        StartsAt:     startsAt,
        ContactName:  strings.TrimSpace(req.ContactName),
        ContactPhone: strings.TrimSpace(req.ContactPhone),
        Confirmed:    req.Confirmed,
    })
    switch {
    case errors.Is(err, engine.ErrNoCapacity):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "no table available for the requested time and party size"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "booking conflict, please retry"})
    case err != nil:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
    }
    return c.JSON(http.StatusCreated, res)
}

// Availability lists the tables that could seat the given party at the
// given time, best fit first.  Nothing is committed.
func (h *BookingHandler) Availability(c echo.Context) error {
    size, err := strconv.ParseUint(c.QueryParam("party_size"), 10, 32)
    if err != nil || size == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "party_size required"})
    }
    startsAt, err := parseStartsAt(c.QueryParam("date"), c.QueryParam("time"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD and time HH:MM"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    tables, err := h.Engine.Availability(ctx, startsAt, uint32(size))
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability lookup failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"tables": tables})
}

// Get returns a single reservation by id.
func (h *BookingHandler) Get(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Reservations.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrReservationNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, res)
}

// Cancel sets a reservation to CANCELLED and releases its table.
// Cancelling twice is a no-op; completed visits cannot be cancelled.
func (h *BookingHandler) Cancel(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    err := h.Engine.Cancel(ctx, id)
    switch {
    case errors.Is(err, repository.ErrReservationNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "completed reservations cannot be cancelled"})
    case err != nil:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// ListRecent returns the newest reservations for the staff dashboard.
// The optional ?limit= caps the result (default 50).
func (h *BookingHandler) ListRecent(c echo.Context) error {
    limit := 0
    if v := c.QueryParam("limit"); v != "" {
        if n, err := strconv.Atoi(v); err == nil {
            limit = n
        }
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    out, err := h.Reservations.ListRecent(ctx, limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}
