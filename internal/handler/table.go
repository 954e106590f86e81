package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-table-reservation/internal/engine"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// TableHandler exposes the floor layout: table listing for dashboards,
// admin provisioning and the operator's manual state override.
type TableHandler struct {
    Tables *repository.TableRepo
    Types  *repository.TableTypeRepo
    Engine *engine.Engine
}

func NewTableHandler(tables *repository.TableRepo, types *repository.TableTypeRepo, eng *engine.Engine) *TableHandler {
    if tables == nil || types == nil || eng == nil {
        panic("nil dependency passed to NewTableHandler")
    }
    return &TableHandler{Tables: tables, Types: types, Engine: eng}
}

type tableReq struct {
    ID       uint64  `json:"id"`
    TypeID   *uint64 `json:"type_id"`
    Capacity uint32  `json:"capacity"`
}

type overrideReq struct {
    State string `json:"state"`
}

// List returns every table ordered by id.  The optional ?state= query
// filters to AVAILABLE, OCCUPIED or RESERVED.
func (h *TableHandler) List(c echo.Context) error {
    state := model.TableState(strings.ToUpper(strings.TrimSpace(c.QueryParam("state"))))
    if state != "" && !model.ValidTableState(state) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown state filter"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    tables, err := h.Tables.List(ctx, state)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"tables": tables})
}

// Get returns a single table by id.
func (h *TableHandler) Get(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    t, err := h.Tables.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrTableNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, t)
}

// Create provisions a new table.  A type_id copies the type's seat count
// as the table's capacity unless an explicit capacity is given; an
// explicit id lets provisioning mirror the detector's numbering.
func (h *TableHandler) Create(c echo.Context) error {
    var req tableReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    capacity := req.Capacity
    if req.TypeID != nil {
        tt, err := h.Types.GetByID(ctx, *req.TypeID)
        if err != nil {
            if errors.Is(err, repository.ErrTableTypeNotFound) {
                return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown table type"})
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
        }
        if capacity == 0 {
            capacity = tt.Seats
        }
    }
    if capacity == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity or type_id required"})
    }

    t := model.Table{ID: req.ID, TypeID: req.TypeID, Capacity: capacity}
    if err := h.Tables.Create(ctx, &t); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create table failed"})
    }
    return c.JSON(http.StatusCreated, t)
}

// Update changes a table's type or capacity.  Occupancy state is owned by
// the reconciler and cannot be edited here.
func (h *TableHandler) Update(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
    }
    var req tableReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    t, err := h.Tables.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrTableNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if req.TypeID != nil {
        if _, err := h.Types.GetByID(ctx, *req.TypeID); err != nil {
            if errors.Is(err, repository.ErrTableTypeNotFound) {
                return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown table type"})
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
        }
        t.TypeID = req.TypeID
    }
    if req.Capacity > 0 {
        t.Capacity = req.Capacity
    }
    if err := h.Tables.Update(ctx, t); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update table failed"})
    }
    got, err := h.Tables.GetByID(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, got)
}

// Delete removes a table.  Refused with 409 while active reservations
// still point at it.
func (h *TableHandler) Delete(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    err := h.Tables.Delete(ctx, id)
    switch {
    case errors.Is(err, repository.ErrTableNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "table has active reservations"})
    case err != nil:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete table failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Override pins a table to an operator-chosen state.  The override holds
// until the next override or a reservation-driven change; telemetry alone
// never displaces it.
func (h *TableHandler) Override(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
    }
    var req overrideReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    state := model.TableState(strings.ToUpper(strings.TrimSpace(req.State)))
    if !model.ValidTableState(state) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown state"})
    }

    operatorID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    t, err := h.Engine.Override(ctx, id, state, operatorID)
    if err != nil {
        if errors.Is(err, repository.ErrTableNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "override failed"})
    }
    return c.JSON(http.StatusOK, t)
}
