package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// TableTypeHandler manages the catalogue of table types (two-top, booth,
// family table) that provisioning copies capacities from.
type TableTypeHandler struct {
    Types *repository.TableTypeRepo
}

func NewTableTypeHandler(types *repository.TableTypeRepo) *TableTypeHandler {
    return &TableTypeHandler{Types: types}
}

type tableTypeReq struct {
    Name  string `json:"name"`
    Seats uint32 `json:"seats"`
}

// List returns all table types.
func (h *TableTypeHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    types, err := h.Types.List(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"table_types": types})
}

// Get returns one table type by id.
func (h *TableTypeHandler) Get(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid type id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    t, err := h.Types.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrTableTypeNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "table type not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, t)
}

// Create adds a new table type.
func (h *TableTypeHandler) Create(c echo.Context) error {
    var req tableTypeReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Name = strings.TrimSpace(req.Name)
    if req.Name == "" || req.Seats == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and seats required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    t := model.TableType{Name: req.Name, Seats: req.Seats}
    if err := h.Types.Create(ctx, &t); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create type failed"})
    }
    return c.JSON(http.StatusCreated, t)
}

// Update renames a table type or changes its seat count.
func (h *TableTypeHandler) Update(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid type id"})
    }
    var req tableTypeReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    t, err := h.Types.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrTableTypeNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "table type not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if name := strings.TrimSpace(req.Name); name != "" {
        t.Name = name
    }
    if req.Seats > 0 {
        t.Seats = req.Seats
    }
    if err := h.Types.Update(ctx, t); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update type failed"})
    }
    got, err := h.Types.GetByID(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, got)
}

// Delete removes a table type.  Tables referencing it keep their copied
// capacity.
func (h *TableTypeHandler) Delete(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid type id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    err := h.Types.Delete(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrTableTypeNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "table type not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete type failed"})
    }
    return c.NoContent(http.StatusNoContent)
}
