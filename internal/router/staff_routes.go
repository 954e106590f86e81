package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-table-reservation/internal/handler"
    "github.com/iliyamo/restaurant-table-reservation/internal/middleware"
)

// RegisterOperator registers endpoints for floor staff and edge devices.
// Operators override table states and review recent reservations; edge
// detectors authenticated as operator accounts post detection batches
// over HTTP when they cannot reach the broker.
func RegisterOperator(e *echo.Echo, t *handler.TableHandler, b *handler.BookingHandler, v *handler.VisionHandler, jwtSecret string) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("ADMIN", "OPERATOR"))

    g.POST("/tables/:id/override", t.Override)
    g.GET("/reservations", b.ListRecent)
    g.POST("/vision/detections", v.PostDetections)
}

// RegisterAdmin registers floor provisioning endpoints: table and table
// type management.  ADMIN only.
func RegisterAdmin(e *echo.Echo, t *handler.TableHandler, tt *handler.TableTypeHandler, jwtSecret string) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("ADMIN"))

    g.POST("/tables", t.Create)
    g.PATCH("/tables/:id", t.Update)
    g.DELETE("/tables/:id", t.Delete)

    g.POST("/table-types", tt.Create)
    g.PATCH("/table-types/:id", tt.Update)
    g.DELETE("/table-types/:id", tt.Delete)
}
