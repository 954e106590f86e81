package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // Echo web framework used for routing

    "github.com/iliyamo/restaurant-table-reservation/internal/handler"
    "github.com/iliyamo/restaurant-table-reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Used by load balancers and monitoring to verify the service is up.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers staff authentication routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh)
    // Logout accepts a refresh token in the body and does not require a JWT.
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole("ADMIN", "OPERATOR"))
    auth.GET("/me", a.Me)
}

// RegisterPublic registers the guest-facing endpoints: browsing the floor,
// checking availability, booking and the live table stream.  No JWT or
// role middleware applies; guests book with a contact name and phone.
func RegisterPublic(e *echo.Echo, t *handler.TableHandler, tt *handler.TableTypeHandler, b *handler.BookingHandler, s *handler.StreamHandler, cache echo.MiddlewareFunc) {
    // Floor layout.  The live stream is registered before the :id route so
    // Echo does not try to parse "stream" as a table id.
    e.GET("/v1/tables/stream", s.Stream)
    e.GET("/v1/tables", t.List)
    e.GET("/v1/tables/:id", t.Get)

    // Table types change rarely, so the listing sits behind the response
    // cache when one is configured.
    if cache != nil {
        e.GET("/v1/table-types", tt.List, cache)
        e.GET("/v1/table-types/:id", tt.Get, cache)
    } else {
        e.GET("/v1/table-types", tt.List)
        e.GET("/v1/table-types/:id", tt.Get)
    }

    // Booking intake.
    e.GET("/v1/availability", b.Availability)
    e.POST("/v1/reservations", b.Create)
    e.GET("/v1/reservations/:id", b.Get)
    e.DELETE("/v1/reservations/:id", b.Cancel)
}
