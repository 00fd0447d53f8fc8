package router // package router defines how HTTP routes are registered

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-counter/internal/handler"
)

// RegisterRoutes wires the counter page and the liveness probe onto e.
// Extra middleware (rate limiting) applies to the counter page only so that
// health checks are never throttled.
func RegisterRoutes(e *echo.Echo, counter *handler.CounterHandler, mw ...echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)
	e.GET("/", counter.Hello, mw...)
}
