package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports process liveness for load balancers.  It never touches the
// counter store, so a store outage does not take the instance out of rotation.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
