package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-counter/internal/repository"
)

// errorMapping ties a sentinel error to the response it produces.
type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable is checked in order with errors.Is.
var errorTable = []errorMapping{
	{repository.ErrStoreUnavailable, http.StatusInternalServerError, "store_unavailable"},
}

// StatusFor returns the HTTP status and error code for err.  Echo's own
// HTTPErrors keep their status; anything unrecognised is a 500.
func StatusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}
	return http.StatusInternalServerError, "internal_error"
}

// ErrorHandler replaces echo's default HTTPErrorHandler with one driven by
// errorTable.  Server errors are logged with the request path.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, echo.Map{"error": code})
	}
	if werr != nil {
		c.Logger().Error(werr)
	}
}
