package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-counter/internal/repository"
)

// greetingFormat is the response body.  "aghya" is kept verbatim so the body
// stays byte-compatible with earlier deployments.
const greetingFormat = "Hello! This page has been viewed by aghya %d times."

// ViewNotifier is told about every successful increment.  It is called on
// the request goroutine and must not block: implementations queue the event
// and drop it when they cannot keep up.
type ViewNotifier interface {
	NotifyViewed(ctx context.Context, key string, count int64) error
}

// CounterHandler serves the hit counter page.  It holds no state of its own;
// the count lives in Store.
type CounterHandler struct {
	Store    repository.CounterStore
	Key      string
	Notifier ViewNotifier // optional
}

// NewCounterHandler panics on a nil store since no request could succeed.
func NewCounterHandler(store repository.CounterStore, key string) *CounterHandler {
	if store == nil {
		panic("nil counter store passed to NewCounterHandler")
	}
	return &CounterHandler{Store: store, Key: key}
}

// Hello handles GET /.  It increments the counter once and reports the new
// value.  A store failure is returned unchanged for ErrorHandler to map; no
// count is written in that case.
func (h *CounterHandler) Hello(c echo.Context) error {
	n, err := h.Store.Incr(c.Request().Context(), h.Key)
	if err != nil {
		return err
	}
	if h.Notifier != nil {
		if err := h.Notifier.NotifyViewed(c.Request().Context(), h.Key, n); err != nil {
			c.Logger().Warnf("view event for %s=%d dropped: %v", h.Key, n, err)
		}
	}
	return c.String(http.StatusOK, Greeting(n))
}

// Greeting renders the response body for count n.
func Greeting(n int64) string { return fmt.Sprintf(greetingFormat, n) }
