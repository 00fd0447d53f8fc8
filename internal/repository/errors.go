// Package repository holds the counter stores. Every store reports failures
// with the sentinel below so that the HTTP layer can map them without
// knowing which backend is in use.
package repository

import "errors"

// ErrStoreUnavailable is returned when the counter store cannot be reached
// or rejects the increment (connection failure, timeout, protocol error).
// The increment is treated as not having happened. Handlers translate it
// into an HTTP 500 response.
var ErrStoreUnavailable = errors.New("store unavailable")
