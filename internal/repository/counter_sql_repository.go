package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/iliyamo/visit-counter/internal/database"
)

// incrSQL creates the row at 1 or bumps it, in one statement.  LAST_INSERT_ID(expr)
// makes the new value come back as the statement's insert id, so no second
// read is needed and no other writer can slip in between.
const incrSQL = `INSERT INTO counters (name, value) VALUES (?, LAST_INSERT_ID(1))
ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)`

// SQLCounterRepo keeps hit counters in the MySQL counters table.  The table
// is created on first use, so the repo works against a database that was
// down when the server started.
type SQLCounterRepo struct {
	DB *sql.DB

	schemaReady atomic.Bool
}

func NewSQLCounterRepo(db *sql.DB) *SQLCounterRepo { return &SQLCounterRepo{DB: db} }

// Incr increments the counters row named key and returns its new value.
// A failed schema check counts as a failed increment and is retried on the
// next call.
func (r *SQLCounterRepo) Incr(ctx context.Context, key string) (int64, error) {
	if !r.schemaReady.Load() {
		if err := database.EnsureSchema(ctx, r.DB); err != nil {
			return 0, fmt.Errorf("%w: mysql incr %q: %v", ErrStoreUnavailable, key, err)
		}
		r.schemaReady.Store(true)
	}
	res, err := r.DB.ExecContext(ctx, incrSQL, key)
	if err != nil {
		return 0, fmt.Errorf("%w: mysql incr %q: %v", ErrStoreUnavailable, key, err)
	}
	n, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: mysql incr %q: %v", ErrStoreUnavailable, key, err)
	}
	return n, nil
}
