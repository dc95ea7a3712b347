// Package pgconn is a concrete pool.Factory/pool.Destroy pair for the
// canonical resource this pool is designed around: a live database
// connection. It hands out dedicated *sql.Conn values pulled through
// the pgx stdlib driver, so a pool.Pool[*sql.Conn] built from Open
// multiplexes borrowers onto a bounded set of real Postgres
// connections, one per idle-list entry, exactly as described in the
// design docs' "canonically database connections" framing.
package pgconn

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/levinOo/stripedpool/internal/poolerr"
	"github.com/levinOo/stripedpool/pool"
)

// DB wraps the *sql.DB that dedicated connections are pulled from. It
// is not itself a pool.Pool: the striped pool sits on top of it,
// managing which of its connections are checked out at any time, while
// DB just owns the driver-level dial parameters.
type DB struct {
	sql *sql.DB
}

// Open validates dsn by pinging it once, then returns a DB ready to
// back a pool.Pool[*sql.Conn] via DB.Factory/DB.Destroy.
func Open(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, poolerr.Unavailable("open postgres dsn", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, poolerr.Unavailable("ping postgres", err)
	}
	return &DB{sql: db}, nil
}

// FromDB wraps an already-open *sql.DB, bypassing Open's dial and
// ping. Used by tests to substitute a sqlmock-backed *sql.DB for a
// real Postgres connection.
func FromDB(db *sql.DB) *DB {
	return &DB{sql: db}
}

// Close closes the underlying *sql.DB. Callers should Close the
// pool.Pool built over this DB first, so no connection is mid-borrow
// when the driver-level pool goes away.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Factory pulls a dedicated *sql.Conn out of the driver pool for a
// pool.Pool to manage. It satisfies pool.Factory[*sql.Conn].
func (d *DB) Factory(ctx context.Context) (*sql.Conn, error) {
	conn, err := d.sql.Conn(ctx)
	if err != nil {
		return nil, poolerr.Unavailable("acquire postgres connection", err)
	}
	return conn, nil
}

// Destroy closes a connection returned by Factory. It satisfies
// pool.Destroy[*sql.Conn]; any close error is swallowed by the caller
// per the pool's suppress-destructor-failures contract, so it's logged
// here rather than returned.
func (d *DB) Destroy(logf func(string, ...any)) pool.Destroy[*sql.Conn] {
	return func(conn *sql.Conn) {
		if err := conn.Close(); err != nil {
			logf("pgconn_close_error", "error", fmt.Sprintf("%v", err))
		}
	}
}

// Ping is a cheap liveness check usable as the action passed to
// pool.WithResource when validating that a pooled connection is still
// good, without any pool-specific machinery of its own.
func Ping(ctx context.Context) func(*sql.Conn) error {
	return func(conn *sql.Conn) error {
		return conn.PingContext(ctx)
	}
}
