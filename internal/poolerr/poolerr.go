// Package poolerr collects the sentinel errors and error-folding
// helpers shared by the pool's ambient stack (admin surface, resource
// factories) so callers outside package pool can classify failures
// without importing pool's internals.
package poolerr

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks a failure to reach an external collaborator
// (database, HTTP endpoint) that a resource factory depends on. It
// wraps the underlying transport error.
var ErrUnavailable = errors.New("poolerr: collaborator unavailable")

// Unavailable wraps err as ErrUnavailable with context, for use by
// resource factories (resource/pgconn, resource/httpclient) reporting
// construction failures up through pool.Take.
func Unavailable(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, context, err)
}
