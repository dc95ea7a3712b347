// Package pool implements a striped, concurrent resource pool.
//
// A Pool multiplexes many concurrent borrowers onto a bounded, reusable
// population of expensive-to-create resources (database connections,
// pooled HTTP clients, or anything else with a construct/destroy
// lifecycle). Borrowers are pinned to one of a fixed number of stripes
// by the identity of their calling goroutine, so repeat borrows from a
// hot path tend to land on the same warm stripe. Each stripe blocks new
// borrowers once its own cap is reached, and a background reaper
// retires resources that have sat idle past a configured interval.
package pool

import "errors"

// ErrBadConfig is wrapped with a parameter-specific message and returned
// from New/NewBoundedReuse when a configuration value is out of range.
var ErrBadConfig = errors.New("pool: invalid configuration")

// ErrClosed is returned by Take/TryTake/WithResource once the pool has
// been closed.
var ErrClosed = errors.New("pool: closed")
