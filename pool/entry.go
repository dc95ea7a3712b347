package pool

import "time"

// entry pairs a live resource with the wall-clock time it was last
// returned to its stripe's idle list, and (for bounded-reuse pools) the
// number of times it has been borrowed and returned.
type entry[R any] struct {
	resource R
	lastUse  time.Time
	uses     int
}
