package pool

import (
	"sync"
	"time"
)

// Stripe is one independent sub-pool ("LocalPool" in the design docs).
// A caller is pinned to a single stripe by the stripe selector, so
// repeat borrows from the same flow tend to reuse the same warm
// resources. Contention within a stripe is serialized behind mu; cond
// wakes any borrower parked in reserve waiting for capacity to free up.
//
// Invariants, checked by the property tests in concurrency_test.go:
//   - inUse == (number of currently-borrowed resources from this stripe) + len(idle)
//   - 0 <= inUse <= maxResources
//   - every entry in idle has passed through increment since its last use
type Stripe[R any] struct {
	index int

	mu     sync.Mutex
	cond   *sync.Cond
	idle   []entry[R]
	inUse  int
	closed bool

	maxResources int
	// increment and isReusable operate on an entry's reuse counter,
	// not the resource value itself: the counter is metadata riding
	// alongside the resource, distinct from the resource's own state.
	increment  func(uses int) int
	isReusable func(uses int) bool
}

func newStripe[R any](index, maxResources int, increment func(int) int, isReusable func(int) bool) *Stripe[R] {
	s := &Stripe[R]{
		index:        index,
		maxResources: maxResources,
		increment:    increment,
		isReusable:   isReusable,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// takeReusable pops the first reusable idle entry, scanning from the
// front (most recently returned) toward the back, per §4.2's split.
// Entries skipped along the way are non-reusable and stay in idle for
// the reaper to clean up later; this avoids destructor I/O on the
// acquire path.
func (s *Stripe[R]) takeReusable() (resource R, uses int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.idle {
		if s.isReusable(e.uses) {
			s.idle = append(s.idle[:i:i], s.idle[i+1:]...)
			return e.resource, e.uses, true
		}
	}
	return resource, 0, false
}

// reserve reserves one unit of capacity for a to-be-constructed
// resource, blocking on cond while the stripe is at capacity. It
// returns closed=true if the stripe was closed while parked, or
// reserved=false with closed=false if cancel fired first or a reusable
// idle entry is available (the caller then retries takeReusable).
func (s *Stripe[R]) reserve(cancel <-chan struct{}) (reserved, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.closed {
			return false, true
		}
		for _, e := range s.idle {
			if s.isReusable(e.uses) {
				return false, false
			}
		}
		if s.inUse < s.maxResources {
			s.inUse++
			return true, false
		}
		select {
		case <-cancel:
			return false, false
		default:
		}
		if !s.waitOrCancel(cancel) {
			return false, false
		}
	}
}

// tryReserve is the non-blocking counterpart of reserve.
func (s *Stripe[R]) tryReserve() (reserved, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, true
	}
	if s.inUse < s.maxResources {
		s.inUse++
		return true, false
	}
	return false, false
}

// releaseReservation compensates a reserve() that was never followed by
// a successful factory call (factory failure path).
func (s *Stripe[R]) releaseReservation() {
	s.mu.Lock()
	s.inUse--
	s.cond.Broadcast()
	s.mu.Unlock()
}

// put prepends a freshly-returned resource to the idle list, applying
// increment exactly once, and wakes any borrower blocked in reserve.
func (s *Stripe[R]) put(resource R, priorUses int) {
	s.mu.Lock()
	e := entry[R]{resource: resource, lastUse: time.Now(), uses: s.increment(priorUses)}
	s.idle = append([]entry[R]{e}, s.idle...)
	s.cond.Broadcast()
	s.mu.Unlock()
}

// destroyAccounted decrements inUse for a resource that is being
// destroyed rather than returned (failed action or explicit destroy),
// and wakes any borrower blocked in reserve.
func (s *Stripe[R]) destroyAccounted() {
	s.mu.Lock()
	s.inUse--
	s.cond.Broadcast()
	s.mu.Unlock()
}

// reap partitions idle into stale entries (past idleTime or no longer
// reusable) and fresh ones, removing the stale entries from the stripe
// and returning them for the caller to destroy outside the lock.
func (s *Stripe[R]) reap(now time.Time, idleTime time.Duration) (stale []R) {
	s.mu.Lock()
	fresh := s.idle[:0:0]
	for _, e := range s.idle {
		if now.Sub(e.lastUse) > idleTime || !s.isReusable(e.uses) {
			stale = append(stale, e.resource)
			continue
		}
		fresh = append(fresh, e)
	}
	s.idle = fresh
	s.inUse -= len(stale)
	if len(stale) > 0 {
		s.cond.Broadcast()
	}
	s.mu.Unlock()
	return stale
}

// snapshot returns a point-in-time view of the stripe's accounting for
// StatsJSON and tests.
func (s *Stripe[R]) snapshot() (idleLen, inUse int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.idle), s.inUse
}

// close marks the stripe closed, drains its idle list for the caller
// to destroy, and wakes every borrower parked in reserve so they can
// observe ErrClosed instead of blocking forever.
func (s *Stripe[R]) close() (drained []R) {
	s.mu.Lock()
	s.closed = true
	for _, e := range s.idle {
		drained = append(drained, e.resource)
	}
	s.idle = nil
	s.cond.Broadcast()
	s.mu.Unlock()
	return drained
}

// waitOrCancel parks the calling goroutine on cond until either the
// stripe's state changes (put/destroy/close broadcasts) or cancel
// fires. sync.Cond has no cancellable Wait, so cancellation is
// delivered by a helper goroutine that broadcasts once cancel closes;
// that goroutine exits as soon as this call returns.
func (s *Stripe[R]) waitOrCancel(cancel <-chan struct{}) bool {
	if cancel == nil {
		s.cond.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-cancel:
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		case <-done:
		}
	}()
	s.cond.Wait()
	close(done)

	select {
	case <-cancel:
		return false
	default:
		return true
	}
}
