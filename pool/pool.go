package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// minIdleTime is the floor spec.md places on the idle interval: below
// this the reaper's 1s wake period dominates and the setting stops
// meaning anything.
const minIdleTime = 500 * time.Millisecond

// reapInterval is the reaper's fixed wake period. Effective
// idle-time-to-destruction can exceed IdleTime by up to one wake
// period; that slack is documented behavior, not a bug.
const reapInterval = 1 * time.Second

// Factory constructs a new resource. It is invoked outside any
// stripe's lock, and may be called concurrently from multiple
// goroutines: if the underlying resource type isn't safe for
// concurrent construction, the caller is responsible for serializing
// it.
type Factory[R any] func(ctx context.Context) (R, error)

// Destroy releases a resource. Any error or panic it produces is
// suppressed: destruction is best-effort cleanup, and a failing
// destructor must never corrupt pool accounting or propagate into
// unrelated code paths.
type Destroy[R any] func(resource R)

// Pool is an aggregate of independent stripes sharing one factory,
// destructor, and configuration. It is immutable after construction;
// reading its configuration accessors is lock-free.
type Pool[R any] struct {
	factory Factory[R]
	destroy Destroy[R]

	idleTime     time.Duration
	maxResources int
	stripes      []*Stripe[R]

	log func(event string, fields ...any)

	closeOnce sync.Once
	stopReap  chan struct{}
	reapDone  chan struct{}
}

// Config carries the parameters validated by New/NewBoundedReuse.
type Config struct {
	// NumStripes is the number of independent stripes ("S" in the
	// design docs). Must be >= 1.
	NumStripes int
	// IdleTime is the minimum duration an idle resource may sit
	// unused before the reaper is eligible to retire it. Must be >=
	// 500ms.
	IdleTime time.Duration
	// MaxResources is the per-stripe cap on live resources ("M").
	// Must be >= 1.
	MaxResources int
	// Log, if set, receives structured lifecycle events. See
	// internal/poollog for the zap-backed adapter used by cmd/poolctl.
	Log func(event string, fields ...any)
}

func (c Config) validate() error {
	if c.NumStripes < 1 {
		return fmt.Errorf("%w: NumStripes must be >= 1, got %d", ErrBadConfig, c.NumStripes)
	}
	if c.IdleTime < minIdleTime {
		return fmt.Errorf("%w: IdleTime must be >= %s, got %s", ErrBadConfig, minIdleTime, c.IdleTime)
	}
	if c.MaxResources < 1 {
		return fmt.Errorf("%w: MaxResources must be >= 1, got %d", ErrBadConfig, c.MaxResources)
	}
	return nil
}

// New constructs a basic pool: every resource is always reusable and
// its reuse counter is never consulted.
func New[R any](factory Factory[R], destroy Destroy[R], cfg Config) (*Pool[R], error) {
	identity := func(n int) int { return n }
	alwaysReusable := func(int) bool { return true }
	return newPool(factory, destroy, cfg, identity, alwaysReusable)
}

// NewBoundedReuse constructs a pool in which each resource may be
// borrowed and returned at most maxUses times. After that, acquires
// skip it (leaving it in idle) and the reaper's next sweep destroys it.
// maxUses must be >= 1.
// This is a derived instantiation of the same pool: it supplies a
// different (increment, isReusable) pair and otherwise shares every
// line of acquire/release/reap protocol with New.
func NewBoundedReuse[R any](factory Factory[R], destroy Destroy[R], cfg Config, maxUses int) (*Pool[R], error) {
	if maxUses < 1 {
		return nil, fmt.Errorf("%w: maxUses must be >= 1, got %d", ErrBadConfig, maxUses)
	}
	increment := func(uses int) int { return uses + 1 }
	underCap := func(uses int) bool { return uses < maxUses }
	return newPool(factory, destroy, cfg, increment, underCap)
}

func newPool[R any](factory Factory[R], destroy Destroy[R], cfg Config, increment func(int) int, isReusable func(int) bool) (*Pool[R], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pool[R]{
		factory:      factory,
		destroy:      destroy,
		idleTime:     cfg.IdleTime,
		maxResources: cfg.MaxResources,
		stripes:      make([]*Stripe[R], cfg.NumStripes),
		log:          cfg.Log,
		stopReap:     make(chan struct{}),
		reapDone:     make(chan struct{}),
	}
	if p.log == nil {
		p.log = func(string, ...any) {}
	}
	for i := range p.stripes {
		p.stripes[i] = newStripe[R](i, cfg.MaxResources, increment, isReusable)
	}

	go p.runReaper()
	// Belt-and-suspenders: an explicit Close is the primary shutdown
	// path, but a pool dropped without one still stops its reaper
	// goroutine once the GC notices it's unreachable.
	runtime.SetFinalizer(p, func(p *Pool[R]) { p.Close() })

	return p, nil
}

// IdleTime returns the configured idle interval.
func (p *Pool[R]) IdleTime() time.Duration { return p.idleTime }

// MaxResources returns the configured per-stripe cap.
func (p *Pool[R]) MaxResources() int { return p.maxResources }

// NumStripes returns the configured stripe count.
func (p *Pool[R]) NumStripes() int { return len(p.stripes) }

// StatsJSON returns a JSON array with one object per stripe, each
// reporting that stripe's current idle-list length and in-use count.
// Grounded in the same admin-surface convention as thriftpool-go's
// ResourcePool.StatsJSON/Group.StatsJSON.
func (p *Pool[R]) StatsJSON() string {
	buf := make([]byte, 0, 32*len(p.stripes)+2)
	buf = append(buf, '[')
	for i, s := range p.stripes {
		idle, inUse := s.snapshot()
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, fmt.Sprintf(`{"stripe":%d,"idle":%d,"inUse":%d}`, i, idle, inUse)...)
	}
	buf = append(buf, ']')
	return string(buf)
}

// Close stops the reaper and destroys every idle resource across every
// stripe. Borrowers currently blocked in Take/WithResource observe
// ErrClosed instead of deadlocking. Close is idempotent.
func (p *Pool[R]) Close() error {
	p.closeOnce.Do(func() {
		close(p.stopReap)
		<-p.reapDone
		runtime.SetFinalizer(p, nil)

		for _, s := range p.stripes {
			for _, r := range s.close() {
				p.safeDestroy(r)
			}
		}
	})
	return nil
}

// safeDestroy invokes the user destructor, converting a panic into a
// suppressed, logged event: destructor failures never propagate.
func (p *Pool[R]) safeDestroy(resource R) {
	defer func() {
		if r := recover(); r != nil {
			p.log("destroy_panic", "recovered", r)
		}
	}()
	p.destroy(resource)
}
