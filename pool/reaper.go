package pool

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// runReaper wakes every reapInterval, sweeps each stripe for stale idle
// entries, and destroys them outside any stripe lock. It exits once
// stopReap is closed, within at most one wake period, and signals its
// own exit on reapDone so Close can wait for it before draining stripes.
func (p *Pool[R]) runReaper() {
	defer close(p.reapDone)

	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopReap:
			return
		case now := <-ticker.C:
			p.sweep(now)
		}
	}
}

// sweep destroys every stale entry across every stripe, folding any
// destructor failures from the whole sweep into a single logged error
// rather than one log line per failure. Destructor failures are always
// suppressed; this only affects how they're reported.
func (p *Pool[R]) sweep(now time.Time) {
	var errs error
	total := 0

	for _, s := range p.stripes {
		stale := s.reap(now, p.idleTime)
		if len(stale) == 0 {
			continue
		}
		total += len(stale)
		for _, r := range stale {
			errs = multierr.Append(errs, p.destroyCapturing(r))
		}
	}

	if total > 0 {
		p.log("reap_sweep", "destroyed", total)
	}
	if errs != nil {
		p.log("reap_destroy_errors", "error", errs)
	}
}

// destroyCapturing runs the user destructor and converts a panic into
// an error for sweep's multierr aggregation, instead of crashing the
// reaper goroutine.
func (p *Pool[R]) destroyCapturing(resource R) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	p.destroy(resource)
	return nil
}

type panicError struct{ value any }

func (p panicError) Error() string {
	return fmt.Sprintf("destroy panicked: %v", p.value)
}
