package pool

import "context"

// WithResource acquires a resource (blocking if the stripe is
// saturated), runs action, and releases the resource exactly once:
// Put on success, Destroy if action returns an error or panics. Go has
// no asynchronous interrupt to mask around acquire/release the way the
// design notes describe; the defer/recover pair below is the idiomatic
// substitute, and it guarantees the release side effect runs whether
// action returns, panics, or the goroutine's context is later
// cancelled mid-action (the resource is still released; only the
// blocking acquire itself observes ctx cancellation).
func (p *Pool[R]) WithResource(ctx context.Context, action func(R) error) (err error) {
	resource, handle, err := p.Take(ctx)
	if err != nil {
		return err
	}

	return p.runScoped(handle, resource, action)
}

// TryWithResource is the non-blocking counterpart of WithResource. When
// the selected stripe is saturated, it returns ok=false without ever
// calling action.
func (p *Pool[R]) TryWithResource(ctx context.Context, action func(R) error) (ok bool, err error) {
	resource, handle, found, err := p.TryTake(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	return true, p.runScoped(handle, resource, action)
}

// runScoped runs action under the acquire/release contract shared by
// WithResource and TryWithResource: exactly one of Put or Destroy runs,
// even if action panics, and a panic is re-raised to the caller after
// the resource has been safely destroyed.
func (p *Pool[R]) runScoped(handle *Handle[R], resource R, action func(R) error) (err error) {
	destroyed := false
	defer func() {
		if r := recover(); r != nil {
			if !destroyed {
				p.Destroy(handle, resource)
			}
			panic(r)
		}
	}()

	err = action(resource)
	if err != nil {
		destroyed = true
		p.Destroy(handle, resource)
		return err
	}

	p.Put(handle, resource)
	return nil
}
