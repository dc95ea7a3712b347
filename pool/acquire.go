package pool

import "context"

// Take acquires a resource from the pool, selecting a stripe by the
// caller's execution identity (see WithFlowID/selectStripe). If the
// stripe has a reusable idle entry it is handed out immediately with no
// construction. Otherwise, if the stripe is below its cap, capacity is
// reserved and the factory is invoked outside any lock; if the stripe
// is already at cap, Take blocks until another borrower on the same
// stripe returns or destroys a resource, or ctx is cancelled.
//
// Every resource returned by a successful Take must be matched by
// exactly one call to Put or Destroy.
func (p *Pool[R]) Take(ctx context.Context) (R, *Handle[R], error) {
	var zero R

	stripe := p.stripes[selectStripe(ctx, len(p.stripes))]

	if resource, uses, ok := stripe.takeReusable(); ok {
		p.log("take_warm", "stripe", stripe.index)
		return resource, &Handle[R]{stripe: stripe, uses: uses}, nil
	}

	reserved, closed := stripe.reserve(ctx.Done())
	if closed {
		return zero, nil, ErrClosed
	}
	if !reserved {
		if err := ctx.Err(); err != nil {
			return zero, nil, err
		}
		// A reusable entry was returned while parked: start over.
		return p.Take(ctx)
	}

	resource, err := p.factory(ctx)
	if err != nil {
		// Compensate: the reservation must not permanently inflate
		// inUse just because construction failed.
		stripe.releaseReservation()
		p.log("factory_error", "stripe", stripe.index, "error", err)
		return zero, nil, err
	}

	p.log("take_new", "stripe", stripe.index)
	return resource, &Handle[R]{stripe: stripe, uses: 0}, nil
}

// TryTake is the non-blocking counterpart of Take. If the selected
// stripe has no reusable idle entry and is already at its cap, TryTake
// returns ok=false immediately instead of blocking.
func (p *Pool[R]) TryTake(ctx context.Context) (resource R, handle *Handle[R], ok bool, err error) {
	stripe := p.stripes[selectStripe(ctx, len(p.stripes))]

	if r, uses, found := stripe.takeReusable(); found {
		p.log("take_warm", "stripe", stripe.index)
		return r, &Handle[R]{stripe: stripe, uses: uses}, true, nil
	}

	reserved, closed := stripe.tryReserve()
	if closed {
		var zero R
		return zero, nil, false, ErrClosed
	}
	if !reserved {
		var zero R
		return zero, nil, false, nil
	}

	r, err := p.factory(ctx)
	if err != nil {
		stripe.releaseReservation()
		p.log("factory_error", "stripe", stripe.index, "error", err)
		var zero R
		return zero, nil, false, err
	}

	p.log("take_new", "stripe", stripe.index)
	return r, &Handle[R]{stripe: stripe, uses: 0}, true, nil
}
