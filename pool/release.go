package pool

// Put returns a resource to the stripe it was borrowed from, advancing
// its reuse counter. It does not alter inUse: the resource remains
// counted whether it sits idle or is borrowed. Put never fails; a
// resource whose action failed must go to Destroy instead, never here.
func (p *Pool[R]) Put(handle *Handle[R], resource R) {
	handle.stripe.put(resource, handle.uses)
	p.log("put", "stripe", handle.stripe.index)
}

// Destroy releases a resource that will not be returned to the idle
// list: the borrower's action failed, or the caller chose to retire it
// explicitly. The user destructor is invoked outside any lock, with
// failures suppressed and logged rather than propagated, and the
// stripe's inUse count is decremented afterward.
func (p *Pool[R]) Destroy(handle *Handle[R], resource R) {
	p.safeDestroy(resource)
	handle.stripe.destroyAccounted()
	p.log("destroy", "stripe", handle.stripe.index)
}
