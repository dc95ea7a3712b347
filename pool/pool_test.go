package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// countingFactory returns a factory that hands out *int resources
// numbered 1, 2, 3, ... and a destructor that counts how many were
// destroyed. Both counters are safe under concurrent use.
func countingFactory() (factory Factory[*int], destroyed *int32, built *int32) {
	built = new(int32)
	destroyed = new(int32)
	factory = func(context.Context) (*int, error) {
		n := int(atomic.AddInt32(built, 1))
		return &n, nil
	}
	return factory, destroyed, built
}

func countingDestroy(destroyed *int32) Destroy[*int] {
	return func(*int) { atomic.AddInt32(destroyed, 1) }
}

func testConfig(numStripes, maxResources int) Config {
	return Config{
		NumStripes:   numStripes,
		IdleTime:     minIdleTime,
		MaxResources: maxResources,
	}
}

func TestNewValidatesConfig(t *testing.T) {
	factory, destroyed, _ := countingFactory()
	destroy := countingDestroy(destroyed)

	cases := []Config{
		{NumStripes: 0, IdleTime: minIdleTime, MaxResources: 1},
		{NumStripes: 1, IdleTime: 100 * time.Millisecond, MaxResources: 1},
		{NumStripes: 1, IdleTime: minIdleTime, MaxResources: 0},
	}
	for _, cfg := range cases {
		if _, err := New(factory, destroy, cfg); !errors.Is(err, ErrBadConfig) {
			t.Errorf("New(%+v): expected ErrBadConfig, got %v", cfg, err)
		}
	}
}

// S1 — single borrower warm path: two sequential WithResource calls on
// a single-stripe pool return the same underlying resource, and the
// factory is invoked exactly once.
func TestSingleBorrowerWarmPath(t *testing.T) {
	factory, destroyed, built := countingFactory()
	p, err := New(factory, countingDestroy(destroyed), testConfig(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	var seen []int
	for i := 0; i < 2; i++ {
		err := p.WithResource(context.Background(), func(r *int) error {
			seen = append(seen, *r)
			return nil
		})
		if err != nil {
			t.Fatalf("WithResource: %v", err)
		}
	}

	if seen[0] != seen[1] {
		t.Errorf("expected the same resource reused, got %v", seen)
	}
	if got := atomic.LoadInt32(built); got != 1 {
		t.Errorf("expected factory called once, got %d", got)
	}
}

// S3 — failure destroys: a WithResource action that fails leaves the
// stripe with inUse=0, an empty idle list, and the destructor called
// exactly once.
func TestFailureDestroysResource(t *testing.T) {
	factory, destroyed, _ := countingFactory()
	p, err := New(factory, countingDestroy(destroyed), testConfig(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	boom := errors.New("boom")
	err = p.WithResource(context.Background(), func(*int) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected action error to propagate, got %v", err)
	}

	idle, inUse := p.stripes[0].snapshot()
	if idle != 0 || inUse != 0 {
		t.Errorf("expected idle=0 inUse=0 after failure, got idle=%d inUse=%d", idle, inUse)
	}
	if got := atomic.LoadInt32(destroyed); got != 1 {
		t.Errorf("expected destructor called once, got %d", got)
	}
}

// S6 — non-blocking saturation: TryWithResource on a saturated
// single-capacity pool returns ok=false without ever calling the
// action, and only one factory call happens overall.
func TestTryWithResourceSaturated(t *testing.T) {
	factory, destroyed, built := countingFactory()
	p, err := New(factory, countingDestroy(destroyed), testConfig(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = p.WithResource(context.Background(), func(*int) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	actionCalled := false
	ok, err := p.TryWithResource(context.Background(), func(*int) error {
		actionCalled = true
		return nil
	})
	if err != nil {
		t.Fatalf("TryWithResource: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false while saturated")
	}
	if actionCalled {
		t.Fatal("action must not run when saturated")
	}
	if got := atomic.LoadInt32(built); got != 1 {
		t.Errorf("expected exactly one factory call, got %d", got)
	}
}

// S7 — factory failure compensates: on a capacity-1 pool, a factory
// that fails on its second call leaves inUse=0 afterward, so a third
// acquire succeeds.
func TestFactoryFailureCompensates(t *testing.T) {
	var calls int32
	failOn := int32(2)
	factory := func(context.Context) (*int, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == failOn {
			return nil, errors.New("factory down")
		}
		v := int(n)
		return &v, nil
	}
	destroyed := new(int32)
	p, err := New[*int](factory, countingDestroy(destroyed), testConfig(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	// First acquire succeeds and is immediately destroyed (not put back)
	// so the second Take call is forced to build a new resource rather
	// than reuse the idle one.
	r1, h1, err := p.Take(context.Background())
	if err != nil {
		t.Fatalf("first Take: %v", err)
	}
	p.Destroy(h1, r1)

	_, _, err = p.Take(context.Background())
	if err == nil {
		t.Fatal("expected the second Take to observe the factory failure")
	}

	idle, inUse := p.stripes[0].snapshot()
	if idle != 0 || inUse != 0 {
		t.Fatalf("expected idle=0 inUse=0 after factory failure, got idle=%d inUse=%d", idle, inUse)
	}

	r3, h3, err := p.Take(context.Background())
	if err != nil {
		t.Fatalf("third Take should succeed: %v", err)
	}
	p.Put(h3, r3)
}

// LIFO — a single-stripe pool that receives returns r1 then r2 hands r2
// back to the very next acquire.
func TestLIFOPreference(t *testing.T) {
	factory, destroyed, _ := countingFactory()
	p, err := New(factory, countingDestroy(destroyed), testConfig(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	r1, h1, err := p.Take(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	r2, h2, err := p.Take(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	p.Put(h1, r1)
	p.Put(h2, r2)

	r3, _, err := p.Take(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r3 != r2 {
		t.Errorf("expected LIFO to hand back the most recently returned resource")
	}
}
