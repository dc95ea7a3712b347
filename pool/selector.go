package pool

import (
	"bytes"
	"context"
	"hash/fnv"
	"runtime"
	"strconv"
)

// flowIDKey lets a caller pin a logical unit of work (e.g. a request
// handled across several goroutines) to a single stripe by attaching an
// explicit identity to its context, overriding the default
// goroutine-id-based selection. Most callers never need this.
type flowIDKey struct{}

// WithFlowID returns a context whose stripe selection is pinned to id
// rather than to the calling goroutine's id. Two calls that share id
// are pinned to the same stripe for the lifetime of that context, which
// is useful when a single logical flow of work hops across goroutines.
func WithFlowID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, flowIDKey{}, id)
}

// selectStripe deterministically maps the caller's execution identity
// to a stripe index in [0, numStripes). The mapping favors a
// caller-supplied flow id (see WithFlowID) and otherwise falls back to
// the calling goroutine's id, so repeat borrows from the same flow tend
// to land on the same warm stripe. There is no attempt at balancing
// load evenly across stripes: the choice is pinned to the caller, not
// randomized per call.
func selectStripe(ctx context.Context, numStripes int) int {
	var identity string
	if v, ok := ctx.Value(flowIDKey{}).(string); ok && v != "" {
		identity = v
	} else {
		identity = strconv.FormatUint(goroutineID(), 10)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(identity))
	return int(h.Sum64() % uint64(numStripes))
}

// goroutineID extracts the numeric id the runtime assigns the calling
// goroutine by parsing the header line of a stack trace. There is no
// supported API for this; it is stable for the lifetime of the
// goroutine, which is the only property the stripe selector needs.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0
	}
	buf = buf[len(prefix):]

	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}

	id, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
