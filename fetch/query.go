package fetch

import (
	"context"
	"strings"
	"sync"

	"github.com/skymfe/corelib/httpclient"
)

// QueryOptions configures a Query. All fields are optional.
type QueryOptions[T any] struct {
	// Method defaults to GET. POST and PUT send an empty JSON object.
	Method Method
	// Cache is forwarded untouched to Handle.Get.
	Cache *httpclient.CacheDirective

	OnSuccess func(T)
	OnError   func(error)

	// Disabled turns every activation into a no-op.
	Disabled bool
	// DiscardStale ignores completions of attempts that are not the most
	// recently started one.
	DiscardStale bool
}

// Inputs is the snapshot a Query compares to decide whether to re-run.
// Options are compared by pointer identity.
type Inputs[T any] struct {
	Target  string
	Options *QueryOptions[T]
}

// InputsChanged reports whether next differs from prev in target or in
// options identity.
func InputsChanged[T any](prev, next Inputs[T]) bool {
	return prev.Target != next.Target || prev.Options != next.Options
}

// Query is an automatically triggered request tracker.
type Query[T any] struct {
	*tracker[T]

	inMu   sync.Mutex
	inputs Inputs[T]
}

// emptyBody is what write-shaped queries send.
var emptyBody = struct{}{}

// NewQuery creates a Query and performs its first activation. It returns
// ErrMissingContext when p is nil or closed.
func NewQuery[T any](p *Provider, target string, opts *QueryOptions[T]) (*Query[T], error) {
	h, err := p.Handle()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(target) == "" {
		return nil, ErrEmptyTarget
	}
	if opts == nil {
		opts = &QueryOptions[T]{}
	}

	q := &Query[T]{
		tracker: newTracker[T]("query", p, h),
		inputs:  Inputs[T]{Target: target, Options: opts},
	}
	q.activate()
	return q, nil
}

// Inputs returns the current target and options.
func (q *Query[T]) Inputs() Inputs[T] {
	q.inMu.Lock()
	defer q.inMu.Unlock()
	return q.inputs
}

// Update replaces the inputs and starts a new attempt when they changed.
// A nil opts is treated as a fresh empty options value. A closed query
// returns ErrClosed and keeps its inputs.
func (q *Query[T]) Update(target string, opts *QueryOptions[T]) (bool, error) {
	if !q.isLive() {
		return false, ErrClosed
	}
	if strings.TrimSpace(target) == "" {
		return false, ErrEmptyTarget
	}
	if opts == nil {
		opts = &QueryOptions[T]{}
	}
	next := Inputs[T]{Target: target, Options: opts}

	q.inMu.Lock()
	if !InputsChanged(q.inputs, next) {
		q.inMu.Unlock()
		return false, nil
	}
	q.inputs = next
	q.inMu.Unlock()

	q.activate()
	return true, nil
}

// Refetch starts a new attempt with the current inputs and waits until its
// result has been applied and its callback has returned. It may be called
// from OnSuccess or OnError. Failures are reported through State and OnError;
// the returned error is only ever ctx.Err() or ErrClosed. A disabled query
// returns immediately.
func (q *Query[T]) Refetch(ctx context.Context) error {
	if !q.isLive() {
		return ErrClosed
	}
	a := q.activate()
	if a == nil {
		return nil
	}
	return await(ctx, a)
}

// activate performs one activation. It returns nil when nothing was
// dispatched.
func (q *Query[T]) activate() *attempt[T] {
	in := q.Inputs()
	opts := in.Options
	if opts.Disabled {
		return nil
	}

	method := opts.Method.or(MethodGet)
	cb := callbacks[T]{onSuccess: opts.OnSuccess, onError: opts.OnError}
	a, ok := q.begin(method, in.Target, cb, opts.DiscardStale)
	if !ok {
		return nil
	}

	if !method.validForQuery() {
		var zero T
		go q.settle(a, zero, &UnsupportedMethodError{Method: method})
		return a
	}

	target, cache := in.Target, opts.Cache
	q.dispatch(a, func(reqCtx context.Context, out *T) error {
		switch method {
		case MethodPost:
			return q.handle.Post(reqCtx, target, emptyBody, out)
		case MethodPut:
			return q.handle.Put(reqCtx, target, emptyBody, out)
		case MethodDelete:
			return q.handle.Delete(reqCtx, target, out)
		default:
			return q.handle.Get(reqCtx, target, cache, out)
		}
	})
	return a
}
