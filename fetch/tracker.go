package fetch

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skymfe/corelib/internal/shardqueue"
)

// tracker is the state machine shared by Query and Mutation. State changes go
// through Transition; completions are applied on the provider's loop, keyed by
// the tracker id, so they land one at a time in the order requests finished.
// Callbacks run after the state change, on the goroutine that finished the
// request.
type tracker[T any] struct {
	id       string
	kind     string
	provider *Provider
	handle   Handle
	logger   zerolog.Logger

	// notifyMu keeps subscriber notifications in transition order.
	notifyMu sync.Mutex

	mu      sync.Mutex
	state   State[T]
	seq     uint64 // sequence of the most recently started attempt
	pending int
	idle    chan struct{} // closed while pending == 0
	subs    map[int]func(State[T])
	nextSub int
	closed  bool
}

// attempt identifies one dispatched request.
type attempt[T any] struct {
	seq          uint64
	method       Method
	target       string
	cb           callbacks[T]
	discardStale bool
	done         chan struct{}
}

func newTracker[T any](kind string, p *Provider, h Handle) *tracker[T] {
	idle := make(chan struct{})
	close(idle)
	id := uuid.NewString()
	return &tracker[T]{
		id:       id,
		kind:     kind,
		provider: p,
		handle:   h,
		logger:   p.logger.With().Str("primitive", kind).Str("id", id).Logger(),
		idle:     idle,
		subs:     make(map[int]func(State[T])),
	}
}

// State returns a snapshot of the current state.
func (t *tracker[T]) State() State[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Subscribe registers fn to receive every new state, in transition order.
// fn must not call Refetch, Mutate, or Reset synchronously. The returned
// function removes the subscription.
func (t *tracker[T]) Subscribe(fn func(State[T])) (cancel func()) {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

// Wait blocks until no attempt is in flight or ctx is done.
func (t *tracker[T]) Wait(ctx context.Context) error {
	t.mu.Lock()
	idle := t.idle
	t.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close detaches the primitive. Requests already in flight still run, but
// their results are discarded and no callbacks fire.
func (t *tracker[T]) Close() {
	t.mu.Lock()
	t.closed = true
	t.subs = make(map[int]func(State[T]))
	t.mu.Unlock()
}

func (t *tracker[T]) isLive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed && !t.provider.isClosed()
}

// apply runs Transition under the lock and notifies subscribers. ok is false
// when the tracker is no longer live.
func (t *tracker[T]) apply(ev Event[T], onApplied func()) bool {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if t.closed || t.provider.isClosed() {
		t.mu.Unlock()
		return false
	}
	t.state = Transition(t.state, ev)
	if onApplied != nil {
		onApplied()
	}
	snapshot := t.state
	subs := make([]func(State[T]), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return true
}

// begin applies Start and registers a new attempt. ok is false when the
// tracker is no longer live.
func (t *tracker[T]) begin(method Method, target string, cb callbacks[T], discardStale bool) (*attempt[T], bool) {
	a := &attempt[T]{
		method:       method,
		target:       target,
		cb:           cb,
		discardStale: discardStale,
		done:         make(chan struct{}),
	}
	ok := t.apply(Event[T]{Kind: EventStart}, func() {
		t.seq++
		a.seq = t.seq
		if t.pending == 0 {
			t.idle = make(chan struct{})
		}
		t.pending++
	})
	if !ok {
		close(a.done)
		return nil, false
	}
	t.logger.Debug().Str("method", string(method)).Str("target", target).Uint64("seq", a.seq).Msg("attempt started")
	return a, true
}

// dispatch runs call on its own goroutine against the provider context and
// hands the result to settle.
func (t *tracker[T]) dispatch(a *attempt[T], call func(ctx context.Context, out *T) error) {
	go func() {
		data, err := t.invoke(a, call)
		t.settle(a, data, err)
	}()
}

// invoke calls the handle. Its error is returned as is; a panic becomes an
// error carrying a stack.
func (t *tracker[T]) invoke(a *attempt[T], call func(ctx context.Context, out *T) error) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Str("target", a.target).Msg("handle panicked")
			var zero T
			out, err = zero, normalizePanic(r)
		}
	}()
	if callErr := call(t.provider.ctx, &out); callErr != nil {
		var zero T
		return zero, callErr
	}
	return out, nil
}

// settle applies the completion on the provider loop and then, back on the
// calling goroutine, runs the callback. Callbacks never run on a loop worker,
// so they may call Refetch or Mutate and wait for the result.
func (t *tracker[T]) settle(a *attempt[T], data T, err error) {
	defer t.finish(a)

	ev := Event[T]{Kind: EventSuccess, Data: data}
	if err != nil {
		ev = Event[T]{Kind: EventFailure, Err: err}
	}

	applied := make(chan bool, 1)
	job := shardqueue.JobFunc(func(context.Context) error {
		ok := false
		defer func() { applied <- ok }()
		if a.discardStale && !t.isLatest(a.seq) {
			droppedCompletionsTotal.WithLabelValues(t.kind, "stale").Inc()
			t.logger.Debug().Uint64("seq", a.seq).Msg("stale completion discarded")
			return nil
		}
		if !t.apply(ev, nil) {
			droppedCompletionsTotal.WithLabelValues(t.kind, "closed").Inc()
			t.logger.Debug().Uint64("seq", a.seq).Msg("completion after close discarded")
			return nil
		}
		attemptsTotal.WithLabelValues(t.kind, outcomeOf(ev)).Inc()
		ok = true
		return nil
	})

	// The job checks liveness itself; a canceled job context would make the
	// loop skip it and leave the attempt pending.
	if subErr := t.provider.loop.Submit(context.Background(), t.id, job); subErr != nil {
		droppedCompletionsTotal.WithLabelValues(t.kind, "closed").Inc()
		t.logger.Debug().Err(subErr).Uint64("seq", a.seq).Msg("completion not queued")
		return
	}
	if <-applied {
		t.runCallbacks(ev, a.cb)
	}
}

// runCallbacks runs the user callback for ev, logging a panic instead of
// taking the process down.
func (t *tracker[T]) runCallbacks(ev Event[T], cb callbacks[T]) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Str("event", ev.Kind.String()).Msg("callback panicked")
		}
	}()
	runEffects(ev, cb)
}

func (t *tracker[T]) isLatest(seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq == seq
}

// finish releases the attempt and wakes Wait callers when nothing is pending.
func (t *tracker[T]) finish(a *attempt[T]) {
	t.mu.Lock()
	t.pending--
	if t.pending == 0 {
		close(t.idle)
	}
	t.mu.Unlock()
	close(a.done)
}

// await blocks until a's completion has been applied and its callback has
// returned, or ctx is done.
func await[T any](ctx context.Context, a *attempt[T]) error {
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func outcomeOf[T any](ev Event[T]) string {
	if ev.Kind == EventSuccess {
		return "success"
	}
	if _, ok := ev.Err.(*UnsupportedMethodError); ok {
		return "unsupported_method"
	}
	return "failure"
}
