package fetch

import (
	"context"
	"strings"
)

// MutationOptions configures a Mutation. All fields are optional.
type MutationOptions[T any] struct {
	// Method defaults to POST. Only POST, PUT and DELETE are accepted.
	Method Method

	OnSuccess func(T)
	OnError   func(error)

	// DiscardStale ignores completions of attempts that are not the most
	// recently started one.
	DiscardStale bool
}

// Mutation is an on-demand request tracker. It never sends a request on its
// own; Mutate is the only trigger.
type Mutation[T, D any] struct {
	*tracker[T]

	target string
	opts   MutationOptions[T]
}

// NewMutation creates an idle Mutation. It returns ErrMissingContext when p
// is nil or closed.
func NewMutation[T, D any](p *Provider, target string, opts *MutationOptions[T]) (*Mutation[T, D], error) {
	h, err := p.Handle()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(target) == "" {
		return nil, ErrEmptyTarget
	}
	m := &Mutation[T, D]{
		tracker: newTracker[T]("mutation", p, h),
		target:  target,
	}
	if opts != nil {
		m.opts = *opts
	}
	return m, nil
}

// Mutate sends body with the configured verb (DELETE ignores it) and waits
// until the result has been applied. Failures are reported through State and
// OnError; the returned error is only ever ctx.Err() or ErrClosed.
func (m *Mutation[T, D]) Mutate(ctx context.Context, body D) error {
	method := m.opts.Method.or(MethodPost)
	cb := callbacks[T]{onSuccess: m.opts.OnSuccess, onError: m.opts.OnError}
	a, ok := m.begin(method, m.target, cb, m.opts.DiscardStale)
	if !ok {
		return ErrClosed
	}

	if !method.validForMutation() {
		var zero T
		go m.settle(a, zero, &UnsupportedMethodError{Method: method})
		return await(ctx, a)
	}

	target := m.target
	m.dispatch(a, func(reqCtx context.Context, out *T) error {
		switch method {
		case MethodPut:
			return m.handle.Put(reqCtx, target, body, out)
		case MethodDelete:
			return m.handle.Delete(reqCtx, target, out)
		default:
			return m.handle.Post(reqCtx, target, body, out)
		}
	})
	return await(ctx, a)
}

// Reset clears Data and Err. Loading is untouched and an in-flight request
// is not stopped; its completion can still overwrite the reset state.
func (m *Mutation[T, D]) Reset() {
	m.apply(Event[T]{Kind: EventReset}, nil)
}
