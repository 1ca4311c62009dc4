package fetch

// State is the {data, loading, error} triple tracked per primitive.
// Data is nil until an attempt succeeds.
type State[T any] struct {
	Data    *T
	Loading bool
	Err     error
}

// EventKind identifies a lifecycle step of a primitive.
type EventKind int

const (
	// EventStart marks an attempt being dispatched.
	EventStart EventKind = iota
	// EventSuccess carries the decoded response of a finished attempt.
	EventSuccess
	// EventFailure carries the error of a finished attempt.
	EventFailure
	// EventReset clears data and error.
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventSuccess:
		return "success"
	case EventFailure:
		return "failure"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event is one input to Transition.
type Event[T any] struct {
	Kind EventKind
	Data T
	Err  error
}

// Transition computes the state that follows prev after ev. It has no side
// effects.
//
// Start keeps the previous data visible while loading. Success replaces the
// data and clears the error. Failure sets the error and keeps any earlier
// data. Reset clears data and error but leaves Loading as it was.
func Transition[T any](prev State[T], ev Event[T]) State[T] {
	next := prev
	switch ev.Kind {
	case EventStart:
		next.Loading = true
		next.Err = nil
	case EventSuccess:
		data := ev.Data
		next.Data = &data
		next.Loading = false
		next.Err = nil
	case EventFailure:
		next.Loading = false
		next.Err = ev.Err
	case EventReset:
		next.Data = nil
		next.Err = nil
	}
	return next
}

// callbacks are the user effects attached to one attempt.
type callbacks[T any] struct {
	onSuccess func(T)
	onError   func(error)
}

// runEffects invokes the callback matching a completion event. It must run
// after the event has been applied to the state.
func runEffects[T any](ev Event[T], cb callbacks[T]) {
	switch ev.Kind {
	case EventSuccess:
		if cb.onSuccess != nil {
			cb.onSuccess(ev.Data)
		}
	case EventFailure:
		if cb.onError != nil {
			cb.onError(ev.Err)
		}
	}
}
