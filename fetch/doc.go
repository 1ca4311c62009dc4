// Package fetch provides declarative request trackers layered on a shared
// HTTP client handle.
//
// A Provider owns one Handle per base endpoint and a completion loop. Query
// issues a request as soon as it is created and again whenever its inputs
// change or Refetch is called. Mutation only issues a request when Mutate is
// called. Both expose a State of {Data, Loading, Err} and invoke OnSuccess or
// OnError exactly once per finished attempt, after the state is updated.
//
//	p := fetch.NewProvider("https://api.example.com")
//	defer p.Close()
//
//	q, err := fetch.NewQuery[User](p, "/users/1", &fetch.QueryOptions[User]{
//		OnSuccess: func(u User) { log.Info().Str("name", u.Name).Msg("loaded") },
//	})
//	if err != nil {
//		return err // ErrMissingContext, ErrEmptyTarget
//	}
//	_ = q.Wait(ctx)
//	st := q.State()
//
// Request failures never surface as returned errors. They are only visible in
// State().Err and through OnError.
//
// Overlapping attempts on one primitive are not deduplicated: state reflects
// whichever attempt finished last. Set DiscardStale to keep only the result
// of the most recently started attempt instead.
package fetch
