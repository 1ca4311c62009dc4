package auth

import "github.com/rs/zerolog"

// Accessor exposes the flag of a Source to consumers.
type Accessor struct {
	src    Source
	logger zerolog.Logger
}

// NewAccessor wraps src. A nil src reads as signed out.
func NewAccessor(src Source, logger zerolog.Logger) *Accessor {
	return &Accessor{src: src, logger: logger.With().Str("component", "auth").Logger()}
}

// IsAuthenticated returns the source's current flag. A panicking source is
// logged and reported as signed out.
func (a *Accessor) IsAuthenticated() (ok bool) {
	if a == nil || a.src == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Msg("auth source panicked")
			ok = false
		}
	}()
	return a.src.CurrentFlag()
}

// Status renders the flag for display.
func (a *Accessor) Status() string {
	if a.IsAuthenticated() {
		return "Authenticated"
	}
	return "Not Authenticated"
}
