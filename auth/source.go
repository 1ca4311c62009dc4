// Package auth answers "is the user signed in?" synchronously from a locally
// held flag. It never talks to the network.
package auth

import "sync/atomic"

// Source supplies the current authentication flag.
type Source interface {
	CurrentFlag() bool
}

// SourceFunc adapts a function to Source.
type SourceFunc func() bool

func (f SourceFunc) CurrentFlag() bool { return f() }

// StaticSource always reports the same value.
type StaticSource bool

func (s StaticSource) CurrentFlag() bool { return bool(s) }

// SessionSource holds a flag flipped by Login and Logout. The zero value is
// signed out.
type SessionSource struct {
	flag atomic.Bool
}

func (s *SessionSource) Login()  { s.flag.Store(true) }
func (s *SessionSource) Logout() { s.flag.Store(false) }

func (s *SessionSource) CurrentFlag() bool { return s.flag.Load() }
