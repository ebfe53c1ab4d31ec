// Package generation tags asynchronous work with a token so that callbacks
// belonging to superseded work can be recognised and dropped.
package generation

import "sync/atomic"

// Source hands out tokens. Only the most recently issued token is valid.
// The zero value is ready to use.
type Source struct {
	current atomic.Uint64
}

// Token identifies one generation of a Source.
type Token struct {
	src *Source
	id  uint64
}

// Next invalidates every outstanding token and returns a fresh one.
func (s *Source) Next() Token {
	return Token{src: s, id: s.current.Add(1)}
}

// Invalidate makes every outstanding token stale without issuing a new one.
func (s *Source) Invalidate() {
	s.current.Add(1)
}

// Valid reports whether t is still the current generation of its source.
// The zero Token is never valid.
func (t Token) Valid() bool {
	return t.src != nil && t.src.current.Load() == t.id
}

func (t Token) ID() uint64 {
	return t.id
}
