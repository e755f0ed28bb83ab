package session

import (
	"sync"
	"sync/atomic"
)

// Observer is notified after the current token changes. Callbacks run
// synchronously under the Store's lock, in the order the changes happened.
// They block Replace and Clear (and so a refresh round) until they return:
// they must not call back into the Store and must hand slow work such as
// storage I/O off to another goroutine.
type Observer interface {
	TokenReplaced(tok Token)
	TokenCleared()
}

// Store holds the current access token. All methods are thread-safe.
type Store struct {
	current atomic.Pointer[Token]

	// mu serializes writers so observers see changes in order.
	mu        sync.Mutex
	observers []Observer
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the active token, or false before sign-in and after
// sign-out.
func (s *Store) Current() (Token, bool) {
	tok := s.current.Load()
	if tok == nil {
		return Token{}, false
	}
	return *tok, true
}

// Replace installs tok as the current token. A zero tok is equivalent to
// Clear.
func (s *Store) Replace(tok Token) {
	if tok.IsZero() {
		s.Clear()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Store(&tok)
	for _, o := range s.observers {
		o.TokenReplaced(tok)
	}
}

// Clear removes the current token.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Swap(nil) == nil {
		return
	}
	for _, o := range s.observers {
		o.TokenCleared()
	}
}

// CompareAndReplace installs next only if the current token is still old. A
// zero old matches an empty store. It reports whether next was installed.
func (s *Store) CompareAndReplace(old, next Token) bool {
	if next.IsZero() {
		return s.CompareAndClear(old)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !holds(s.current.Load(), old) {
		return false
	}
	s.current.Store(&next)
	for _, o := range s.observers {
		o.TokenReplaced(next)
	}
	return true
}

// CompareAndClear removes the current token only if it is still tok. It
// reports whether the store was cleared.
func (s *Store) CompareAndClear(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	if cur == nil || !holds(cur, tok) {
		return false
	}
	s.current.Store(nil)
	for _, o := range s.observers {
		o.TokenCleared()
	}
	return true
}

func holds(cur *Token, tok Token) bool {
	if cur == nil {
		return tok.IsZero()
	}
	return cur.AccessToken == tok.AccessToken
}

// Subscribe registers o for future changes.
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observers = append(s.observers, o)
}
