package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/florianilch/xsolla-sdk/internal/session"
)

// Health tracks the session state for status reporting.
// All methods are thread-safe.
type Health struct {
	signedIn atomic.Bool

	mu          sync.Mutex
	expiry      time.Time
	lastFailure error
}

// Compile-time check that Health implements session.Observer interface
var _ session.Observer = (*Health)(nil)

// NewHealth creates a new Health instance initialized as signed out.
func NewHealth() *Health {
	return &Health{}
}

// TokenReplaced implements session.Observer.
func (h *Health) TokenReplaced(tok session.Token) {
	h.mu.Lock()
	h.expiry = tok.Expiry
	h.lastFailure = nil
	h.mu.Unlock()

	h.signedIn.Store(true)
}

// TokenCleared implements session.Observer.
func (h *Health) TokenCleared() {
	h.signedIn.Store(false)

	h.mu.Lock()
	h.expiry = time.Time{}
	h.mu.Unlock()
}

func (h *Health) recordFailure(err error) {
	h.mu.Lock()
	h.lastFailure = err
	h.mu.Unlock()
}

// SignedIn reports whether a session is active.
func (h *Health) SignedIn() bool {
	return h.signedIn.Load()
}

// Expiry returns the access token expiry, zero if unknown or signed out.
func (h *Health) Expiry() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.expiry
}

// LastFailure returns the cause of the most recent forced sign-out, if any.
func (h *Health) LastFailure() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastFailure
}
