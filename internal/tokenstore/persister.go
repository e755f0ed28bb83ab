package tokenstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/florianilch/xsolla-sdk/internal/session"
)

// queueSize bounds pending writes. Tokens rotate once per refresh, so the
// queue only fills if storage is stuck.
const queueSize = 16

// Persister keeps a TokenStore in sync with a session.Store: rotated refresh
// credentials are written, sign-outs clear the stored one. It also supplies
// the stored credential to a session.Coordinator.
//
// Writes happen in order on a background goroutine so that observer callbacks
// never wait on storage. Flush waits for queued writes; Close stops the worker.
type Persister struct {
	store   TokenStore
	timeout time.Duration

	queue     chan write
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	last   string
	closed bool
}

type write struct {
	token string
	// flushed, when set, marks a Flush request instead of a write.
	flushed chan struct{}
}

// Compile-time checks that Persister plugs into the session package
var (
	_ session.Observer         = (*Persister)(nil)
	_ session.CredentialSource = (*Persister)(nil)
)

// NewPersister creates a Persister writing to store and starts its worker.
func NewPersister(store TokenStore) *Persister {
	p := &Persister{
		store:   store,
		timeout: 10 * time.Second,
		queue:   make(chan write, queueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Persister) run() {
	defer close(p.done)
	for w := range p.queue {
		if w.flushed != nil {
			close(w.flushed)
			continue
		}
		p.write(w.token)
	}
}

// RefreshCredential implements session.CredentialSource. Pending writes are
// flushed first. A missing credential is reported as an empty string.
func (p *Persister) RefreshCredential(ctx context.Context) (string, error) {
	if err := p.Flush(ctx); err != nil {
		return "", err
	}

	token, err := p.store.Read(ctx)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.last = token
	p.mu.Unlock()

	return token, nil
}

// TokenReplaced implements session.Observer.
func (p *Persister) TokenReplaced(tok session.Token) {
	if tok.RefreshToken == "" {
		return
	}
	p.enqueue(tok.RefreshToken)
}

// TokenCleared implements session.Observer.
func (p *Persister) TokenCleared() {
	p.Clear()
}

// Clear queues removal of the stored credential, whether or not a session
// was active.
func (p *Persister) Clear() {
	p.enqueue("")
}

func (p *Persister) enqueue(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		slog.Warn("token persister closed, dropping write")
		return
	}
	if token != "" && token == p.last {
		return
	}
	p.last = token
	p.queue <- write{token: token}
}

// Flush waits until every write queued before the call has been attempted.
func (p *Persister) Flush(ctx context.Context) error {
	flushed := make(chan struct{})

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.queue <- write{flushed: flushed}
	p.mu.Unlock()

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending writes and stops the worker. Later changes are dropped.
func (p *Persister) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Persister) write(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err := p.store.Write(ctx, token)
	switch {
	case err == nil:
	case errors.Is(err, ErrReadOnly):
		slog.DebugContext(ctx, "token storage is read-only, skipping write")
	default:
		slog.WarnContext(ctx, "failed to persist refresh credential", "error", err)
	}
}
