package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/florianilch/xsolla-sdk/internal/apierror"
)

var (
	// ErrSignedOut is returned when the token a caller used was cleared
	// without a failed refresh being on record (explicit sign-out).
	ErrSignedOut = errors.New("signed out")

	// ErrNoRefreshCredential is returned when no refresh credential is
	// available to renew the session.
	ErrNoRefreshCredential = errors.New("no refresh credential available")
)

// RefreshEndpoint exchanges a refresh credential for a new token.
type RefreshEndpoint interface {
	Refresh(ctx context.Context, refreshToken string) (Token, error)
}

// CredentialSource supplies the persisted refresh credential when the current
// token does not carry one (e.g., on process start).
type CredentialSource interface {
	RefreshCredential(ctx context.Context) (string, error)
}

// SignOutFunc is invoked once per failed refresh round, after the store was
// cleared.
type SignOutFunc func(ctx context.Context, cause error)

// Coordinator ensures at most one refresh is in flight and fans its outcome
// out to every caller waiting on it.
type Coordinator struct {
	store       *Store
	endpoint    RefreshEndpoint
	credentials CredentialSource
	signOut     SignOutFunc
	timeout     time.Duration

	group singleflight.Group

	// failure is the error that ended the session holding failedFor.
	mu        sync.Mutex
	failedFor string
	failure   error
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCredentialSource sets the fallback source for the refresh credential.
func WithCredentialSource(src CredentialSource) CoordinatorOption {
	return func(c *Coordinator) {
		c.credentials = src
	}
}

// WithSignOut sets the hook invoked when a refresh fails.
func WithSignOut(fn SignOutFunc) CoordinatorOption {
	return func(c *Coordinator) {
		c.signOut = fn
	}
}

// WithRefreshTimeout bounds a single refresh call. Defaults to 30s.
func WithRefreshTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// NewCoordinator creates a coordinator that refreshes tokens held by store.
func NewCoordinator(store *Store, endpoint RefreshEndpoint, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:    store,
		endpoint: endpoint,
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestRefresh returns a token newer than stale, the token the caller's
// failed request was built with. If a refresh already replaced stale, the
// current token is returned without calling the endpoint. Otherwise the caller
// joins the in-flight refresh or starts one.
//
// Refresh failures are classified apierror.ClassTokenInvalid and identical for
// every waiter of the round. If ctx is done first, ctx.Err() is returned and
// the refresh continues for the remaining waiters.
func (c *Coordinator) RequestRefresh(ctx context.Context, stale Token) (Token, error) {
	if tok, err, done := c.settled(stale); done {
		return tok, err
	}

	ch := c.group.DoChan("refresh", func() (any, error) {
		return c.refresh(ctx, stale)
	})

	select {
	case <-ctx.Done():
		return Token{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	}
}

// settled reports whether the store already moved past stale.
func (c *Coordinator) settled(stale Token) (Token, error, bool) {
	cur, ok := c.store.Current()
	switch {
	case ok && cur.AccessToken != stale.AccessToken:
		return cur, nil, true
	case !ok && !stale.IsZero():
		c.mu.Lock()
		failure := c.failure
		if c.failedFor != stale.AccessToken {
			failure = nil
		}
		c.mu.Unlock()
		if failure == nil {
			failure = apierror.New(apierror.ClassTokenInvalid, ErrSignedOut)
		}
		return Token{}, failure, true
	default:
		return Token{}, nil, false
	}
}

func (c *Coordinator) refresh(ctx context.Context, stale Token) (Token, error) {
	// A round that completed between settled and DoChan may already have
	// replaced stale.
	if tok, err, done := c.settled(stale); done {
		return tok, err
	}

	base, _ := c.store.Current()

	// The round outlives any single waiter.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	slog.InfoContext(ctx, "refreshing access token")

	credential, err := c.refreshCredential(ctx, base)
	var tok Token
	if err == nil {
		tok, err = c.endpoint.Refresh(ctx, credential)
	}
	if err == nil && tok.IsZero() {
		err = errors.New("refresh endpoint returned an empty access token")
	}
	if err != nil {
		return Token{}, c.fail(ctx, base, err)
	}

	// Endpoints that do not rotate the credential keep the one we used.
	if tok.RefreshToken == "" {
		tok.RefreshToken = credential
	}

	if !c.store.CompareAndReplace(base, tok) {
		// Signed in or out while the round was running.
		slog.InfoContext(ctx, "session changed during refresh, discarding refreshed token")
		if cur, err, done := c.settled(base); done {
			return cur, err
		}
		return Token{}, apierror.New(apierror.ClassTokenInvalid, ErrSignedOut)
	}
	slog.InfoContext(ctx, "access token refreshed", "expiry", tok.Expiry)

	return tok, nil
}

func (c *Coordinator) refreshCredential(ctx context.Context, base Token) (string, error) {
	if base.RefreshToken != "" {
		return base.RefreshToken, nil
	}
	if c.credentials == nil {
		return "", ErrNoRefreshCredential
	}

	credential, err := c.credentials.RefreshCredential(ctx)
	if err != nil {
		return "", fmt.Errorf("reading refresh credential: %w", err)
	}
	if credential == "" {
		return "", ErrNoRefreshCredential
	}
	return credential, nil
}

// fail ends the session the round started from and returns the terminal error
// shared by every waiter of the round.
func (c *Coordinator) fail(ctx context.Context, base Token, cause error) error {
	err := apierror.New(apierror.ClassTokenInvalid, fmt.Errorf("refreshing access token: %w", cause))

	// A bootstrap round has no session to clear but its credential is bad,
	// unless someone signed in meanwhile.
	_, signedIn := c.store.Current()
	if c.end(base, err) || (base.IsZero() && !signedIn) {
		slog.WarnContext(ctx, "access token refresh failed, session cleared", "error", cause)
		if c.signOut != nil {
			c.signOut(ctx, err)
		}
	}
	return err
}

// Invalidate ends the session after a call made with stale was rejected as
// apierror.ClassTokenInvalid. Nothing happens if the store no longer holds
// stale. Callers that later present stale to RequestRefresh receive err.
func (c *Coordinator) Invalidate(ctx context.Context, stale Token, err error) {
	if stale.IsZero() || !c.end(stale, err) {
		return
	}

	slog.WarnContext(ctx, "session rejected by service, session cleared", "error", err)
	if c.signOut != nil {
		c.signOut(ctx, err)
	}
}

// end clears the store if it still holds tok and records err as the reason.
func (c *Coordinator) end(tok Token, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.store.CompareAndClear(tok) {
		return false
	}
	c.failedFor = tok.AccessToken
	c.failure = err
	return true
}
