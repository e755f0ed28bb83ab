package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/florianilch/xsolla-sdk/internal/authcall"
	"github.com/florianilch/xsolla-sdk/internal/session"
	"github.com/florianilch/xsolla-sdk/internal/tokensource"
	"github.com/florianilch/xsolla-sdk/internal/tokenstore"
	"github.com/florianilch/xsolla-sdk/internal/transport"
	"github.com/florianilch/xsolla-sdk/internal/xsolla"
)

// SDKVersion is sent as X-Sdk-Version on every request.
const SDKVersion = "0.5.0.0"

// App wires the session, its persistence and the Xsolla API client.
type App struct {
	cfg *Config

	store       *session.Store
	persister   *tokenstore.Persister
	coordinator *session.Coordinator
	authorizer  *tokensource.Authorizer
	health      *Health

	// Client calls the Xsolla APIs for the signed-in user.
	Client *xsolla.Client
}

// New creates an App from cfg. The session starts empty; the first API call
// or Restore loads the persisted refresh credential.
func New(cfg *Config) (*App, error) {
	if cfg.Login.ClientID == "" {
		return nil, errors.New("login.client_id is required")
	}

	table, err := cfg.ClassificationTable()
	if err != nil {
		return nil, err
	}

	tokens, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}
	tr := transport.NewHTTP(
		transport.WithHTTPClient(httpClient),
		transport.WithSDKVersion(SDKVersion),
	)

	authorizer := tokensource.NewAuthorizer(cfg.Login.ClientID,
		oauth2.Endpoint{
			AuthURL:   cfg.Login.AuthURL,
			TokenURL:  cfg.Login.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		tokensource.WithHTTPClient(httpClient),
		tokensource.WithTransport(tr),
		tokensource.WithLoginURL(cfg.Login.PasswordURL),
		tokensource.WithRedirectURL(cfg.Login.RedirectURL),
		tokensource.WithScopes(cfg.Login.Scopes...),
	)

	a := &App{
		cfg:        cfg,
		store:      session.NewStore(),
		authorizer: authorizer,
		health:     NewHealth(),
	}

	a.persister = tokenstore.NewPersister(tokens)
	a.store.Subscribe(a.persister)
	a.store.Subscribe(a.health)

	a.coordinator = session.NewCoordinator(a.store, authorizer,
		session.WithCredentialSource(a.persister),
		session.WithSignOut(a.signedOut),
		session.WithRefreshTimeout(cfg.HTTP.RefreshTimeout),
	)

	exec := authcall.New(a.store, a.coordinator, tr, authcall.WithClassification(table))
	a.Client = xsolla.NewClient(exec, cfg.Store.ProjectID,
		xsolla.WithLoginBaseURL(cfg.Login.BaseURL),
		xsolla.WithStoreBaseURL(cfg.Store.BaseURL),
		xsolla.WithRedirectURL(cfg.Login.RedirectURL),
	)

	return a, nil
}

// Health reports the session state.
func (a *App) Health() *Health {
	return a.health
}

// StoreProjectID returns the configured Store project, empty if unset.
func (a *App) StoreProjectID() string {
	return a.cfg.Store.ProjectID
}

// Authorizer returns the OAuth2 client used for sign-in.
func (a *App) Authorizer() *tokensource.Authorizer {
	return a.authorizer
}

// SignIn installs a token obtained from the authorizer and waits until its
// refresh credential is persisted to the configured storage.
func (a *App) SignIn(ctx context.Context, tok session.Token) error {
	if tok.RefreshToken == "" {
		return errors.New("sign-in did not return a refresh token (is the offline scope enabled?)")
	}
	a.store.Replace(tok)
	return a.persister.Flush(ctx)
}

// Restore renews the session from the persisted refresh credential.
func (a *App) Restore(ctx context.Context) error {
	if _, ok := a.store.Current(); ok {
		return nil
	}
	if _, err := a.coordinator.RequestRefresh(ctx, session.Token{}); err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	return nil
}

// SignOut ends the session and removes the persisted refresh credential.
func (a *App) SignOut(ctx context.Context) error {
	a.store.Clear()
	a.persister.Clear()
	return a.persister.Flush(ctx)
}

// Close waits for pending credential writes.
func (a *App) Close(ctx context.Context) error {
	return a.persister.Close(ctx)
}

// signedOut runs after a failed refresh has cleared the session.
func (a *App) signedOut(ctx context.Context, cause error) {
	a.health.recordFailure(cause)

	// The store may already have been empty, in which case the persister was
	// not notified.
	a.persister.Clear()
	slog.WarnContext(ctx, "session ended, run 'xsolla auth login' to sign in again", "cause", cause)
}

// Overview is a snapshot of the signed-in user's account.
type Overview struct {
	Devices []xsolla.Device
	Balance xsolla.VirtualCurrencyBalances
	Cart    xsolla.Cart
}

// Overview fetches devices, virtual currency balance and the current cart
// concurrently. The first failure cancels the remaining calls.
func (a *App) Overview(ctx context.Context) (*Overview, error) {
	var out Overview

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		devices, err := a.Client.UserDevices(gCtx)
		if err != nil {
			return fmt.Errorf("devices: %w", err)
		}
		out.Devices = devices
		return nil
	})
	g.Go(func() error {
		balance, err := a.Client.VirtualCurrencyBalance(gCtx)
		if err != nil {
			return fmt.Errorf("balance: %w", err)
		}
		out.Balance = balance
		return nil
	})
	g.Go(func() error {
		cart, err := a.Client.Cart(gCtx, "")
		if err != nil {
			return fmt.Errorf("cart: %w", err)
		}
		out.Cart = cart
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
