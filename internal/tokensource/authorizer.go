package tokensource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/florianilch/xsolla-sdk/internal/apierror"
	"github.com/florianilch/xsolla-sdk/internal/session"
	"github.com/florianilch/xsolla-sdk/internal/transport"
)

// Authorizer handles sign-in and token refresh against Xsolla Login.
// Password sign-in uses Xsolla's JSON login endpoint; code exchange and
// refresh are standard OAuth2 grants.
type Authorizer struct {
	config    *oauth2.Config
	loginURL  string
	client    *http.Client
	transport transport.Transport
}

// Compile-time check that Authorizer implements session.RefreshEndpoint
var _ session.RefreshEndpoint = (*Authorizer)(nil)

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithHTTPClient sets the client used for OAuth2 grants (e.g., for proxies
// or custom timeouts).
func WithHTTPClient(client *http.Client) Option {
	return func(a *Authorizer) {
		a.client = client
	}
}

// WithTransport sets the transport used for password sign-in.
func WithTransport(tr transport.Transport) Option {
	return func(a *Authorizer) {
		a.transport = tr
	}
}

// WithLoginURL overrides LoginURL.
func WithLoginURL(loginURL string) Option {
	return func(a *Authorizer) {
		a.loginURL = loginURL
	}
}

// WithRedirectURL overrides RedirectURL.
func WithRedirectURL(redirectURL string) Option {
	return func(a *Authorizer) {
		a.config.RedirectURL = redirectURL
	}
}

// WithScopes overrides the requested scopes.
func WithScopes(scopes ...string) Option {
	return func(a *Authorizer) {
		a.config.Scopes = scopes
	}
}

// NewAuthorizer creates an authorizer for the given Xsolla Login OAuth2 client.
func NewAuthorizer(clientID string, endpoint oauth2.Endpoint, opts ...Option) *Authorizer {
	a := &Authorizer{
		config: &oauth2.Config{
			ClientID:    clientID,
			RedirectURL: RedirectURL,
			Scopes:      scopes,
			Endpoint:    endpoint,
		},
		loginURL: LoginURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.transport == nil {
		a.transport = transport.NewHTTP(transport.WithHTTPClient(a.client))
	}
	return a
}

// AuthCodeURL generates the authorization URL for the OAuth2 flow with PKCE.
// Caller must keep verifier and provide the same value to Exchange.
func (a *Authorizer) AuthCodeURL(state, verifier string, opts ...oauth2.AuthCodeOption) string {
	allOpts := append(opts, oauth2.S256ChallengeOption(verifier))
	return a.config.AuthCodeURL(state, allOpts...)
}

// Exchange completes the OAuth2 flow by exchanging an authorization code for
// tokens.
func (a *Authorizer) Exchange(ctx context.Context, code, verifier string) (session.Token, error) {
	if verifier == "" {
		return session.Token{}, errors.New("verifier cannot be empty")
	}
	if code == "" {
		return session.Token{}, errors.New("authorization code cannot be empty")
	}

	tok, err := a.config.Exchange(a.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return session.Token{}, fmt.Errorf("exchanging authorization code: %w", toFailure(err))
	}
	return session.NewToken(tok), nil
}

// SignIn authenticates with username and password and returns a token that
// carries a refresh credential.
func (a *Authorizer) SignIn(ctx context.Context, username, password string) (session.Token, error) {
	if err := ctx.Err(); err != nil {
		return session.Token{}, err
	}
	if username == "" || password == "" {
		return session.Token{}, errors.New("username and password are required")
	}

	query := url.Values{}
	query.Set("client_id", a.config.ClientID)
	query.Set("scope", strings.Join(a.config.Scopes, " "))

	req := transport.NewRequest(http.MethodPost, a.loginURL+"?"+query.Encode(), signInRequest{
		Username: username,
		Password: password,
	})

	now := time.Now()
	resp, err := a.transport.Send(ctx, req)
	if err != nil {
		return session.Token{}, fmt.Errorf("sign-in failed: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(resp.Body, &token); err != nil {
		return session.Token{}, fmt.Errorf("decoding sign-in response: %w", err)
	}

	// Convert ExpiresIn to Expiry (see oauth2.Token.ExpiresIn field documentation)
	if token.ExpiresIn > 0 {
		token.Expiry = now.Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	return session.NewToken(&token), nil
}

// Refresh implements session.RefreshEndpoint using the refresh_token grant.
// Rejections are reported as *apierror.Failure with the OAuth2 error code.
func (a *Authorizer) Refresh(ctx context.Context, refreshToken string) (session.Token, error) {
	if refreshToken == "" {
		return session.Token{}, session.ErrNoRefreshCredential
	}

	src := a.config.TokenSource(a.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return session.Token{}, toFailure(err)
	}
	return session.NewToken(tok), nil
}

func (a *Authorizer) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.client)
}

// toFailure maps OAuth2 errors onto the failure shape used for classification.
func toFailure(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return &apierror.Failure{Err: err}
	}

	failure := &apierror.Failure{
		Code:    retrieveErr.ErrorCode,
		Message: retrieveErr.ErrorDescription,
		Err:     retrieveErr,
	}
	if retrieveErr.Response != nil {
		failure.Status = retrieveErr.Response.StatusCode
	}
	return failure
}

// signInRequest represents the password sign-in request body.
type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
