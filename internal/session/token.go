// Package session holds the process-wide authentication state: the current
// access token and the coordinator that replaces it when it expires.
//
// # Store
//
// Store holds at most one Token. Reads never block; Replace and Clear are
// atomic swaps and notify registered observers, which is how persistence
// collaborators learn about rotated refresh credentials and sign-outs:
//
//	store := session.NewStore()
//	store.Subscribe(persister)
//	store.Replace(token)
//
// # Coordinator
//
// Coordinator turns any number of concurrent refresh requests into a single
// call to the refresh endpoint and delivers the same outcome to every waiter:
//
//	coord := session.NewCoordinator(store, refresher, session.WithSignOut(hook))
//	token, err := coord.RequestRefresh(ctx, staleToken)
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Token is an issued access token. It is a value; refreshing produces a new
// Token rather than mutating an existing one.
type Token struct {
	AccessToken string
	// RefreshToken is the long-lived credential used to obtain the next
	// access token. Empty when the server does not issue one.
	RefreshToken string
	// Expiry is zero when unknown.
	Expiry time.Time
}

// NewToken converts an OAuth2 token. When the server did not report an expiry
// it is read from the access token's "exp" claim, if the token is a JWT.
func NewToken(t *oauth2.Token) Token {
	if t == nil {
		return Token{}
	}

	tok := Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
	if tok.Expiry.IsZero() {
		tok.Expiry = jwtExpiry(t.AccessToken)
	}
	return tok
}

// IsZero reports whether t holds no access token.
func (t Token) IsZero() bool {
	return t.AccessToken == ""
}

// Expired reports whether t has a known expiry that is not after now.
func (t Token) Expired(now time.Time) bool {
	return !t.Expiry.IsZero() && !t.Expiry.After(now)
}

// jwtExpiry extracts the exp claim without verifying the signature; the
// token was just received from the issuer over TLS.
func jwtExpiry(accessToken string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
