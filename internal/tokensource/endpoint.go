package tokensource

import "golang.org/x/oauth2"

const (
	// LoginURL is the password sign-in endpoint of Xsolla Login.
	LoginURL = "https://login.xsolla.com/api/oauth2/login/token"

	// RedirectURL is the default redirect URI registered for OAuth2 clients.
	RedirectURL = "https://login.xsolla.com/api/blank"
)

// Endpoint is the Xsolla Login OAuth2 endpoint. Public clients send their
// client_id in the request body.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://login.xsolla.com/api/oauth2/login",
	TokenURL:  "https://login.xsolla.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// "offline" makes Xsolla Login issue a refresh token.
var scopes = []string{"offline"}
