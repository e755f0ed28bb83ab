// Package tokensource acquires and refreshes Xsolla Login access tokens.
//
// Xsolla Login needs custom handling in a few ways:
//   - Password sign-in posts JSON to a dedicated login endpoint, with client_id
//     and scope in the query string
//   - Public clients authenticate with client_id in the request body
//   - A refresh token is only issued when the "offline" scope is requested
//
// # Password Sign-In
//
//	auth := tokensource.NewAuthorizer(clientID, tokensource.Endpoint)
//	token, err := auth.SignIn(ctx, username, password)
//	// Persist token.RefreshToken for future sessions
//
// # OAuth2 Authorization Flow
//
//	verifier := oauth2.GenerateVerifier() // Save for Exchange call
//	authURL := auth.AuthCodeURL(state, verifier)
//	token, err := auth.Exchange(ctx, code, verifier)
//
// # Refresh
//
// Authorizer implements session.RefreshEndpoint, so it plugs directly into a
// session.Coordinator:
//
//	coord := session.NewCoordinator(store, auth)
//
// # Custom Base Transport
//
// Configure a custom HTTP client for token requests (e.g., for proxies or
// custom timeouts):
//
//	auth := tokensource.NewAuthorizer(
//	  clientID,
//	  tokensource.Endpoint,
//	  tokensource.WithHTTPClient(customClient),
//	)
package tokensource
