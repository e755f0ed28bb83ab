package tokensource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/florianilch/xsolla-sdk/internal/apierror"
)

func newTestAuthorizer(server *httptest.Server) *Authorizer {
	return NewAuthorizer("1234",
		oauth2.Endpoint{
			AuthURL:   server.URL + "/oauth2/login",
			TokenURL:  server.URL + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		WithLoginURL(server.URL+"/oauth2/login/token"),
		WithHTTPClient(server.Client()),
	)
}

func TestSignIn(t *testing.T) {
	var gotQuery url.Values
	var gotBody signInRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/login/token" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","refresh_token":"refresh","expires_in":3600,"token_type":"bearer"}`))
	}))
	defer server.Close()

	before := time.Now()
	tok, err := newTestAuthorizer(server).SignIn(context.Background(), "xsolla", "secret")
	require.NoError(t, err)

	require.Equal(t, "access", tok.AccessToken)
	require.Equal(t, "refresh", tok.RefreshToken)
	require.WithinDuration(t, before.Add(time.Hour), tok.Expiry, 5*time.Second)

	require.Equal(t, "1234", gotQuery.Get("client_id"))
	require.Equal(t, "offline", gotQuery.Get("scope"))
	require.Equal(t, signInRequest{Username: "xsolla", Password: "secret"}, gotBody)
}

func TestSignInRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"code":"003-007","description":"Invalid username or password"}}`))
	}))
	defer server.Close()

	_, err := newTestAuthorizer(server).SignIn(context.Background(), "xsolla", "wrong")

	var failure *apierror.Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "003-007", failure.Code)
}

func TestSignInRequiresCredentials(t *testing.T) {
	auth := NewAuthorizer("1234", Endpoint)
	_, err := auth.SignIn(context.Background(), "", "")
	require.Error(t, err)
}

func TestRefresh(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-2","refresh_token":"refresh-2","expires_in":3600,"token_type":"bearer"}`))
	}))
	defer server.Close()

	tok, err := newTestAuthorizer(server).Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	require.Equal(t, "access-2", tok.AccessToken)
	require.Equal(t, "refresh-2", tok.RefreshToken)
	require.False(t, tok.Expiry.IsZero())

	require.Equal(t, "refresh_token", form.Get("grant_type"))
	require.Equal(t, "refresh-1", form.Get("refresh_token"))
	require.Equal(t, "1234", form.Get("client_id"))
}

func TestRefreshRejectedIsTokenInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token revoked"}`))
	}))
	defer server.Close()

	_, err := newTestAuthorizer(server).Refresh(context.Background(), "revoked")

	var failure *apierror.Failure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, http.StatusBadRequest, failure.Status)
	require.Equal(t, "invalid_grant", failure.Code)
	require.Equal(t, apierror.ClassTokenInvalid, apierror.DefaultTable.Classify(err))
}

func TestAuthCodeURLUsesPKCE(t *testing.T) {
	auth := NewAuthorizer("1234", Endpoint)
	verifier := oauth2.GenerateVerifier()

	parsed, err := url.Parse(auth.AuthCodeURL("state-1", verifier))
	require.NoError(t, err)

	q := parsed.Query()
	require.Equal(t, "state-1", q.Get("state"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), q.Get("code_challenge"))
	require.Equal(t, "1234", q.Get("client_id"))
}

func TestExchange(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","refresh_token":"refresh","expires_in":60}`))
	}))
	defer server.Close()

	tok, err := newTestAuthorizer(server).Exchange(context.Background(), "code-1", "verifier-1")
	require.NoError(t, err)
	require.Equal(t, "refresh", tok.RefreshToken)
	require.Equal(t, "authorization_code", form.Get("grant_type"))
	require.Equal(t, "verifier-1", form.Get("code_verifier"))
}
