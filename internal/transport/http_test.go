package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/florianilch/xsolla-sdk/internal/apierror"
)

func TestSendSuccess(t *testing.T) {
	var gotHeader http.Header
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tr := NewHTTP(WithHTTPClient(server.Client()), WithSDKVersion("0.5.0.0"))
	req := NewRequest(http.MethodPost, server.URL, map[string]string{"device": "pixel"}).WithBearer("tok")

	resp, err := tr.Send(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	require.JSONEq(t, `{"ok":true}`, string(resp.Body))

	require.Equal(t, "Bearer tok", gotHeader.Get("Authorization"))
	require.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	require.Equal(t, "0.5.0.0", gotHeader.Get("X-Sdk-Version"))
	require.NotEmpty(t, gotHeader.Get("X-Request-ID"))
	require.Equal(t, "pixel", gotBody["device"])
}

func TestSendPreservesRequestID(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
	}))
	defer server.Close()

	req := NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("X-Request-ID", "fixed-id")

	_, err := NewHTTP(WithHTTPClient(server.Client())).Send(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "fixed-id", got)
}

func TestSendErrorShapes(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    string
		wantMessage string
	}{
		{
			name:        "login api",
			status:      http.StatusUnauthorized,
			body:        `{"error":{"code":"003-061","description":"Invalid token"}}`,
			wantCode:    "003-061",
			wantMessage: "Invalid token",
		},
		{
			name:        "oauth2 endpoint",
			status:      http.StatusBadRequest,
			body:        `{"error":"invalid_grant","error_description":"refresh token revoked"}`,
			wantCode:    "invalid_grant",
			wantMessage: "refresh token revoked",
		},
		{
			name:        "store api",
			status:      http.StatusUnauthorized,
			body:        `{"statusCode":401,"errorCode":1501,"errorMessage":"[0401-1501]: Authorization failed"}`,
			wantCode:    "1501",
			wantMessage: "[0401-1501]: Authorization failed",
		},
		{
			name:        "plain text",
			status:      http.StatusBadGateway,
			body:        "bad gateway",
			wantCode:    "",
			wantMessage: "bad gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewHTTP(WithHTTPClient(server.Client())).Send(context.Background(), NewRequest(http.MethodGet, server.URL, nil))

			var failure *apierror.Failure
			require.True(t, errors.As(err, &failure))
			require.Equal(t, tt.status, failure.Status)
			require.Equal(t, tt.wantCode, failure.Code)
			require.Equal(t, tt.wantMessage, failure.Message)
		})
	}
}

func TestSendNetworkFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTP().Send(context.Background(), NewRequest(http.MethodGet, url, nil))
	require.Error(t, err)
	require.Equal(t, apierror.ClassTransient, apierror.DefaultTable.Classify(err))
}
