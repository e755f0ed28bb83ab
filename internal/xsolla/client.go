// Package xsolla implements the Xsolla Login user account, inventory and cart
// APIs on top of the authenticated request layer.
//
// Every method is a single authcall.Call: it builds the request from the
// current token and lets the executor handle expiry and the one retry.
package xsolla

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/florianilch/xsolla-sdk/internal/authcall"
	"github.com/florianilch/xsolla-sdk/internal/session"
	"github.com/florianilch/xsolla-sdk/internal/transport"
)

const (
	// DefaultLoginBaseURL is the Xsolla Login API.
	DefaultLoginBaseURL = "https://login.xsolla.com/api"
	// DefaultStoreBaseURL is the Xsolla Store API.
	DefaultStoreBaseURL = "https://store.xsolla.com/api"
)

// Client calls Xsolla APIs for the signed-in user.
type Client struct {
	exec         *authcall.Executor
	projectID    string
	loginBaseURL string
	storeBaseURL string
	redirectURL  string
}

// Option configures a Client.
type Option func(*Client)

// WithLoginBaseURL overrides DefaultLoginBaseURL.
func WithLoginBaseURL(u string) Option {
	return func(c *Client) {
		c.loginBaseURL = strings.TrimRight(u, "/")
	}
}

// WithStoreBaseURL overrides DefaultStoreBaseURL.
func WithStoreBaseURL(u string) Option {
	return func(c *Client) {
		c.storeBaseURL = strings.TrimRight(u, "/")
	}
}

// WithRedirectURL sets the login_url sent with account-linking requests.
func WithRedirectURL(u string) Option {
	return func(c *Client) {
		c.redirectURL = u
	}
}

// NewClient creates a client for the given Store project.
func NewClient(exec *authcall.Executor, projectID string, opts ...Option) *Client {
	c := &Client{
		exec:         exec,
		projectID:    projectID,
		loginBaseURL: DefaultLoginBaseURL,
		storeBaseURL: DefaultStoreBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) loginURL(format string, args ...any) string {
	return c.loginBaseURL + fmt.Sprintf(format, args...)
}

func (c *Client) storeURL(format string, args ...any) string {
	return c.storeBaseURL + "/v2/project/" + url.PathEscape(c.projectID) + fmt.Sprintf(format, args...)
}

// authorized returns a builder for a bearer-authenticated request.
func authorized(method, endpoint string, body any) authcall.RequestBuilder {
	return func(tok session.Token) (*transport.Request, error) {
		return transport.NewRequest(method, endpoint, body).WithBearer(tok.AccessToken), nil
	}
}
