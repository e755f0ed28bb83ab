// Package transport sends requests to Xsolla services and maps error responses
// to *apierror.Failure.
package transport

import (
	"context"
	"net/http"
)

// Transport sends a single request. Implementations return *Response for 2xx
// responses and an error wrapping *apierror.Failure otherwise.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Request describes one outbound call. Body is JSON-encoded when non-nil.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   any
}

// NewRequest returns a request with an initialized header map.
func NewRequest(method, url string, body any) *Request {
	return &Request{
		Method: method,
		URL:    url,
		Header: make(http.Header),
		Body:   body,
	}
}

// WithBearer sets the Authorization header. An empty token leaves it unset.
func (r *Request) WithBearer(token string) *Request {
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

// Response is a successful response with its raw payload.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

func (f Func) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
