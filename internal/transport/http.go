package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/florianilch/xsolla-sdk/internal/apierror"
)

// maxBodyBytes bounds how much of a response is read into memory.
const maxBodyBytes = 4 << 20

// HTTP sends requests over net/http.
type HTTP struct {
	client     *http.Client
	sdkVersion string
}

// Compile-time check that HTTP implements Transport
var _ Transport = (*HTTP)(nil)

// Option configures HTTP.
type Option func(*HTTP)

// WithHTTPClient replaces the default client (e.g., for proxies or tests).
func WithHTTPClient(client *http.Client) Option {
	return func(h *HTTP) {
		h.client = client
	}
}

// WithSDKVersion sets the version reported in the X-Sdk-Version header.
func WithSDKVersion(version string) Option {
	return func(h *HTTP) {
		h.sdkVersion = version
	}
}

// NewHTTP creates an HTTP transport with a 30s client timeout unless
// overridden.
func NewHTTP(opts ...Option) *HTTP {
	h := &HTTP{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Send implements Transport.
func (h *HTTP) Send(ctx context.Context, r *Request) (*Response, error) {
	var body io.Reader
	if r.Body != nil {
		encoded, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range r.Header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.New().String())
	}
	if h.sdkVersion != "" {
		req.Header.Set("X-Sdk-Version", h.sdkVersion)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &apierror.Failure{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &apierror.Failure{Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode/100 != 2 {
		failure := parseFailure(resp.StatusCode, payload)
		slog.DebugContext(ctx, "request failed",
			"method", r.Method,
			"status", failure.Status,
			"code", failure.Code,
			"request_id", req.Header.Get("X-Request-ID"),
		)
		return nil, failure
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   payload,
	}, nil
}

// errorBody covers the three error shapes Xsolla services return:
//
//	Login:  {"error": {"code": "003-061", "description": "..."}}
//	OAuth2: {"error": "invalid_grant", "error_description": "..."}
//	Store:  {"statusCode": 401, "errorCode": 1501, "errorMessage": "..."}
type errorBody struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
	ErrorCode        json.RawMessage `json:"errorCode"`
	ErrorMessage     string          `json:"errorMessage"`
}

type loginError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// parseFailure extracts the error code and message from an error response.
// Unparseable bodies yield a Failure with only the status set.
func parseFailure(status int, payload []byte) *apierror.Failure {
	failure := &apierror.Failure{Status: status}

	var eb errorBody
	if err := json.Unmarshal(payload, &eb); err != nil {
		failure.Message = strings.TrimSpace(string(payload))
		if len(failure.Message) > 256 {
			failure.Message = failure.Message[:256]
		}
		return failure
	}

	switch {
	case len(eb.ErrorCode) > 0:
		failure.Code = strings.Trim(string(eb.ErrorCode), `"`)
		failure.Message = eb.ErrorMessage
	case len(eb.Error) > 0 && eb.Error[0] == '{':
		var le loginError
		if err := json.Unmarshal(eb.Error, &le); err == nil {
			failure.Code = le.Code
			failure.Message = le.Description
		}
	case len(eb.Error) > 0:
		var code string
		if err := json.Unmarshal(eb.Error, &code); err == nil {
			failure.Code = code
			failure.Message = eb.ErrorDescription
		}
	}

	return failure
}
