// Package authcall executes authenticated requests against Xsolla services.
//
// An Executor attaches the current access token to each request, and when the
// service reports the token expired it obtains a new one from the session
// coordinator and re-issues the request exactly once. Callers only supply a
// RequestBuilder:
//
//	devices, err := authcall.Call[[]Device](ctx, exec, func(tok session.Token) (*transport.Request, error) {
//		return transport.NewRequest(http.MethodGet, devicesURL, nil).WithBearer(tok.AccessToken), nil
//	})
package authcall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/google/uuid"

	"github.com/florianilch/xsolla-sdk/internal/apierror"
	"github.com/florianilch/xsolla-sdk/internal/observability"
	"github.com/florianilch/xsolla-sdk/internal/session"
	"github.com/florianilch/xsolla-sdk/internal/transport"
)

const tracerName = "github.com/florianilch/xsolla-sdk/internal/authcall"

// RequestBuilder constructs the request for one attempt. It is called again
// with the new token when the request is retried, so it must not cache the
// token it was first given.
type RequestBuilder func(tok session.Token) (*transport.Request, error)

// Refresher obtains a token newer than the one a failed attempt used, and
// ends the session when a service rejects it outright.
type Refresher interface {
	RequestRefresh(ctx context.Context, stale session.Token) (session.Token, error)
	Invalidate(ctx context.Context, stale session.Token, err error)
}

// Compile-time check that session.Coordinator implements Refresher
var _ Refresher = (*session.Coordinator)(nil)

// Executor runs authenticated requests with a single refresh-and-retry on
// token expiry. It is safe for concurrent use.
type Executor struct {
	store     *session.Store
	refresher Refresher
	transport transport.Transport
	table     apierror.Table
}

// Option configures an Executor.
type Option func(*Executor)

// WithClassification replaces apierror.DefaultTable.
func WithClassification(table apierror.Table) Option {
	return func(e *Executor) {
		e.table = table
	}
}

// New creates an Executor.
func New(store *session.Store, refresher Refresher, tr transport.Transport, opts ...Option) *Executor {
	e := &Executor{
		store:     store,
		refresher: refresher,
		transport: tr,
		table:     apierror.DefaultTable,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do sends the request produced by build and returns the response, retrying
// once after a token refresh if the first attempt failed with an expired
// token. Errors are *apierror.Error.
func (e *Executor) Do(ctx context.Context, build RequestBuilder) (*transport.Response, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "authcall.Do")
	defer span.End()

	// Correlates both attempts and any refresh in the logs.
	ctx = observability.WithAttrs(ctx, slog.String("call_id", uuid.NewString()))

	a := &attempt{build: build}
	resp, err := e.run(ctx, a)

	span.SetAttributes(attribute.Bool("authcall.retried", a.retried))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if c, ok := apierror.ClassOf(err); ok {
			span.SetAttributes(attribute.String("authcall.error_class", c.String()))
		}
	}
	return resp, err
}

func (e *Executor) run(ctx context.Context, a *attempt) (*transport.Response, error) {
	for {
		a.transition(ctx, stateBuilding)
		tok, _ := e.store.Current()
		req, err := a.build(tok)
		if err != nil {
			a.transition(ctx, stateFailed)
			return nil, apierror.New(apierror.ClassDomain, fmt.Errorf("building request: %w", err))
		}

		a.transition(ctx, stateInFlight)
		resp, err := e.transport.Send(ctx, req)
		if err == nil {
			a.transition(ctx, stateSuccess)
			return resp, nil
		}

		class := e.table.Classify(err)
		if class != apierror.ClassTokenExpired || a.retried {
			a.transition(ctx, stateFailed)
			classified := apierror.New(class, err)
			if class == apierror.ClassTokenInvalid {
				e.refresher.Invalidate(ctx, tok, classified)
			}
			return nil, classified
		}

		a.transition(ctx, stateRetrying)
		if _, err := e.refresher.RequestRefresh(ctx, tok); err != nil {
			a.transition(ctx, stateFailed)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, apierror.New(apierror.ClassTransient, err)
			}
			if _, ok := apierror.ClassOf(err); ok {
				return nil, err
			}
			return nil, apierror.New(apierror.ClassTokenInvalid, err)
		}
		a.retried = true
	}
}

// Execute runs the request asynchronously and invokes exactly one of onSuccess
// or onError, exactly once. If ctx is done before the outcome is known,
// neither is invoked and the result is discarded.
func (e *Executor) Execute(
	ctx context.Context,
	build RequestBuilder,
	onSuccess func(*transport.Response),
	onError func(error),
) {
	go func() {
		resp, err := e.Do(ctx, build)
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "discarding result of abandoned request")
			return
		}
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(resp)
		}
	}()
}

// Call performs Do and decodes the JSON payload into T. An empty payload
// yields the zero T.
func Call[T any](ctx context.Context, e *Executor, build RequestBuilder) (T, error) {
	var out T

	resp, err := e.Do(ctx, build)
	if err != nil {
		return out, err
	}
	if len(resp.Body) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, apierror.New(apierror.ClassDomain, fmt.Errorf("decoding response: %w", err))
	}
	return out, nil
}

// Go is the asynchronous form of Call with typed continuations.
func Go[T any](ctx context.Context, e *Executor, build RequestBuilder, onSuccess func(T), onError func(error)) {
	go func() {
		out, err := Call[T](ctx, e, build)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(out)
		}
	}()
}
