package authcall

import (
	"context"
	"log/slog"
)

type state int

const (
	stateBuilding state = iota
	stateInFlight
	stateRetrying
	stateSuccess
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateBuilding:
		return "building"
	case stateInFlight:
		return "in_flight"
	case stateRetrying:
		return "retrying"
	case stateSuccess:
		return "success"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// attempt is the per-call state. retried is set once the request has been
// re-issued after a refresh; a second expiry is then terminal.
type attempt struct {
	build   RequestBuilder
	state   state
	retried bool
}

func (a *attempt) transition(ctx context.Context, next state) {
	slog.DebugContext(ctx, "authenticated request",
		"from", a.state.String(),
		"to", next.String(),
		"retried", a.retried,
	)
	a.state = next
}
