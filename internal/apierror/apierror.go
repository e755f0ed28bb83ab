// Package apierror classifies failures returned by Xsolla services.
//
// Transports report failures as *Failure, carrying the HTTP status and the
// machine-readable error code from the response body. A Table maps those to one
// of four classes; only ClassTokenExpired is recoverable by refreshing the
// access token.
package apierror

import (
	"errors"
	"fmt"
)

// Class is the outcome category of a failed call.
type Class int

const (
	// ClassDomain is a well-formed rejection from the service (validation,
	// not found, conflict). Terminal.
	ClassDomain Class = iota
	// ClassTransient is a network failure, timeout, rate limit or 5xx. Terminal
	// for the call; callers may retry at a higher level.
	ClassTransient
	// ClassTokenExpired means the access token was rejected and a refresh may
	// recover the call.
	ClassTokenExpired
	// ClassTokenInvalid means the session cannot be recovered by a refresh
	// (revoked or rejected refresh credential). Terminal; clears the session.
	ClassTokenInvalid
)

func (c Class) String() string {
	switch c {
	case ClassDomain:
		return "domain"
	case ClassTransient:
		return "transient"
	case ClassTokenExpired:
		return "token_expired"
	case ClassTokenInvalid:
		return "token_invalid"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// ParseClass parses the names produced by Class.String.
func ParseClass(s string) (Class, error) {
	switch s {
	case "domain":
		return ClassDomain, nil
	case "transient":
		return ClassTransient, nil
	case "token_expired":
		return ClassTokenExpired, nil
	case "token_invalid":
		return ClassTokenInvalid, nil
	}
	return 0, fmt.Errorf("unknown error class %q", s)
}

// Sentinels for errors.Is matching against a classified *Error.
var (
	ErrDomain       = errors.New("request rejected by service")
	ErrTransient    = errors.New("transient failure")
	ErrTokenExpired = errors.New("access token expired")
	ErrTokenInvalid = errors.New("session is no longer valid")
)

func (c Class) sentinel() error {
	switch c {
	case ClassTransient:
		return ErrTransient
	case ClassTokenExpired:
		return ErrTokenExpired
	case ClassTokenInvalid:
		return ErrTokenInvalid
	default:
		return ErrDomain
	}
}

// Failure is the structured failure reported by a transport.
// Status is 0 when no HTTP response was received.
type Failure struct {
	Status  int
	Code    string
	Message string
	// Err is the underlying network or decoding error, if any.
	Err error
}

func (f *Failure) Error() string {
	switch {
	case f.Status == 0 && f.Err != nil:
		return fmt.Sprintf("request failed: %v", f.Err)
	case f.Code != "" && f.Message != "":
		return fmt.Sprintf("status %d: %s (%s)", f.Status, f.Message, f.Code)
	case f.Code != "":
		return fmt.Sprintf("status %d: %s", f.Status, f.Code)
	case f.Message != "":
		return fmt.Sprintf("status %d: %s", f.Status, f.Message)
	default:
		return fmt.Sprintf("status %d", f.Status)
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Error is a failure annotated with its class. It is what callers of the
// authenticated request layer receive.
type Error struct {
	Class Class
	Err   error
}

// New wraps err with class c.
func New(c Class, err error) *Error {
	return &Error{Class: c, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Class.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's class.
func (e *Error) Is(target error) bool {
	return target == e.Class.sentinel()
}

// ClassOf returns the class recorded on err, or false if err carries none.
func ClassOf(err error) (Class, bool) {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Class, true
	}
	return 0, false
}
