package apierror

import (
	"context"
	"errors"
	"net/http"
)

// AnyStatus and AnyCode are wildcards in a Rule.
const (
	AnyStatus = -1
	AnyCode   = "*"
)

// Rule maps a (status, code) pair to a class.
type Rule struct {
	Status int
	Code   string
	Class  Class
}

func (r Rule) matches(f *Failure) bool {
	if r.Status != AnyStatus && r.Status != f.Status {
		return false
	}
	return r.Code == AnyCode || r.Code == f.Code
}

// Table is an ordered list of rules; the first matching rule wins.
// Failures no rule matches fall back to status-based defaults.
type Table []Rule

// Xsolla error codes relevant to classification.
const (
	// CodeLoginInvalidToken is the Login API "invalid token" error.
	CodeLoginInvalidToken = "003-061"
	// CodeStoreInvalidToken is the Store API "invalid token" error.
	CodeStoreInvalidToken = "1501"
	// CodeLoginUserBanned is returned for blocked accounts.
	CodeLoginUserBanned = "010-011"
)

// DefaultTable covers the Login, Store and OAuth2 token endpoints.
var DefaultTable = Table{
	{Status: http.StatusUnauthorized, Code: CodeLoginInvalidToken, Class: ClassTokenExpired},
	{Status: http.StatusUnauthorized, Code: CodeStoreInvalidToken, Class: ClassTokenExpired},
	{Status: http.StatusUnauthorized, Code: "invalid_token", Class: ClassTokenExpired},
	{Status: http.StatusUnauthorized, Code: "token_expired", Class: ClassTokenExpired},
	{Status: http.StatusBadRequest, Code: "invalid_grant", Class: ClassTokenInvalid},
	{Status: http.StatusUnauthorized, Code: "invalid_grant", Class: ClassTokenInvalid},
	{Status: http.StatusUnauthorized, Code: "invalid_client", Class: ClassTokenInvalid},
	{Status: http.StatusForbidden, Code: CodeLoginUserBanned, Class: ClassTokenInvalid},
}

// With returns a new table with extra rules evaluated before t's own.
func (t Table) With(extra ...Rule) Table {
	merged := make(Table, 0, len(extra)+len(t))
	merged = append(merged, extra...)
	return append(merged, t...)
}

// Classify determines the class of err. Already classified errors keep their
// class; context cancellation and deadlines are transient.
func (t Table) Classify(err error) Class {
	if c, ok := ClassOf(err); ok {
		return c
	}

	var f *Failure
	if !errors.As(err, &f) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ClassTransient
		}
		return ClassDomain
	}

	for _, r := range t {
		if r.matches(f) {
			return r.Class
		}
	}

	switch {
	case f.Status == 0:
		return ClassTransient
	case f.Status == http.StatusUnauthorized:
		return ClassTokenExpired
	case f.Status == http.StatusRequestTimeout, f.Status == http.StatusTooManyRequests:
		return ClassTransient
	case f.Status >= 500:
		return ClassTransient
	default:
		return ClassDomain
	}
}
