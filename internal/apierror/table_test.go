package apierror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"login invalid token", &Failure{Status: 401, Code: CodeLoginInvalidToken}, ClassTokenExpired},
		{"store invalid token", &Failure{Status: 401, Code: CodeStoreInvalidToken}, ClassTokenExpired},
		{"unknown 401", &Failure{Status: 401, Code: "something"}, ClassTokenExpired},
		{"refresh rejected", &Failure{Status: 400, Code: "invalid_grant"}, ClassTokenInvalid},
		{"banned", &Failure{Status: 403, Code: CodeLoginUserBanned}, ClassTokenInvalid},
		{"network", &Failure{Err: errors.New("connection refused")}, ClassTransient},
		{"server error", &Failure{Status: 503}, ClassTransient},
		{"rate limited", &Failure{Status: 429}, ClassTransient},
		{"validation", &Failure{Status: 422, Code: "003-003"}, ClassDomain},
		{"wrapped failure", fmt.Errorf("get devices: %w", &Failure{Status: 401, Code: CodeLoginInvalidToken}), ClassTokenExpired},
		{"deadline", context.DeadlineExceeded, ClassTransient},
		{"already classified", New(ClassTokenInvalid, &Failure{Status: 500}), ClassTokenInvalid},
		{"plain error", errors.New("boom"), ClassDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DefaultTable.Classify(tt.err))
		})
	}
}

func TestTableWithOverridesDefaults(t *testing.T) {
	table := DefaultTable.With(Rule{Status: 401, Code: CodeStoreInvalidToken, Class: ClassTokenInvalid})

	require.Equal(t, ClassTokenInvalid, table.Classify(&Failure{Status: 401, Code: CodeStoreInvalidToken}))
	require.Equal(t, ClassTokenExpired, DefaultTable.Classify(&Failure{Status: 401, Code: CodeStoreInvalidToken}))
}

func TestWildcardRule(t *testing.T) {
	table := Table{{Status: AnyStatus, Code: "maintenance", Class: ClassTransient}}

	require.Equal(t, ClassTransient, table.Classify(&Failure{Status: 400, Code: "maintenance"}))
	require.Equal(t, ClassDomain, table.Classify(&Failure{Status: 400, Code: "other"}))
}

func TestErrorIs(t *testing.T) {
	failure := &Failure{Status: 400, Code: "invalid_grant", Message: "refresh token revoked"}
	err := fmt.Errorf("refresh: %w", New(ClassTokenInvalid, failure))

	require.ErrorIs(t, err, ErrTokenInvalid)
	require.NotErrorIs(t, err, ErrTokenExpired)

	var got *Failure
	require.ErrorAs(t, err, &got)
	require.Equal(t, "invalid_grant", got.Code)
}

func TestParseClassRoundTrip(t *testing.T) {
	for _, c := range []Class{ClassDomain, ClassTransient, ClassTokenExpired, ClassTokenInvalid} {
		parsed, err := ParseClass(c.String())
		require.NoError(t, err)
		require.Equal(t, c, parsed)
	}

	_, err := ParseClass("nope")
	require.Error(t, err)
}
