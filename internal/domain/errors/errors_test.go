package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorCategories(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		code  string
	}{
		{"not found", NotFoundError("intent"), IsNotFound, "intent_NOT_FOUND"},
		{"duplicate hash", DuplicateHashError("0xabc"), IsDuplicateHash, "DUPLICATE_HASH"},
		{"oracle uncertain", OracleUncertainError(errors.New("rpc timeout")), IsOracleUncertain, "ORACLE_UNCERTAIN"},
		{"expired", ExpiredError("some-id"), IsExpired, "INTENT_EXPIRED"},
		{"invalid plan", InvalidPlanError("whale"), IsInvalidPlan, "INVALID_PLAN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.code, GetErrorCode(tt.err))
		})
	}
}

func TestCategoriesSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("probing chain: %w", DuplicateHashError("0xabc"))
	assert.True(t, IsDuplicateHash(err))

	err = Wrap(OracleUncertainError(nil), "verify intent")
	assert.True(t, IsOracleUncertain(err))
}

func TestOracleUncertainIsRetryable(t *testing.T) {
	var domainErr *DomainError
	require.ErrorAs(t, OracleUncertainError(errors.New("x")), &domainErr)
	assert.True(t, domainErr.Retryable)

	require.ErrorAs(t, DuplicateHashError("0xabc"), &domainErr)
	assert.False(t, domainErr.Retryable)
}

func TestValidationErrorCarriesField(t *testing.T) {
	err := ValidationError("amount", "amount must be positive")
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "amount", domainErr.Details["field"])
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "anything"))
}

func TestGetErrorCodeUnknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN_ERROR", GetErrorCode(errors.New("plain")))
}
