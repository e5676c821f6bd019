package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicates(t *testing.T) {
	assert.True(t, IsInvalidInput(NewInvalidInputError("amount", "amount is required")))
	assert.True(t, IsOracleUnavailable(NewOracleUnavailableError("fee", fmt.Errorf("timeout"))))
	assert.True(t, IsConfigurationError(NewConfigurationError("SwapGasUnits", "must be positive")))

	assert.False(t, IsInvalidInput(fmt.Errorf("plain error")))
	assert.False(t, IsInvalidInput(nil))
	assert.False(t, IsOracleUnavailable(NewInvalidInputError("x", "y")))
}

func TestWrappedErrorsAreDetected(t *testing.T) {
	inner := NewOracleUnavailableError("price", fmt.Errorf("api down"))
	wrapped := fmt.Errorf("snapshot failed: %w", inner)

	assert.True(t, IsOracleUnavailable(wrapped))
}

func TestErrorString(t *testing.T) {
	err := NewInvalidInputError("direction", "direction must be TOKEN_TO_FIAT or FIAT_TO_TOKEN")
	assert.Contains(t, err.Error(), "INVALID_INPUT")
	assert.Contains(t, err.Error(), "field: direction")

	oracleErr := NewOracleUnavailableError("fee", fmt.Errorf("timeout"))
	assert.Contains(t, oracleErr.Error(), "ORACLE_UNAVAILABLE")
	assert.ErrorContains(t, oracleErr.Unwrap(), "timeout")
}
