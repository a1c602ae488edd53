package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NotFound("order not found")
	assert.Equal(t, "not_found: order not found", err.Error())

	cause := errors.New("connection refused")
	wrapped := GatewayFailure("failed to create gateway order", cause)
	assert.Equal(t, "gateway_integration_failure: failed to create gateway order: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindDuplicatePayment, KindOf(DuplicatePayment("already paid")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain error")))
	assert.Equal(t, Kind(""), KindOf(nil))

	// The kind survives fmt wrapping.
	wrapped := fmt.Errorf("handling webhook: %w", InvalidState("payment already refunded"))
	assert.Equal(t, KindInvalidState, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindInvalidState))
	assert.False(t, IsKind(wrapped, KindNotFound))
}
