package errs_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/errs"
)

func TestOrderRejectedErrorUnwrapsToReason(t *testing.T) {
	reason := errors.New("margin rejected")
	err := &errs.OrderRejectedError{Symbol: "XAUUSD", Reason: reason}

	assert.ErrorIs(t, err, reason)
	assert.Contains(t, err.Error(), "XAUUSD")
}

func TestBrokerTimeoutErrorMessage(t *testing.T) {
	err := &errs.BrokerTimeoutError{Op: "Close", Timeout: 5 * time.Second}
	assert.Contains(t, err.Error(), "Close")
	assert.Contains(t, err.Error(), "5s")
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(errs.ErrStaleQuote, errs.ErrInsufficientWindow))
	assert.True(t, errors.Is(errs.ErrStaleQuote, errs.ErrStaleQuote))
}
