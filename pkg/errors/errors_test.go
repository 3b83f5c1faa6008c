package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseError(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, CodeConnectionFailed, "dial failed", CategoryTransport, true)

	assert.Equal(t, CodeConnectionFailed, err.Code())
	assert.Equal(t, CategoryTransport, err.Category())
	assert.True(t, err.Retryable())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWithDetail(t *testing.T) {
	err := New(CodeInvalidConfig, "bad config", CategoryConfig, false)
	detailed := err.WithDetail("endpoint missing")

	assert.Contains(t, detailed.Error(), "endpoint missing")
	assert.NotContains(t, err.Error(), "endpoint missing")
	assert.Equal(t, err.Code(), detailed.Code())
}

func TestHTTPStatusRetryability(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{500, true},
		{502, true},
		{503, true},
		{429, true},
		{408, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := HTTPStatus(tt.status, fmt.Sprintf("%d whatever", tt.status))
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestConstructorCategories(t *testing.T) {
	assert.Equal(t, CategoryTransport, CategoryOf(ConnectionFailed("http", "https://x", fmt.Errorf("boom"))))
	assert.Equal(t, CategoryDecode, CategoryOf(Decode("application/json", fmt.Errorf("bad json"))))
	assert.Equal(t, CategoryTimeout, CategoryOf(Timeout("https://x", time.Second)))
	assert.Equal(t, CategoryCancelled, CategoryOf(Cancelled("request")))
	assert.Equal(t, CategoryConfig, CategoryOf(Config("nope")))
}

func TestNonRetryableCategories(t *testing.T) {
	assert.False(t, IsRetryable(Config("nope")))
	assert.False(t, IsRetryable(Cancelled("request")))
	assert.False(t, IsRetryable(InvalidDocument(fmt.Errorf("parse failed"))))
	assert.True(t, IsRetryable(Timeout("https://x", time.Second)))
}

func TestUnknownErrorDefaults(t *testing.T) {
	plain := errors.New("something from the network stack")

	assert.Equal(t, CategoryTransport, CategoryOf(plain))
	assert.True(t, IsRetryable(plain))
	assert.False(t, IsRetryable(nil))
}

func TestErrorChainTraversal(t *testing.T) {
	inner := New(CodeInvalidJSON, "bad payload", CategoryDecode, false)
	outer := fmt.Errorf("executing: %w", inner)

	var le LoaderError
	require.True(t, errors.As(outer, &le))
	assert.Equal(t, CodeInvalidJSON, le.Code())
	assert.False(t, IsRetryable(outer))
}
