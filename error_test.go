package pagetext_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/pagetext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := pagetext.Errorf(pagetext.ENOTFOUND, "page %q not found", "https://example.com")

	assert.Equal(t, pagetext.ENOTFOUND, pagetext.ErrorCode(err))
	assert.Equal(t, "page \"https://example.com\" not found", pagetext.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, pagetext.ErrorCode(nil))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, pagetext.ErrorMessage(nil))
}

func TestErrorCode_ForeignError(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")

	assert.Equal(t, pagetext.EUNKNOWN, pagetext.ErrorCode(err))
	assert.Equal(t, "Internal error", pagetext.ErrorMessage(err))
}

func TestErrorCode_WrappedError(t *testing.T) {
	t.Parallel()

	inner := &pagetext.Error{Code: pagetext.EHTTP, Message: "blocked", Status: 403}
	err := fmt.Errorf("fetching: %w", inner)

	assert.Equal(t, pagetext.EHTTP, pagetext.ErrorCode(err))
	assert.Equal(t, 403, pagetext.ErrorStatus(err))
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := pagetext.WrapError(pagetext.EUNREACHABLE, cause, "fetching %s", "https://example.com")

	assert.Equal(t, pagetext.EUNREACHABLE, pagetext.ErrorCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAsError(t *testing.T) {
	t.Parallel()

	t.Run("returns nil for nil", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, pagetext.AsError(nil))
	})

	t.Run("keeps application errors", func(t *testing.T) {
		t.Parallel()

		original := pagetext.Errorf(pagetext.ETIMEOUT, "timed out")
		err := pagetext.AsError(fmt.Errorf("wrapped: %w", original))

		assert.Same(t, original, err)
	})

	t.Run("wraps foreign errors as unknown", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("boom")
		err := pagetext.AsError(cause)

		require.NotNil(t, err)
		assert.Equal(t, pagetext.EUNKNOWN, err.Code)
		assert.ErrorIs(t, err, cause)
	})
}
