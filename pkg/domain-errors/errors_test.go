package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeAlreadyMarked, "attendance already marked")
		assert.True(t, HasCode(err, CodeAlreadyMarked))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches wrapped inner code", func(t *testing.T) {
		inner := New(CodeSessionClosed, "session is closed")
		err := Wrap(inner, CodeInternal, "mark failed")
		assert.True(t, HasCode(err, CodeSessionClosed))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodeInvalidToken, "invalid token"))
		assert.True(t, HasCode(err, CodeInvalidToken))
		assert.Equal(t, "invalid token", MessageOf(err))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeVerificationTimeout, "matcher timed out")))
	assert.True(t, IsRetryable(New(CodeUnavailable, "matcher unavailable")))
	assert.False(t, IsRetryable(New(CodeAlreadyMarked, "already marked")))
	assert.False(t, IsRetryable(New(CodeBiometricMismatch, "no match")))
}
