package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesCodeAndMessage(t *testing.T) {
	err := New(CodeModuleNotEnabled, "module is not enabled")

	assert.Equal(t, "module is not enabled", err.Error())
	assert.True(t, HasCode(err, CodeModuleNotEnabled))
	assert.False(t, HasCode(err, CodeNotFound))
}

func TestWrapPreservesOriginalCode(t *testing.T) {
	inner := New(CodeRateLimited, "rate limit exceeded")
	wrapped := Wrap(inner, CodeInternal, "execution failed")

	// The innermost domain code wins; wrapping never reclassifies.
	assert.True(t, HasCode(wrapped, CodeRateLimited))
	assert.False(t, HasCode(wrapped, CodeInternal))
	assert.Equal(t, "execution failed", wrapped.Error())
}

func TestWrapNonDomainError(t *testing.T) {
	inner := errors.New("connection refused")
	wrapped := Wrap(inner, CodeUsageRecordFailed, "failed to record usage event")

	assert.True(t, HasCode(wrapped, CodeUsageRecordFailed))
	assert.ErrorIs(t, wrapped, inner)
}

func TestWrapThroughFmtErrorf(t *testing.T) {
	inner := New(CodeModuleNotFound, "module is not installed")
	wrapped := fmt.Errorf("uninstall: %w", inner)

	assert.True(t, HasCode(wrapped, CodeModuleNotFound))
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	a := New(CodeConflict, "first")
	b := New(CodeConflict, "second")

	assert.ErrorIs(t, a, b)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodePromptTooLong, CodeOf(New(CodePromptTooLong, "too long")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestMessageFallsBackToCode(t *testing.T) {
	err := New(CodeTimeout, "")
	require.Equal(t, string(CodeTimeout), err.Error())
}
