package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cortex/pkg/domain-errors"
)

type sampleRequest struct {
	TaskType string `validate:"required,notblank"`
	Provider string `validate:"omitempty,oneof=anthropic openai deepseek"`
}

func TestValidateOK(t *testing.T) {
	require.NoError(t, Validate(&sampleRequest{TaskType: "agency.scope"}))
	require.NoError(t, Validate(&sampleRequest{TaskType: "agency.scope", Provider: "openai"}))
}

func TestValidateRequired(t *testing.T) {
	err := Validate(&sampleRequest{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Contains(t, err.Error(), "task_type is required")
}

func TestValidateNotBlank(t *testing.T) {
	err := Validate(&sampleRequest{TaskType: "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task_type must not be blank")
}

func TestValidateOneOf(t *testing.T) {
	err := Validate(&sampleRequest{TaskType: "agency.scope", Provider: "grok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider must be one of")
}
