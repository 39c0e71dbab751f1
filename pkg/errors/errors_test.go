package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewInternalError("failed to update patient", stderrors.New("connection reset"))
	assert.Equal(t, "INTERNAL: failed to update patient: connection reset", err.Error())

	err = NewValidationError("invalid date format. Use YYYY-MM-DD")
	assert.Equal(t, "VALIDATION: invalid date format. Use YYYY-MM-DD", err.Error())
}

func TestTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("reservation: %w", NewNotFoundError("patient not found"))

	assert.Equal(t, ErrorTypeNotFound, TypeOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Equal(t, ErrorTypeInternal, TypeOf(stderrors.New("boom")))
	assert.False(t, IsType(nil, ErrorTypeInternal))
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("deadlock detected")
	err := NewInternalError("failed to commit transaction", cause)

	assert.ErrorIs(t, err, cause)
}
