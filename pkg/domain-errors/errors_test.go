package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr struct{}

func (statusErr) Error() string   { return "status" }
func (statusErr) ErrorCode() Code { return CodeHTTPStatus }

func TestHasCode(t *testing.T) {
	base := errors.New("boom")

	t.Run("direct code", func(t *testing.T) {
		err := New(CodeValidation, "price mismatch")
		assert.True(t, HasCode(err, CodeValidation))
		assert.False(t, HasCode(err, CodePayloadShape))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("cart step: %w", Wrap(base, CodePayloadShape, "data missing"))
		assert.True(t, HasCode(err, CodePayloadShape))
		assert.ErrorIs(t, err, base)
	})

	t.Run("inner code visible under outer code", func(t *testing.T) {
		err := Wrap(statusErr{}, CodeAuthFailed, "otp verify")
		assert.True(t, HasCode(err, CodeAuthFailed))
		assert.True(t, HasCode(err, CodeHTTPStatus))
		assert.Equal(t, CodeAuthFailed, CodeOf(err))
	})

	t.Run("joined errors", func(t *testing.T) {
		err := errors.Join(base, New(CodeNoAvailableSlot, "none"))
		assert.True(t, HasCode(err, CodeNoAvailableSlot))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.False(t, HasCode(base, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(base))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "nothing"))
}
