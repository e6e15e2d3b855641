package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prior-it/geodata/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult(t *testing.T) {
	t.Run("ok: success has no messages", func(t *testing.T) {
		result := core.Success()
		assert.True(t, result.Valid)
		assert.NoError(t, result.Err())
	})

	t.Run("ok: warnings keep the result valid", func(t *testing.T) {
		result := core.Success()
		result.AddWarning("odd value")
		assert.True(t, result.Valid)
		assert.NoError(t, result.Err())
		assert.Equal(t, []string{"odd value"}, result.Warnings)
	})

	t.Run("err: field errors invalidate", func(t *testing.T) {
		result := core.Success()
		result.AddFieldError("postcode", "is required")
		assert.False(t, result.Valid)
		assert.ErrorIs(t, result.Err(), core.ErrValidation)
	})

	t.Run("ok: combine appends field lists", func(t *testing.T) {
		a := core.Success()
		a.AddFieldError("x", "first")
		b := core.Failure("global")
		b.AddFieldError("x", "second")
		b.AddFieldError("y", "other")

		combined := a.Combine(b)
		assert.False(t, combined.Valid)
		assert.Equal(t, []string{"global"}, combined.Errors)
		assert.Equal(t, []string{"first", "second"}, combined.FieldErrors["x"])
		assert.Equal(t, []string{"other"}, combined.FieldErrors["y"])
		assert.Equal(t, []string{"first"}, a.FieldErrors["x"], "Combine should not modify its receiver")
	})

	t.Run("ok: combine is associative", func(t *testing.T) {
		a := core.Failure("a")
		a.AddFieldError("f", "a")
		b := core.Success()
		b.AddWarning("b")
		b.AddFieldError("f", "b")
		c := core.Failure("c")
		c.AddFieldError("g", "c")

		assert.Equal(t, a.Combine(b).Combine(c), a.Combine(b.Combine(c)))
		assert.Equal(t, a.Combine(b).Combine(c), core.CombineResults(a, b, c))
	})

	t.Run("ok: combining successes succeeds", func(t *testing.T) {
		assert.True(t, core.CombineResults(core.Success(), core.Success()).Valid)
		assert.True(t, core.CombineResults().Valid)
	})
}

func TestValidationError(t *testing.T) {
	t.Run("ok: message lists every error", func(t *testing.T) {
		result := core.Failure("duplicate", "missing")
		result.AddFieldError("y", "too low")
		result.AddFieldError("x", "too high", "not even")
		assert.EqualError(
			t,
			result.Err(),
			"validation failed: duplicate, missing; field errors: x: too high, x: not even, y: too low",
		)
	})

	t.Run("ok: unwraps through wrapping", func(t *testing.T) {
		err := fmt.Errorf("cannot create: %w", core.NewValidationError("nope"))
		assert.ErrorIs(t, err, core.ErrValidation)
		var validationErr *core.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, []string{"nope"}, validationErr.Errors)
	})
}
