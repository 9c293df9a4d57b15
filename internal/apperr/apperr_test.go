package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/p-n-ai/pai-study/internal/apperr"
)

func TestError_IsKind(t *testing.T) {
	err := apperr.Validation("plan.Create", "items[0].dayOfWeek", apperr.ConstraintDayOfWeekRange, "must be between 0 and 6")
	wrapped := fmt.Errorf("creating plan: %w", err)

	assert.ErrorIs(t, wrapped, apperr.ErrValidation)
	assert.NotErrorIs(t, wrapped, apperr.ErrNotFound)
	assert.Equal(t, "items[0].dayOfWeek", apperr.FieldOf(wrapped))
	assert.Contains(t, err.Error(), "must be between 0 and 6")
}

func TestUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("all AI providers failed")
	err := apperr.Unavailable("planner.Generate", cause)

	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"constraint", apperr.Validation("op", "f", apperr.ConstraintUnknownTopic, "x"), "unknown_topic"},
		{"bare validation", &apperr.Error{Op: "op", Kind: apperr.ErrValidation}, "validation_failed"},
		{"not found", apperr.NotFound("op", "plan not found"), "not_found"},
		{"wrapped not found", fmt.Errorf("x: %w", apperr.ErrNotFound), "not_found"},
		{"unauthorized", apperr.ErrUnauthorized, "unauthorized"},
		{"unavailable", apperr.Unavailable("op", errors.New("boom")), "generation_failed"},
		{"other", errors.New("boom"), "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.Code(tt.err))
		})
	}
}
