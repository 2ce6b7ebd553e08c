package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad input"), http.StatusBadRequest},
		{"not found", NotFound("no such request"), http.StatusNotFound},
		{"forbidden", Forbidden("not your call"), http.StatusForbidden},
		{"conflict", Conflict("already decided"), http.StatusConflict},
		{"unprocessable", Unprocessable("out of order"), http.StatusUnprocessableEntity},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped keeps its kind", fmt.Errorf("outer: %w", Conflict("inner")), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := Conflict("request was already decided")
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindValidation))
	assert.False(t, Is(errors.New("plain"), KindConflict))
}

func TestWrapUnwraps(t *testing.T) {
	inner := errors.New("constraint violated")
	err := Wrap(KindConflict, inner, "decision failed")

	assert.True(t, Is(err, KindConflict))
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "decision failed")
	assert.Contains(t, err.Error(), "constraint violated")
}
