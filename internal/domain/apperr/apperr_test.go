package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, ""},
		{Validation("quantity %d", 0), KindValidation},
		{NotFound("order %s", "x"), KindNotFound},
		{Forbidden("nope"), KindForbidden},
		{fmt.Errorf("auth: %w", ErrUnauthorized), KindUnauthorized},
		{fmt.Errorf("outer: %w", fmt.Errorf("product: %w", ErrInsufficientStock)), KindInsufficientStock},
		{ErrInternal, KindInternal},
		{errors.New("boom"), KindInternal},
		{context.Canceled, KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
}

func TestHelpersKeepMessage(t *testing.T) {
	err := Validation("unknown sort field %q", "color")
	assert.Equal(t, `validation error: unknown sort field "color"`, err.Error())
}
