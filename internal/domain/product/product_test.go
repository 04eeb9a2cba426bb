package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
)

func TestNewValidates(t *testing.T) {
	_, err := New("", "x", "", 100, 1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = New("p1", "x", "", 0, 1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = New("p1", "x", "", 100, -1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	p, err := New("p1", "Keyboard", "", 100, 0)
	require.NoError(t, err)
	assert.True(t, p.Orderable())
}

func TestDeductAndRestock(t *testing.T) {
	p, err := New("p1", "Keyboard", "", 100, 3)
	require.NoError(t, err)

	require.NoError(t, p.Deduct(3))
	assert.Equal(t, 0, p.Stock)

	err = p.Deduct(1)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
	assert.Equal(t, 0, p.Stock)

	assert.ErrorIs(t, p.Deduct(0), ErrInvalidQuantity)
	assert.ErrorIs(t, p.Restock(-1), ErrInvalidQuantity)

	require.NoError(t, p.Restock(2))
	assert.Equal(t, 2, p.Stock)
}
