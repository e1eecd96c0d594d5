package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockRecord_ReserveAndRelease(t *testing.T) {
	rec, err := NewStockRecord("prod-1", 10, "main")
	require.NoError(t, err)

	require.NoError(t, rec.Reserve(4))
	assert.Equal(t, 4, rec.Reserved)
	assert.Equal(t, 6, rec.Available())

	rec.Release(3)
	assert.Equal(t, 1, rec.Reserved)
	assert.Equal(t, 9, rec.Available())
}

func TestStockRecord_ReserveInsufficientLeavesRecordUnchanged(t *testing.T) {
	rec, err := NewStockRecord("prod-1", 3, "")
	require.NoError(t, err)
	require.NoError(t, rec.Reserve(2))

	err = rec.Reserve(2)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "prod-1")
	assert.Equal(t, 2, rec.Reserved)
	assert.Equal(t, 3, rec.OnHand)
}

func TestStockRecord_ReserveRejectsNonPositiveQuantity(t *testing.T) {
	rec, _ := NewStockRecord("prod-1", 3, "")
	assert.ErrorIs(t, rec.Reserve(0), ErrInvalidQuantity)
	assert.ErrorIs(t, rec.Reserve(-1), ErrInvalidQuantity)
}

func TestStockRecord_ReleaseClampsAtZero(t *testing.T) {
	rec, _ := NewStockRecord("prod-1", 5, "")
	require.NoError(t, rec.Reserve(2))

	rec.Release(100)
	assert.Equal(t, 0, rec.Reserved)
	assert.Equal(t, 5, rec.Available())

	// Releasing again stays a no-op.
	rec.Release(1)
	assert.Equal(t, 0, rec.Reserved)
}

func TestStockRecord_SetOnHand(t *testing.T) {
	rec, _ := NewStockRecord("prod-1", 5, "")
	require.NoError(t, rec.Reserve(3))

	require.NoError(t, rec.SetOnHand(10))
	assert.Equal(t, 10, rec.OnHand)
	assert.Equal(t, 3, rec.Reserved)

	assert.ErrorIs(t, rec.SetOnHand(2), ErrBelowReserved)
	assert.ErrorIs(t, rec.SetOnHand(-1), ErrInvalidQuantity)
	assert.Equal(t, 10, rec.OnHand)
}

func TestStockRecord_InvariantUnderMixedSequence(t *testing.T) {
	rec, _ := NewStockRecord("prod-1", 8, "")

	ops := []func(){
		func() { _ = rec.Reserve(3) },
		func() { rec.Release(1) },
		func() { _ = rec.Reserve(6) },
		func() { rec.Release(10) },
		func() { _ = rec.Reserve(8) },
		func() { rec.Release(4) },
	}
	for _, op := range ops {
		op()
		assert.GreaterOrEqual(t, rec.Reserved, 0)
		assert.LessOrEqual(t, rec.Reserved, rec.OnHand)
	}
}
