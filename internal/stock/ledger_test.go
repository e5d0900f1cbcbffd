package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNet(t *testing.T) {
	assert.Equal(t, 0, Net(nil))

	ms := []Movement{
		{ProductID: "p1", Direction: DirectionIn, Quantity: 10, Reason: ReasonNew},
		{ProductID: "p1", Direction: DirectionOut, Quantity: 3, Reason: ReasonSale},
	}
	assert.Equal(t, 7, Net(ms))

	ms = append(ms, Movement{ProductID: "p1", Direction: DirectionIn, Quantity: 3, Reason: ReasonReturn})
	assert.Equal(t, 10, Net(ms))
}

func TestNet_CanGoNegative(t *testing.T) {
	// the ledger records facts; it does not enforce non-negativity
	ms := []Movement{
		{Direction: DirectionOut, Quantity: 5, Reason: ReasonSale},
	}
	assert.Equal(t, -5, Net(ms))
}

func TestMovementValidate(t *testing.T) {
	ok := Movement{ProductID: "p1", Direction: DirectionIn, Quantity: 4, Reason: ReasonNew}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.Quantity = -1
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Direction = "SIDEWAYS"
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Reason = "SHRINKAGE"
	assert.Error(t, bad.Validate())
}
