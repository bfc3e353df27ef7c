package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotBookStack(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	b := NewLotBook(2)

	require.NoError(t, b.Push(NewLot(10.00, 100, t0, cfg)))
	require.NoError(t, b.Push(NewLot(9.90, 100, t0, cfg)))
	assert.True(t, b.Full())

	err := b.Push(NewLot(9.80, 100, t0, cfg))
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, 2, b.Len())

	newest, ok := b.PeekRecent(0)
	require.True(t, ok)
	assert.Equal(t, 9.90, newest.CostPrice)

	oldest, ok := b.PeekRecent(1)
	require.True(t, ok)
	assert.Equal(t, 10.00, oldest.CostPrice)

	_, ok = b.PeekRecent(2)
	assert.False(t, ok)

	assert.InDelta(t, 1990.0, b.CostBasis(), 1e-9)
	assert.Equal(t, int64(200), b.Volume())
	assert.InDelta(t, 2000.0, b.MarkToMarket(10), 1e-9)

	popped, ok := b.PopBack()
	require.True(t, ok)
	assert.Equal(t, 9.90, popped.CostPrice)
	assert.False(t, b.Full())
}

func TestLotBookPopAtShifts(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	b := NewLotBook(0)
	for _, p := range []float64{10, 9.9, 9.8, 9.7} {
		require.NoError(t, b.Push(NewLot(p, 100, t0, cfg)))
	}
	assert.False(t, b.Full())

	lot, err := b.PopAt(1)
	require.NoError(t, err)
	assert.Equal(t, 9.9, lot.CostPrice)

	var costs []float64
	for _, l := range b.Lots() {
		costs = append(costs, l.CostPrice)
	}
	assert.Equal(t, []float64{10, 9.8, 9.7}, costs)

	_, err = b.PopAt(3)
	assert.Error(t, err)

	var idx []int
	for i := range b.Reverse(2) {
		idx = append(idx, i)
	}
	assert.Equal(t, []int{2, 1}, idx)
}

func TestLotsIsACopy(t *testing.T) {
	t.Parallel()

	b := NewLotBook(0)
	require.NoError(t, b.Push(NewLot(10, 100, t0, DefaultConfig())))

	lots := b.Lots()
	lots[0].CostPrice = 1
	l, _ := b.At(0)
	assert.Equal(t, 10.0, l.CostPrice)
}

func TestNewLotTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		decimals int
		cost     float64
		want     float64
	}{
		{"exact", 0, 9.90, 10.098},
		{"exact below a tick", 0, 9.551, 9.74202},
		{"two decimals round up", 2, 9.90, 10.10},
		{"three decimals round up", 3, 9.551, 9.743},
		{"on tick unchanged", 3, 9.55, 9.741},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.PriceDecimals = tt.decimals
			target := NewLot(tt.cost, 100, t0, cfg).TargetSellPrice
			assert.Equal(t, tt.want, target)
			assert.GreaterOrEqual(t, target, tt.cost*(1+cfg.SellGap)-1e-12)
		})
	}
}
