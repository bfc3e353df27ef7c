package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 31, 0, 0, time.FixedZone("CST", 8*3600))

func flatBar(i int, px, factor float64) Bar {
	return Bar{
		Symbol: "510300",
		Time:   t0.Add(time.Duration(i) * time.Minute),
		Open:   px, High: px, Low: px, Close: px,
		Volume: 1000, Amount: px * 1000,
	}.WithAdjFactor(factor)
}

func TestAdjustForwardFactors(t *testing.T) {
	t.Parallel()

	bars := []Bar{
		flatBar(0, 20, 0.5),
		flatBar(1, 20, 0.5),
		flatBar(2, 10, 1.0),
	}

	adj, err := Adjust(bars)
	require.NoError(t, err)
	require.Len(t, adj, 3)

	for i, b := range adj {
		assert.Equal(t, 10.0, b.Open, "bar %d open", i)
		assert.Equal(t, 10.0, b.High, "bar %d high", i)
		assert.Equal(t, 10.0, b.Low, "bar %d low", i)
		assert.Equal(t, 10.0, b.Close, "bar %d close", i)
		assert.Equal(t, int64(1000), b.Volume)
		assert.Equal(t, bars[i].Amount, b.Amount, "amount untouched")
	}

	// input is not mutated
	assert.Equal(t, 20.0, bars[0].Close)
}

func TestAdjustRoundsToThreeDecimals(t *testing.T) {
	t.Parallel()

	bars := []Bar{
		flatBar(0, 3.3333, 0.9),
		flatBar(1, 3.0, 1.0),
	}
	adj, err := Adjust(bars)
	require.NoError(t, err)

	// 3.3333 * 0.9 = 2.99997 -> 3.000
	assert.Equal(t, 3.0, adj[0].Close)
	assert.Equal(t, 3.0, adj[1].Close)
}

func TestAdjustIdempotent(t *testing.T) {
	t.Parallel()

	bars := []Bar{
		flatBar(0, 4.123, 0.7),
		flatBar(1, 4.456, 0.8),
		flatBar(2, 4.789, 1.0),
	}
	once, err := Adjust(bars)
	require.NoError(t, err)
	twice, err := Adjust(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	// all-equal factors on already rounded prices leave prices alone
	equal := []Bar{flatBar(0, 1.234, 2), flatBar(1, 5.678, 2)}
	out, err := Adjust(equal)
	require.NoError(t, err)
	assert.Equal(t, 1.234, out[0].Close)
	assert.Equal(t, 5.678, out[1].Close)
}

func TestAdjustMissingFactorPassesThrough(t *testing.T) {
	t.Parallel()

	bars := []Bar{flatBar(0, 20, 0.5), flatBar(1, 10, 1)}
	bars[0].HasAdjFactor = false

	out, err := Adjust(bars)
	require.NoError(t, err)
	assert.Equal(t, bars, out)
}

func TestAdjustInvalidFactors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bars []Bar
	}{
		{"zero latest factor", []Bar{flatBar(0, 10, 1), flatBar(1, 10, 0)}},
		{"zero earlier factor", []Bar{flatBar(0, 10, 0), flatBar(1, 10, 1)}},
		{"negative factor", []Bar{flatBar(0, 10, -1), flatBar(1, 10, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Adjust(tt.bars)
			assert.ErrorIs(t, err, ErrInvalidAdjustment)
		})
	}
}

func TestAdjustFeed(t *testing.T) {
	t.Parallel()

	feed, err := AdjustFeed(NewSliceFeed([]Bar{flatBar(0, 20, 0.5), flatBar(1, 10, 1)}))
	require.NoError(t, err)

	bars, err := Collect(feed)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 10.0, bars[0].Close)
}
