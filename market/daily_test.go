package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaily(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	d1 := time.Date(2024, 3, 1, 9, 30, 0, 0, loc)
	d2 := time.Date(2024, 3, 4, 9, 30, 0, 0, loc)
	bars := []Bar{
		{Symbol: "X", Time: d1, Open: 10, High: 10.2, Low: 9.9, Close: 10.1, Volume: 100, Amount: 1000},
		{Symbol: "X", Time: d1.Add(time.Minute), Open: 10.1, High: 10.5, Low: 10, Close: 10.4, Volume: 50, Amount: 500},
		{Symbol: "X", Time: d1.Add(5 * time.Hour), Open: 10.4, High: 10.4, Low: 9.5, Close: 9.8, Volume: 10, Amount: 100},
		{Symbol: "X", Time: d2, Open: 9.7, High: 9.9, Low: 9.6, Close: 9.9, Volume: 1},
	}

	days := Daily(bars)
	require.Len(t, days, 2)

	assert.True(t, days[0].Time.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, loc)))
	assert.Equal(t, 10.0, days[0].Open)
	assert.Equal(t, 10.5, days[0].High)
	assert.Equal(t, 9.5, days[0].Low)
	assert.Equal(t, 9.8, days[0].Close)
	assert.Equal(t, int64(160), days[0].Volume)
	assert.Equal(t, 1600.0, days[0].Amount)
	assert.NoError(t, days[0].Validate())

	assert.Equal(t, 9.7, days[1].Open)
	assert.Equal(t, 9.9, days[1].Close)

	assert.Empty(t, Daily(nil))
}
