package market

import "time"

// Daily folds intraday bars into one bar per calendar day of each bar's own
// location. Input must be time ordered; the daily Time is local midnight.
func Daily(bars []Bar) []Bar {
	var out []Bar
	var cur *Bar
	for _, b := range bars {
		y, m, d := b.Time.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, b.Time.Location())
		if cur == nil || !cur.Time.Equal(day) {
			out = append(out, Bar{
				Symbol: b.Symbol,
				Time:   day,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
			})
			cur = &out[len(out)-1]
		}
		cur.High = max(cur.High, b.High)
		cur.Low = min(cur.Low, b.Low)
		cur.Close = b.Close
		cur.Volume += b.Volume
		cur.Amount += b.Amount
	}
	return out
}
