package indicator

import (
	"math"

	"signalbotv1/internal/model"
)

// trueRange returns the per-row true range:
// max(high−low, |high−prevClose|, |low−prevClose|).
// Row 0 has no previous close, so its true range is just high−low.
func trueRange(high, low, close []float64) []float64 {
	n := len(high)
	tr := make([]float64, n)
	for i := 0; i < n; i++ {
		r := high[i] - low[i]
		if i > 0 {
			r = math.Max(r, math.Abs(high[i]-close[i-1]))
			r = math.Max(r, math.Abs(low[i]-close[i-1]))
		}
		tr[i] = r
	}
	return tr
}

// ATR computes the Average True Range: the trailing simple mean of the
// true range over `period` rows, defined from row period-1.
func ATR(high, low, close []float64, period int) []model.Value {
	n := len(high)
	out := make([]model.Value, n)
	if period <= 0 || n < period {
		return out
	}

	tr := trueRange(high, low, close)
	var sum float64
	for i := 0; i < n; i++ {
		sum += tr[i]
		if i >= period {
			sum -= tr[i-period]
		}
		if i >= period-1 {
			out[i] = model.Defined(sum / float64(period))
		}
	}
	return out
}
