package indicator

import (
	"math"

	"signalbotv1/internal/model"
)

// Bollinger computes Bollinger Bands: middle = SMA(period), upper/lower =
// middle ± k × trailing sample standard deviation over the same window.
// Bands are defined once a full window is available, from row period-1.
// period must be at least 2 for the sample deviation to exist.
func Bollinger(prices []float64, period int, k float64) (middle, upper, lower []model.Value) {
	n := len(prices)
	middle = make([]model.Value, n)
	upper = make([]model.Value, n)
	lower = make([]model.Value, n)
	if period < 2 || n < period {
		return middle, upper, lower
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += prices[i]
		if i >= period {
			sum -= prices[i-period]
		}
		if i < period-1 {
			continue
		}
		mean := sum / float64(period)

		var sq float64
		for j := i - period + 1; j <= i; j++ {
			d := prices[j] - mean
			sq += d * d
		}
		band := k * math.Sqrt(sq/float64(period-1))

		middle[i] = model.Defined(mean)
		upper[i] = model.Defined(mean + band)
		lower[i] = model.Defined(mean - band)
	}
	return middle, upper, lower
}
