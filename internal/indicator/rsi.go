package indicator

import "signalbotv1/internal/model"

// RSI computes the Relative Strength Index over a trailing simple-mean
// window: the average of positive per-step changes and the average
// magnitude of negative changes across the last `period` deltas.
//
// The first delta exists at row 1, so the first full window ends at row
// `period`; rows 0..period-1 are not ready. A window with no losses
// saturates at 100 (the gain/loss ratio diverges, it is not an error).
func RSI(prices []float64, period int) []model.Value {
	n := len(prices)
	out := make([]model.Value, n)
	if period <= 0 || n < period+1 {
		return out
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var sumGain, sumLoss float64
	for i := 1; i < n; i++ {
		sumGain += gains[i]
		sumLoss += losses[i]
		if i > period {
			sumGain -= gains[i-period]
			sumLoss -= losses[i-period]
		}
		if i < period {
			continue
		}
		avgLoss := sumLoss / float64(period)
		if avgLoss == 0 {
			out[i] = model.Defined(100.0)
			continue
		}
		avgGain := sumGain / float64(period)
		rs := avgGain / avgLoss
		out[i] = model.Defined(100.0 - 100.0/(1.0+rs))
	}
	return out
}
