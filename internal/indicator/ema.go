package indicator

import "signalbotv1/internal/model"

// ema computes the exponential moving average with smoothing factor
// α = 2/(span+1), seeded by the first price (no bias adjustment).
// The result is defined for every row, including row 0.
func ema(prices []float64, span int) []float64 {
	out := make([]float64, len(prices))
	if len(prices) == 0 || span <= 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	cur := prices[0]
	out[0] = cur
	for i := 1; i < len(prices); i++ {
		cur = prices[i]*alpha + cur*(1-alpha)
		out[i] = cur
	}
	return out
}

// EMA returns the exponential moving average as ready values.
func EMA(prices []float64, span int) []model.Value {
	raw := ema(prices, span)
	out := make([]model.Value, len(raw))
	if span <= 0 {
		return out
	}
	for i, v := range raw {
		out[i] = model.Defined(v)
	}
	return out
}
