package indicator

import "signalbotv1/internal/model"

// MACD computes the Moving Average Convergence Divergence:
// line = EMA(fast) − EMA(slow), signal = EMA(line, signalSpan),
// hist = line − signal. All three are defined from row 0 because the
// underlying EMAs are seeded with the first available value.
func MACD(prices []float64, fast, slow, signalSpan int) (line, signal, hist []model.Value) {
	n := len(prices)
	line = make([]model.Value, n)
	signal = make([]model.Value, n)
	hist = make([]model.Value, n)
	if n == 0 || fast <= 0 || slow <= 0 || signalSpan <= 0 {
		return line, signal, hist
	}

	fastEMA := ema(prices, fast)
	slowEMA := ema(prices, slow)
	raw := make([]float64, n)
	for i := 0; i < n; i++ {
		raw[i] = fastEMA[i] - slowEMA[i]
	}
	sigEMA := ema(raw, signalSpan)

	for i := 0; i < n; i++ {
		line[i] = model.Defined(raw[i])
		signal[i] = model.Defined(sigEMA[i])
		hist[i] = model.Defined(raw[i] - sigEMA[i])
	}
	return line, signal, hist
}
