package indicator

import (
	"math"

	"signalbotv1/internal/model"
)

// ADX computes the Average Directional Index and the +DI/−DI directional
// indicators.
//
// Directional moves per row (row 0 has no previous bar, so both are 0):
//
//	upMove   = high − prevHigh
//	downMove = prevLow − low
//	+DM = upMove   if upMove > downMove and upMove > 0, else 0
//	−DM = downMove if downMove > upMove and downMove > 0, else 0
//
// TR, +DM and −DM are smoothed with a trailing sum over `period`, giving
// +DI = 100·Σ+DM/ΣTR and −DI = 100·Σ−DM/ΣTR from row period-1 (not ready
// when ΣTR is 0). DX = 100·|+DI−−DI|/(+DI+−DI) is not ready when the DI
// sum is 0, and ADX is the trailing mean of DX over `period` — ready only
// when every DX in its window is ready.
func ADX(high, low, close []float64, period int) (adx, plusDI, minusDI []model.Value) {
	n := len(high)
	adx = make([]model.Value, n)
	plusDI = make([]model.Value, n)
	minusDI = make([]model.Value, n)
	if period <= 0 || n < period {
		return adx, plusDI, minusDI
	}

	tr := trueRange(high, low, close)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	dx := make([]model.Value, n)
	var sumTR, sumPlus, sumMinus float64
	for i := 0; i < n; i++ {
		sumTR += tr[i]
		sumPlus += plusDM[i]
		sumMinus += minusDM[i]
		if i >= period {
			sumTR -= tr[i-period]
			sumPlus -= plusDM[i-period]
			sumMinus -= minusDM[i-period]
		}
		if i < period-1 || sumTR == 0 {
			continue
		}

		pdi := 100 * sumPlus / sumTR
		mdi := 100 * sumMinus / sumTR
		plusDI[i] = model.Defined(pdi)
		minusDI[i] = model.Defined(mdi)

		if pdi+mdi != 0 {
			dx[i] = model.Defined(100 * math.Abs(pdi-mdi) / (pdi + mdi))
		}
	}

	// ADX: trailing mean of DX; a window containing a not-ready DX stays
	// not ready rather than averaging over a partial window.
	for i := period - 1; i < n; i++ {
		var sum float64
		ok := true
		for j := i - period + 1; j <= i; j++ {
			if !dx[j].Ready {
				ok = false
				break
			}
			sum += dx[j].V
		}
		if ok {
			adx[i] = model.Defined(sum / float64(period))
		}
	}
	return adx, plusDI, minusDI
}
