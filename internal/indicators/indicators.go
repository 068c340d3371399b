package indicators

import (
	"math"
)

// NeutralRSI is returned when there are not enough closes to compute RSI.
const NeutralRSI = 50.0

// RSI calculates the Relative Strength Index over the trailing period deltas.
// period: typically 14
// prices: closing prices, oldest first; needs more than period entries
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) <= period {
		return NeutralRSI
	}

	gains := 0.0
	losses := 0.0

	start := len(prices) - period
	for i := start; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return NeutralRSI
		}
		return 100
	}

	rs := avgGain / avgLoss
	return round3(100 - (100 / (1 + rs)))
}

// EMA calculates the Exponential Moving Average seeded with the SMA of the
// first period prices. With fewer than period prices the last price is
// returned, which keeps young listings comparable to mature ones.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return prices[len(prices)-1]
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)

	multiplier := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
	}

	return ema
}

// SlowPeriod picks the slow EMA period for a series of n closes: the
// preferred period when enough data exists, otherwise max(10, n-1).
func SlowPeriod(n, preferred int) int {
	if n >= preferred {
		return preferred
	}
	p := n - 1
	if p < 10 {
		p = 10
	}
	return p
}

// VolumeRatio compares the latest volume with the mean of the trailing window
// (latest included). Returns 1.0 when the window is not full or empty.
func VolumeRatio(volumes []float64, window int) float64 {
	if window <= 0 || len(volumes) < window {
		return 1.0
	}

	sum := 0.0
	for _, v := range volumes[len(volumes)-window:] {
		sum += v
	}
	mean := sum / float64(window)
	if mean == 0 {
		return 1.0
	}
	return volumes[len(volumes)-1] / mean
}

// round3 rounds a float64 to 3 decimal places
func round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}
