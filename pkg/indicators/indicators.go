// Package indicators computes technical indicator series over daily closes.
// Every function returns a series aligned 1:1 with its input; bars inside the
// warm-up window are NaN, never a fabricated number, and each bar's value
// uses only bars up to and including itself.
package indicators

import "math"

// SMA produces the simple moving average for the supplied prices.
func SMA(prices []float64, period int) []float64 {
	result := nanSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return result
	}
	sum := 0.0
	for i, px := range prices {
		sum += px
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			result[i] = sum / float64(period)
		}
	}
	return result
}

// EMA produces the exponential moving average for the supplied prices. The
// seed is the SMA of the first full window; NaN inputs carry the previous
// value forward.
func EMA(prices []float64, period int) []float64 {
	result := nanSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return result
	}
	multiplier := 2.0 / float64(period+1)

	start := -1
	var seed float64
	for i := period - 1; i < len(prices); i++ {
		windowValid := true
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(prices[j]) {
				windowValid = false
				break
			}
			sum += prices[j]
		}
		if windowValid {
			start = i
			seed = sum / float64(period)
			break
		}
	}
	if start == -1 {
		return result
	}
	result[start] = seed

	for i := start + 1; i < len(prices); i++ {
		if math.IsNaN(prices[i]) {
			result[i] = result[i-1]
			continue
		}
		prev := result[i-1]
		if math.IsNaN(prev) {
			prev = seed
		}
		result[i] = (prices[i]-prev)*multiplier + prev
	}
	return result
}

// MACD returns the MACD line, signal line, and histogram series using the
// standard 12/26/9 windows.
func MACD(prices []float64) (macd, signal, hist []float64) {
	if len(prices) == 0 {
		return []float64{}, []float64{}, []float64{}
	}
	ema12 := EMA(prices, 12)
	ema26 := EMA(prices, 26)

	macd = make([]float64, len(prices))
	for i := range prices {
		if math.IsNaN(ema12[i]) || math.IsNaN(ema26[i]) {
			macd[i] = math.NaN()
		} else {
			macd[i] = ema12[i] - ema26[i]
		}
	}

	signal = EMA(macd, 9)
	hist = make([]float64, len(prices))
	for i := range hist {
		if math.IsNaN(macd[i]) || math.IsNaN(signal[i]) {
			hist[i] = math.NaN()
		} else {
			hist[i] = macd[i] - signal[i]
		}
	}
	return macd, signal, hist
}

// RSI computes the Relative Strength Index with Wilder smoothing.
func RSI(prices []float64, period int) []float64 {
	rsi := nanSeries(len(prices))
	if period <= 0 || len(prices) <= period {
		return rsi
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gainSum += change
		} else {
			lossSum -= change
		}
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	rsi[period] = computeRSI(avgGain, avgLoss)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain := math.Max(change, 0)
		loss := math.Max(-change, 0)

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)

		rsi[i] = computeRSI(avgGain, avgLoss)
	}
	return rsi
}

// Volatility computes the rolling standard deviation of daily returns over
// the given window.
func Volatility(prices []float64, period int) []float64 {
	result := nanSeries(len(prices))
	if period <= 1 || len(prices) <= period {
		return result
	}
	returns := make([]float64, len(prices))
	returns[0] = math.NaN()
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			returns[i] = math.NaN()
			continue
		}
		returns[i] = prices[i]/prices[i-1] - 1
	}

	for i := period; i < len(prices); i++ {
		sum, valid := 0.0, true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(returns[j]) {
				valid = false
				break
			}
			sum += returns[j]
		}
		if !valid {
			continue
		}
		mean := sum / float64(period)
		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := returns[j] - mean
			variance += d * d
		}
		result[i] = math.Sqrt(variance / float64(period))
	}
	return result
}

// VolumeRatio divides each bar's volume by its SMA over the window, so a
// value above 1 flags unusually heavy trading.
func VolumeRatio(volumes []float64, period int) []float64 {
	result := nanSeries(len(volumes))
	avg := SMA(volumes, period)
	for i := range volumes {
		if math.IsNaN(avg[i]) || avg[i] == 0 {
			continue
		}
		result[i] = volumes[i] / avg[i]
	}
	return result
}

func computeRSI(avgGain, avgLoss float64) float64 {
	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50.0
	case avgLoss == 0:
		return 100.0
	case avgGain == 0:
		return 0.0
	default:
		rs := avgGain / avgLoss
		return 100.0 - (100.0 / (1.0 + rs))
	}
}

func nanSeries(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
