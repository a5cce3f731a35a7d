package backtest

import "math"

const tradingDaysPerYear = 252

// totalReturnPct is the percent gain of final over initial capital.
func totalReturnPct(initial, final float64) float64 {
	if initial <= 0 {
		return 0
	}
	return (final/initial - 1) * 100
}

// winRatePct is the share of closed trades with a positive PnL, in
// percent. Buys are not closed trades and do not count.
func winRatePct(trades []Trade) float64 {
	var closed, wins int
	for _, t := range trades {
		if t.Type == TradeBuy {
			continue
		}
		closed++
		if t.PnLPct > 0 {
			wins++
		}
	}
	if closed == 0 {
		return 0
	}
	return float64(wins) / float64(closed) * 100
}

// sharpeRatio annualizes mean/stdev of daily equity returns by sqrt(252).
// Zero when fewer than two return observations exist or the stdev is zero.
func sharpeRatio(equity []float64) float64 {
	if len(equity) < 3 {
		return 0
	}
	rets := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		rets = append(rets, equity[i]/equity[i-1]-1)
	}
	if len(rets) < 2 {
		return 0
	}
	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	var variance float64
	for _, r := range rets {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(rets))
	sd := math.Sqrt(variance)
	if sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdownPct is the deepest peak-to-trough decline of the equity
// curve, as a negative percentage. Zero for a curve that never declines.
func maxDrawdownPct(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	var mdd float64
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - v) / peak
		if dd > mdd {
			mdd = dd
		}
	}
	return -mdd * 100
}

// profitFactor is gross profit over gross loss across closed trades.
// Zero when there are no losing trades to divide by.
func profitFactor(trades []Trade) float64 {
	var profit, loss float64
	for _, t := range trades {
		if t.Type == TradeBuy {
			continue
		}
		// Recover the dollar PnL from the exit fill and its entry-relative
		// percent move: shares*(exit-entry) with entry = exit/(1+pct/100).
		pnl := t.Shares * t.Price * t.PnLPct / (100 + t.PnLPct)
		if pnl > 0 {
			profit += pnl
		} else {
			loss -= pnl
		}
	}
	if loss == 0 {
		return 0
	}
	return profit / loss
}
