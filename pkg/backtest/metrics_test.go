package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalReturnPct(t *testing.T) {
	assert.InDelta(t, 10.0, totalReturnPct(10000, 11000), 1e-9)
	assert.InDelta(t, -25.0, totalReturnPct(10000, 7500), 1e-9)
	assert.Equal(t, 0.0, totalReturnPct(0, 7500))
}

func TestWinRatePct(t *testing.T) {
	trades := []Trade{
		{Type: TradeBuy},
		{Type: TradeSell, PnLPct: 5},
		{Type: TradePartialSell, PnLPct: 10},
		{Type: TradeSell, PnLPct: -3},
		{Type: TradeBuy},
	}
	// Two of three closed trades are winners; buys do not count.
	assert.InDelta(t, 200.0/3.0, winRatePct(trades), 1e-9)
	assert.Equal(t, 0.0, winRatePct(nil))
	assert.Equal(t, 0.0, winRatePct([]Trade{{Type: TradeBuy}}))
}

func TestSharpeRatio(t *testing.T) {
	assert.Equal(t, 0.0, sharpeRatio(nil))
	assert.Equal(t, 0.0, sharpeRatio([]float64{100, 101}))
	// Constant equity has zero stdev.
	assert.Equal(t, 0.0, sharpeRatio([]float64{100, 100, 100, 100}))

	up := sharpeRatio([]float64{100, 101, 103, 104, 107, 108})
	assert.Greater(t, up, 0.0)
	down := sharpeRatio([]float64{108, 107, 104, 103, 101, 100})
	assert.Less(t, down, 0.0)

	// Annualization scales by sqrt(252).
	mixed := []float64{100, 102, 101, 104, 102, 105}
	raw := sharpeRatio(mixed) / math.Sqrt(252)
	assert.InDelta(t, sharpeRatio(mixed), raw*math.Sqrt(252), 1e-9)
}

func TestMaxDrawdownPct(t *testing.T) {
	assert.Equal(t, 0.0, maxDrawdownPct(nil))
	assert.Equal(t, 0.0, maxDrawdownPct([]float64{100, 101, 102}))

	// Peak 120 to trough 90 is -25%.
	dd := maxDrawdownPct([]float64{100, 120, 90, 110})
	assert.InDelta(t, -25.0, dd, 1e-9)
	assert.LessOrEqual(t, dd, 0.0)
}

func TestProfitFactor(t *testing.T) {
	assert.Equal(t, 0.0, profitFactor(nil))

	// Winner: 100 shares exited at 110 from 100 entry = +1000.
	// Loser: 50 shares exited at 90 from 100 entry = -500.
	trades := []Trade{
		{Type: TradeSell, Shares: 100, Price: 110, PnLPct: 10},
		{Type: TradeSell, Shares: 50, Price: 90, PnLPct: -10},
	}
	assert.InDelta(t, 2.0, profitFactor(trades), 1e-9)

	// All winners: no gross loss to divide by.
	assert.Equal(t, 0.0, profitFactor([]Trade{{Type: TradeSell, Shares: 10, Price: 110, PnLPct: 10}}))
}
