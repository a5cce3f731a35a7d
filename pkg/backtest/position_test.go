package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhargavap21/mobius-sub001/pkg/strategy"
)

func pct(v float64) *float64 { return &v }

func barOn(d int, price float64) BarInput {
	return BarInput{
		Date:  time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC),
		Price: price,
	}
}

func TestMachineOpensOnEntrySignal(t *testing.T) {
	m := NewMachine("AAPL", strategy.ExitConditions{TakeProfitPctShares: 1, StopLossPctShares: 1}, 1.0)

	in := barOn(1, 100)
	in.EntrySignal = true
	in.Capital = 10000
	trade, err := m.EvalBar(in)
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.Equal(t, TradeBuy, trade.Type)
	assert.Equal(t, ReasonEntry, trade.Reason)
	assert.Equal(t, 100.0, trade.Shares)
	assert.Equal(t, "2024-03-01", trade.Date)
	assert.Equal(t, StateOpen, m.State())

	// Entry signals are ignored while the position is open.
	trade, err = m.EvalBar(in)
	require.NoError(t, err)
	assert.Nil(t, trade)
}

func TestMachinePositionSizeFraction(t *testing.T) {
	m := NewMachine("AAPL", strategy.ExitConditions{TakeProfitPctShares: 1, StopLossPctShares: 1}, 0.5)

	in := barOn(1, 100)
	in.EntrySignal = true
	in.Capital = 10000
	trade, err := m.EvalBar(in)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, 50.0, trade.Shares)
}

func TestMachineStopLossFullExit(t *testing.T) {
	exit := strategy.ExitConditions{StopLoss: pct(0.10), StopLossPctShares: 1, TakeProfitPctShares: 1}
	m := NewMachine("TSLA", exit, 1.0)

	in := barOn(1, 100)
	in.EntrySignal = true
	in.Capital = 10000
	_, err := m.EvalBar(in)
	require.NoError(t, err)

	// 12% down: stop fires, fill at the 90 stop level.
	trade, err := m.EvalBar(BarInput{Date: barOn(2, 91).Date, Price: 91, Low: 88})
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, TradeSell, trade.Type)
	assert.Equal(t, ReasonStopLoss, trade.Reason)
	assert.Equal(t, 90.0, trade.Price)
	assert.Equal(t, 100.0, trade.Shares)
	assert.InDelta(t, -10.0, trade.PnLPct, 1e-9)
	assert.Equal(t, StateFlat, m.State())
	assert.InDelta(t, -1000.0, m.RealizedPnL(), 1e-9)
}

func TestMachineStopLossPrecedenceOverTakeProfit(t *testing.T) {
	exit := strategy.ExitConditions{
		StopLoss:            pct(0.05),
		TakeProfit:          pct(0.05),
		StopLossPctShares:   1,
		TakeProfitPctShares: 0.5,
	}
	m := NewMachine("GME", exit, 1.0)

	in := barOn(1, 100)
	in.EntrySignal = true
	in.Capital = 10000
	_, err := m.EvalBar(in)
	require.NoError(t, err)

	// A wide bar touches both the 95 stop and the 105 target.
	trade, err := m.EvalBar(BarInput{Date: barOn(2, 100).Date, Price: 100, High: 108, Low: 93})
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, ReasonStopLoss, trade.Reason)
	assert.Equal(t, TradeSell, trade.Type)
	assert.Equal(t, StateFlat, m.State())
}

func TestMachinePartialTakeProfitRetriggers(t *testing.T) {
	exit := strategy.ExitConditions{
		StopLoss:            pct(0.20),
		TakeProfit:          pct(0.10),
		StopLossPctShares:   1,
		TakeProfitPctShares: 0.5,
	}
	m := NewMachine("NVDA", exit, 1.0)

	in := barOn(1, 100)
	in.EntrySignal = true
	in.Capital = 10000
	buy, err := m.EvalBar(in)
	require.NoError(t, err)
	entryShares := buy.Shares

	var sold float64
	prevOpen := m.SharesOpen()
	for d := 2; d <= 5; d++ {
		trade, err := m.EvalBar(barOn(d, 112))
		require.NoError(t, err)
		require.NotNil(t, trade)
		assert.Equal(t, TradePartialSell, trade.Type)
		assert.Equal(t, ReasonTakeProfit, trade.Reason)
		// Each trigger sells half of what is currently open.
		assert.InDelta(t, prevOpen/2, trade.Shares, 1e-9)
		assert.Equal(t, StatePartiallyExited, m.State())
		assert.Less(t, m.SharesOpen(), prevOpen)
		sold += trade.Shares
		prevOpen = m.SharesOpen()
	}

	assert.LessOrEqual(t, sold, entryShares)
	assert.InDelta(t, entryShares/16, m.SharesOpen(), 1e-9)
}

func TestMachinePartialThenStopConservesShares(t *testing.T) {
	exit := strategy.ExitConditions{
		StopLoss:            pct(0.10),
		TakeProfit:          pct(0.10),
		StopLossPctShares:   1,
		TakeProfitPctShares: 0.5,
	}
	m := NewMachine("AMD", exit, 1.0)

	in := barOn(1, 100)
	in.EntrySignal = true
	in.Capital = 10000
	buy, err := m.EvalBar(in)
	require.NoError(t, err)

	partial, err := m.EvalBar(barOn(2, 111))
	require.NoError(t, err)
	require.Equal(t, TradePartialSell, partial.Type)

	stop, err := m.EvalBar(barOn(3, 85))
	require.NoError(t, err)
	require.Equal(t, TradeSell, stop.Type)
	assert.Equal(t, ReasonStopLoss, stop.Reason)
	assert.Equal(t, StateFlat, m.State())

	assert.InDelta(t, buy.Shares, partial.Shares+stop.Shares, 1e-9)
	assert.Equal(t, 0.0, m.SharesOpen())
}

func TestMachineFullTakeProfit(t *testing.T) {
	exit := strategy.ExitConditions{
		TakeProfit:          pct(0.10),
		TakeProfitPctShares: 1,
		StopLossPctShares:   1,
	}
	m := NewMachine("SPY", exit, 1.0)

	in := barOn(1, 100)
	in.EntrySignal = true
	in.Capital = 10000
	_, err := m.EvalBar(in)
	require.NoError(t, err)

	trade, err := m.EvalBar(barOn(2, 115))
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, TradeSell, trade.Type)
	assert.Equal(t, ReasonTakeProfit, trade.Reason)
	assert.Equal(t, 110.0, trade.Price)
	assert.Equal(t, StateFlat, m.State())
}

func TestMachineCustomExit(t *testing.T) {
	m := NewMachine("SPY", strategy.ExitConditions{TakeProfitPctShares: 1, StopLossPctShares: 1}, 1.0)

	in := barOn(1, 100)
	in.EntrySignal = true
	in.Capital = 10000
	_, err := m.EvalBar(in)
	require.NoError(t, err)

	exitBar := barOn(2, 104)
	exitBar.CustomExit = true
	trade, err := m.EvalBar(exitBar)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, TradeSell, trade.Type)
	assert.Equal(t, ReasonCustomExit, trade.Reason)
	assert.Equal(t, StateFlat, m.State())
}

func TestMachineReentersAfterFullExit(t *testing.T) {
	exit := strategy.ExitConditions{StopLoss: pct(0.10), StopLossPctShares: 1, TakeProfitPctShares: 1}
	m := NewMachine("TSLA", exit, 1.0)

	in := barOn(1, 100)
	in.EntrySignal = true
	in.Capital = 10000
	_, err := m.EvalBar(in)
	require.NoError(t, err)
	_, err = m.EvalBar(barOn(2, 85))
	require.NoError(t, err)
	require.Equal(t, StateFlat, m.State())

	in2 := barOn(3, 80)
	in2.EntrySignal = true
	in2.Capital = 9000
	trade, err := m.EvalBar(in2)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, TradeBuy, trade.Type)
	assert.Equal(t, StateOpen, m.State())
}
