package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFraction(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"signed percent", -10.0, 0.10},
		{"unsigned percent", 10.0, 0.10},
		{"fraction", 0.10, 0.10},
		{"negative fraction", -0.25, 0.25},
		{"whole position", 1.0, 1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeFraction(tc.in)
			assert.InDelta(t, tc.want, got, 1e-12)
			// Idempotence: normalizing an already-normalized value is a no-op.
			assert.InDelta(t, got, NormalizeFraction(got), 1e-12)
		})
	}
}

func TestValidate_TrailingStopScenario(t *testing.T) {
	raw := map[string]any{
		"asset": "tsla",
		"entry_conditions": map[string]any{
			"signal":     "rsi",
			"parameters": map[string]any{"threshold": 30},
		},
		"exit_conditions": map[string]any{
			"stop_loss":              -10.0,
			"take_profit":            20.0,
			"take_profit_pct_shares": 0.5,
		},
	}
	s, err := Validate(raw)
	require.NoError(t, err)

	assert.Equal(t, "TSLA", s.Asset)
	require.NotNil(t, s.Exit.StopLoss)
	assert.InDelta(t, 0.10, *s.Exit.StopLoss, 1e-12)
	require.NotNil(t, s.Exit.TakeProfit)
	assert.InDelta(t, 0.20, *s.Exit.TakeProfit, 1e-12)
	assert.InDelta(t, 0.5, s.Exit.TakeProfitPctShares, 1e-12)
	assert.True(t, s.HasTrailingStop(), "partial take-profit with a stop loss is a trailing-stop-style exit")
}

func TestValidate_Defaults(t *testing.T) {
	s, err := Validate(map[string]any{
		"entry_conditions": map[string]any{"signal": "macd"},
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultAsset, s.Asset)
	assert.False(t, s.PortfolioMode)
	assert.InDelta(t, 1.0, s.Risk.PositionSize, 1e-12)
	assert.Equal(t, 1, s.Risk.MaxPositions)
	assert.InDelta(t, 1.0, s.Exit.TakeProfitPctShares, 1e-12)
	assert.InDelta(t, 1.0, s.Exit.StopLossPctShares, 1e-12)
	assert.False(t, s.HasTrailingStop())
}

func TestValidate_UnknownSignalBecomesCustom(t *testing.T) {
	s, err := Validate(map[string]any{
		"entry_conditions": map[string]any{"signal": "astrology"},
	})
	require.NoError(t, err)
	assert.Equal(t, SignalCustom, s.Entry.Signal)
}

func TestValidate_CollectsEveryIssue(t *testing.T) {
	raw := map[string]any{
		"portfolio_mode": true, // no assets
		"entry_conditions": map[string]any{
			"signal": "rsi",
		},
		"exit_conditions": map[string]any{
			"stop_loss":              "ten percent",
			"take_profit_pct_shares": 1.5,
		},
		"risk_management": map[string]any{
			"position_size": 0.0,
			"max_positions": 0,
			"allocation":    "martingale",
		},
	}
	_, err := Validate(raw)
	require.Error(t, err)

	verr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be a *ValidationError")

	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Contains(t, fields, "assets")
	assert.Contains(t, fields, "exit_conditions.stop_loss")
	assert.Contains(t, fields, "exit_conditions.take_profit_pct_shares")
	assert.Contains(t, fields, "risk_management.position_size")
	assert.Contains(t, fields, "risk_management.max_positions")
	assert.Contains(t, fields, "risk_management.allocation")
	assert.GreaterOrEqual(t, len(verr.Fields), 6, "all offending fields should be reported together")
}

func TestValidate_PortfolioInference(t *testing.T) {
	s, err := Validate(map[string]any{
		"assets":           []any{"aapl", "msft", "nvda"},
		"entry_conditions": map[string]any{"signal": "sentiment"},
	})
	require.NoError(t, err)

	assert.True(t, s.PortfolioMode)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, s.Universe())
	assert.Equal(t, 3, s.Risk.MaxPositions, "max positions defaults to the universe size")
	assert.Equal(t, "reddit", s.SentimentSource())
}
