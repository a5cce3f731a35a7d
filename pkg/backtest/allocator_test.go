package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualWeights(t *testing.T) {
	weights := EqualWeights([]string{"AAPL", "MSFT", "NVDA"}, 3)
	require.Len(t, weights, 3)
	for _, w := range weights {
		assert.InDelta(t, 1.0/3.0, w, 1e-9)
	}
}

func TestEqualWeightsCappedByMaxPositions(t *testing.T) {
	weights := EqualWeights([]string{"AAPL", "MSFT", "NVDA", "AMD"}, 2)
	require.Len(t, weights, 2)
	assert.InDelta(t, 0.5, weights["AAPL"], 1e-9)
	assert.InDelta(t, 0.5, weights["MSFT"], 1e-9)
	_, ok := weights["NVDA"]
	assert.False(t, ok)
}

func TestSignalWeightsProportional(t *testing.T) {
	// Weighted scores 10, 5, 5 over $10k must yield $5000/$2500/$2500.
	weights := SignalWeights([]Candidate{
		{Asset: "GME", Mentions: 10, AvgSentiment: 1.0},
		{Asset: "AMC", Mentions: 5, AvgSentiment: 1.0},
		{Asset: "BB", Mentions: 10, AvgSentiment: 0.5},
	}, 3)
	require.Len(t, weights, 3)
	assert.InDelta(t, 0.50, weights["GME"], 1e-9)
	assert.InDelta(t, 0.25, weights["AMC"], 1e-9)
	assert.InDelta(t, 0.25, weights["BB"], 1e-9)
}

func TestSignalWeightsTopN(t *testing.T) {
	weights := SignalWeights([]Candidate{
		{Asset: "A", Mentions: 10, AvgSentiment: 0.9},
		{Asset: "B", Mentions: 10, AvgSentiment: 0.5},
		{Asset: "C", Mentions: 10, AvgSentiment: 0.1},
	}, 2)
	require.Len(t, weights, 2)
	_, ok := weights["C"]
	assert.False(t, ok)
	assert.Greater(t, weights["A"], weights["B"])
}

func TestSignalWeightsExcludesNonPositive(t *testing.T) {
	weights := SignalWeights([]Candidate{
		{Asset: "UP", Mentions: 4, AvgSentiment: 0.5},
		{Asset: "DOWN", Mentions: 100, AvgSentiment: -0.9},
		{Asset: "SILENT", Mentions: 0, AvgSentiment: 0.8},
	}, 3)
	require.Len(t, weights, 1)
	assert.InDelta(t, 1.0, weights["UP"], 1e-9)
}

func TestSignalWeightsEmpty(t *testing.T) {
	assert.Nil(t, SignalWeights(nil, 3))
	assert.Nil(t, SignalWeights([]Candidate{{Asset: "X", Mentions: 0}}, 3))
}
