package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/bhargavap21/mobius-sub001/pkg/marketdata/stooq"
)

func TestMustLoadMarketdataFromProjectRoot(t *testing.T) {
	cfg := MustLoadMarketdata()
	require.NotNil(t, cfg)
	assert.Equal(t, "stooq", cfg.Default)
	assert.Contains(t, cfg.Providers, "stooq")
}

func TestMustLoadSentimentFromProjectRoot(t *testing.T) {
	cfg := MustLoadSentiment()
	require.NotNil(t, cfg)
	for _, name := range []string{"reddit", "alphavantage", "polygon", "finnhub", "stocktwits"} {
		assert.Contains(t, cfg.Providers, name)
	}
	require.NotNil(t, cfg.Providers["alphavantage"])
	assert.Equal(t, 25, cfg.Providers["alphavantage"].RateLimit)
}
