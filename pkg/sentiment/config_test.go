package sentiment

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromReader(t *testing.T) {
	t.Setenv("TEST_FINNHUB_KEY", "fh-secret")

	cfg, err := LoadConfigFromReader(strings.NewReader(`
providers:
  reddit:
    type: reddit
    client_id: cid
    client_secret: secret
    username: user
    password: pw
    rate_limit: 60
    rate_window: 1m
    aliases:
      PLTR: [palantir]
  finnhub:
    type: finnhub
    api_key: ${TEST_FINNHUB_KEY}
    rate_limit: 60
    rate_window: 1m
  alphavantage:
    type: alphavantage
    api_key: av-key
    rate_limit: 25
    rate_window: 24h
  stocktwits:
    type: stocktwits
`))
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 4)

	assert.Equal(t, "fh-secret", cfg.Providers["finnhub"].APIKey)
	assert.Equal(t, time.Minute, cfg.Providers["finnhub"].RateWindow)
	assert.Equal(t, 24*time.Hour, cfg.Providers["alphavantage"].RateWindow)
	assert.Equal(t, 0, cfg.Providers["stocktwits"].RateLimit)
}

func TestLoadConfigRejectsUnknownType(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader(`
providers:
  mystery:
    type: telepathy
`))
	assert.ErrorContains(t, err, "unsupported type")
}

func TestLoadConfigRejectsLimitWithoutWindow(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader(`
providers:
  finnhub:
    type: finnhub
    rate_limit: 60
`))
	assert.ErrorContains(t, err, "rate_limit without rate_window")
}

func TestBuildAggregatorCategories(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(`
providers:
  reddit:
    type: reddit
    client_id: cid
    client_secret: secret
  alphavantage:
    type: alphavantage
    api_key: k
  polygon:
    type: polygon
    api_key: k
  finnhub:
    type: finnhub
    api_key: k
  stocktwits:
    type: stocktwits
`))
	require.NoError(t, err)

	agg, err := cfg.BuildAggregator(NewLexiconScorer())
	require.NoError(t, err)

	assert.Equal(t, []string{"news", "reddit", "social"}, agg.Categories())
	assert.True(t, agg.HasCategory(CategoryReddit))
	assert.True(t, agg.HasCategory(CategoryNews))
	assert.True(t, agg.HasCategory(CategorySocial))
}
