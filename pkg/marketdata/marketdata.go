// Package marketdata exposes historical daily price series behind a
// provider-agnostic interface.
package marketdata

import (
	"context"
	"errors"
	"time"
)

// ErrNoData indicates that a provider returned zero bars for the requested
// symbol and window.
var ErrNoData = errors.New("marketdata: no price history available")

// Bar is one daily OHLCV observation.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Provider fetches ordered daily price history for a symbol.
type Provider interface {
	// DailyHistory returns bars covering [from, to], oldest first. An empty
	// window yields ErrNoData.
	DailyHistory(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
}

// Day truncates a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
