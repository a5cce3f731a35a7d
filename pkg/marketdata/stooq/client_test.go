package stooq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhargavap21/mobius-sub001/pkg/marketdata"
)

const sampleCSV = `Date,Open,High,Low,Close,Volume
2024-01-02,470.05,472.20,469.10,471.50,81000000
2024-01-03,471.00,471.80,467.90,468.30,79200000
2024-01-04,468.50,470.10,466.80,469.90,75600000
`

func TestClient_DailyHistory(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	bars, err := client.DailyHistory(context.Background(), "SPY", from, to)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Contains(t, gotQuery, "s=spy.us", "plain tickers get the US market suffix")
	assert.Contains(t, gotQuery, "d1=20240102")
	assert.Contains(t, gotQuery, "d2=20240104")

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.InDelta(t, 471.50, bars[0].Close, 1e-9)
	assert.InDelta(t, 81000000, bars[0].Volume, 1e-9)
	assert.InDelta(t, 469.90, bars[2].Close, 1e-9)
}

func TestClient_DailyHistory_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Date,Open,High,Low,Close,Volume\n"))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.DailyHistory(context.Background(), "ZZZZ", time.Now().AddDate(0, 0, -5), time.Now())
	assert.ErrorIs(t, err, marketdata.ErrNoData)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithMaxRetries(3))
	bars, err := client.DailyHistory(context.Background(), "spy", time.Now().AddDate(0, 0, -5), time.Now())
	require.NoError(t, err)
	assert.Len(t, bars, 3)
	assert.Equal(t, 3, calls)
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithMaxRetries(3))
	_, err := client.DailyHistory(context.Background(), "spy", time.Now().AddDate(0, 0, -5), time.Now())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
