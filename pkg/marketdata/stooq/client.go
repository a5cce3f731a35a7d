// Package stooq fetches daily OHLCV history from the Stooq CSV endpoint,
// which serves US equities and ETFs without authentication.
package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bhargavap21/mobius-sub001/pkg/marketdata"
)

const (
	defaultBaseURL          = "https://stooq.com/q/d/l/"
	defaultHTTPTimeout      = 10 * time.Second
	defaultMaxRetries       = 3
	defaultRetryBackoffBase = 150 * time.Millisecond
)

// Client wraps access to the Stooq historical data endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	logger     *log.Logger
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default endpoint URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithMaxRetries adjusts the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// WithLogger injects a custom logger (defaults to log.Default()).
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a Stooq API client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// DailyHistory implements marketdata.Provider.
func (c *Client) DailyHistory(ctx context.Context, symbol string, from, to time.Time) ([]marketdata.Bar, error) {
	query := url.Values{}
	query.Set("s", normalizeSymbol(symbol))
	query.Set("d1", from.UTC().Format("20060102"))
	query.Set("d2", to.UTC().Format("20060102"))
	query.Set("i", "d") // daily interval

	body, err := c.get(ctx, c.baseURL+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	bars, err := parseCSV(body)
	if err != nil {
		return nil, fmt.Errorf("stooq: parse %s history: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, marketdata.ErrNoData
	}
	return bars, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("stooq: build request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = readErr
			case resp.StatusCode == http.StatusOK:
				return body, nil
			case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
				lastErr = fmt.Errorf("stooq: status %d", resp.StatusCode)
			default:
				return nil, fmt.Errorf("stooq: status %d", resp.StatusCode)
			}
		}

		if attempt < c.maxRetries {
			c.logger.Printf("stooq: request failed (attempt %d/%d): %v", attempt+1, c.maxRetries, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("stooq: request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// parseCSV decodes the Date,Open,High,Low,Close,Volume layout Stooq emits.
func parseCSV(body []byte) ([]marketdata.Bar, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	bars := make([]marketdata.Bar, 0, len(records))
	for i, rec := range records {
		if len(rec) < 5 {
			continue
		}
		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("row %d: bad date %q", i, rec[0])
		}
		bar := marketdata.Bar{Date: date}
		if bar.Open, err = strconv.ParseFloat(rec[1], 64); err != nil {
			return nil, fmt.Errorf("row %d: bad open %q", i, rec[1])
		}
		if bar.High, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return nil, fmt.Errorf("row %d: bad high %q", i, rec[2])
		}
		if bar.Low, err = strconv.ParseFloat(rec[3], 64); err != nil {
			return nil, fmt.Errorf("row %d: bad low %q", i, rec[3])
		}
		if bar.Close, err = strconv.ParseFloat(rec[4], 64); err != nil {
			return nil, fmt.Errorf("row %d: bad close %q", i, rec[4])
		}
		if len(rec) > 5 && rec[5] != "" {
			// Some indices ship without a volume column.
			bar.Volume, _ = strconv.ParseFloat(rec[5], 64)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// normalizeSymbol maps a plain US ticker to Stooq's suffixed form; symbols
// that already carry a market suffix pass through untouched.
func normalizeSymbol(symbol string) string {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".us"
}

func init() {
	marketdata.RegisterProvider("stooq", func(name string, cfg *marketdata.ProviderConfig) (marketdata.Provider, error) {
		opts := []Option{}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		if cfg.MaxRetries > 0 {
			opts = append(opts, WithMaxRetries(cfg.MaxRetries))
		}
		return NewClient(opts...), nil
	})
}
