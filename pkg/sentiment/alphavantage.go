package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAlphaVantageURL     = "https://www.alphavantage.co/query"
	defaultAlphaVantageTimeout = 15 * time.Second

	// Free-tier budget on the NEWS_SENTIMENT endpoint.
	AlphaVantageDailyLimit = 25
)

// AlphaVantageProvider reads the NEWS_SENTIMENT feed. It belongs to the
// "news" category.
type AlphaVantageProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAlphaVantageProvider constructs the provider.
func NewAlphaVantageProvider(name, apiKey string) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		name:    name,
		baseURL: defaultAlphaVantageURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultAlphaVantageTimeout},
	}
}

// SetBaseURL overrides the endpoint, for tests.
func (p *AlphaVantageProvider) SetBaseURL(u string) { p.baseURL = u }

// SetHTTPClient overrides the http.Client, for tests.
func (p *AlphaVantageProvider) SetHTTPClient(hc *http.Client) { p.client = hc }

// Name implements Provider.
func (p *AlphaVantageProvider) Name() string { return p.name }

// Category implements Provider.
func (p *AlphaVantageProvider) Category() string { return CategoryNews }

// GetSentiment implements Provider. Ticker-specific scores are preferred
// over each article's overall score when Alpha Vantage supplies both.
func (p *AlphaVantageProvider) GetSentiment(ctx context.Context, ticker string, day time.Time) (*Score, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	start, end := dayWindow(day)

	params := url.Values{}
	params.Set("function", "NEWS_SENTIMENT")
	params.Set("tickers", ticker)
	params.Set("time_from", start.Format("20060102T1504"))
	params.Set("time_to", end.Add(-time.Minute).Format("20060102T1504"))
	params.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage: status %d", resp.StatusCode)
	}

	var payload struct {
		Note string `json:"Note"`
		Feed []struct {
			OverallSentimentScore float64 `json:"overall_sentiment_score"`
			TickerSentiment       []struct {
				Ticker               string `json:"ticker"`
				TickerSentimentScore string `json:"ticker_sentiment_score"`
			} `json:"ticker_sentiment"`
		} `json:"feed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("alphavantage: decode response: %w", err)
	}
	if payload.Note != "" {
		// The API reports quota exhaustion as a 200 with a note body.
		return nil, fmt.Errorf("alphavantage: %s", payload.Note)
	}
	if len(payload.Feed) == 0 {
		return nil, nil
	}

	var sum float64
	var items int
	for _, article := range payload.Feed {
		value := article.OverallSentimentScore
		for _, ts := range article.TickerSentiment {
			if strings.EqualFold(ts.Ticker, ticker) {
				if parsed, err := strconv.ParseFloat(ts.TickerSentimentScore, 64); err == nil {
					value = parsed
				}
				break
			}
		}
		sum += value
		items++
	}
	if items == 0 {
		return nil, nil
	}
	return &Score{Value: sum / float64(items), Items: items}, nil
}
