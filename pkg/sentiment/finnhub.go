package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultFinnhubURL     = "https://finnhub.io/api/v1"
	defaultFinnhubTimeout = 15 * time.Second

	// Free-tier budget.
	FinnhubMinuteLimit = 60
)

// FinnhubProvider reads the stock social-sentiment endpoint, which rolls up
// Reddit and Twitter mention scores. It belongs to the "social" category.
type FinnhubProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewFinnhubProvider constructs the provider.
func NewFinnhubProvider(name, apiKey string) *FinnhubProvider {
	return &FinnhubProvider{
		name:    name,
		baseURL: defaultFinnhubURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultFinnhubTimeout},
	}
}

// SetBaseURL overrides the endpoint, for tests.
func (p *FinnhubProvider) SetBaseURL(u string) { p.baseURL = strings.TrimRight(u, "/") }

// SetHTTPClient overrides the http.Client, for tests.
func (p *FinnhubProvider) SetHTTPClient(hc *http.Client) { p.client = hc }

// Name implements Provider.
func (p *FinnhubProvider) Name() string { return p.name }

// Category implements Provider.
func (p *FinnhubProvider) Category() string { return CategorySocial }

// GetSentiment implements Provider.
func (p *FinnhubProvider) GetSentiment(ctx context.Context, ticker string, day time.Time) (*Score, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	start, end := dayWindow(day)

	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("from", start.Format("2006-01-02"))
	params.Set("to", end.Add(-time.Second).Format("2006-01-02"))
	params.Set("token", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/stock/social-sentiment?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("finnhub: build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("finnhub: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finnhub: status %d", resp.StatusCode)
	}

	type entry struct {
		Score   float64 `json:"score"`
		Mention int     `json:"mention"`
	}
	var payload struct {
		Reddit  []entry `json:"reddit"`
		Twitter []entry `json:"twitter"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("finnhub: decode response: %w", err)
	}

	var sum float64
	var buckets, mentions int
	for _, e := range append(payload.Reddit, payload.Twitter...) {
		sum += e.Score
		buckets++
		mentions += e.Mention
	}
	if buckets == 0 {
		return nil, nil
	}
	if mentions == 0 {
		mentions = buckets
	}
	return &Score{Value: sum / float64(buckets), Items: mentions}, nil
}
