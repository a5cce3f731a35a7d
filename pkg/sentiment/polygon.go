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
	defaultPolygonURL     = "https://api.polygon.io"
	defaultPolygonTimeout = 15 * time.Second
	polygonNewsPageLimit  = 50
)

// PolygonProvider reads the reference news endpoint, whose articles carry
// per-ticker insight labels. It belongs to the "news" category.
type PolygonProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewPolygonProvider constructs the provider.
func NewPolygonProvider(name, apiKey string) *PolygonProvider {
	return &PolygonProvider{
		name:    name,
		baseURL: defaultPolygonURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultPolygonTimeout},
	}
}

// SetBaseURL overrides the endpoint, for tests.
func (p *PolygonProvider) SetBaseURL(u string) { p.baseURL = strings.TrimRight(u, "/") }

// SetHTTPClient overrides the http.Client, for tests.
func (p *PolygonProvider) SetHTTPClient(hc *http.Client) { p.client = hc }

// Name implements Provider.
func (p *PolygonProvider) Name() string { return p.name }

// Category implements Provider.
func (p *PolygonProvider) Category() string { return CategoryNews }

// GetSentiment implements Provider. Insight labels map to +1/0/-1 and are
// averaged; articles whose insights name a different ticker are skipped.
func (p *PolygonProvider) GetSentiment(ctx context.Context, ticker string, day time.Time) (*Score, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	start, end := dayWindow(day)

	params := url.Values{}
	params.Set("ticker", ticker)
	params.Set("published_utc.gte", start.Format(time.RFC3339))
	params.Set("published_utc.lt", end.Format(time.RFC3339))
	params.Set("limit", fmt.Sprintf("%d", polygonNewsPageLimit))
	params.Set("apiKey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v2/reference/news?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("polygon: build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polygon: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("polygon: status %d", resp.StatusCode)
	}

	var payload struct {
		Results []struct {
			Insights []struct {
				Ticker    string `json:"ticker"`
				Sentiment string `json:"sentiment"`
			} `json:"insights"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("polygon: decode response: %w", err)
	}

	var sum float64
	var items int
	for _, article := range payload.Results {
		for _, insight := range article.Insights {
			if !strings.EqualFold(insight.Ticker, ticker) {
				continue
			}
			switch strings.ToLower(insight.Sentiment) {
			case "positive":
				sum += 1
			case "negative":
				sum -= 1
			case "neutral":
			default:
				continue
			}
			items++
		}
	}
	if items == 0 {
		return nil, nil
	}
	return &Score{Value: sum / float64(items), Items: items}, nil
}
