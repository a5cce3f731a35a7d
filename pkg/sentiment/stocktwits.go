package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultStockTwitsURL     = "https://api.stocktwits.com/api/2"
	defaultStockTwitsTimeout = 15 * time.Second
)

// StockTwitsProvider reads the public symbol stream. Messages carry an
// optional Bullish/Bearish label; unlabeled messages fall back to the text
// scorer. It belongs to the "social" category.
type StockTwitsProvider struct {
	name    string
	baseURL string
	client  *http.Client
	scorer  TextScorer
}

// NewStockTwitsProvider constructs the provider. The scorer handles
// messages without an explicit sentiment label.
func NewStockTwitsProvider(name string, scorer TextScorer) *StockTwitsProvider {
	return &StockTwitsProvider{
		name:    name,
		baseURL: defaultStockTwitsURL,
		client:  &http.Client{Timeout: defaultStockTwitsTimeout},
		scorer:  scorer,
	}
}

// SetBaseURL overrides the endpoint, for tests.
func (p *StockTwitsProvider) SetBaseURL(u string) { p.baseURL = strings.TrimRight(u, "/") }

// SetHTTPClient overrides the http.Client, for tests.
func (p *StockTwitsProvider) SetHTTPClient(hc *http.Client) { p.client = hc }

// Name implements Provider.
func (p *StockTwitsProvider) Name() string { return p.name }

// Category implements Provider.
func (p *StockTwitsProvider) Category() string { return CategorySocial }

// GetSentiment implements Provider. Only messages created inside the day's
// window count; labeled messages score ±1, the rest go through the scorer.
func (p *StockTwitsProvider) GetSentiment(ctx context.Context, ticker string, day time.Time) (*Score, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	start, end := dayWindow(day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/streams/symbol/"+ticker+".json", nil)
	if err != nil {
		return nil, fmt.Errorf("stocktwits: build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stocktwits: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		// Unknown symbol on StockTwits; no data rather than an error.
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stocktwits: status %d", resp.StatusCode)
	}

	var payload struct {
		Messages []struct {
			Body      string `json:"body"`
			CreatedAt string `json:"created_at"`
			Entities  struct {
				Sentiment *struct {
					Basic string `json:"basic"`
				} `json:"sentiment"`
			} `json:"entities"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("stocktwits: decode response: %w", err)
	}

	var sum float64
	var items int
	for _, msg := range payload.Messages {
		created, err := time.Parse("2006-01-02T15:04:05Z", msg.CreatedAt)
		if err != nil {
			continue
		}
		if created.Before(start) || !created.Before(end) {
			continue
		}
		switch {
		case msg.Entities.Sentiment != nil && strings.EqualFold(msg.Entities.Sentiment.Basic, "Bullish"):
			sum += 1
		case msg.Entities.Sentiment != nil && strings.EqualFold(msg.Entities.Sentiment.Basic, "Bearish"):
			sum -= 1
		default:
			sum += p.scorer.ScoreText(msg.Body)
		}
		items++
	}
	if items == 0 {
		return nil, nil
	}
	return &Score{Value: sum / float64(items), Items: items}, nil
}
