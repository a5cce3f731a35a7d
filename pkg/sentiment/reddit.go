package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

const (
	defaultRedditAuthURL = "https://www.reddit.com/api/v1/access_token"
	defaultRedditAPIURL  = "https://oauth.reddit.com"
	defaultRedditUA      = "mobius-backtest/1.0"
	redditSearchLimit    = 100
	redditCommentDepth   = 1
	tokenExpirySlack     = time.Minute
	defaultRedditTimeout = 15 * time.Second
)

// companyAliases maps tickers to company names commonly used instead of the
// symbol. Config-supplied aliases extend this set.
var companyAliases = map[string][]string{
	"AAPL": {"apple"},
	"AMZN": {"amazon"},
	"GOOG": {"google", "alphabet"},
	"META": {"facebook", "meta"},
	"MSFT": {"microsoft"},
	"NVDA": {"nvidia"},
	"TSLA": {"tesla"},
	"GME":  {"gamestop"},
	"AMC":  {"amc entertainment"},
	"SPY":  {"s&p 500", "sp500"},
}

// RedditCredentials are OAuth script-app credentials.
type RedditCredentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
}

// RedditProvider aggregates sentiment from Reddit submissions and their
// comment trees. Each GetSentiment call searches by ticker and by company
// alias inside the day's 24-hour window, always scans comments of matching
// posts, and deduplicates items by ID so no post or comment contributes to
// the mean more than once regardless of which search path found it.
type RedditProvider struct {
	name    string
	authURL string
	apiURL  string
	creds   RedditCredentials
	client  *http.Client
	scorer  TextScorer
	aliases map[string][]string

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// RedditOption configures the provider.
type RedditOption func(*RedditProvider)

// WithRedditHTTPClient injects a custom http.Client.
func WithRedditHTTPClient(hc *http.Client) RedditOption {
	return func(p *RedditProvider) {
		if hc != nil {
			p.client = hc
		}
	}
}

// WithRedditEndpoints overrides the OAuth and API base URLs.
func WithRedditEndpoints(authURL, apiURL string) RedditOption {
	return func(p *RedditProvider) {
		if authURL != "" {
			p.authURL = authURL
		}
		if apiURL != "" {
			p.apiURL = strings.TrimRight(apiURL, "/")
		}
	}
}

// WithRedditAliases extends the built-in ticker alias table.
func WithRedditAliases(aliases map[string][]string) RedditOption {
	return func(p *RedditProvider) {
		for ticker, names := range aliases {
			ticker = strings.ToUpper(strings.TrimSpace(ticker))
			p.aliases[ticker] = append(p.aliases[ticker], names...)
		}
	}
}

// NewRedditProvider constructs the provider. The scorer is required; it is
// the injected shared text-sentiment resource.
func NewRedditProvider(name string, creds RedditCredentials, scorer TextScorer, opts ...RedditOption) *RedditProvider {
	if creds.UserAgent == "" {
		creds.UserAgent = defaultRedditUA
	}
	p := &RedditProvider{
		name:    name,
		authURL: defaultRedditAuthURL,
		apiURL:  defaultRedditAPIURL,
		creds:   creds,
		client:  &http.Client{Timeout: defaultRedditTimeout},
		scorer:  scorer,
		aliases: make(map[string][]string, len(companyAliases)),
	}
	for ticker, names := range companyAliases {
		p.aliases[ticker] = append([]string(nil), names...)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *RedditProvider) Name() string { return p.name }

// Category implements Provider.
func (p *RedditProvider) Category() string { return CategoryReddit }

// GetSentiment implements Provider.
func (p *RedditProvider) GetSentiment(ctx context.Context, ticker string, day time.Time) (*Score, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	start, end := dayWindow(day)

	queries := []string{ticker, "$" + ticker}
	for _, alias := range p.aliases[ticker] {
		queries = append(queries, alias)
	}

	// seen guards the aggregate: one contribution per post/comment ID, no
	// matter how many search paths discovered it.
	seen := make(map[string]struct{})
	var sum float64

	for _, query := range queries {
		posts, err := p.searchPosts(ctx, query, start, end)
		if err != nil {
			return nil, err
		}
		for _, post := range posts {
			if _, dup := seen[post.ID]; dup {
				continue
			}
			seen[post.ID] = struct{}{}
			sum += p.scorer.ScoreText(post.Title + " " + post.SelfText)

			comments, err := p.listComments(ctx, post.ID)
			if err != nil {
				// A missing comment tree should not void the post itself.
				logx.WithContext(ctx).Errorf("reddit: comments for %s: %v", post.ID, err)
				continue
			}
			for _, comment := range comments {
				if _, dup := seen[comment.ID]; dup {
					continue
				}
				if comment.Created.Before(start) || !comment.Created.Before(end) {
					continue
				}
				seen[comment.ID] = struct{}{}
				sum += p.scorer.ScoreText(comment.Body)
			}
		}
	}

	if len(seen) == 0 {
		return nil, nil
	}
	return &Score{Value: sum / float64(len(seen)), Items: len(seen)}, nil
}

type redditPost struct {
	ID       string
	Title    string
	SelfText string
	Created  time.Time
}

type redditComment struct {
	ID      string
	Body    string
	Created time.Time
}

func (p *RedditProvider) searchPosts(ctx context.Context, query string, start, end time.Time) ([]redditPost, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "new")
	params.Set("t", "week")
	params.Set("limit", fmt.Sprintf("%d", redditSearchLimit))

	var listing redditListing
	if err := p.getJSON(ctx, p.apiURL+"/search?"+params.Encode(), &listing); err != nil {
		return nil, fmt.Errorf("reddit: search %q: %w", query, err)
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		created := time.Unix(int64(child.Data.CreatedUTC), 0).UTC()
		if created.Before(start) || !created.Before(end) {
			continue
		}
		posts = append(posts, redditPost{
			ID:       "t3_" + child.Data.ID,
			Title:    child.Data.Title,
			SelfText: child.Data.SelfText,
			Created:  created,
		})
	}
	return posts, nil
}

func (p *RedditProvider) listComments(ctx context.Context, postID string) ([]redditComment, error) {
	id := strings.TrimPrefix(postID, "t3_")
	params := url.Values{}
	params.Set("depth", fmt.Sprintf("%d", redditCommentDepth))
	params.Set("limit", fmt.Sprintf("%d", redditSearchLimit))

	// The comments endpoint returns a two-element array: the post listing
	// followed by the comment listing.
	var listings []redditListing
	if err := p.getJSON(ctx, p.apiURL+"/comments/"+id+"?"+params.Encode(), &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, nil
	}

	comments := make([]redditComment, 0, len(listings[1].Data.Children))
	for _, child := range listings[1].Data.Children {
		if child.Kind != "t1" || child.Data.Body == "" {
			continue
		}
		comments = append(comments, redditComment{
			ID:      "t1_" + child.Data.ID,
			Body:    child.Data.Body,
			Created: time.Unix(int64(child.Data.CreatedUTC), 0).UTC(),
		})
	}
	return comments, nil
}

type redditListing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID         string  `json:"id"`
				Title      string  `json:"title"`
				SelfText   string  `json:"selftext"`
				Body       string  `json:"body"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (p *RedditProvider) getJSON(ctx context.Context, rawURL string, out any) error {
	token, err := p.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", p.creds.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// accessToken returns a valid OAuth token, refreshing it when expired.
// Script apps use the password grant; apps without a username fall back to
// client credentials.
func (p *RedditProvider) accessToken(ctx context.Context) (string, error) {
	p.tokenMu.Lock()
	defer p.tokenMu.Unlock()
	if p.token != "" && time.Now().Before(p.tokenExpiry.Add(-tokenExpirySlack)) {
		return p.token, nil
	}

	form := url.Values{}
	if p.creds.Username != "" {
		form.Set("grant_type", "password")
		form.Set("username", p.creds.Username)
		form.Set("password", p.creds.Password)
	} else {
		form.Set("grant_type", "client_credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("reddit: build token request: %w", err)
	}
	req.SetBasicAuth(p.creds.ClientID, p.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", p.creds.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reddit: token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reddit: token request status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("reddit: decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("reddit: empty access token")
	}
	p.token = payload.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return p.token, nil
}
