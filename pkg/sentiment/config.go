package sentiment

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bhargavap21/mobius-sub001/pkg/confkit"
)

// Config describes the sentiment providers available to the engine. Each
// provider declares its type; the category comes from the implementation,
// not the config, so a provider can never be misfiled into a category it
// does not serve.
type Config struct {
	Providers map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig configures a single sentiment provider.
type ProviderConfig struct {
	Type string `yaml:"type"`

	APIKey string `yaml:"api_key"`

	// Reddit OAuth script-app credentials.
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	UserAgent    string `yaml:"user_agent"`

	// Extra ticker -> company name aliases for text search providers.
	Aliases map[string][]string `yaml:"aliases"`

	// Rate limit: requests per window. Zero limit disables limiting.
	RateLimit     int           `yaml:"rate_limit"`
	RateWindowRaw string        `yaml:"rate_window"`
	RateWindow    time.Duration `yaml:"-"`
}

// LoadConfig reads sentiment provider configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sentiment config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read sentiment config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal sentiment config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	for name, provider := range c.Providers {
		if provider == nil {
			provider = &ProviderConfig{}
			c.Providers[name] = provider
		}
		provider.Type = strings.TrimSpace(os.ExpandEnv(provider.Type))
		provider.APIKey = strings.TrimSpace(os.ExpandEnv(provider.APIKey))
		provider.ClientID = strings.TrimSpace(os.ExpandEnv(provider.ClientID))
		provider.ClientSecret = strings.TrimSpace(os.ExpandEnv(provider.ClientSecret))
		provider.Username = strings.TrimSpace(os.ExpandEnv(provider.Username))
		provider.Password = strings.TrimSpace(os.ExpandEnv(provider.Password))
		provider.UserAgent = strings.TrimSpace(os.ExpandEnv(provider.UserAgent))
		provider.RateWindowRaw = strings.TrimSpace(os.ExpandEnv(provider.RateWindowRaw))
		if provider.RateWindowRaw != "" {
			d, err := time.ParseDuration(provider.RateWindowRaw)
			if err != nil {
				return fmt.Errorf("sentiment provider %s: invalid rate_window %q: %w", name, provider.RateWindowRaw, err)
			}
			if d <= 0 {
				return fmt.Errorf("sentiment provider %s: rate_window must be positive, got %s", name, d)
			}
			provider.RateWindow = d
		}
	}
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	for name, provider := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("sentiment config: provider name cannot be empty")
		}
		switch provider.Type {
		case "reddit", "alphavantage", "finnhub", "polygon", "stocktwits":
		case "":
			return fmt.Errorf("sentiment config: provider %s must specify type", name)
		default:
			return fmt.Errorf("sentiment config: provider %s has unsupported type %q", name, provider.Type)
		}
		if provider.RateLimit > 0 && provider.RateWindow <= 0 {
			return fmt.Errorf("sentiment config: provider %s sets rate_limit without rate_window", name)
		}
	}
	return nil
}

// BuildAggregator instantiates every configured provider with its rate
// limiter and groups them into an Aggregator. The scorer is shared by the
// providers that score raw text.
func (c *Config) BuildAggregator(scorer TextScorer) (*Aggregator, error) {
	providers := make([]Provider, 0, len(c.Providers))
	limits := make(map[string]*WindowLimiter)

	for name, cfg := range c.Providers {
		var provider Provider
		switch cfg.Type {
		case "reddit":
			provider = NewRedditProvider(name, RedditCredentials{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				Username:     cfg.Username,
				Password:     cfg.Password,
				UserAgent:    cfg.UserAgent,
			}, scorer, WithRedditAliases(cfg.Aliases))
		case "alphavantage":
			provider = NewAlphaVantageProvider(name, cfg.APIKey)
		case "finnhub":
			provider = NewFinnhubProvider(name, cfg.APIKey)
		case "polygon":
			provider = NewPolygonProvider(name, cfg.APIKey)
		case "stocktwits":
			provider = NewStockTwitsProvider(name, scorer)
		default:
			return nil, fmt.Errorf("sentiment provider %s: unsupported type %q", name, cfg.Type)
		}
		providers = append(providers, provider)
		if cfg.RateLimit > 0 {
			limits[name] = NewWindowLimiter(cfg.RateLimit, cfg.RateWindow)
		}
	}
	return NewAggregator(providers, limits), nil
}
