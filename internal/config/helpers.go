package config

import (
	"fmt"
	"path/filepath"

	"github.com/bhargavap21/mobius-sub001/pkg/confkit"
	"github.com/bhargavap21/mobius-sub001/pkg/marketdata"
	"github.com/bhargavap21/mobius-sub001/pkg/sentiment"
)

// MustLoadMarketdata loads etc/marketdata.yaml from the project root and
// panics on error. It is the fallback when the main config carries no
// Marketdata section, and lets tests that only need bars skip the rest.
func MustLoadMarketdata() *marketdata.Config {
	root := confkit.MustProjectRoot()
	path := filepath.Join(root, "etc", "marketdata.yaml")
	cfg, err := marketdata.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("load marketdata config %s: %w", path, err))
	}
	return cfg
}

// MustLoadSentiment loads etc/sentiment.yaml from the project root and
// panics on error.
func MustLoadSentiment() *sentiment.Config {
	root := confkit.MustProjectRoot()
	path := filepath.Join(root, "etc", "sentiment.yaml")
	cfg, err := sentiment.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("load sentiment config %s: %w", path, err))
	}
	return cfg
}
