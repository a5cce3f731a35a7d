package strategy

import "strings"

// Signal identifies the entry trigger family a strategy trades on.
type Signal string

const (
	SignalRSI         Signal = "rsi"
	SignalMACD        Signal = "macd"
	SignalSentiment   Signal = "sentiment"
	SignalVolume      Signal = "volume"
	SignalPriceAction Signal = "price_action"
	SignalCustom      Signal = "custom"
)

// Allocation selects how capital is split across a portfolio.
type Allocation string

const (
	AllocationEqual          Allocation = "equal"
	AllocationSignalWeighted Allocation = "signal_weighted"
)

const (
	// DefaultAsset is used when a single-asset strategy omits its symbol.
	DefaultAsset = "SPY"

	defaultPositionSize = 1.0
	defaultPctShares    = 1.0
	defaultTopN         = 3
)

// EntryConditions describes when a position is opened.
type EntryConditions struct {
	Signal     Signal
	Parameters map[string]any
}

// ExitConditions describes when and how a position is unwound.
// StopLoss and TakeProfit are stored as positive fractions of the entry
// price (0.10 == 10%); nil means the rule is disabled.
type ExitConditions struct {
	StopLoss            *float64
	TakeProfit          *float64
	StopLossPctShares   float64
	TakeProfitPctShares float64
	CustomExit          string
}

// RiskManagement bounds position sizing and portfolio construction.
type RiskManagement struct {
	PositionSize     float64
	MaxPositions     int
	Allocation       Allocation
	DynamicSelection bool
	TopN             int
}

// Schema is a validated, normalized strategy definition. It is immutable
// after Validate returns it; the engine never mutates it.
type Schema struct {
	Asset         string
	Assets        []string
	PortfolioMode bool

	Entry EntryConditions
	Exit  ExitConditions
	Risk  RiskManagement
}

// HasTrailingStop reports whether the strategy intends a two-phase exit:
// a partial take-profit with the remainder governed by the stop loss.
func (s *Schema) HasTrailingStop() bool {
	return s.Exit.StopLoss != nil && s.Exit.TakeProfitPctShares < 1.0
}

// Universe returns the assets the strategy trades, upper-cased.
func (s *Schema) Universe() []string {
	if s.PortfolioMode {
		out := make([]string, 0, len(s.Assets))
		for _, a := range s.Assets {
			out = append(out, strings.ToUpper(a))
		}
		return out
	}
	return []string{strings.ToUpper(s.Asset)}
}

// SentimentSource returns the data source category a sentiment-gated entry
// reads from. Defaults to "reddit" when the strategy does not name one.
func (s *Schema) SentimentSource() string {
	if src, ok := s.Entry.Parameters["source"].(string); ok {
		src = strings.ToLower(strings.TrimSpace(src))
		if src != "" {
			return src
		}
	}
	return "reddit"
}

// Param returns a numeric entry parameter, falling back to def when the
// parameter is absent or not a number.
func (s *Schema) Param(name string, def float64) float64 {
	v, ok := s.Entry.Parameters[name]
	if !ok {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		return def
	}
	return f
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
