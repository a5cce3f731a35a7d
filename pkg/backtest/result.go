package backtest

// Result is the complete outcome of one backtest run. A Result with a
// non-empty Error describes a run that could not start (no price data for
// any asset); a run that started but traded zero times has an empty Error
// and a zero TotalTrades.
type Result struct {
	Summary          Summary               `json:"summary"`
	Trades           []Trade               `json:"trades"`
	AssetBreakdown   map[string]AssetStats `json:"asset_breakdown"`
	PortfolioHistory []EquityPoint         `json:"portfolio_history"`
	Error            string                `json:"error,omitempty"`
}

// Summary carries the run-level metrics.
type Summary struct {
	Symbol    string   `json:"symbol,omitempty"`
	Assets    []string `json:"assets,omitempty"`
	NumAssets int      `json:"num_assets"`

	TotalReturn   float64 `json:"total_return"`
	BuyHoldReturn float64 `json:"buy_hold_return"`
	TotalTrades   int     `json:"total_trades"`
	WinRate       float64 `json:"win_rate"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	ProfitFactor  float64 `json:"profit_factor"`

	// Sentiment diagnostics: distinct (ticker, day, source) keys the run
	// checked, and how many of them produced data.
	ExternalDataFound int `json:"external_data_found"`
	DataPointsChecked int `json:"data_points_checked"`
}

// AssetStats breaks the run down per asset.
type AssetStats struct {
	TotalReturn   float64 `json:"total_return"`
	BuyHoldReturn float64 `json:"buy_hold_return"`
	TotalTrades   int     `json:"total_trades"`
	WinRate       float64 `json:"win_rate"`
	FinalCapital  float64 `json:"final_capital"`
}

// EquityPoint is one (date, total value) observation of the portfolio.
type EquityPoint struct {
	Date       string  `json:"date"`
	TotalValue float64 `json:"total_value"`
}

func errorResult(msg string) *Result {
	return &Result{Error: msg}
}
