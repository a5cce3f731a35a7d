package strategy

import (
	"fmt"
	"strings"
)

// FieldIssue records a single validation failure.
type FieldIssue struct {
	Field   string
	Message string
}

// ValidationError aggregates every offending field found during Validate,
// not just the first one.
type ValidationError struct {
	Fields []FieldIssue
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "strategy: invalid schema"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "strategy: invalid schema: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldIssue{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate parses a raw strategy document into a normalized Schema. All
// shape violations are collected and returned together in a
// *ValidationError. An unknown entry signal is coerced to SignalCustom
// rather than rejected.
func Validate(raw map[string]any) (*Schema, error) {
	verr := &ValidationError{}
	s := &Schema{}

	parseAssets(raw, s, verr)
	parseEntry(raw, s, verr)
	parseExit(raw, s, verr)
	parseRisk(raw, s, verr)

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return s, nil
}

// MustValidate is Validate for configuration paths where a bad strategy is a
// programming error.
func MustValidate(raw map[string]any) *Schema {
	s, err := Validate(raw)
	if err != nil {
		panic(err)
	}
	return s
}

func parseAssets(raw map[string]any, s *Schema, verr *ValidationError) {
	if v, ok := raw["asset"]; ok && v != nil {
		asset, ok := v.(string)
		if !ok {
			verr.add("asset", "must be a string, got %T", v)
		} else {
			s.Asset = strings.ToUpper(strings.TrimSpace(asset))
		}
	}
	if v, ok := raw["assets"]; ok && v != nil {
		list, ok := toStringSlice(v)
		if !ok {
			verr.add("assets", "must be a list of strings, got %T", v)
		} else {
			for _, a := range list {
				a = strings.ToUpper(strings.TrimSpace(a))
				if a != "" {
					s.Assets = append(s.Assets, a)
				}
			}
		}
	}
	if v, ok := raw["portfolio_mode"]; ok {
		b, ok := v.(bool)
		if !ok {
			verr.add("portfolio_mode", "must be a boolean, got %T", v)
		} else {
			s.PortfolioMode = b
		}
	} else {
		// Infer the mode from the shape when the flag is omitted.
		s.PortfolioMode = len(s.Assets) > 0
	}

	if s.PortfolioMode {
		if len(s.Assets) == 0 {
			verr.add("assets", "portfolio mode requires a non-empty asset list")
		}
	} else {
		if s.Asset == "" {
			s.Asset = DefaultAsset
		}
	}
}

func parseEntry(raw map[string]any, s *Schema, verr *ValidationError) {
	entry, ok := subMap(raw, "entry_conditions")
	if !ok {
		verr.add("entry_conditions", "required")
		return
	}

	sig, _ := entry["signal"].(string)
	switch Signal(strings.ToLower(strings.TrimSpace(sig))) {
	case SignalRSI, SignalMACD, SignalSentiment, SignalVolume, SignalPriceAction, SignalCustom:
		s.Entry.Signal = Signal(strings.ToLower(strings.TrimSpace(sig)))
	default:
		// Unknown signals become custom so a generated strategy still runs.
		s.Entry.Signal = SignalCustom
	}

	if params, ok := subMap(entry, "parameters"); ok {
		s.Entry.Parameters = params
	} else {
		s.Entry.Parameters = map[string]any{}
	}
}

func parseExit(raw map[string]any, s *Schema, verr *ValidationError) {
	s.Exit.StopLossPctShares = defaultPctShares
	s.Exit.TakeProfitPctShares = defaultPctShares

	exit, ok := subMap(raw, "exit_conditions")
	if !ok {
		return
	}

	if v, ok := exit["stop_loss"]; ok && v != nil {
		f, ok := toFloat(v)
		if !ok {
			verr.add("exit_conditions.stop_loss", "must be numeric, got %T", v)
		} else {
			norm := NormalizeFraction(f)
			s.Exit.StopLoss = &norm
		}
	}
	if v, ok := exit["take_profit"]; ok && v != nil {
		f, ok := toFloat(v)
		if !ok {
			verr.add("exit_conditions.take_profit", "must be numeric, got %T", v)
		} else {
			norm := NormalizeFraction(f)
			s.Exit.TakeProfit = &norm
		}
	}
	if v, ok := exit["stop_loss_pct_shares"]; ok && v != nil {
		f, ok := toFloat(v)
		if !ok || f < 0 || f > 1 {
			verr.add("exit_conditions.stop_loss_pct_shares", "must be a fraction in [0, 1]")
		} else {
			s.Exit.StopLossPctShares = f
		}
	}
	if v, ok := exit["take_profit_pct_shares"]; ok && v != nil {
		f, ok := toFloat(v)
		if !ok || f < 0 || f > 1 {
			verr.add("exit_conditions.take_profit_pct_shares", "must be a fraction in [0, 1]")
		} else {
			s.Exit.TakeProfitPctShares = f
		}
	}
	if v, ok := exit["custom_exit"]; ok && v != nil {
		str, ok := v.(string)
		if !ok {
			verr.add("exit_conditions.custom_exit", "must be a string, got %T", v)
		} else {
			s.Exit.CustomExit = strings.TrimSpace(str)
		}
	}
}

func parseRisk(raw map[string]any, s *Schema, verr *ValidationError) {
	s.Risk.PositionSize = defaultPositionSize
	s.Risk.Allocation = AllocationEqual
	s.Risk.TopN = defaultTopN

	risk, ok := subMap(raw, "risk_management")
	if !ok {
		s.Risk.MaxPositions = defaultMaxPositions(s)
		return
	}

	if v, ok := risk["position_size"]; ok && v != nil {
		f, ok := toFloat(v)
		if !ok || f <= 0 || f > 1 {
			verr.add("risk_management.position_size", "must be a fraction in (0, 1]")
		} else {
			s.Risk.PositionSize = f
		}
	}
	if v, ok := risk["max_positions"]; ok && v != nil {
		f, ok := toFloat(v)
		if !ok || f < 1 {
			verr.add("risk_management.max_positions", "must be an integer >= 1")
		} else {
			s.Risk.MaxPositions = int(f)
		}
	}
	if s.Risk.MaxPositions == 0 {
		s.Risk.MaxPositions = defaultMaxPositions(s)
	}
	if v, ok := risk["allocation"]; ok && v != nil {
		str, _ := v.(string)
		switch Allocation(strings.ToLower(strings.TrimSpace(str))) {
		case AllocationEqual:
			s.Risk.Allocation = AllocationEqual
		case AllocationSignalWeighted:
			s.Risk.Allocation = AllocationSignalWeighted
		default:
			verr.add("risk_management.allocation", "must be one of equal|signal_weighted, got %v", v)
		}
	}
	if v, ok := risk["dynamic_selection"]; ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			verr.add("risk_management.dynamic_selection", "must be a boolean, got %T", v)
		} else {
			s.Risk.DynamicSelection = b
		}
	}
	if v, ok := risk["top_n"]; ok && v != nil {
		f, ok := toFloat(v)
		if !ok || f < 1 {
			verr.add("risk_management.top_n", "must be an integer >= 1")
		} else {
			s.Risk.TopN = int(f)
		}
	}
}

func defaultMaxPositions(s *Schema) int {
	if s.PortfolioMode && len(s.Assets) > 0 {
		return len(s.Assets)
	}
	return 1
}

func subMap(raw map[string]any, key string) (map[string]any, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func toStringSlice(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}
