package backtest

import "sort"

// Candidate is one asset in the dynamic-selection universe with its signal
// strength for the simulated period.
type Candidate struct {
	Asset        string
	Mentions     int
	AvgSentiment float64
}

// WeightedScore ranks a candidate by mention volume times sentiment
// strength. Negative sentiment produces a negative score, which ranks
// below any positive candidate and is excluded from selection.
func (c Candidate) WeightedScore() float64 {
	return float64(c.Mentions) * c.AvgSentiment
}

// EqualWeights splits capital evenly over at most maxPositions assets,
// preserving input order. A non-positive maxPositions means no cap.
func EqualWeights(assets []string, maxPositions int) map[string]float64 {
	if maxPositions > 0 && len(assets) > maxPositions {
		assets = assets[:maxPositions]
	}
	if len(assets) == 0 {
		return nil
	}
	weights := make(map[string]float64, len(assets))
	for _, asset := range assets {
		weights[asset] = 1.0 / float64(len(assets))
	}
	return weights
}

// SignalWeights ranks candidates by weighted score, keeps the top n with a
// positive score, and assigns each a weight proportional to its share of
// the selected total. Computed once per simulated period, not per bar.
func SignalWeights(candidates []Candidate, topN int) map[string]float64 {
	ranked := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.WeightedScore() > 0 {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].WeightedScore() > ranked[j].WeightedScore()
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	if len(ranked) == 0 {
		return nil
	}

	var total float64
	for _, c := range ranked {
		total += c.WeightedScore()
	}
	weights := make(map[string]float64, len(ranked))
	for _, c := range ranked {
		weights[c.Asset] = c.WeightedScore() / total
	}
	return weights
}
