package sentiment

import (
	"strings"
	"sync"
)

// TextScorer turns a piece of text into a sentiment value in [-1, 1].
// Implementations may be lexicon-based or model-based; the aggregator and
// providers depend only on this interface so tests can inject a stub.
type TextScorer interface {
	ScoreText(text string) float64
}

// LexiconScorer is a small wordlist-based scorer. The lexicon is built
// lazily on first use and shared safely across goroutines; construct one
// scorer and inject it wherever text needs scoring.
type LexiconScorer struct {
	once     sync.Once
	positive map[string]struct{}
	negative map[string]struct{}
	negators map[string]struct{}
}

// NewLexiconScorer returns a scorer backed by the built-in finance lexicon.
func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{}
}

var (
	positiveWords = []string{
		"up", "upside", "gain", "gains", "gained", "rally", "rallied", "bull",
		"bullish", "buy", "buying", "long", "moon", "mooning", "rocket", "calls",
		"beat", "beats", "strong", "growth", "profit", "profits", "profitable",
		"win", "winning", "winner", "soar", "soared", "surge", "surged", "good",
		"great", "breakout", "undervalued", "upgrade", "upgraded", "outperform",
	}
	negativeWords = []string{
		"down", "downside", "loss", "losses", "lost", "crash", "crashed",
		"bear", "bearish", "sell", "selling", "short", "shorting", "puts",
		"miss", "missed", "weak", "decline", "declined", "drop", "dropped",
		"bad", "terrible", "dump", "dumped", "tank", "tanked", "plunge",
		"plunged", "overvalued", "downgrade", "downgraded", "underperform",
		"bankruptcy", "bagholder", "rug",
	}
	negatorWords = []string{"not", "no", "never", "dont", "don't", "isnt", "isn't", "wont", "won't"}
)

func (s *LexiconScorer) init() {
	s.positive = make(map[string]struct{}, len(positiveWords))
	for _, w := range positiveWords {
		s.positive[w] = struct{}{}
	}
	s.negative = make(map[string]struct{}, len(negativeWords))
	for _, w := range negativeWords {
		s.negative[w] = struct{}{}
	}
	s.negators = make(map[string]struct{}, len(negatorWords))
	for _, w := range negatorWords {
		s.negators[w] = struct{}{}
	}
}

// ScoreText implements TextScorer. The score is the hit balance
// (pos - neg) / (pos + neg); a preceding negator flips a word's polarity.
func (s *LexiconScorer) ScoreText(text string) float64 {
	s.once.Do(s.init)

	var pos, neg int
	negated := false
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		word := strings.Trim(raw, ".,!?;:()[]\"'$#")
		if word == "" {
			continue
		}
		if _, ok := s.negators[word]; ok {
			negated = true
			continue
		}
		_, isPos := s.positive[word]
		_, isNeg := s.negative[word]
		if negated {
			isPos, isNeg = isNeg, isPos
		}
		switch {
		case isPos:
			pos++
		case isNeg:
			neg++
		}
		negated = false
	}

	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}
