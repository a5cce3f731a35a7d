package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexiconScorer(t *testing.T) {
	scorer := NewLexiconScorer()

	assert.Equal(t, 1.0, scorer.ScoreText("TSLA to the moon, huge gains, very bullish"))
	assert.Equal(t, -1.0, scorer.ScoreText("total crash, bearish, sell everything"))
	assert.Equal(t, 0.0, scorer.ScoreText("the quarterly report was released today"))
	assert.Equal(t, 0.0, scorer.ScoreText(""))

	// Mixed text lands between the poles.
	mixed := scorer.ScoreText("strong growth but the debt is bad")
	assert.Greater(t, mixed, 0.0)
	assert.Less(t, mixed, 1.0)
}

func TestLexiconScorerNegation(t *testing.T) {
	scorer := NewLexiconScorer()

	assert.Equal(t, -1.0, scorer.ScoreText("not bullish at all"))
	assert.Equal(t, 1.0, scorer.ScoreText("don't sell"))
}

func TestLexiconScorerStripsPunctuation(t *testing.T) {
	scorer := NewLexiconScorer()
	assert.Equal(t, 1.0, scorer.ScoreText("Bullish! (calls)"))
}
