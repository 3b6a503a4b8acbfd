package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hocuspocus07/freechess/internal/analysis"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		played   string
		best     string
		eval     float64
		expected analysis.Category
	}{
		{
			name:     "matching best move wins regardless of eval",
			played:   "e2e4",
			best:     "e2e4",
			eval:     -5.0,
			expected: analysis.CategoryBest,
		},
		{
			name:     "great move at +1.5",
			played:   "e2e4",
			best:     "d2d4",
			eval:     1.5,
			expected: analysis.CategoryGreat,
		},
		{
			name:     "excellent at +1.0",
			played:   "e2e4",
			best:     "d2d4",
			eval:     1.0,
			expected: analysis.CategoryExcellent,
		},
		{
			name:     "good at +0.5",
			played:   "e2e4",
			best:     "d2d4",
			eval:     0.5,
			expected: analysis.CategoryGood,
		},
		{
			name:     "book at exactly zero",
			played:   "e2e4",
			best:     "d2d4",
			eval:     0,
			expected: analysis.CategoryBook,
		},
		{
			name:     "inaccuracy at -0.5",
			played:   "e2e4",
			best:     "d2d4",
			eval:     -0.5,
			expected: analysis.CategoryInaccuracy,
		},
		{
			name:     "mistake at -1.0",
			played:   "e2e4",
			best:     "d2d4",
			eval:     -1.0,
			expected: analysis.CategoryMistake,
		},
		{
			name:     "miss at -2.0",
			played:   "e2e4",
			best:     "d2d4",
			eval:     -2.0,
			expected: analysis.CategoryMiss,
		},
		{
			name:     "blunder at -3.0",
			played:   "e2e4",
			best:     "d2d4",
			eval:     -3.0,
			expected: analysis.CategoryBlunder,
		},
		{
			name:     "blunder far below threshold",
			played:   "e2e4",
			best:     "d2d4",
			eval:     -9.9,
			expected: analysis.CategoryBlunder,
		},
		{
			name:     "small positive slack is neutral",
			played:   "e2e4",
			best:     "d2d4",
			eval:     0.2,
			expected: analysis.CategoryNeutral,
		},
		{
			name:     "small negative slack is neutral",
			played:   "e2e4",
			best:     "d2d4",
			eval:     -0.2,
			expected: analysis.CategoryNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, analysis.Classify(tt.played, tt.best, tt.eval))
		})
	}
}

func TestClassify_EmptyBestNeverMatches(t *testing.T) {
	// With no engine best available an empty played move must not be treated
	// as a match.
	assert.NotEqual(t, analysis.CategoryBest, analysis.Classify("", "", 0.3))
}
