package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor/internal/domain"
)

func TestSummarizeSelectsAtMostMaxSentences(t *testing.T) {
	s := NewFrequencySummarizer()
	text := "Algebra uses symbols. Symbols represent numbers. Numbers follow rules. Rules can be learned. Learning takes practice. Practice makes progress."

	out, err := s.Summarize(text, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, strings.Count(out, "."), 2)
	assert.NotEmpty(t, out)
}

func TestSummarizeShortTextPassesThrough(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize("no sentence terminator here", 3)
	require.NoError(t, err)
	assert.Equal(t, "no sentence terminator here", out)
}

func TestSummarizeTurnsIncludesPriorSummary(t *testing.T) {
	s := NewFrequencySummarizer()
	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "How do I study algebra effectively"},
		{Role: domain.RoleAssistant, Content: "Practice algebra problems daily and review mistakes."},
	}

	out, err := s.SummarizeTurns("Earlier the student asked about focus.", turns, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
