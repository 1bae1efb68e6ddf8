package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Positive(t, EstimateTokens("navy wool overcoat"))
	assert.Greater(t, EstimateTokens(strings.Repeat("word ", 100)), EstimateTokens("word"))
}

func TestTruncateToTokenBudget(t *testing.T) {
	assert.Equal(t, "", TruncateToTokenBudget("anything", 0))
	assert.Equal(t, "short", TruncateToTokenBudget("short", 10))

	long := strings.Repeat("linen shirt ", 50)
	got := TruncateToTokenBudget(long, 5)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len([]rune(got)), 5*4+3)
}

func TestTruncateToTokenBudget_MultiByte(t *testing.T) {
	text := strings.Repeat("シャツ", 40)
	got := TruncateToTokenBudget(text, 3)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, 12+3, len([]rune(got)), "cuts on runes, not bytes")
}

func TestJoinWithBudget(t *testing.T) {
	s, n := JoinWithBudget(nil, ", ", 10)
	assert.Equal(t, "", s)
	assert.Zero(t, n)

	items := []string{"tee", "jeans", "sneakers", "denim jacket", "cap"}
	s, n = JoinWithBudget(items, ", ", 1000)
	assert.Equal(t, 5, n)
	assert.Equal(t, "tee, jeans, sneakers, denim jacket, cap", s)

	s, n = JoinWithBudget(items, ", ", 4)
	assert.Less(t, n, 5)
	assert.True(t, strings.HasPrefix(s, "tee"))
}
