package classifier

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	cls := NewClassifier(slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name     string
		outfit   string
		memo     string
		items    []string
		expected string
	}{
		{
			name:     "winter layers",
			items:    []string{"Puffer", "thermal leggings", "snow boots"},
			expected: "Freezing",
		},
		{
			name:     "wool coat",
			outfit:   "Office winter",
			items:    []string{"Wool coat", "scarf"},
			expected: "Cold",
		},
		{
			name:     "light layers",
			items:    []string{"grey hoodie", "chinos"},
			expected: "Cool",
		},
		{
			name:     "skirt is not ski wear",
			items:    []string{"pleated skirt", "blouse"},
			expected: "Warm",
		},
		{
			name:     "beach",
			memo:     "beach day",
			items:    []string{"Tank top", "shorts", "sandals"},
			expected: "Hot",
		},
		{
			name:     "no signal",
			outfit:   "Untitled",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cls.Classify(tt.outfit, tt.memo, tt.items))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
