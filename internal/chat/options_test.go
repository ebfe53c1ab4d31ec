package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractOptions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "numbered list",
			content: "Pick one:\n1. **Strength** training\n2) Cardio\n3. Rest day",
			want:    []string{"Strength training", "Cardio", "Rest day"},
		},
		{
			name:    "bullets of every kind",
			content: "- Walk\n* Swim\n• Cycle",
			want:    []string{"Walk", "Swim", "Cycle"},
		},
		{
			name:    "single option is not a choice",
			content: "Try this:\n1. Stretch",
		},
		{
			name:    "too many options",
			content: "1. a\n2. b\n3. c\n4. d\n5. e\n6. f\n7. g\n8. h\n9. i",
		},
		{
			name:    "prose only",
			content: "How are you feeling today? 3.5 hours of sleep is not enough.",
		},
		{
			name:    "marker without space",
			content: "-not\n1.nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractOptions(tt.content))
		})
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)

	assert.Equal(t, "Just now", RelativeTime(now.Add(-30*time.Second), now))
	assert.Equal(t, "5m ago", RelativeTime(now.Add(-5*time.Minute-10*time.Second), now))
	assert.Equal(t, "3h ago", RelativeTime(now.Add(-3*time.Hour), now))
	assert.Equal(t, "12 Mar 2026", RelativeTime(now.Add(-48*time.Hour), now))
}

func TestSuggestions(t *testing.T) {
	assert.Len(t, Suggestions, 4)
	for _, s := range Suggestions {
		assert.NotEmpty(t, s)
	}
}
