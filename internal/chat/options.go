package chat

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Suggestions are offered before the first message.
var Suggestions = []string{
	"What is your current fitness level and goals for 2026?",
	"Can you share your thoughts on diet adherence and progress?",
	"How is Anika Sharma responding to the new workout plan?",
	"What adjustments should we make to David Lee's cardio routine?",
}

var (
	numberedOption = regexp.MustCompile(`^\d+[.)]\s+(.+)`)
	bulletOption   = regexp.MustCompile(`^[-*•]\s+(.+)`)
)

const (
	minOptions = 2
	maxOptions = 8
)

// ExtractOptions returns the numbered or bulleted items of a reply so they
// can be offered as quick answers. Nil unless there are 2 to 8 items.
func ExtractOptions(content string) []string {
	var options []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		match := numberedOption.FindStringSubmatch(line)
		if match == nil {
			match = bulletOption.FindStringSubmatch(line)
		}
		if match == nil {
			continue
		}
		options = append(options, strings.TrimSpace(strings.ReplaceAll(match[1], "**", "")))
	}
	if len(options) < minOptions || len(options) > maxOptions {
		return nil
	}
	return options
}

// RelativeTime formats t relative to now for message headers.
func RelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	default:
		return t.Local().Format("2 Jan 2006")
	}
}
