package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/bz888/leanne/internal/api/server/client"
	"github.com/bz888/leanne/internal/chat"
	"github.com/bz888/leanne/internal/speech"
	"github.com/rivo/tview"
)

const cursor = "▌"

// chipsFor returns the quick answers offered under the conversation: the
// starter suggestions for an empty conversation, otherwise the options of
// the last finished reply.
func chipsFor(messages []chat.Message, streaming bool) []string {
	if len(messages) == 0 {
		return chat.Suggestions
	}
	if streaming {
		return nil
	}
	last := messages[len(messages)-1]
	if last.Role != client.RoleAssistant {
		return nil
	}
	return chat.ExtractOptions(last.Content)
}

func formatConversation(messages []chat.Message, streaming bool, now time.Time) string {
	var b strings.Builder
	for i, m := range messages {
		switch m.Role {
		case client.RoleUser:
			fmt.Fprintf(&b, "[red::]You:[-] [gray]· %s[-]\n", chat.RelativeTime(m.Timestamp, now))
		default:
			fmt.Fprintf(&b, "[green::]Leanne:[-] [gray]· %s[-]\n", chat.RelativeTime(m.Timestamp, now))
		}
		b.WriteString(tview.Escape(m.Content))
		if streaming && i == len(messages)-1 {
			b.WriteString(cursor)
		}
		b.WriteString("\n\n")
	}

	chips := chipsFor(messages, streaming)
	if len(chips) > 0 {
		if len(messages) == 0 {
			b.WriteString("[yellow::]Try asking:[-]\n")
		}
		for i, chip := range chips {
			fmt.Fprintf(&b, "  [yellow]/%d[-] %s\n", i+1, tview.Escape(chip))
		}
	}
	return b.String()
}

func formatClock(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func formatVoiceStatus(s speech.State) string {
	settings := fmt.Sprintf("vol %d%%  rate %.1fx", int(s.Volume*100+0.5), s.Rate)
	if !s.Playing {
		return "Voice idle  " + settings
	}
	icon := "▶"
	if s.Paused {
		icon = "⏸"
	}
	return fmt.Sprintf("%s %s / %s  %s", icon, formatClock(s.Elapsed), formatClock(s.Duration), settings)
}
