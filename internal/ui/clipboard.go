package ui

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/bz888/leanne/internal/chat"
)

type replySource interface {
	LastReply() (chat.Message, bool)
}

// copyLastReply writes the last finished reply with write and returns the
// notice to show.
func copyLastReply(src replySource, write func(string) error) string {
	reply, ok := src.LastReply()
	if !ok || reply.Content == "" {
		return "No reply to copy yet."
	}
	if err := write(reply.Content); err != nil {
		return "Failed to copy to the clipboard: " + err.Error()
	}
	size := fmt.Sprintf("%d chars", len(reply.Content))
	if len(reply.Content) >= 1000 {
		size = fmt.Sprintf("%.1fK chars", float64(len(reply.Content))/1000)
	}
	return "Copied the reply to the clipboard (" + size + ")."
}

func writeClipboard(text string) error {
	return clipboard.WriteAll(text)
}
