package chat

import (
	"context"

	"github.com/bz888/leanne/internal/api/server/client"
)

// Stream yields the text deltas of one reply. Recv returns io.EOF at the end.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Streamer opens a reply stream for a conversation, oldest message first.
type Streamer interface {
	Stream(ctx context.Context, messages []client.ChatMessage) (Stream, error)
}

type openAIStreamer struct {
	client *client.OpenAIClient
}

// OpenAI adapts an OpenAI client to Streamer.
func OpenAI(c *client.OpenAIClient) Streamer {
	return &openAIStreamer{client: c}
}

func (o *openAIStreamer) Stream(ctx context.Context, messages []client.ChatMessage) (Stream, error) {
	s, err := o.client.Stream(ctx, messages)
	if err != nil {
		return nil, err
	}
	return s, nil
}
