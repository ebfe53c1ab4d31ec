// Package chat runs conversation turns against a streaming completion API.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bz888/leanne/internal/api/server/client"
	"github.com/bz888/leanne/internal/generation"
	"github.com/bz888/leanne/internal/logger"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// FallbackReply replaces the assistant message when a turn fails.
const FallbackReply = "Sorry, I encountered an error. Please try again."

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrTurnInProgress = errors.New("a reply is still streaming")
)

type Message struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Renderer observes the assistant message while it streams. Render is called
// from the goroutine running Send.
type Renderer interface {
	Render(Message)
}

type RendererFunc func(Message)

func (f RendererFunc) Render(m Message) { f(m) }

type Options struct {
	// RenderInterval is the minimum time between two renders of a streaming
	// reply. Zero renders after every delta.
	RenderInterval time.Duration
	// Now is the clock used for timestamps.
	Now func() time.Time
}

// Session is one conversation. At most one turn streams at a time.
type Session struct {
	streamer Streamer
	interval time.Duration
	now      func() time.Time
	log      *logger.Logger

	turns generation.Source

	mu        sync.Mutex
	messages  []Message
	streaming bool
	cancel    context.CancelFunc
}

func NewSession(streamer Streamer, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		streamer: streamer,
		interval: opts.RenderInterval,
		now:      opts.Now,
		log:      logger.NewLogger("chat session"),
	}
}

// Send appends text as a user message and streams the assistant reply into
// the conversation. It returns the final assistant message.
//
// If the turn fails the reply becomes FallbackReply and the cause is
// returned. If ctx is canceled or Stop is called the partial reply is kept
// and the returned error matches client.ErrCanceled.
func (s *Session) Send(ctx context.Context, text string, r Renderer) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	if r == nil {
		r = RendererFunc(func(Message) {})
	}

	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return Message{}, ErrTurnInProgress
	}
	token := s.turns.Next()
	now := s.now()
	s.messages = append(s.messages,
		Message{ID: uuid.New(), Role: client.RoleUser, Content: text, Timestamp: now},
		Message{ID: uuid.New(), Role: client.RoleAssistant, Timestamp: now},
	)
	index := len(s.messages) - 1
	reply := s.messages[index]
	history := make([]client.ChatMessage, 0, index)
	for _, m := range s.messages[:index] {
		history = append(history, client.ChatMessage{Role: m.Role, Content: m.Content})
	}
	turnCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.streaming = true
	s.mu.Unlock()
	defer cancel()

	s.log.Info("Turn", token.ID(), "started with", len(history), "messages")
	r.Render(reply)

	err := s.stream(turnCtx, history, token, index, r)

	s.mu.Lock()
	if !token.Valid() {
		// Stop or Reset already ended this turn. After Stop the partial
		// reply is still in the conversation.
		if index < len(s.messages) && s.messages[index].ID == reply.ID {
			reply = s.messages[index]
		}
		s.mu.Unlock()
		s.log.Info("Turn", token.ID(), "superseded")
		return reply, fmt.Errorf("%w: turn stopped", client.ErrCanceled)
	}
	switch {
	case err == nil:
	case errors.Is(err, client.ErrCanceled):
		s.log.Info("Turn", token.ID(), "canceled")
	default:
		s.log.Error("Turn", token.ID(), "failed:", err)
		s.messages[index].Content = FallbackReply
	}
	reply = s.messages[index]
	s.streaming = false
	s.cancel = nil
	s.mu.Unlock()

	r.Render(reply)
	return reply, err
}

func (s *Session) stream(ctx context.Context, history []client.ChatMessage, token generation.Token, index int, r Renderer) error {
	stream, err := s.streamer.Stream(ctx, history)
	if err != nil {
		return err
	}
	defer stream.Close()

	limit := rate.Inf
	if s.interval > 0 {
		limit = rate.Every(s.interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		s.mu.Lock()
		if !token.Valid() {
			s.mu.Unlock()
			return nil
		}
		s.messages[index].Content += delta
		snapshot := s.messages[index]
		s.mu.Unlock()

		if limiter.Allow() {
			r.Render(snapshot)
		}
	}
}

// Stop ends the running turn. Deltas that arrive afterwards are dropped.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	s.turns.Invalidate()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.streaming = false
}

// Reset stops any running turn and starts an empty conversation.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.messages = nil
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// LastReply returns the most recent finished assistant message.
func (s *Session) LastReply() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	end := len(s.messages)
	if s.streaming {
		end--
	}
	for i := end - 1; i >= 0; i-- {
		if s.messages[i].Role == client.RoleAssistant && s.messages[i].Content != "" {
			return s.messages[i], true
		}
	}
	return Message{}, false
}
