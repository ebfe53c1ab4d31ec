package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bz888/leanne/internal/logger"
	"github.com/bz888/leanne/internal/sse"
)

const (
	DefaultModel = "gpt-4o-mini"

	DefaultSystemPrompt = "You are Leanne, a warm and insightful AI wellness and life coach. " +
		"You respond with empathy, clarity, and genuine curiosity about the person you're helping. " +
		"Keep your responses conversational but thoughtful, typically 2-3 short paragraphs. " +
		"Ask follow-up questions to understand the user better. " +
		"Never use markdown formatting, bullet points, or numbered lists; write in natural flowing prose."

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 1 << 20
)

// OpenAIClient represents a client for the OpenAI API
type OpenAIClient struct {
	Client
	apiKey       string
	model        string
	systemPrompt string
}

type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	HTTPClient   *http.Client
}

// NewOpenAIClient creates a new OpenAI API client. An empty API key is
// accepted here and reported by Stream.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	base, err := NewClient(ClientConfig{
		BaseURL:    cfg.BaseURL,
		ChatPath:   "chat/completions",
		SpeechPath: "audio/speech",
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	return &OpenAIClient{
		Client:       *base,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

func (c *OpenAIClient) Model() string {
	return c.model
}

// Configured reports whether a credential is present.
func (c *OpenAIClient) Configured() bool {
	return c.apiKey != ""
}

// APIKey returns the credential, or a *ConfigurationError when it is missing.
func (c *OpenAIClient) APIKey() (string, error) {
	if c.apiKey == "" {
		return "", &ConfigurationError{Key: APIKeyEnv}
	}
	return c.apiKey, nil
}

// Stream opens a streamed completion for messages (oldest first). The system
// prompt is prepended. Cancelling ctx aborts the request and any read in
// progress on the returned stream.
func (c *OpenAIClient) Stream(ctx context.Context, messages []ChatMessage) (*ChatStream, error) {
	localLogger := logger.NewLogger("openai stream chat")

	apiKey, err := c.APIKey()
	if err != nil {
		return nil, err
	}

	payload := OpenAIChatRequest{
		Model:    c.model,
		Messages: append([]ChatMessage{{Role: RoleSystem, Content: c.systemPrompt}}, messages...),
		Stream:   true,
	}
	bts, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.GetChatURL(), bytes.NewReader(bts))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "text/event-stream")
	request.Header.Set("Authorization", "Bearer "+apiKey)

	response, err := c.http.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return nil, canceled(ctx)
		}
		localLogger.Error("Chat request failed:", err)
		return nil, &TransportError{Err: err}
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		defer response.Body.Close()
		body, err := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
		if err != nil {
			if ctx.Err() != nil {
				return nil, canceled(ctx)
			}
			return nil, &TransportError{StatusCode: response.StatusCode, Err: err}
		}
		apiErr := ErrorFromResponse(response.StatusCode, body)
		localLogger.Error("Received error response:", apiErr)
		return nil, apiErr
	}

	localLogger.Info("Stream opened, model:", c.model, "messages:", len(payload.Messages))
	return &ChatStream{
		ctx:  ctx,
		body: response.Body,
		dec:  sse.NewDecoder(response.Body),
	}, nil
}

// ChatStream is one streamed reply. It is not safe for concurrent use.
type ChatStream struct {
	ctx  context.Context
	body io.ReadCloser
	dec  *sse.Decoder
	err  error
}

// Recv returns the next text delta. At the end of the reply it returns
// io.EOF. Once the request context is done it returns an error matching
// ErrCanceled and no further deltas; other read failures come back as a
// *TransportError.
func (s *ChatStream) Recv() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.ctx.Err() != nil {
		s.err = canceled(s.ctx)
		return "", s.err
	}

	delta, err := s.dec.Recv()
	switch {
	case err == nil:
		return delta, nil
	case err == io.EOF:
		s.err = io.EOF
	case s.ctx.Err() != nil:
		s.err = canceled(s.ctx)
	default:
		s.err = &TransportError{Err: err}
	}
	return "", s.err
}

func (s *ChatStream) Close() error {
	return s.body.Close()
}
