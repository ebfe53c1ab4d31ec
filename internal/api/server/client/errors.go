package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

const (
	// APIKeyEnv names the credential in user-facing messages.
	APIKeyEnv = "OPENAI_API_KEY"

	maxErrorBodyRunes = 200
)

// ErrCanceled is returned when the caller abandoned the request. It is not a
// failure of the upstream service.
var ErrCanceled = errors.New("request canceled")

// ConfigurationError reports a setting that is required before any request
// can be made.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("OpenAI API key is not configured: set %s in the environment or a .env file", e.Key)
}

// AuthError is an HTTP 401 from the API.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s (check %s)", e.Message, APIKeyEnv)
}

// RateLimitError is an HTTP 429 from the API. Nothing retries it automatically.
type RateLimitError struct {
	StatusCode int
	Message    string
}

func (e *RateLimitError) Error() string {
	return e.Message + ": please try again later"
}

// TransportError covers every other non-success status and network failures.
// StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("openai request failed: %v", e.Err)
	}
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorFromResponse converts a non-success response into a typed error.
// A message found at error.message in a JSON body wins over the defaults.
func ErrorFromResponse(statusCode int, body []byte) error {
	message, found := errorMessage(statusCode, body)

	switch statusCode {
	case http.StatusUnauthorized:
		if !found {
			message = "invalid or expired API key"
		}
		return &AuthError{StatusCode: statusCode, Message: message}
	case http.StatusTooManyRequests:
		if !found {
			message = "rate limit exceeded"
		}
		return &RateLimitError{StatusCode: statusCode, Message: message}
	default:
		return &TransportError{StatusCode: statusCode, Message: message}
	}
}

func errorMessage(statusCode int, body []byte) (string, bool) {
	fallback := fmt.Sprintf("OpenAI API error %d", statusCode)

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return fallback, false
	}
	if !gjson.ValidBytes(body) {
		return fallback + ": " + truncateRunes(string(body), maxErrorBodyRunes), false
	}
	if msg := gjson.GetBytes(body, "error.message"); msg.Type == gjson.String && msg.Str != "" {
		return msg.Str, true
	}
	return fallback, false
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func canceled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))
}

// Describe returns the text to show a user for err.
func Describe(err error) string {
	var (
		cfgErr  *ConfigurationError
		authErr *AuthError
		rateErr *RateLimitError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCanceled):
		return "Stopped."
	case errors.As(err, &cfgErr):
		return cfgErr.Error()
	case errors.As(err, &authErr):
		return fmt.Sprintf("Invalid or expired API key. Check your %s.", APIKeyEnv)
	case errors.As(err, &rateErr):
		return "Rate limit exceeded. Please try again later."
	default:
		return err.Error()
	}
}
