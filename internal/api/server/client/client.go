package client

import (
	"fmt"
	"net/http"
	"net/url"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Client represents a client for the API
type Client struct {
	base      *url.URL
	http      *http.Client
	chatUrl   *url.URL
	speechUrl *url.URL
}

// ClientConfig holds the configuration for the client
type ClientConfig struct {
	BaseURL    string
	ChatPath   string
	SpeechPath string
	HTTPClient *http.Client
}

// NewClient creates a new API client with configurable base URL and endpoints
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", config.BaseURL, err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		// no timeout: a streamed reply is bounded by the caller's context
		httpClient = &http.Client{}
	}

	return &Client{
		base:      baseURL,
		http:      httpClient,
		chatUrl:   baseURL.JoinPath(config.ChatPath),
		speechUrl: baseURL.JoinPath(config.SpeechPath),
	}, nil
}

func (c *Client) GetChatURL() string {
	return c.chatUrl.String()
}

func (c *Client) GetSpeechURL() string {
	return c.speechUrl.String()
}

func (c *Client) HTTPClient() *http.Client {
	return c.http
}
