package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion parameters.
type Completion struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Completer produces the assistant reply to a conversation.
type Completer interface {
	Complete(ctx context.Context, req Completion) (string, error)
}

// ErrEmptyCompletion is returned when the model sends no choices.
var ErrEmptyCompletion = errors.New("advisor: empty completion")

// Compile-time interface check.
var _ Completer = (*ChatClient)(nil)

// ChatClient talks to an OpenAI-compatible chat completions endpoint. With
// an API version set it uses the Azure OpenAI deployment URL layout.
type ChatClient struct {
	http       *http.Client
	endpoint   string
	model      string
	apiKey     string
	apiVersion string
}

// ClientOption configures a ChatClient.
type ClientOption func(*ChatClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *ChatClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *ChatClient) {
		c.http = hc
	}
}

// WithAPIKey sets the key sent with every request.
func WithAPIKey(key string) ClientOption {
	return func(c *ChatClient) {
		c.apiKey = key
	}
}

// WithAzureAPIVersion switches to the Azure OpenAI URL layout, where the
// model names a deployment.
func WithAzureAPIVersion(v string) ClientOption {
	return func(c *ChatClient) {
		c.apiVersion = v
	}
}

// NewChatClient creates a client for the API rooted at endpoint, e.g.
// "https://api.openai.com/v1".
func NewChatClient(endpoint, model string, opts ...ClientOption) *ChatClient {
	c := &ChatClient{
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

func (c *ChatClient) url() string {
	if c.apiVersion == "" {
		return c.endpoint + "/chat/completions"
	}
	return fmt.Sprintf("%s/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(c.model), url.QueryEscape(c.apiVersion))
}

// Complete sends one chat completion request and returns the first choice.
func (c *ChatClient) Complete(ctx context.Context, req Completion) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("advisor: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("advisor: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		if c.apiVersion != "" {
			httpReq.Header.Set("api-key", c.apiKey)
		} else {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("advisor: chat completion: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("advisor: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("advisor: chat completion: HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("advisor: decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("advisor: chat completion: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}
