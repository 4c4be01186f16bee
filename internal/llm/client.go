package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Compile-time interface check.
var _ Transport = (*HTTPClient)(nil)

// HTTPClient talks to an OpenAI-compatible /chat/completions endpoint and
// always requests a streamed response.
type HTTPClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout. Zero disables it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// NewHTTPClient creates a client for model served under baseURL
// (e.g. "https://api.openai.com/v1").
func NewHTTPClient(baseURL, model string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		http: &http.Client{
			Timeout: 10 * time.Minute,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chatRequest is the wire body of a streamed chat completion call.
type chatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
	Stop             []string  `json:"stop,omitempty"`
	Stream           bool      `json:"stream"`
}

// Submit sends messages with params and accumulates the streamed deltas.
// A stream that is cut off is not an error: the partial text is returned
// with Truncated set.
func (c *HTTPClient) Submit(ctx context.Context, messages []Message, params SamplingParams) (Response, error) {
	p := params.WithDefaults()
	body, err := json.Marshal(chatRequest{
		Model:            c.model,
		Messages:         messages,
		MaxTokens:        p.MaxTokens,
		Temperature:      *p.Temperature,
		TopP:             *p.TopP,
		FrequencyPenalty: p.FrequencyPenalty,
		PresencePenalty:  p.PresencePenalty,
		Stop:             p.Stop,
		Stream:           true,
	})
	if err != nil {
		return Response{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("llm: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("llm: chat completion: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return Response{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	return accumulate(ctx, ReadChunks(ctx, resp.Body)), nil
}

// accumulate concatenates the content deltas of every chunk.
func accumulate(ctx context.Context, chunks <-chan Chunk) Response {
	var (
		sb   strings.Builder
		out  Response
		done bool
	)
	for ch := range chunks {
		switch {
		case ch.Err != nil:
			out.Truncated = true
		case ch.Done:
			done = true
		default:
			for _, choice := range ch.Choices {
				sb.WriteString(choice.Delta.Content)
				if choice.FinishReason != nil && *choice.FinishReason != "" {
					done = true
				}
			}
		}
	}
	out.Text = sb.String()
	if !done || ctx.Err() != nil {
		out.Truncated = true
	}
	return out
}

// StatusError is returned when the endpoint answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("llm: chat completion: HTTP %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("llm: chat completion: HTTP %d", e.Code)
}
