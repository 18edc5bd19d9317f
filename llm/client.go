// Package llm provides the language-model client used for document
// extraction and natural-language queries. The only implementation talks
// to an OpenAI-compatible chat-completions endpoint; tests inject fakes
// through the Client interface.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the minimal completion surface the rest of the system needs.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Request is a single completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response carries the model output plus usage accounting.
type Response struct {
	Text       string
	Model      string
	TokensUsed int
}

// HTTPClient calls an OpenAI-compatible /chat/completions endpoint.
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	hc      *http.Client
}

// HTTPOption customises an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption { return func(c *HTTPClient) { c.hc = hc } }

// WithTimeout sets the request timeout. Default: 120s — extraction on long
// OCR text routinely takes over a minute on slower providers.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) { c.hc.Timeout = d }
}

// NewHTTPClient builds a client for the given endpoint.
// baseURL is the API root, e.g. "https://api.openai.com/v1".
func NewHTTPClient(baseURL, apiKey, model string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		hc:      &http.Client{Timeout: 120 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends a chat-completions request and returns the first choice.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (Response, error) {
	msgs := make([]chatMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Response{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Response{}, fmt.Errorf("llm: read response: %w", err)
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return Response{}, fmt.Errorf("llm: decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if cr.Error != nil {
			return Response{}, fmt.Errorf("llm: api error (status %d): %s", resp.StatusCode, cr.Error.Message)
		}
		return Response{}, fmt.Errorf("llm: unexpected status %d", resp.StatusCode)
	}
	if len(cr.Choices) == 0 {
		return Response{}, fmt.Errorf("llm: response has no choices")
	}

	return Response{
		Text:       cr.Choices[0].Message.Content,
		Model:      cr.Model,
		TokensUsed: cr.Usage.TotalTokens,
	}, nil
}
