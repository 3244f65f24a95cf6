// Package ai is a small client for the Claude Messages API, shared by the
// proof judge and the companion chat.
package ai

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

const (
	DefaultBaseURL   = "https://api.anthropic.com/v1/messages"
	DefaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 1024
	apiVersion       = "2023-06-01"
	defaultTimeout   = 60 * time.Second
)

// Config holds the connection settings for a Client.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int

	// HTTPClient overrides the default client (used by tests).
	HTTPClient *http.Client
}

// Client sends single, non-streaming requests to the Messages API.
type Client struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	http      *http.Client
}

// New creates a Client, filling unset fields with defaults.
func New(cfg Config) *Client {
	c := &Client{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		http:      cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	return c
}

// Model returns the model name requests are sent with.
func (c *Client) Model() string { return c.model }

// Block is one piece of message content: text or a base64 image.
type Block struct {
	Text      string
	ImageData string // base64, no data URL prefix
	MediaType string
}

// TextBlock returns a text content block.
func TextBlock(s string) Block { return Block{Text: s} }

// ImageBlock returns a base64 image content block.
func ImageBlock(mediaType, data string) Block {
	return Block{ImageData: data, MediaType: mediaType}
}

// Turn is one message of a conversation.
type Turn struct {
	Role   Role
	Blocks []Block
}

// Request is a single completion request.
type Request struct {
	System string
	Turns  []Turn
}

// Complete sends req and returns the concatenated text of the reply.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	body := apiRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    req.System,
		Messages:  make([]apiMessage, 0, len(req.Turns)),
	}
	for _, turn := range req.Turns {
		msg := apiMessage{Role: string(turn.Role)}
		for _, b := range turn.Blocks {
			msg.Content = append(msg.Content, b.toAPI())
		}
		body.Messages = append(body.Messages, msg)
	}

	resp, err := c.callAPI(ctx, body)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, ""), nil
}

func (b Block) toAPI() apiContentBlock {
	if b.ImageData != "" {
		return apiContentBlock{
			Type: "image",
			Source: &apiImageSource{
				Type:      "base64",
				MediaType: b.MediaType,
				Data:      b.ImageData,
			},
		}
	}
	return apiContentBlock{Type: "text", Text: b.Text}
}

// callAPI makes a single request to the Claude Messages API.
func (c *Client) callAPI(ctx context.Context, reqBody apiRequest) (*apiResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, &APIError{Status: resp.StatusCode, Type: apiErr.Error.Type, Message: apiErr.Error.Message}
		}
		return nil, &APIError{Status: resp.StatusCode, Message: string(respBody)}
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// APIError is a non-200 response from the API.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

// --- Claude API types ---

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *apiImageSource `json:"source,omitempty"`
}

type apiImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type apiResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Role       string            `json:"role"`
	Content    []apiContentBlock `json:"content"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
