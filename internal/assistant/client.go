// Package assistant wraps the Gemini generateContent API for the in-app
// finance assistant and for category suggestions.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
)

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL overrides the Gemini endpoint. Used in tests.
func WithBaseURL(url string) Option {
	return func(cl *Client) {
		cl.baseURL = url
	}
}

func WithModel(model string) Option {
	return func(cl *Client) {
		cl.model = model
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *content  `json:"system_instruction,omitempty"`
	Contents          []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Message is one turn of an assistant conversation. Role is "user" or "model".
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

const chatSystemPrompt = "You are Lumina, a concise personal finance assistant for couples. " +
	"Answer questions about budgeting, spending, and savings using the context provided. " +
	"Keep answers short and practical. Never invent transactions that are not in the context."

// Chat sends a conversation with optional financial context prepended and
// returns the model reply.
func (c *Client) Chat(ctx context.Context, financialContext string, history []Message) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("assistant not configured: missing API key")
	}
	if len(history) == 0 {
		return "", fmt.Errorf("empty conversation")
	}

	system := chatSystemPrompt
	if financialContext != "" {
		system += "\n\nContext:\n" + financialContext
	}

	req := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: system}}},
	}
	for _, m := range history {
		role := m.Role
		if role != "model" {
			role = "user"
		}
		req.Contents = append(req.Contents, content{Role: role, Parts: []part{{Text: m.Text}}})
	}

	return c.generate(ctx, req)
}

// SuggestCategory asks the model to pick the best matching category name for
// a transaction description. Returns "" when no category fits.
func (c *Client) SuggestCategory(ctx context.Context, description string, categories []string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("assistant not configured: missing API key")
	}
	if description == "" || len(categories) == 0 {
		return "", nil
	}

	prompt := fmt.Sprintf(
		"Pick the single best category for this transaction description.\nDescription: %s\nCategories: %s\nReply with exactly one category name from the list, or NONE.",
		description, strings.Join(categories, ", "),
	)
	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}

	reply, err := c.generate(ctx, req)
	if err != nil {
		return "", err
	}

	reply = strings.TrimSpace(reply)
	for _, name := range categories {
		if strings.EqualFold(reply, name) {
			return name, nil
		}
	}
	return "", nil
}

func (c *Client) generate(ctx context.Context, payload generateRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("assistant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("assistant API returned status %d", resp.StatusCode)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode assistant response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("assistant returned no candidates")
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}
