// Package gemini implements insight.Generator on top of the Gemini API.
package gemini

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"google.golang.org/genai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-3-flash-preview"

// Config configures the client.
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint. Empty means the SDK default.
	BaseURL string
	// Timeout bounds each call. Zero means no extra bound.
	Timeout time.Duration
}

// Client sends single-turn generation requests.
type Client struct {
	models  *genai.Models
	model   string
	timeout time.Duration
}

// New creates a Client. The API key is required.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errors.Wrap(err, "create genai client")
	}

	return &Client{
		models:  client.Models,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate sends prompt with an optional system instruction and returns the
// response text.
func (c *Client) Generate(ctx context.Context, prompt, systemInstruction string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var gc *genai.GenerateContentConfig
	if systemInstruction != "" {
		gc = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		}
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), gc)
	if err != nil {
		return "", errors.Wrapf(err, "generate content (%s)", c.model)
	}
	return resp.Text(), nil
}
