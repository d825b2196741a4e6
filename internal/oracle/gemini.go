package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration

	// BaseURL and HTTPClient override the public endpoint, for tests.
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiClient sends prompts to the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.HTTPClient != nil {
		cc.HTTPClient = cfg.HTTPClient
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL, APIVersion: "v1beta"}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClient{client: client, model: cfg.Model, timeout: timeout}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.model,
		genai.Text(req.Prompt),
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(req.Temperature),
			MaxOutputTokens: req.MaxTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate %s: %w", req.Kind, err)
	}
	if result == nil {
		return "", ErrEmptyReply
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
