// Package gemini generates narrative text through the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/agro-analytics-service/internal/observability"
	"google.golang.org/genai"
)

// ErrEmptyCompletion is returned when the model answers without any text,
// for example because the prompt was blocked.
var ErrEmptyCompletion = errors.New("gemini returned no text")

// Options configure a Client.
type Options struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	// BaseURL overrides the API endpoint. Empty means the public endpoint.
	BaseURL string
}

// Client implements report.TextGenerator against the Gemini API.
type Client struct {
	genai   *genai.Client
	model   string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a Gemini client for the configured model. Each call is
// bounded by opts.Timeout.
func NewClient(ctx context.Context, opts Options, logger *slog.Logger, metrics *observability.Metrics) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: opts.Timeout},
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = opts.BaseURL
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{
		genai:   client,
		model:   opts.Model,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// GenerateText sends a single-turn prompt and returns the text of the first
// candidate.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	c.metrics.NarrativeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := completionText(resp)
	if text == "" {
		reason := emptyReason(resp)
		c.logger.Warn("gemini returned no text", "model", c.model, "reason", reason)
		return "", fmt.Errorf("%w (reason %q)", ErrEmptyCompletion, reason)
	}
	c.logger.Debug("gemini completion received", "model", c.model, "chars", len(text))
	return text, nil
}

func completionText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return strings.TrimSpace(resp.Text())
}

// emptyReason explains a response without text: a prompt block reason when
// present, otherwise the first candidate's finish reason.
func emptyReason(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return string(resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		return string(resp.Candidates[0].FinishReason)
	}
	return ""
}
