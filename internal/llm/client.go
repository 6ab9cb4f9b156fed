// Package llm provides the text-generation and content-rating client used by
// the batch jobs. Generation produces alternative renderings of an item's
// content; rating asks the model to score a text out of 100.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultGenerationModel is used when a generation request names no model.
const DefaultGenerationModel = "gemini-2.5-flash"

// DefaultRatingModel is the cheap model used for content rating.
const DefaultRatingModel = "gemini-2.5-flash-lite"

// DefaultMaxTokens bounds generated alternative content when the caller does
// not set a limit.
const DefaultMaxTokens = 8000

// Client is the provider abstraction the jobs talk to. A batch run treats a
// failed call as item-scoped unless IsAuthError reports it as a rejected
// credential, which aborts the whole batch.
type Client interface {
	// GenerateAltContent sends the prompt plus the item's base content to
	// the provider and returns the generated alternative text along with
	// the number of tokens it produced.
	GenerateAltContent(ctx context.Context, prompt, content string) (text string, tokens int, err error)
	// RateContent asks the provider to score the text and returns the
	// extracted rating in [0,100].
	RateContent(ctx context.Context, content string) (int, error)
	// Close releases any resources held by the client.
	Close() error
}

// Config holds per-request provider settings supplied by the job config.
type Config struct {
	GenerationModel string
	RatingModel     string
	MaxTokens       int
}

func (c *Config) withDefaults() Config {
	out := Config{GenerationModel: DefaultGenerationModel, RatingModel: DefaultRatingModel, MaxTokens: DefaultMaxTokens}
	if c == nil {
		return out
	}
	if c.GenerationModel != "" {
		out.GenerationModel = c.GenerationModel
	}
	if c.RatingModel != "" {
		out.RatingModel = c.RatingModel
	}
	if c.MaxTokens > 0 {
		out.MaxTokens = c.MaxTokens
	}
	return out
}

// GeminiClient implements Client for Google Gemini.
type GeminiClient struct {
	client *genai.Client
	config Config
}

// NewGeminiClient creates a Gemini-backed client. A missing API key is a
// configuration error, never a per-item one.
func NewGeminiClient(ctx context.Context, cfg *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, config: cfg.withDefaults()}, nil
}

// GenerateAltContent generates one alternative rendering of the content.
func (c *GeminiClient) GenerateAltContent(ctx context.Context, prompt, content string) (string, int, error) {
	model := c.client.GenerativeModel(c.config.GenerationModel)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(int32(c.config.MaxTokens))

	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf("%s\n\nContent: %s", prompt, content)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", 0, err
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return text, tokens, nil
}

// RateContent scores the content out of 100. The model is instructed to
// embed the score between hash marks; the numeric value is extracted from
// the response text.
func (c *GeminiClient) RateContent(ctx context.Context, content string) (int, error) {
	model := c.client.GenerativeModel(c.config.RatingModel)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(300)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(ratingSystemPrompt)}}

	resp, err := model.GenerateContent(ctx, genai.Text(content))
	if err != nil {
		return 0, fmt.Errorf("failed to rate content: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return 0, err
	}

	return ExtractRating(text)
}

// Close releases resources held by the client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAuthError reports whether the provider rejected the credential. Auth
// failures abort a batch instead of being recorded per item.
func IsAuthError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 401 || apiErr.Code == 403
	}
	return false
}

// extractText flattens the text parts of a provider response.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
