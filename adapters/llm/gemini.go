// Package llm backs the search capability with the Gemini API.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultTimeoutSeconds = 30
)

// GeminiSearcher answers search_web tool calls with a short summary
// generated by a Gemini text model.
type GeminiSearcher struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewGeminiSearcher creates the client. apiKey must not be empty.
func NewGeminiSearcher(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiSearcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiSearcher{
		client: client,
		logger: logger,
		model:  model,
	}, nil
}

// Search generates a concise answer for the query, retrying transient
// failures with exponential backoff.
func (g *GeminiSearcher) Search(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeoutSeconds*time.Second)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(
			"Answer the following query with a short factual summary suitable "+
				"for reading aloud. Query: "+query,
			genai.RoleUser,
		),
	}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(0.2)),
		MaxOutputTokens: 512,
	}

	var response *genai.GenerateContentResponse
	operation := func() error {
		var err error
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err != nil {
			g.logger.Warn("Search generation failed, will retry", zap.Error(err))
		}
		return err
	}
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)); err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}
	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", fmt.Errorf("empty search result")
	}
	return text, nil
}
