// Package completion provides the production CompletionClient backed by
// Google's GenAI API.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/careerscout-labs/resumeanalysis/engine/stages"
)

// GenAIClient implements stages.CompletionClient over the GenAI API.
type GenAIClient struct {
	client *genai.Client
	logger stages.Logger
}

// NewGenAIClient creates a client authenticated with apiKey.
func NewGenAIClient(ctx context.Context, apiKey string, logger stages.Logger) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIClient{
		client: client,
		logger: logger.Bind("component", "genai"),
	}, nil
}

// Complete implements stages.CompletionClient. Rate-limit and server-side
// failures come back marked transient so the scheduler retries them.
func (c *GenAIClient) Complete(ctx context.Context, req stages.Request) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.Shape == stages.ShapeJSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*req.MaxTokens)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", c.classify(err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("model %s returned empty response", req.Model)
	}
	return text, nil
}

// classify marks retryable API failures as transient.
func (c *GenAIClient) classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return stages.MarkTransient(err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			c.logger.Warn("genai_transient_error", "code", apiErr.Code, "error", err.Error())
			return stages.MarkTransient(err)
		}
	}
	return fmt.Errorf("generate content: %w", err)
}
