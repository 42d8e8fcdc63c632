package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	embeddingModel  = "gemini-embedding-001"
	generationModel = "gemini-2.0-flash"
)

// AIService generates embeddings and answers through the Gemini API.
type AIService struct {
	client *genai.Client
}

func NewAIService(ctx context.Context, apiKey string) (*AIService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ai: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("ai: %w", err)
	}
	return &AIService{client: client}, nil
}

// EmbedDocument embeds text extracted from a stored file.
func (a *AIService) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return a.embed(ctx, text, "RETRIEVAL_DOCUMENT")
}

// EmbedQuery embeds a user question for similarity search.
func (a *AIService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return a.embed(ctx, text, "RETRIEVAL_QUERY")
}

func (a *AIService) embed(ctx context.Context, text string, task string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	result, err := a.client.Models.EmbedContent(ctx, embeddingModel, contents, &genai.EmbedContentConfig{
		TaskType: task,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: embed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("ai: embed: no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

// Generate runs a single-turn completion and returns the first candidate's
// text. A response with no usable candidate returns "", which the caller
// replaces with its fallback answer.
func (a *AIService) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Models.GenerateContent(ctx, generationModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("ai: generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}
