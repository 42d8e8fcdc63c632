package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"filemind/backend/internal/fieldcodec"
	"filemind/backend/internal/models"
)

// Retrieval parameters. The candidate pool is sized before the owner filter
// runs, so a user owning a small slice of the corpus can get fewer than topK
// rows back (see DESIGN.md).
const (
	topK          = 3
	candidatePool = 100
)

const contextSeparator = "\n---\n"

const persona = "You are FileMind, a helpful assistant for a personal file vault. " +
	"Answer the user's question using the provided document excerpts when they are relevant. " +
	"Be concise and factual."

const noContextFallback = "No documents relevant to this question were found in the user's vault."

// FallbackAnswer is returned when the generation call yields no usable text.
const FallbackAnswer = "Sorry, I couldn't come up with an answer for that. Please try rephrasing your question."

// Questions matching these patterns are answered without retrieval.
var smallTalkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(hi|hii+|hello|hey|yo|howdy)\b`),
	regexp.MustCompile(`(?i)^\s*good\s+(morning|afternoon|evening|night)\b`),
	regexp.MustCompile(`(?i)\bhow\s+are\s+you\b`),
	regexp.MustCompile(`(?i)\bwho\s+(are|r)\s+(you|u)\b`),
	regexp.MustCompile(`(?i)\bwhat\s+(can|do)\s+you\s+do\b`),
	regexp.MustCompile(`(?i)\byour\s+name\b`),
	regexp.MustCompile(`(?i)^\s*(thanks|thank\s+you|thx)\b`),
	regexp.MustCompile(`(?i)^\s*(bye|goodbye|see\s+(you|ya))\b`),
	regexp.MustCompile(`(?i)^\s*help\s*[.!?]*\s*$`),
}

// QueryEmbedder turns a question into a vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SimilaritySearcher finds the stored file rows closest to a vector.
type SimilaritySearcher interface {
	VectorSearch(ctx context.Context, ownerUsernameHash string, vector []float32, limit, numCandidates int) ([]models.FileIndex, error)
}

// AnsweringService is the retrieval-augmented question pipeline: classify,
// embed, search, assemble, generate.
type AnsweringService struct {
	embedder QueryEmbedder
	searcher SimilaritySearcher
	gen      Generator
	codec    *fieldcodec.Codec
	log      *zap.SugaredLogger
}

func NewAnsweringService(embedder QueryEmbedder, searcher SimilaritySearcher, gen Generator, codec *fieldcodec.Codec, log *zap.SugaredLogger) *AnsweringService {
	return &AnsweringService{embedder: embedder, searcher: searcher, gen: gen, codec: codec, log: log}
}

// Answer responds to a free-text question for the given user. The answer is
// returned raw and never persisted.
func (s *AnsweringService) Answer(ctx context.Context, usernameHash, question string) (string, error) {
	contextBlob := ""
	if !isSmallTalk(question) {
		blob, err := s.retrieveContext(ctx, usernameHash, question)
		if err != nil {
			return "", err
		}
		contextBlob = blob
	}

	answer, err := s.gen.Generate(ctx, buildPrompt(contextBlob, question))
	if err != nil {
		return "", err
	}
	if answer == "" {
		return FallbackAnswer, nil
	}
	return answer, nil
}

func (s *AnsweringService) retrieveContext(ctx context.Context, usernameHash, question string) (string, error) {
	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", fmt.Errorf("answering: embed question: %w", err)
	}

	rows, err := s.searcher.VectorSearch(ctx, usernameHash, vector, topK, candidatePool)
	if err != nil {
		return "", fmt.Errorf("answering: vector search: %w", err)
	}

	excerpts := make([]string, 0, len(rows))
	for _, row := range rows {
		text, err := s.codec.Decrypt(row.ExtractedText)
		if err != nil {
			// Corrupt rows are skipped, not fatal.
			s.log.Warnw("failed to decrypt extracted text", "pathHash", row.StoragePathHash, "error", err)
			continue
		}
		if text != "" {
			excerpts = append(excerpts, text)
		}
	}
	return strings.Join(excerpts, contextSeparator), nil
}

func isSmallTalk(question string) bool {
	for _, pattern := range smallTalkPatterns {
		if pattern.MatchString(question) {
			return true
		}
	}
	return false
}

func buildPrompt(contextBlob, question string) string {
	if contextBlob == "" {
		contextBlob = noContextFallback
	}
	return persona + "\n\nDocument excerpts:\n" + contextBlob + "\n\nQuestion: " + question
}
