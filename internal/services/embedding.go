package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"alfredoptarigan/talent-matcher/internal/logger"
)

// maxEmbedInputRunes keeps requests under the backend's input token limit.
const maxEmbedInputRunes = 40000

// EmbeddingClient turns text into a vector. Embed never fails: any problem is
// logged and reported as an empty vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) []float32
	Model() string
	Dimensions() int
}

type EmbeddingOptions struct {
	Model             string
	Dimensions        int
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxInFlight       int
}

// contentEmbedder is the part of *genai.Models the client uses.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type geminiEmbeddingClient struct {
	models  contentEmbedder
	opts    EmbeddingOptions
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewEmbeddingClient builds a Gemini backed client. Without an API key it
// returns a client that always reports the embedding as unavailable.
func NewEmbeddingClient(ctx context.Context, apiKey string, opts EmbeddingOptions, log *zap.Logger) (EmbeddingClient, error) {
	log = logger.WithModel(log, opts.Model)

	if apiKey == "" {
		log.Warn("gemini api key is not set, semantic scoring disabled")
		return &noopEmbeddingClient{opts: opts}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newGeminiEmbeddingClient(client.Models, opts, log), nil
}

func newGeminiEmbeddingClient(models contentEmbedder, opts EmbeddingOptions, log *zap.Logger) *geminiEmbeddingClient {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &geminiEmbeddingClient{
		models:  models,
		opts:    opts,
		sem:     semaphore.NewWeighted(int64(opts.MaxInFlight)),
		limiter: rate.NewLimiter(limit, opts.MaxInFlight),
		log:     logger.OrNop(log),
	}
}

func (g *geminiEmbeddingClient) Model() string {
	return g.opts.Model
}

func (g *geminiEmbeddingClient) Dimensions() int {
	return g.opts.Dimensions
}

// Embed implements EmbeddingClient.
func (g *geminiEmbeddingClient) Embed(ctx context.Context, text string) []float32 {
	text = strings.TrimSpace(text)
	if text == "" {
		g.log.Warn("skipping embedding of empty text")
		return []float32{}
	}

	if runes := []rune(text); len(runes) > maxEmbedInputRunes {
		text = string(runes[:maxEmbedInputRunes])
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		g.log.Warn("embedding slot not acquired", zap.Error(err))
		return []float32{}
	}
	defer g.sem.Release(1)

	if err := g.limiter.Wait(ctx); err != nil {
		g.log.Warn("embedding rate limit wait failed", zap.Error(err))
		return []float32{}
	}

	// the timeout covers the backend call only, not time spent queued
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	var config *genai.EmbedContentConfig
	if g.opts.Dimensions > 0 {
		dims := int32(g.opts.Dimensions)
		config = &genai.EmbedContentConfig{OutputDimensionality: &dims}
	}

	started := time.Now()
	result, err := g.models.EmbedContent(ctx, g.opts.Model, genai.Text(text), config)
	if err != nil {
		g.log.Warn("failed to generate embedding",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(started)),
			zap.String("text", logger.TruncateForLog(text, 80)),
		)
		return []float32{}
	}

	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil || len(result.Embeddings[0].Values) == 0 {
		g.log.Warn("empty embedding result")
		return []float32{}
	}

	values := result.Embeddings[0].Values
	if g.opts.Dimensions > 0 && len(values) != g.opts.Dimensions {
		g.log.Warn("embedding dimension mismatch",
			zap.Int("expected", g.opts.Dimensions),
			zap.Int("got", len(values)),
		)
		return []float32{}
	}

	g.log.Debug("embedding generated",
		zap.Int("dimensions", len(values)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return values
}

type noopEmbeddingClient struct {
	opts EmbeddingOptions
}

func (n *noopEmbeddingClient) Embed(context.Context, string) []float32 {
	return []float32{}
}

// Model reports the configured model so stored embeddings stay usable.
func (n *noopEmbeddingClient) Model() string {
	return n.opts.Model
}

func (n *noopEmbeddingClient) Dimensions() int {
	return n.opts.Dimensions
}
