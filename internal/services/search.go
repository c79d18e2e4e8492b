package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/talent-matcher/internal/logger"
	"alfredoptarigan/talent-matcher/internal/models"
	"alfredoptarigan/talent-matcher/internal/repositories"
)

var ErrUnknownCollection = errors.New("unknown collection")

const (
	DefaultTopK          = 10
	defaultCandidatePool = 100
)

var collectionKinds = map[string]models.ProfileKind{
	"jobs":       models.KindJob,
	"job":        models.KindJob,
	"projects":   models.KindProject,
	"project":    models.KindProject,
	"candidates": models.KindCandidate,
	"candidate":  models.KindCandidate,
}

// CollectionKind maps a search collection name to the profile kind it holds.
func CollectionKind(collection string) (models.ProfileKind, error) {
	kind, ok := collectionKinds[strings.ToLower(strings.TrimSpace(collection))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return kind, nil
}

type SearchQuery struct {
	Collection string
	Query      string
	TopK       int
	Filter     repositories.Filter
}

type SearchGateway interface {
	Search(ctx context.Context, query SearchQuery) ([]models.Profile, error)
}

type searchGateway struct {
	profiles      repositories.ProfileRepository
	index         VectorIndex
	embedder      EmbeddingClient
	candidatePool int
	log           *zap.Logger
}

// NewSearchGateway builds the gateway. index may be nil, in which case every
// search uses filtered retrieval.
func NewSearchGateway(profiles repositories.ProfileRepository, index VectorIndex, embedder EmbeddingClient, candidatePool int, log *zap.Logger) SearchGateway {
	if candidatePool <= 0 {
		candidatePool = defaultCandidatePool
	}
	return &searchGateway{
		profiles:      profiles,
		index:         index,
		embedder:      embedder,
		candidatePool: candidatePool,
		log:           logger.OrNop(log),
	}
}

// Search returns at most TopK active profiles of the collection's kind that
// satisfy the filter. Results are ranked by vector similarity when the index
// is usable; otherwise they come from filtered retrieval in store order.
// Returned profiles never carry their embedding.
func (g *searchGateway) Search(ctx context.Context, query SearchQuery) ([]models.Profile, error) {
	kind, err := CollectionKind(query.Collection)
	if err != nil {
		return nil, err
	}

	if err := query.Filter.Validate(); err != nil {
		return nil, err
	}

	topK := query.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	log := g.log.With(zap.String(logger.FieldCollection, string(kind)))

	results, err := g.vectorSearch(ctx, kind, query.Query, query.Filter, topK)
	if err != nil {
		log.Warn("vector search unavailable, using filtered retrieval", zap.Error(err))

		results, err = g.profiles.FindActive(ctx, kind, query.Filter, topK)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve profiles: %w", err)
		}
	}

	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i] = results[i].Stripped()
	}

	return results, nil
}

func (g *searchGateway) vectorSearch(ctx context.Context, kind models.ProfileKind, text string, filter repositories.Filter, topK int) ([]models.Profile, error) {
	if g.index == nil {
		return nil, errors.New("vector index not configured")
	}

	vector := g.embedder.Embed(ctx, text)
	if len(vector) == 0 {
		return nil, errors.New("query embedding unavailable")
	}

	limit := topK * 10
	if limit < g.candidatePool {
		limit = g.candidatePool
	}

	matches, err := g.index.SearchSimilar(ctx, vector, kind, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		ids[i] = m.ProfileID
	}

	loaded, err := g.profiles.FindByIDs(ctx, ids, filter)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Profile, len(loaded))
	for _, p := range loaded {
		byID[p.ID] = p
	}

	// the index payload can lag behind the store, so kind and active are
	// rechecked against the loaded rows
	results := make([]models.Profile, 0, topK)
	for _, m := range matches {
		p, ok := byID[m.ProfileID]
		if !ok || p.Kind != kind || !p.Active {
			continue
		}
		results = append(results, p)
		if len(results) == topK {
			break
		}
	}

	return results, nil
}
