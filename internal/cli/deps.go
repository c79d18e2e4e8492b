package cli

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"alfredoptarigan/talent-matcher/internal/config"
	"alfredoptarigan/talent-matcher/internal/repositories"
	"alfredoptarigan/talent-matcher/internal/services"
)

// deps holds the components shared by the serve and reindex commands.
type deps struct {
	db              *gorm.DB
	profiles        repositories.ProfileRepository
	recommendations repositories.RecommendationRepository
	embedder        services.EmbeddingClient
	index           services.VectorIndex
	refresher       services.EmbeddingRefresher
}

func buildDeps(ctx context.Context, cfg *config.Config, log *zap.Logger) (*deps, error) {
	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	d := &deps{
		db:              db,
		profiles:        repositories.NewProfileRepository(db),
		recommendations: repositories.NewRecommendationRepository(db),
	}

	d.embedder, err = services.NewEmbeddingClient(ctx, cfg.Gemini.APIKey, services.EmbeddingOptions{
		Model:             cfg.Gemini.EmbedModel,
		Dimensions:        cfg.Gemini.Dimensions,
		Timeout:           cfg.Gemini.Timeout,
		RequestsPerSecond: cfg.Gemini.RequestsPerSecond,
		MaxInFlight:       cfg.Gemini.MaxInFlight,
	}, log)
	if err != nil {
		return nil, err
	}

	d.index = openIndex(ctx, cfg, log)
	d.refresher = services.NewEmbeddingRefresher(d.profiles, d.index, d.embedder, log)

	return d, nil
}

// openIndex connects to qdrant. A nil index is returned when it is unreachable;
// search then falls back to filtered retrieval.
func openIndex(ctx context.Context, cfg *config.Config, log *zap.Logger) services.VectorIndex {
	if cfg.Qdrant.URL == "" {
		log.Warn("qdrant url is not set, vector search disabled")
		return nil
	}

	index, err := services.NewQdrantIndex(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, cfg.Gemini.Dimensions, log)
	if err != nil {
		log.Warn("failed to connect to qdrant, vector search disabled", zap.Error(err))
		return nil
	}

	if err := index.InitCollection(ctx); err != nil {
		log.Warn("failed to initialize qdrant collection, vector search disabled", zap.Error(err))
		return nil
	}

	log.Info("qdrant initialized", zap.String("collection", cfg.Qdrant.Collection))
	return index
}

func (d *deps) close(log *zap.Logger) {
	sqlDB, err := d.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
