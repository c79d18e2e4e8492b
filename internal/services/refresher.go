package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/talent-matcher/internal/logger"
	"alfredoptarigan/talent-matcher/internal/models"
	"alfredoptarigan/talent-matcher/internal/repositories"
)

var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// EmbeddingRefresher keeps stored embeddings and the vector index in step
// with each profile's current textual representation.
type EmbeddingRefresher interface {
	Refresh(ctx context.Context, id uuid.UUID) error
	Reindex(ctx context.Context, kind models.ProfileKind) (ReindexReport, error)
}

type ReindexReport struct {
	Total   int
	Indexed int
	Failed  int
}

type embeddingRefresher struct {
	profiles repositories.ProfileRepository
	index    VectorIndex
	embedder EmbeddingClient
	log      *zap.Logger
}

// NewEmbeddingRefresher builds a refresher. index may be nil when no vector
// store is configured.
func NewEmbeddingRefresher(profiles repositories.ProfileRepository, index VectorIndex, embedder EmbeddingClient, log *zap.Logger) EmbeddingRefresher {
	return &embeddingRefresher{
		profiles: profiles,
		index:    index,
		embedder: embedder,
		log:      logger.WithModel(log, embedder.Model()),
	}
}

// Refresh regenerates the embedding of one profile when it is stale and
// pushes the point to the index. A profile edited while it was being embedded
// is left stale for the next pass.
func (r *embeddingRefresher) Refresh(ctx context.Context, id uuid.UUID) error {
	profile, err := r.profiles.FindByID(ctx, id)
	if err != nil {
		return err
	}

	log := r.log.With(logger.ProfileFields(profile.ID, string(profile.Kind))...)

	if !profile.EmbeddingStale {
		log.Debug("embedding is current, nothing to refresh")
		return nil
	}

	text := Textualize(profile)
	// a stale flag set by an edit that did not touch the text keeps the vector
	current := *profile
	current.EmbeddingStale = false
	vector := TrustedEmbedding(&current, r.embedder.Model(), r.embedder.Dimensions())

	if len(vector) == 0 {
		vector = r.embedder.Embed(ctx, text)
		if len(vector) == 0 {
			return fmt.Errorf("profile %s: %w", profile.ID, ErrEmbeddingUnavailable)
		}
	} else {
		log.Debug("reusing stored embedding, text unchanged")
	}

	profile.SetEmbedding(vector, r.embedder.Model(), Fingerprint(text))

	if err := r.syncIndex(ctx, profile, vector); err != nil {
		return err
	}

	saved, err := r.profiles.SaveEmbedding(ctx, profile)
	if err != nil {
		return err
	}
	if !saved {
		log.Info("profile changed during refresh, keeping it stale")
		return nil
	}

	log.Debug("embedding refreshed", zap.Int("dimensions", len(vector)))
	return nil
}

// syncIndex upserts the point of an active profile and removes the point of
// an inactive one.
func (r *embeddingRefresher) syncIndex(ctx context.Context, profile *models.Profile, vector []float32) error {
	if r.index == nil {
		return nil
	}

	if !profile.Active {
		if err := r.index.DeleteProfile(ctx, profile.ID); err != nil {
			return fmt.Errorf("failed to remove profile %s from index: %w", profile.ID, err)
		}
		return nil
	}

	if err := r.index.UpsertProfile(ctx, profile, vector); err != nil {
		return fmt.Errorf("failed to index profile %s: %w", profile.ID, err)
	}
	return nil
}

// Reindex marks every profile of kind stale (all kinds when empty) and
// refreshes them one by one. Individual failures are counted, not returned.
func (r *embeddingRefresher) Reindex(ctx context.Context, kind models.ProfileKind) (ReindexReport, error) {
	ids, err := r.profiles.ListIDs(ctx, kind)
	if err != nil {
		return ReindexReport{}, err
	}

	report := ReindexReport{Total: len(ids)}
	if len(ids) == 0 {
		return report, nil
	}

	if err := r.profiles.MarkStale(ctx, ids...); err != nil {
		return report, err
	}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := r.Refresh(ctx, id); err != nil {
			report.Failed++
			r.log.Warn("failed to reindex profile", zap.String(logger.FieldProfileID, id.String()), zap.Error(err))
			continue
		}
		report.Indexed++

		if (i+1)%50 == 0 {
			r.log.Info("reindex progress", zap.Int("done", i+1), zap.Int("total", len(ids)))
		}
	}

	return report, nil
}
