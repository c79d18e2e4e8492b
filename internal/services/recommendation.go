package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/talent-matcher/internal/logger"
	"alfredoptarigan/talent-matcher/internal/models"
	"alfredoptarigan/talent-matcher/internal/repositories"
)

const DefaultRecommendationThreshold = 70.0

type RecommendationService interface {
	PersistIfQualifying(ctx context.Context, result models.MatchResult, recType models.RecommendationType) error
	PersistBatch(ctx context.Context, results []models.MatchResult, recType models.RecommendationType) (int, error)
	List(ctx context.Context, query repositories.RecommendationQuery) ([]models.Recommendation, error)
	MarkViewed(ctx context.Context, id uuid.UUID) error
}

type recommendationService struct {
	repo      repositories.RecommendationRepository
	threshold float64
	now       func() time.Time
	log       *zap.Logger
}

// NewRecommendationService builds the persistence manager. threshold is fixed
// for the lifetime of the service.
func NewRecommendationService(repo repositories.RecommendationRepository, threshold float64, log *zap.Logger) RecommendationService {
	return &recommendationService{
		repo:      repo,
		threshold: threshold,
		now:       time.Now,
		log:       logger.OrNop(log),
	}
}

// PersistIfQualifying stores result when its score reaches the threshold. A
// record with the same natural key and score is left untouched.
func (s *recommendationService) PersistIfQualifying(ctx context.Context, result models.MatchResult, recType models.RecommendationType) error {
	if !recType.Valid() {
		return fmt.Errorf("unknown recommendation type %q", recType)
	}
	if result.SourceID == uuid.Nil || result.TargetID == uuid.Nil {
		return fmt.Errorf("%w: match result without participants", ErrInvalidProfile)
	}

	if result.Score < s.threshold {
		return nil
	}

	rec := &models.Recommendation{
		Type:     recType,
		SourceID: result.SourceID,
		TargetID: result.TargetID,
		Score:    result.Score,
	}

	written, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to persist recommendation: %w", err)
	}

	if written {
		s.log.Debug("recommendation stored",
			zap.String("recommendation_id", rec.ID.String()),
			zap.String("type", string(recType)),
			zap.Float64("score", rec.Score),
		)
	}

	return nil
}

// PersistBatch applies PersistIfQualifying to every result and reports how
// many reached the threshold. It stops at the first store error.
func (s *recommendationService) PersistBatch(ctx context.Context, results []models.MatchResult, recType models.RecommendationType) (int, error) {
	persisted := 0
	for _, result := range results {
		if result.Strategy == models.StrategyError || result.Score < s.threshold {
			continue
		}
		if err := s.PersistIfQualifying(ctx, result, recType); err != nil {
			return persisted, err
		}
		persisted++
	}
	return persisted, nil
}

func (s *recommendationService) List(ctx context.Context, query repositories.RecommendationQuery) ([]models.Recommendation, error) {
	if query.Type != "" && !query.Type.Valid() {
		return nil, fmt.Errorf("unknown recommendation type %q", query.Type)
	}
	return s.repo.List(ctx, query)
}

func (s *recommendationService) MarkViewed(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkViewed(ctx, id, s.now())
}
