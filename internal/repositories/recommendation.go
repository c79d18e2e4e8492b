package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/talent-matcher/internal/models"
)

type RecommendationRepository interface {
	Upsert(ctx context.Context, rec *models.Recommendation) (bool, error)
	FindByKey(ctx context.Context, sourceID, targetID uuid.UUID, recType models.RecommendationType) (*models.Recommendation, error)
	List(ctx context.Context, query RecommendationQuery) ([]models.Recommendation, error)
	MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) error
}

type RecommendationQuery struct {
	SourceID     uuid.UUID
	Type         models.RecommendationType
	UnviewedOnly bool
	Limit        int
}

type recommendationRepository struct {
	db *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) RecommendationRepository {
	return &recommendationRepository{db: db}
}

var naturalKeyColumns = []clause.Column{
	{Name: "source_id"},
	{Name: "target_id"},
	{Name: "type"},
}

// Upsert inserts rec or, when a record with the same natural key exists and
// its score differs, updates score and updated_at in a single statement. It
// reports whether a row was written. rec is refreshed from the stored row.
func (r *recommendationRepository) Upsert(ctx context.Context, rec *models.Recommendation) (bool, error) {
	written, err := r.upsert(ctx, rec)
	if err != nil && isUniqueViolation(err) {
		// a concurrent writer got there first; the conflict clause resolves it now
		written, err = r.upsert(ctx, rec)
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert recommendation: %w", err)
	}

	stored, err := r.FindByKey(ctx, rec.SourceID, rec.TargetID, rec.Type)
	if err != nil {
		return written, err
	}
	*rec = *stored

	return written, nil
}

func (r *recommendationRepository) upsert(ctx context.Context, rec *models.Recommendation) (bool, error) {
	now := time.Now()
	row := &models.Recommendation{
		Type:      rec.Type,
		SourceID:  rec.SourceID,
		TargetID:  rec.TargetID,
		Score:     rec.Score,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   naturalKeyColumns,
			DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "recommendations.score <> excluded.score"},
			}},
		}).
		Create(row)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *recommendationRepository) FindByKey(ctx context.Context, sourceID, targetID uuid.UUID, recType models.RecommendationType) (*models.Recommendation, error) {
	var rec models.Recommendation
	err := r.db.WithContext(ctx).
		Where("source_id = ? AND target_id = ? AND type = ?", sourceID, targetID, recType).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recommendation %s/%s/%s: %w", sourceID, targetID, recType, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find recommendation: %w", err)
	}
	return &rec, nil
}

func (r *recommendationRepository) List(ctx context.Context, q RecommendationQuery) ([]models.Recommendation, error) {
	query := r.db.WithContext(ctx).Where("source_id = ?", q.SourceID)
	if q.Type != "" {
		query = query.Where("type = ?", q.Type)
	}
	if q.UnviewedOnly {
		query = query.Where("viewed = ?", false)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var recs []models.Recommendation
	if err := query.Order("score DESC").Order("target_id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	return recs, nil
}

func (r *recommendationRepository) MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Recommendation{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"viewed":    true,
			"viewed_at": at,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark recommendation viewed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
