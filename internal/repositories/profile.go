package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/talent-matcher/internal/models"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, profile *models.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID, filter Filter) ([]models.Profile, error)
	FindActive(ctx context.Context, kind models.ProfileKind, filter Filter, limit int) ([]models.Profile, error)
	FindStale(ctx context.Context, limit int) ([]models.Profile, error)
	ListIDs(ctx context.Context, kind models.ProfileKind) ([]uuid.UUID, error)
	SaveEmbedding(ctx context.Context, profile *models.Profile) (bool, error)
	MarkStale(ctx context.Context, ids ...uuid.UUID) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Create inserts a profile. New profiles always start stale so the refresh
// worker derives their first embedding.
func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	profile.EmbeddingStale = true
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// Update persists every field of the profile and marks its embedding stale.
func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	profile.EmbeddingStale = true

	result := r.db.WithContext(ctx).Save(profile)
	if result.Error != nil {
		return fmt.Errorf("failed to update profile: %w", result.Error)
	}
	return nil
}

func (r *profileRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return &profile, nil
}

// FindByIDs loads the given profiles that satisfy filter. Result order is
// unspecified.
func (r *profileRepository) FindByIDs(ctx context.Context, ids []uuid.UUID, filter Filter) ([]models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var profiles []models.Profile
	query := filter.Apply(r.db.WithContext(ctx).Where("id IN ?", ids))
	if err := query.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to find profiles: %w", err)
	}
	return profiles, nil
}

// FindActive is the filtered retrieval used when nearest-neighbor search is
// unavailable. Results come back in store order.
func (r *profileRepository) FindActive(ctx context.Context, kind models.ProfileKind, filter Filter, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	query := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Where("active = ?", true)

	err := filter.Apply(query).
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find active profiles: %w", err)
	}
	return profiles, nil
}

func (r *profileRepository) FindStale(ctx context.Context, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).
		Where("embedding_stale = ?", true).
		Order("updated_at ASC").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find stale profiles: %w", err)
	}
	return profiles, nil
}

func (r *profileRepository) ListIDs(ctx context.Context, kind models.ProfileKind) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := r.db.WithContext(ctx).Model(&models.Profile{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if err := query.Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list profile ids: %w", err)
	}
	return ids, nil
}

// SaveEmbedding stores the profile's embedding columns only if the row has not
// been modified since the profile was loaded. It reports whether the row was
// written; false means a newer edit is waiting for its own refresh.
func (r *profileRepository) SaveEmbedding(ctx context.Context, profile *models.Profile) (bool, error) {
	if profile.Embedding == nil {
		return false, fmt.Errorf("profile %s has no embedding to save", profile.ID)
	}

	result := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ? AND updated_at = ?", profile.ID, profile.UpdatedAt).
		UpdateColumns(map[string]interface{}{
			"embedding":       *profile.Embedding,
			"embedding_model": profile.EmbeddingModel,
			"embedding_hash":  profile.EmbeddingHash,
			"embedding_stale": false,
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to save embedding: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *profileRepository) MarkStale(ctx context.Context, ids ...uuid.UUID) error {
	query := r.db.WithContext(ctx).Model(&models.Profile{})
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	} else {
		query = query.Where("1 = 1")
	}

	if err := query.UpdateColumn("embedding_stale", true).Error; err != nil {
		return fmt.Errorf("failed to mark profiles stale: %w", err)
	}
	return nil
}
