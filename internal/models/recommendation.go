package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RecommendationType string

const (
	TypeJobCandidate     RecommendationType = "job_candidate"
	TypeCandidateJob     RecommendationType = "candidate_job"
	TypeProjectCandidate RecommendationType = "project_candidate"
	TypeCandidateProject RecommendationType = "candidate_project"
)

func (t RecommendationType) Valid() bool {
	switch t {
	case TypeJobCandidate, TypeCandidateJob, TypeProjectCandidate, TypeCandidateProject:
		return true
	}
	return false
}

// RecommendationTypeFor derives the type tag from the kinds of the source
// ("one") and target ("many") sides of a match.
func RecommendationTypeFor(source, target ProfileKind) (RecommendationType, error) {
	switch {
	case source == KindJob && target == KindCandidate:
		return TypeJobCandidate, nil
	case source == KindCandidate && target == KindJob:
		return TypeCandidateJob, nil
	case source == KindProject && target == KindCandidate:
		return TypeProjectCandidate, nil
	case source == KindCandidate && target == KindProject:
		return TypeCandidateProject, nil
	}
	return "", fmt.Errorf("no recommendation type for %s -> %s", source, target)
}

// Recommendation is a persisted match result. (SourceID, TargetID, Type) is the
// natural key.
type Recommendation struct {
	ID        uuid.UUID          `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Type      RecommendationType `gorm:"type:text;not null;uniqueIndex:idx_recommendations_natural_key,priority:3" json:"type"`
	SourceID  uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_recommendations_natural_key,priority:1" json:"source_id"`
	TargetID  uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_recommendations_natural_key,priority:2" json:"target_id"`
	Score     float64            `gorm:"not null" json:"score"`
	Viewed    bool               `gorm:"not null;default:false" json:"viewed"`
	ViewedAt  *time.Time         `json:"viewed_at,omitempty"`
	CreatedAt time.Time          `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time          `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Recommendation) TableName() string {
	return "recommendations"
}
