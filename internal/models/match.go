package models

import "github.com/google/uuid"

type ScoringStrategyName string

const (
	StrategySemantic ScoringStrategyName = "semantic"
	StrategyKeyword  ScoringStrategyName = "keyword"
	StrategyError    ScoringStrategyName = "error"
)

// MatchResult is produced fresh for every match request and never cached.
type MatchResult struct {
	SourceID    uuid.UUID           `json:"source_id"`
	TargetID    uuid.UUID           `json:"target_id"`
	PostingID   uuid.UUID           `json:"posting_id"`
	CandidateID uuid.UUID           `json:"candidate_id"`
	Score       float64             `json:"score"`
	Explanation string              `json:"explanation"`
	Strategy    ScoringStrategyName `json:"strategy"`
}
