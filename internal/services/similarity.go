package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/talent-matcher/internal/logger"
	"alfredoptarigan/talent-matcher/internal/models"
)

var ErrInvalidProfile = errors.New("invalid profile")

const (
	DefaultLocationBonus = 10.0
	neutralSkillScore    = 50.0
)

// ResolvedProfile pairs a profile with the vector used to score it. An empty
// Vector means no embedding is available.
type ResolvedProfile struct {
	Profile *models.Profile
	Vector  []float32
}

// ScoringStrategy computes a score in [0,100] and an explanation for a
// posting/candidate pair.
type ScoringStrategy interface {
	Name() models.ScoringStrategyName
	Score(posting, candidate ResolvedProfile) (float64, string)
}

type SimilarityScorer interface {
	Score(ctx context.Context, posting, candidate *models.Profile) (models.MatchResult, error)
	Resolve(ctx context.Context, profile *models.Profile) ResolvedProfile
	ScoreResolved(posting, candidate ResolvedProfile) (models.MatchResult, error)
}

type similarityScorer struct {
	embedder EmbeddingClient
	semantic ScoringStrategy
	keyword  ScoringStrategy
	log      *zap.Logger
}

func NewSimilarityScorer(embedder EmbeddingClient, locationBonus float64, log *zap.Logger) SimilarityScorer {
	return &similarityScorer{
		embedder: embedder,
		semantic: semanticStrategy{},
		keyword:  keywordStrategy{locationBonus: locationBonus},
		log:      logger.OrNop(log),
	}
}

// Score implements SimilarityScorer.
func (s *similarityScorer) Score(ctx context.Context, posting, candidate *models.Profile) (models.MatchResult, error) {
	if err := validatePair(posting, candidate); err != nil {
		return models.MatchResult{}, err
	}

	return s.ScoreResolved(s.Resolve(ctx, posting), s.Resolve(ctx, candidate))
}

// Resolve attaches the profile's stored embedding when it can be trusted,
// otherwise embeds the profile's current textual representation.
func (s *similarityScorer) Resolve(ctx context.Context, profile *models.Profile) ResolvedProfile {
	if profile == nil {
		return ResolvedProfile{}
	}

	if vec := TrustedEmbedding(profile, s.embedder.Model(), s.embedder.Dimensions()); len(vec) > 0 {
		return ResolvedProfile{Profile: profile, Vector: vec}
	}

	return ResolvedProfile{Profile: profile, Vector: s.embedder.Embed(ctx, Textualize(profile))}
}

// ScoreResolved implements SimilarityScorer. A panic inside a strategy is
// reported as a zero score rather than propagated.
func (s *similarityScorer) ScoreResolved(posting, candidate ResolvedProfile) (result models.MatchResult, err error) {
	if err := validatePair(posting.Profile, candidate.Profile); err != nil {
		return models.MatchResult{}, err
	}

	result = models.MatchResult{
		PostingID:   posting.Profile.ID,
		CandidateID: candidate.Profile.ID,
		SourceID:    posting.Profile.ID,
		TargetID:    candidate.Profile.ID,
	}

	strategy := s.keyword
	if len(posting.Vector) > 0 && len(candidate.Vector) > 0 {
		if len(posting.Vector) == len(candidate.Vector) {
			strategy = s.semantic
		} else {
			s.log.Warn("embedding dimensions differ, using keyword scoring",
				zap.Int("posting_dimensions", len(posting.Vector)),
				zap.Int("candidate_dimensions", len(candidate.Vector)),
			)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scoring panicked",
				zap.String("posting_id", posting.Profile.ID.String()),
				zap.String("candidate_id", candidate.Profile.ID.String()),
				zap.Any("panic", r),
			)
			result.Score = 0
			result.Strategy = models.StrategyError
			result.Explanation = fmt.Sprintf("scoring failed: %v", r)
		}
	}()

	score, explanation := strategy.Score(posting, candidate)
	result.Score = clampScore(score)
	result.Explanation = explanation
	result.Strategy = strategy.Name()

	s.log.Debug("pair scored",
		zap.String("posting_id", posting.Profile.ID.String()),
		zap.String("candidate_id", candidate.Profile.ID.String()),
		zap.String(logger.FieldStrategy, string(result.Strategy)),
		zap.Float64("score", result.Score),
	)

	return result, nil
}

// TrustedEmbedding returns the stored vector of p when it was produced by
// model from p's current textual representation, or nil otherwise.
func TrustedEmbedding(p *models.Profile, model string, dimensions int) []float32 {
	if p == nil || p.Embedding == nil || p.EmbeddingStale {
		return nil
	}
	if model == "" || p.EmbeddingModel != model {
		return nil
	}
	vec := p.EmbeddingValues()
	if len(vec) == 0 || (dimensions > 0 && len(vec) != dimensions) {
		return nil
	}
	if p.EmbeddingHash != Fingerprint(Textualize(p)) {
		return nil
	}
	return vec
}

func validatePair(posting, candidate *models.Profile) error {
	if posting == nil || candidate == nil {
		return fmt.Errorf("%w: missing profile", ErrInvalidProfile)
	}
	if !posting.Kind.IsPosting() {
		return fmt.Errorf("%w: %s is not a job or project", ErrInvalidProfile, posting.ID)
	}
	if candidate.Kind != models.KindCandidate {
		return fmt.Errorf("%w: %s is not a candidate", ErrInvalidProfile, candidate.ID)
	}
	return nil
}

type semanticStrategy struct{}

func (semanticStrategy) Name() models.ScoringStrategyName {
	return models.StrategySemantic
}

func (semanticStrategy) Score(posting, candidate ResolvedProfile) (float64, string) {
	score := clampScore(CosineSimilarity(posting.Vector, candidate.Vector) * 100)
	matched, missing := compareSkills(posting.Profile.RequiredSkills(), candidate.Profile.Skills)

	explanation := fmt.Sprintf("Semantic similarity %.2f%%. Matched skills: %s. Missing skills: %s.",
		score, listOrNone(matched), listOrNone(missing))

	return score, explanation
}

type keywordStrategy struct {
	locationBonus float64
}

func (keywordStrategy) Name() models.ScoringStrategyName {
	return models.StrategyKeyword
}

// Score rates skill overlap, adding the location bonus only when both
// locations are non-empty and exactly equal.
func (k keywordStrategy) Score(posting, candidate ResolvedProfile) (float64, string) {
	required := posting.Profile.PostingRequirements()
	matched, missing := compareSkills(required, candidate.Profile.Skills)
	total := len(matched) + len(missing)

	skillScore := neutralSkillScore
	if total > 0 {
		skillScore = float64(len(matched)) / float64(total) * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Keyword match: %d/%d required skills matched. Matched skills: %s. Missing skills: %s.",
		len(matched), total, listOrNone(matched), listOrNone(missing))

	bonus := 0.0
	if loc := posting.Profile.Location; loc != "" && loc == candidate.Profile.Location {
		bonus = k.locationBonus
		fmt.Fprintf(&b, " Location match (+%g).", bonus)
	}

	return math.Min(100, skillScore+bonus), b.String()
}

// CosineSimilarity returns dot(a,b)/(|a||b|), or 0 when either norm is zero or
// the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// compareSkills splits the deduplicated required skills into those the
// candidate has and those it lacks. Comparison ignores case and surrounding
// whitespace; output keeps the required spelling and order.
func compareSkills(required, have []string) (matched, missing []string) {
	owned := make(map[string]bool, len(have))
	for _, s := range have {
		owned[models.NormalizeSkill(s)] = true
	}

	seen := make(map[string]bool, len(required))
	for _, s := range required {
		key := models.NormalizeSkill(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		if owned[key] {
			matched = append(matched, strings.TrimSpace(s))
		} else {
			missing = append(missing, strings.TrimSpace(s))
		}
	}

	return matched, missing
}

func clampScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return math.Round(score*100) / 100
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
