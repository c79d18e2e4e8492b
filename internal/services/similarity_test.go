package services

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/talent-matcher/internal/logger"
	"alfredoptarigan/talent-matcher/internal/models"
)

// fakeEmbedder maps textual representations to fixed vectors. Unknown text
// yields an empty vector, like an unreachable backend.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   []string
	model   string
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{}, model: "test-model"}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	return f.vectors[text]
}

func (f *fakeEmbedder) Model() string   { return f.model }
func (f *fakeEmbedder) Dimensions() int { return 0 }

func (f *fakeEmbedder) set(p *models.Profile, vec []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors[Textualize(p)] = vec
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func job(requirements []string, location string) *models.Profile {
	return &models.Profile{
		ID:           uuid.New(),
		Kind:         models.KindJob,
		Title:        "Backend Engineer",
		Requirements: requirements,
		Location:     location,
		Active:       true,
	}
}

func candidate(skills []string, location string) *models.Profile {
	return &models.Profile{
		ID:       uuid.New(),
		Kind:     models.KindCandidate,
		Title:    "Ada",
		Skills:   skills,
		Location: location,
		Active:   true,
	}
}

func withTrustedEmbedding(p *models.Profile, vec []float32, model string) *models.Profile {
	p.SetEmbedding(vec, model, Fingerprint(Textualize(p)))
	return p
}

func TestKeywordScoring(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		posting   *models.Profile
		candidate *models.Profile
		want      float64
	}{
		{name: "no requirements", posting: job(nil, ""), candidate: candidate([]string{"Go"}, ""), want: 50},
		{name: "no requirements with location", posting: job(nil, "Jakarta"), candidate: candidate(nil, "Jakarta"), want: 60},
		{name: "half matched", posting: job([]string{"Python", "SQL"}, ""), candidate: candidate([]string{"Python"}, ""), want: 50},
		{name: "half matched with location", posting: job([]string{"Python", "SQL"}, "Jakarta"), candidate: candidate([]string{"Python"}, "Jakarta"), want: 60},
		{name: "empty locations earn no bonus", posting: job([]string{"Python", "SQL"}, ""), candidate: candidate([]string{"Python"}, ""), want: 50},
		{name: "one empty location", posting: job([]string{"Python", "SQL"}, "Jakarta"), candidate: candidate([]string{"Python"}, ""), want: 50},
		{name: "location is case sensitive", posting: job([]string{"Python", "SQL"}, "Jakarta"), candidate: candidate([]string{"Python"}, "jakarta"), want: 50},
		{name: "capped at 100", posting: job([]string{"Go"}, "Remote"), candidate: candidate([]string{"go"}, "Remote"), want: 100},
		{name: "nothing matched", posting: job([]string{"Rust"}, ""), candidate: candidate([]string{"Go"}, ""), want: 0},
		{
			name:      "skills_required alias",
			posting:   &models.Profile{ID: uuid.New(), Kind: models.KindProject, SkillsRequired: []string{"Go", "K8s"}},
			candidate: candidate([]string{"K8s"}, ""),
			want:      50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			scorer := NewSimilarityScorer(newFakeEmbedder(), DefaultLocationBonus, nil)

			result, err := scorer.Score(context.Background(), tt.posting, tt.candidate)
			require.NoError(t, err)

			assert.Equal(t, tt.want, result.Score)
			assert.Equal(t, models.StrategyKeyword, result.Strategy)
			assert.Equal(t, tt.posting.ID, result.PostingID)
			assert.Equal(t, tt.candidate.ID, result.CandidateID)
		})
	}
}

func TestKeywordScoringEndToEnd(t *testing.T) {
	posting := job([]string{"Python", "FastAPI", "MongoDB"}, "Jakarta")
	cand := candidate([]string{"Python", "FastAPI", "MongoDB", "Docker"}, "Jakarta")
	scorer := NewSimilarityScorer(newFakeEmbedder(), DefaultLocationBonus, nil)

	result, err := scorer.Score(context.Background(), posting, cand)
	require.NoError(t, err)

	assert.Equal(t, 100.0, result.Score)
	assert.Contains(t, result.Explanation, "3/3 required skills matched")
	assert.Contains(t, result.Explanation, "Matched skills: Python, FastAPI, MongoDB.")
	assert.Contains(t, result.Explanation, "Missing skills: none.")
}

func TestSemanticScoring(t *testing.T) {
	embedder := newFakeEmbedder()
	posting := job([]string{"Go", "SQL"}, "Jakarta")
	cand := candidate([]string{"Go"}, "Bandung")
	embedder.set(posting, []float32{1, 0})
	embedder.set(cand, []float32{1, 1})

	scorer := NewSimilarityScorer(embedder, DefaultLocationBonus, nil)
	result, err := scorer.Score(context.Background(), posting, cand)
	require.NoError(t, err)

	assert.Equal(t, models.StrategySemantic, result.Strategy)
	assert.InDelta(t, 70.71, result.Score, 0.001)
	assert.Contains(t, result.Explanation, "Matched skills: Go.")
	assert.Contains(t, result.Explanation, "Missing skills: SQL.")
}

func TestSemanticScoringIsSymmetric(t *testing.T) {
	vectors := [][2][]float32{
		{{1, 2, 3}, {3, 2, 1}},
		{{0.5, -0.1, 0.9}, {0.4, 0.4, 0.2}},
		{{1, 0}, {0, 1}},
	}

	a := ResolvedProfile{Profile: job([]string{"Go"}, "")}
	b := ResolvedProfile{Profile: candidate([]string{"Go"}, "")}

	for _, pair := range vectors {
		a.Vector, b.Vector = pair[0], pair[1]
		ab, _ := semanticStrategy{}.Score(a, b)
		ba, _ := semanticStrategy{}.Score(b, a)
		assert.Equal(t, ab, ba)
		assert.Equal(t, CosineSimilarity(pair[0], pair[1]), CosineSimilarity(pair[1], pair[0]))
	}
}

func TestScoreIsWithinRange(t *testing.T) {
	embedder := newFakeEmbedder()
	scorer := NewSimilarityScorer(embedder, 95, nil)

	opposite := job([]string{"Go"}, "X")
	embedder.set(opposite, []float32{-1, -1})

	postings := []*models.Profile{job(nil, "X"), job([]string{"Go"}, "X"), opposite}
	candidates := []*models.Profile{candidate([]string{"Go"}, "X"), candidate(nil, ""), candidate([]string{"Rust"}, "X")}
	embedder.set(candidates[0], []float32{1, 1})

	for _, p := range postings {
		for _, c := range candidates {
			result, err := scorer.Score(context.Background(), p, c)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, result.Score, 0.0)
			assert.LessOrEqual(t, result.Score, 100.0)
		}
	}
}

func TestCosineSimilarityZeroNorm(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{2, 2}, []float32{1, 1}), 1e-9)
}

func TestScoreRejectsContractViolations(t *testing.T) {
	scorer := NewSimilarityScorer(newFakeEmbedder(), DefaultLocationBonus, nil)
	ctx := context.Background()

	_, err := scorer.Score(ctx, nil, candidate(nil, ""))
	assert.ErrorIs(t, err, ErrInvalidProfile)

	_, err = scorer.Score(ctx, candidate(nil, ""), candidate(nil, ""))
	assert.ErrorIs(t, err, ErrInvalidProfile)

	_, err = scorer.Score(ctx, job(nil, ""), job(nil, ""))
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestResolveUsesOnlyTrustedEmbeddings(t *testing.T) {
	embedder := newFakeEmbedder()
	scorer := NewSimilarityScorer(embedder, DefaultLocationBonus, nil)
	ctx := context.Background()

	trusted := withTrustedEmbedding(candidate([]string{"Go"}, "A"), []float32{1, 2}, "test-model")
	got := scorer.Resolve(ctx, trusted)
	assert.Equal(t, []float32{1, 2}, got.Vector)
	assert.Zero(t, embedder.callCount())

	changed := withTrustedEmbedding(candidate([]string{"Go"}, "A"), []float32{1, 2}, "test-model")
	changed.Location = "B"
	embedder.set(changed, []float32{9, 9})
	assert.Equal(t, []float32{9, 9}, scorer.Resolve(ctx, changed).Vector)

	otherModel := withTrustedEmbedding(candidate([]string{"Go"}, "C"), []float32{1, 2}, "other-model")
	assert.Empty(t, scorer.Resolve(ctx, otherModel).Vector)

	stale := withTrustedEmbedding(candidate([]string{"Go"}, "D"), []float32{1, 2}, "test-model")
	stale.EmbeddingStale = true
	assert.Empty(t, scorer.Resolve(ctx, stale).Vector)
}

type panickingStrategy struct{}

func (panickingStrategy) Name() models.ScoringStrategyName { return models.StrategyKeyword }

func (panickingStrategy) Score(ResolvedProfile, ResolvedProfile) (float64, string) {
	panic("boom")
}

func TestScoreRecoversFromPanics(t *testing.T) {
	scorer := NewSimilarityScorer(newFakeEmbedder(), DefaultLocationBonus, nil).(*similarityScorer)
	scorer.keyword = panickingStrategy{}

	result, err := scorer.Score(context.Background(), job([]string{"Go"}, ""), candidate([]string{"Go"}, ""))
	require.NoError(t, err)

	assert.Zero(t, result.Score)
	assert.Equal(t, models.StrategyError, result.Strategy)
	assert.True(t, strings.Contains(result.Explanation, "boom"))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, clampScore(-12))
	assert.Equal(t, 0.0, clampScore(math.NaN()))
	assert.Equal(t, 100.0, clampScore(110))
	assert.Equal(t, 33.33, clampScore(100.0/3))
}

func TestScoreLogsStrategy(t *testing.T) {
	log, logs := observedLogger()
	scorer := NewSimilarityScorer(newFakeEmbedder(), DefaultLocationBonus, log)

	_, err := scorer.Score(context.Background(), job([]string{"Go"}, ""), candidate([]string{"Go"}, ""))
	require.NoError(t, err)

	entries := logs.FilterMessage("pair scored").All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(models.StrategyKeyword), entries[0].ContextMap()[logger.FieldStrategy])
}
