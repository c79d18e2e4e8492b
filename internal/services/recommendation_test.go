package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/talent-matcher/internal/models"
	"alfredoptarigan/talent-matcher/internal/repositories"
)

func matchResult(score float64) models.MatchResult {
	source, target := uuid.New(), uuid.New()
	return models.MatchResult{
		SourceID:    source,
		TargetID:    target,
		PostingID:   source,
		CandidateID: target,
		Score:       score,
		Strategy:    models.StrategyKeyword,
	}
}

func TestPersistIfQualifyingIsIdempotent(t *testing.T) {
	repo := newMemoryRecommendationRepository()
	svc := NewRecommendationService(repo, DefaultRecommendationThreshold, nil)
	ctx := context.Background()
	result := matchResult(85)

	require.NoError(t, svc.PersistIfQualifying(ctx, result, models.TypeJobCandidate))
	require.NoError(t, svc.PersistIfQualifying(ctx, result, models.TypeJobCandidate))

	assert.Equal(t, 1, repo.count())
	assert.Equal(t, 1, repo.writes)

	first, err := repo.FindByKey(ctx, result.SourceID, result.TargetID, models.TypeJobCandidate)
	require.NoError(t, err)
	assert.False(t, first.Viewed)

	result.Score = 92
	require.NoError(t, svc.PersistIfQualifying(ctx, result, models.TypeJobCandidate))

	updated, err := repo.FindByKey(ctx, result.SourceID, result.TargetID, models.TypeJobCandidate)
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)
	assert.Equal(t, 92.0, updated.Score)
	assert.Equal(t, first.CreatedAt, updated.CreatedAt)
	assert.Equal(t, 1, repo.count())
}

func TestPersistIfQualifyingBelowThreshold(t *testing.T) {
	repo := newMemoryRecommendationRepository()
	svc := NewRecommendationService(repo, DefaultRecommendationThreshold, nil)

	require.NoError(t, svc.PersistIfQualifying(context.Background(), matchResult(69.99), models.TypeCandidateJob))
	assert.Zero(t, repo.count())

	require.NoError(t, svc.PersistIfQualifying(context.Background(), matchResult(70), models.TypeCandidateJob))
	assert.Equal(t, 1, repo.count())
}

func TestPersistIfQualifyingTypeIsPartOfKey(t *testing.T) {
	repo := newMemoryRecommendationRepository()
	svc := NewRecommendationService(repo, DefaultRecommendationThreshold, nil)
	result := matchResult(80)

	require.NoError(t, svc.PersistIfQualifying(context.Background(), result, models.TypeJobCandidate))
	require.NoError(t, svc.PersistIfQualifying(context.Background(), result, models.TypeProjectCandidate))

	assert.Equal(t, 2, repo.count())
}

func TestPersistIfQualifyingConcurrentWriters(t *testing.T) {
	repo := newMemoryRecommendationRepository()
	svc := NewRecommendationService(repo, DefaultRecommendationThreshold, nil)
	result := matchResult(75)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.PersistIfQualifying(context.Background(), result, models.TypeJobCandidate))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, repo.count())
}

func TestPersistIfQualifyingRejectsBadInput(t *testing.T) {
	svc := NewRecommendationService(newMemoryRecommendationRepository(), DefaultRecommendationThreshold, nil)

	assert.Error(t, svc.PersistIfQualifying(context.Background(), matchResult(90), "posting_posting"))
	assert.ErrorIs(t, svc.PersistIfQualifying(context.Background(), models.MatchResult{Score: 90}, models.TypeJobCandidate), ErrInvalidProfile)
}

func TestPersistBatch(t *testing.T) {
	repo := newMemoryRecommendationRepository()
	svc := NewRecommendationService(repo, DefaultRecommendationThreshold, nil)

	failed := matchResult(0)
	failed.Strategy = models.StrategyError

	n, err := svc.PersistBatch(context.Background(), []models.MatchResult{
		matchResult(99), matchResult(70), matchResult(40), failed,
	}, models.TypeJobCandidate)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, 2, repo.count())
}

func TestPersistBatchStopsOnStoreError(t *testing.T) {
	repo := newMemoryRecommendationRepository()
	repo.failOn = 2
	svc := NewRecommendationService(repo, DefaultRecommendationThreshold, nil)

	n, err := svc.PersistBatch(context.Background(), []models.MatchResult{
		matchResult(99), matchResult(98), matchResult(97),
	}, models.TypeCandidateProject)

	require.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestListAndMarkViewed(t *testing.T) {
	repo := newMemoryRecommendationRepository()
	svc := NewRecommendationService(repo, DefaultRecommendationThreshold, nil)
	ctx := context.Background()

	source := uuid.New()
	for _, score := range []float64{71, 95, 80} {
		r := matchResult(score)
		r.SourceID = source
		require.NoError(t, svc.PersistIfQualifying(ctx, r, models.TypeCandidateJob))
	}

	recs, err := svc.List(ctx, repositories.RecommendationQuery{SourceID: source})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, 95.0, recs[0].Score)

	require.NoError(t, svc.MarkViewed(ctx, recs[0].ID))

	unviewed, err := svc.List(ctx, repositories.RecommendationQuery{SourceID: source, UnviewedOnly: true})
	require.NoError(t, err)
	assert.Len(t, unviewed, 2)

	assert.ErrorIs(t, svc.MarkViewed(ctx, uuid.New()), repositories.ErrNotFound)

	_, err = svc.List(ctx, repositories.RecommendationQuery{SourceID: source, Type: "nope"})
	assert.Error(t, err)
}
