package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/talent-matcher/internal/logger"
	"alfredoptarigan/talent-matcher/internal/models"
)

const defaultMatchConcurrency = 8

type BatchMatcher interface {
	MatchMany(ctx context.Context, one *models.Profile, many []models.Profile) ([]models.MatchResult, error)
}

type batchMatcher struct {
	scorer      SimilarityScorer
	concurrency int
	log         *zap.Logger
}

func NewBatchMatcher(scorer SimilarityScorer, concurrency int, log *zap.Logger) BatchMatcher {
	if concurrency <= 0 {
		concurrency = defaultMatchConcurrency
	}
	return &batchMatcher{
		scorer:      scorer,
		concurrency: concurrency,
		log:         logger.OrNop(log),
	}
}

// MatchMany scores one posting against many candidates, or one candidate
// against many postings. Items that fail are kept with a zero score. Results
// are ordered by score descending, then target ID ascending.
func (m *batchMatcher) MatchMany(ctx context.Context, one *models.Profile, many []models.Profile) ([]models.MatchResult, error) {
	if one == nil || !one.Kind.Valid() {
		return nil, fmt.Errorf("%w: anchor profile has no known kind", ErrInvalidProfile)
	}

	results := make([]models.MatchResult, len(many))
	if len(many) == 0 {
		return results, nil
	}

	anchor := m.scorer.Resolve(ctx, one)

	var g errgroup.Group
	g.SetLimit(m.concurrency)

	for i := range many {
		i := i
		g.Go(func() error {
			results[i] = m.matchOne(ctx, anchor, &many[i])
			return nil
		})
	}
	_ = g.Wait()

	SortMatchResults(results)

	m.log.Debug("batch matched",
		append(logger.ProfileFields(one.ID, string(one.Kind)), zap.Int("pool_size", len(many)))...,
	)

	return results, nil
}

func (m *batchMatcher) matchOne(ctx context.Context, anchor ResolvedProfile, item *models.Profile) (result models.MatchResult) {
	failed := func(reason string) models.MatchResult {
		return models.MatchResult{
			SourceID:    anchor.Profile.ID,
			TargetID:    item.ID,
			Score:       0,
			Explanation: reason,
			Strategy:    models.StrategyError,
		}
	}

	defer func() {
		if r := recover(); r != nil {
			m.log.Error("match item panicked",
				append(logger.ProfileFields(item.ID, string(item.Kind)), zap.Any("panic", r))...,
			)
			result = failed(fmt.Sprintf("scoring failed: %v", r))
		}
	}()

	other := m.scorer.Resolve(ctx, item)

	var err error
	if anchor.Profile.Kind.IsPosting() {
		result, err = m.scorer.ScoreResolved(anchor, other)
	} else {
		result, err = m.scorer.ScoreResolved(other, anchor)
	}
	if err != nil {
		m.log.Warn("match item failed",
			append(logger.ProfileFields(item.ID, string(item.Kind)), zap.Error(err))...,
		)
		return failed(fmt.Sprintf("scoring failed: %v", err))
	}

	result.SourceID = anchor.Profile.ID
	result.TargetID = item.ID
	return result
}

// SortMatchResults orders results by score descending, breaking ties by
// target ID ascending.
func SortMatchResults(results []models.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return bytes.Compare(results[i].TargetID[:], results[j].TargetID[:]) < 0
	})
}
