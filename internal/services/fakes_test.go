package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/talent-matcher/internal/models"
	"alfredoptarigan/talent-matcher/internal/repositories"
	"alfredoptarigan/talent-matcher/internal/repositories/repotest"
)

type memoryProfileRepository struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]models.Profile
	order    []uuid.UUID
	saved    int
}

func newMemoryProfileRepository(profiles ...*models.Profile) *memoryProfileRepository {
	r := &memoryProfileRepository{profiles: map[uuid.UUID]models.Profile{}}
	for _, p := range profiles {
		_ = r.Create(context.Background(), p)
	}
	return r
}

func (r *memoryProfileRepository) Create(_ context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	r.profiles[p.ID] = *p
	r.order = append(r.order, p.ID)
	return nil
}

func (r *memoryProfileRepository) Update(_ context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.ID]; !ok {
		return repositories.ErrNotFound
	}
	p.EmbeddingStale = true
	p.UpdatedAt = time.Now()
	r.profiles[p.ID] = *p
	return nil
}

func (r *memoryProfileRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, repositories.ErrNotFound)
	}
	return &p, nil
}

func (r *memoryProfileRepository) FindByIDs(_ context.Context, ids []uuid.UUID, filter repositories.Filter) ([]models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Profile
	for _, id := range ids {
		if p, ok := r.profiles[id]; ok && repotest.Matches(filter, &p) {
			out = append(out, p)
		}
	}
	// store order is unspecified; reverse to make sure callers do not rely on it
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *memoryProfileRepository) FindActive(_ context.Context, kind models.ProfileKind, filter repositories.Filter, limit int) ([]models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Profile
	for _, id := range r.order {
		p := r.profiles[id]
		if p.Kind != kind || !p.Active || !repotest.Matches(filter, &p) {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memoryProfileRepository) FindStale(_ context.Context, limit int) ([]models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Profile
	for _, id := range r.order {
		if p := r.profiles[id]; p.EmbeddingStale {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memoryProfileRepository) ListIDs(_ context.Context, kind models.ProfileKind) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for _, id := range r.order {
		if kind == "" || r.profiles[id].Kind == kind {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *memoryProfileRepository) SaveEmbedding(_ context.Context, p *models.Profile) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.profiles[p.ID]
	if !ok || !stored.UpdatedAt.Equal(p.UpdatedAt) {
		return false, nil
	}
	stored.Embedding = p.Embedding
	stored.EmbeddingModel = p.EmbeddingModel
	stored.EmbeddingHash = p.EmbeddingHash
	stored.EmbeddingStale = false
	r.profiles[p.ID] = stored
	r.saved++
	return true, nil
}

func (r *memoryProfileRepository) MarkStale(_ context.Context, ids ...uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(ids) == 0 {
		ids = r.order
	}
	for _, id := range ids {
		if p, ok := r.profiles[id]; ok {
			p.EmbeddingStale = true
			r.profiles[id] = p
		}
	}
	return nil
}

func (r *memoryProfileRepository) get(id uuid.UUID) models.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profiles[id]
}

// fakeIndex is a VectorIndex returning a fixed ranking, or err when set.
type fakeIndex struct {
	mu        sync.Mutex
	ranking   []uuid.UUID
	err       error
	lastLimit int
	upserts   map[uuid.UUID][]float32
	deleted   []uuid.UUID
}

func (f *fakeIndex) InitCollection(context.Context) error { return f.err }

func (f *fakeIndex) UpsertProfile(_ context.Context, p *models.Profile, vec []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.upserts == nil {
		f.upserts = map[uuid.UUID][]float32{}
	}
	f.upserts[p.ID] = vec
	return nil
}

func (f *fakeIndex) SearchSimilar(_ context.Context, _ []float32, _ models.ProfileKind, limit int) ([]VectorMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	out := make([]VectorMatch, 0, len(f.ranking))
	for i, id := range f.ranking {
		if i == limit {
			break
		}
		out = append(out, VectorMatch{ProfileID: id, Score: 1 - float32(i)/100})
	}
	return out, nil
}

func (f *fakeIndex) DeleteProfile(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.err
}

type memoryRecommendationRepository struct {
	mu      sync.Mutex
	records map[string]models.Recommendation
	writes  int
	failOn  int
	calls   int
}

func newMemoryRecommendationRepository() *memoryRecommendationRepository {
	return &memoryRecommendationRepository{records: map[string]models.Recommendation{}}
}

func naturalKey(source, target uuid.UUID, t models.RecommendationType) string {
	return source.String() + "/" + target.String() + "/" + string(t)
}

func (r *memoryRecommendationRepository) Upsert(_ context.Context, rec *models.Recommendation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failOn > 0 && r.calls == r.failOn {
		return false, fmt.Errorf("connection reset")
	}

	key := naturalKey(rec.SourceID, rec.TargetID, rec.Type)
	now := time.Now()
	existing, ok := r.records[key]
	switch {
	case !ok:
		existing = models.Recommendation{
			ID:        uuid.New(),
			Type:      rec.Type,
			SourceID:  rec.SourceID,
			TargetID:  rec.TargetID,
			Score:     rec.Score,
			CreatedAt: now,
			UpdatedAt: now,
		}
	case existing.Score != rec.Score:
		existing.Score = rec.Score
		existing.UpdatedAt = now
	default:
		*rec = existing
		return false, nil
	}

	r.records[key] = existing
	r.writes++
	*rec = existing
	return true, nil
}

func (r *memoryRecommendationRepository) FindByKey(_ context.Context, source, target uuid.UUID, t models.RecommendationType) (*models.Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[naturalKey(source, target, t)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &rec, nil
}

func (r *memoryRecommendationRepository) List(_ context.Context, q repositories.RecommendationQuery) ([]models.Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Recommendation
	for _, rec := range r.records {
		if rec.SourceID != q.SourceID || (q.Type != "" && rec.Type != q.Type) || (q.UnviewedOnly && rec.Viewed) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TargetID.String() < out[j].TargetID.String()
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *memoryRecommendationRepository) MarkViewed(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, rec := range r.records {
		if rec.ID == id {
			rec.Viewed = true
			rec.ViewedAt = &at
			r.records[key] = rec
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r *memoryRecommendationRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
