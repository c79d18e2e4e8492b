package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/talent-matcher/internal/models"
	"alfredoptarigan/talent-matcher/internal/repositories"
	"alfredoptarigan/talent-matcher/internal/services"
)

const (
	defaultMatchPool = 100
	maxMatchPool     = 500
)

type MatchHandler struct {
	profiles        repositories.ProfileRepository
	scorer          services.SimilarityScorer
	matcher         services.BatchMatcher
	recommendations services.RecommendationService
}

func NewMatchHandler(
	profiles repositories.ProfileRepository,
	scorer services.SimilarityScorer,
	matcher services.BatchMatcher,
	recommendations services.RecommendationService,
) *MatchHandler {
	return &MatchHandler{
		profiles:        profiles,
		scorer:          scorer,
		matcher:         matcher,
		recommendations: recommendations,
	}
}

// HandleScore scores a single posting/candidate pair.
func (h *MatchHandler) HandleScore(c *fiber.Ctx) error {
	var req models.ScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	postingID, err := uuid.Parse(req.PostingID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid posting_id format",
		})
	}
	candidateID, err := uuid.Parse(req.CandidateID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate_id format",
		})
	}

	ctx := c.UserContext()
	posting, err := h.profiles.FindByID(ctx, postingID)
	if err != nil {
		return toFiberError(err)
	}
	candidate, err := h.profiles.FindByID(ctx, candidateID)
	if err != nil {
		return toFiberError(err)
	}

	result, err := h.scorer.Score(ctx, posting, candidate)
	if err != nil {
		return toFiberError(err)
	}

	return c.JSON(result)
}

// HandleMatch ranks one profile against a pool and optionally persists the
// qualifying results as recommendations.
func (h *MatchHandler) HandleMatch(c *fiber.Ctx) error {
	var req models.MatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid source_id format",
		})
	}

	ctx := c.UserContext()
	source, err := h.profiles.FindByID(ctx, sourceID)
	if err != nil {
		return toFiberError(err)
	}

	pool, err := h.loadPool(c, source, &req)
	if err != nil {
		return err
	}

	results, err := h.matcher.MatchMany(ctx, source, pool)
	if err != nil {
		return toFiberError(err)
	}

	persisted := 0
	if req.Persist {
		persisted, err = h.persist(c, source, pool, results)
		if err != nil {
			return err
		}
	}

	return c.JSON(models.MatchResponse{
		SourceID:  source.ID.String(),
		Results:   results,
		Persisted: persisted,
	})
}

func (h *MatchHandler) loadPool(c *fiber.Ctx, source *models.Profile, req *models.MatchRequest) ([]models.Profile, error) {
	ctx := c.UserContext()

	if len(req.TargetIDs) > 0 {
		if len(req.TargetIDs) > maxMatchPool {
			return nil, fiber.NewError(fiber.StatusBadRequest, "too many target_ids")
		}
		ids := make([]uuid.UUID, 0, len(req.TargetIDs))
		for _, raw := range req.TargetIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid target_ids format")
			}
			ids = append(ids, id)
		}

		pool, err := h.profiles.FindByIDs(ctx, ids, repositories.Filter{})
		if err != nil {
			return nil, toFiberError(err)
		}
		return pool, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultMatchPool
	}
	if limit > maxMatchPool {
		limit = maxMatchPool
	}

	var kinds []models.ProfileKind
	if source.Kind.IsPosting() {
		kinds = []models.ProfileKind{models.KindCandidate}
	} else {
		kinds = []models.ProfileKind{models.KindJob, models.KindProject}
	}

	var pool []models.Profile
	for _, kind := range kinds {
		found, err := h.profiles.FindActive(ctx, kind, repositories.Filter{}, limit-len(pool))
		if err != nil {
			return nil, toFiberError(err)
		}
		pool = append(pool, found...)
		if len(pool) >= limit {
			break
		}
	}

	return pool, nil
}

func (h *MatchHandler) persist(c *fiber.Ctx, source *models.Profile, pool []models.Profile, results []models.MatchResult) (int, error) {
	kinds := make(map[uuid.UUID]models.ProfileKind, len(pool))
	for _, p := range pool {
		kinds[p.ID] = p.Kind
	}

	byType := make(map[models.RecommendationType][]models.MatchResult)
	var order []models.RecommendationType
	for _, r := range results {
		recType, err := models.RecommendationTypeFor(source.Kind, kinds[r.TargetID])
		if err != nil {
			continue
		}
		if _, seen := byType[recType]; !seen {
			order = append(order, recType)
		}
		byType[recType] = append(byType[recType], r)
	}

	total := 0
	for _, recType := range order {
		n, err := h.recommendations.PersistBatch(c.UserContext(), byType[recType], recType)
		total += n
		if err != nil {
			return total, toFiberError(err)
		}
	}

	return total, nil
}
