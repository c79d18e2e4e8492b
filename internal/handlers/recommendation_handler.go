package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/talent-matcher/internal/models"
	"alfredoptarigan/talent-matcher/internal/repositories"
	"alfredoptarigan/talent-matcher/internal/services"
)

type RecommendationHandler struct {
	recommendations services.RecommendationService
}

func NewRecommendationHandler(recommendations services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendations: recommendations}
}

// HandleList returns the recommendations of one source profile, best first.
func (h *RecommendationHandler) HandleList(c *fiber.Ctx) error {
	sourceID, err := uuid.Parse(c.Query("source_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "source_id query parameter is required",
		})
	}

	recType := models.RecommendationType(c.Query("type"))
	if recType != "" && !recType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown recommendation type",
		})
	}

	recs, err := h.recommendations.List(c.UserContext(), repositories.RecommendationQuery{
		SourceID:     sourceID,
		Type:         recType,
		UnviewedOnly: c.QueryBool("unviewed", false),
		Limit:        c.QueryInt("limit", 50),
	})
	if err != nil {
		return toFiberError(err)
	}

	if recs == nil {
		recs = []models.Recommendation{}
	}

	return c.JSON(fiber.Map{
		"source_id":       sourceID,
		"recommendations": recs,
	})
}

func (h *RecommendationHandler) HandleMarkViewed(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.recommendations.MarkViewed(c.UserContext(), id); err != nil {
		return toFiberError(err)
	}

	return c.JSON(fiber.Map{
		"id":     id,
		"viewed": true,
	})
}
