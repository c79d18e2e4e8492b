package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/talent-matcher/internal/models"
	"alfredoptarigan/talent-matcher/internal/repositories"
	"alfredoptarigan/talent-matcher/internal/services"
)

type SearchHandler struct {
	gateway services.SearchGateway
}

func NewSearchHandler(gateway services.SearchGateway) *SearchHandler {
	return &SearchHandler{gateway: gateway}
}

func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	var req models.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	results, err := h.gateway.Search(c.UserContext(), services.SearchQuery{
		Collection: req.Collection,
		Query:      req.Query,
		TopK:       req.TopK,
		Filter: repositories.Filter{
			Equals: req.Equals,
			Ranges: req.Ranges,
		},
	})
	if err != nil {
		return toFiberError(err)
	}

	if results == nil {
		results = []models.Profile{}
	}

	return c.JSON(models.SearchResponse{
		Collection: req.Collection,
		Results:    results,
	})
}
