package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/talent-matcher/internal/repositories"
	"alfredoptarigan/talent-matcher/internal/services"
)

// RefreshQueue accepts profiles whose embedding needs regenerating.
type RefreshQueue interface {
	Enqueue(profileID uuid.UUID)
}

var badRequestErrors = []error{
	services.ErrInvalidProfile,
	services.ErrUnknownCollection,
	services.ErrUnsupportedFile,
	services.ErrEmptyDocument,
	repositories.ErrInvalidFilter,
}

// toFiberError maps service errors onto HTTP status codes.
func toFiberError(err error) error {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return err
}

// ErrorHandler renders every error as {"error": ..., "code": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid ID format")
	}
	return id, nil
}
