package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/talent-matcher/internal/services"
)

// HandleUploadResume attaches a PDF resume to a candidate profile.
func (h *ProfileHandler) HandleUploadResume(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	file, err := c.FormFile("resume")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Please upload the resume as a PDF in the 'resume' field",
		})
	}

	if file.Size > services.MaxResumeBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Resume file too large. Max size: %d bytes", services.MaxResumeBytes),
		})
	}

	profile, resp, err := h.resumes.Attach(c.UserContext(), id, file)
	if err != nil {
		return toFiberError(err)
	}
	h.queue.Enqueue(profile.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Resume uploaded successfully",
		"resume":  resp,
	})
}
