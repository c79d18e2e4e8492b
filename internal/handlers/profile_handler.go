package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"alfredoptarigan/talent-matcher/internal/models"
	"alfredoptarigan/talent-matcher/internal/repositories"
	"alfredoptarigan/talent-matcher/internal/services"
)

type ProfileHandler struct {
	profiles repositories.ProfileRepository
	resumes  services.ResumeService
	queue    RefreshQueue
}

func NewProfileHandler(
	profiles repositories.ProfileRepository,
	resumes services.ResumeService,
	queue RefreshQueue,
) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		resumes:  resumes,
		queue:    queue,
	}
}

func (h *ProfileHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.ProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	kind := models.ProfileKind(strings.ToLower(req.Kind))
	if !kind.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "kind must be one of job, project, candidate",
		})
	}
	if strings.TrimSpace(req.DisplayTitle()) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title is required",
		})
	}

	profile := &models.Profile{Kind: kind, Active: true}
	applyProfileRequest(profile, &req)

	if err := h.profiles.Create(c.UserContext(), profile); err != nil {
		return toFiberError(err)
	}
	h.queue.Enqueue(profile.ID)

	return c.Status(fiber.StatusCreated).JSON(profile.Stripped())
}

func (h *ProfileHandler) HandleGet(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	profile, err := h.profiles.FindByID(c.UserContext(), id)
	if err != nil {
		return toFiberError(err)
	}

	return c.JSON(profile.Stripped())
}

// HandleUpdate replaces the profile's fields. The kind of a profile is fixed
// at creation.
func (h *ProfileHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req models.ProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	profile, err := h.profiles.FindByID(c.UserContext(), id)
	if err != nil {
		return toFiberError(err)
	}

	if req.Kind != "" && models.ProfileKind(strings.ToLower(req.Kind)) != profile.Kind {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "kind cannot be changed",
		})
	}

	applyProfileRequest(profile, &req)

	if err := h.profiles.Update(c.UserContext(), profile); err != nil {
		return toFiberError(err)
	}
	h.queue.Enqueue(profile.ID)

	return c.JSON(profile.Stripped())
}

func applyProfileRequest(p *models.Profile, req *models.ProfileRequest) {
	p.Title = strings.TrimSpace(req.DisplayTitle())
	p.Company = req.Company
	p.Description = req.Description
	p.Requirements = req.Requirements
	p.SkillsRequired = req.SkillsRequiredList()
	p.Skills = req.Skills
	p.Location = req.Location
	p.ExperienceYears = req.ExperienceYears
	p.SalaryMin = req.SalaryMin
	p.SalaryMax = req.SalaryMax

	if req.Active != nil {
		p.Active = *req.Active
	}
	if req.Metadata != nil {
		p.Metadata = datatypes.JSONMap(req.Metadata)
	}
}
