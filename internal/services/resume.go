package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/talent-matcher/internal/logger"
	"alfredoptarigan/talent-matcher/internal/models"
	"alfredoptarigan/talent-matcher/internal/repositories"
)

const maxResumeTextRunes = 20000

type ResumeService interface {
	Attach(ctx context.Context, candidateID uuid.UUID, file *multipart.FileHeader) (*models.Profile, *models.UploadResponse, error)
}

type resumeService struct {
	profiles repositories.ProfileRepository
	storage  FileStorage
	parser   ResumeParser
	log      *zap.Logger
}

func NewResumeService(profiles repositories.ProfileRepository, storage FileStorage, parser ResumeParser, log *zap.Logger) ResumeService {
	return &resumeService{
		profiles: profiles,
		storage:  storage,
		parser:   parser,
		log:      logger.OrNop(log),
	}
}

// Attach stores a candidate's resume, folds its text into the description
// and saves the profile, which leaves its embedding stale.
func (s *resumeService) Attach(ctx context.Context, candidateID uuid.UUID, file *multipart.FileHeader) (*models.Profile, *models.UploadResponse, error) {
	profile, err := s.profiles.FindByID(ctx, candidateID)
	if err != nil {
		return nil, nil, err
	}
	if profile.Kind != models.KindCandidate {
		return nil, nil, fmt.Errorf("%w: resumes can only be attached to candidates", ErrInvalidProfile)
	}

	stored, err := s.storage.Save(file, profile.ID)
	if err != nil {
		return nil, nil, err
	}

	content, err := s.parser.Extract(stored.Path)
	if err != nil {
		if delErr := s.storage.Delete(stored.Name); delErr != nil {
			s.log.Warn("failed to remove unreadable resume", zap.String("file", stored.Name), zap.Error(delErr))
		}
		return nil, nil, fmt.Errorf("failed to read resume: %w", err)
	}

	text := truncateRunes(content.Text, maxResumeTextRunes)
	if profile.Description == "" {
		profile.Description = text
	} else {
		profile.Description = profile.Description + "\n\n" + text
	}

	if profile.Metadata == nil {
		profile.Metadata = map[string]interface{}{}
	}
	profile.Metadata["resume_file"] = stored.Name
	profile.Metadata["resume_pages"] = content.PageCount

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, nil, err
	}

	s.log.Info("resume attached",
		append(logger.ProfileFields(profile.ID, string(profile.Kind)), zap.Int("pages", content.PageCount))...,
	)

	return profile, &models.UploadResponse{
		ProfileID:    profile.ID.String(),
		Filename:     stored.Name,
		OriginalName: file.Filename,
		PageCount:    content.PageCount,
	}, nil
}

// truncateRunes cuts s to at most limit runes.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
