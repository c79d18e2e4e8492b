package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"alfredoptarigan/talent-matcher/internal/models"
)

// Textualize renders a profile into the single string its embedding and text
// search are derived from. Field order is fixed per kind and missing fields
// render as empty strings. Unknown kinds fall back to title and description.
func Textualize(p *models.Profile) string {
	if p == nil {
		return ""
	}

	var fields []string
	switch p.Kind {
	case models.KindJob:
		fields = []string{
			p.Title,
			p.Company,
			p.Description,
			strings.Join(p.Requirements, " "),
			strings.Join(p.SkillsRequired, " "),
			p.Location,
		}
	case models.KindProject:
		fields = []string{
			p.Title,
			p.Description,
			strings.Join(p.Requirements, " "),
			strings.Join(p.SkillsRequired, " "),
			p.Location,
		}
	case models.KindCandidate:
		fields = []string{
			p.Title,
			p.Description,
			strings.Join(p.Skills, " "),
			p.Location,
		}
	default:
		fields = []string{p.Title, p.Description}
	}

	return strings.Join(fields, " ")
}

// Fingerprint returns the hex sha256 of a textual representation.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
