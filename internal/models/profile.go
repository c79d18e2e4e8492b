package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ProfileKind string

const (
	KindJob       ProfileKind = "job"
	KindProject   ProfileKind = "project"
	KindCandidate ProfileKind = "candidate"
)

// Valid reports whether k is one of the known profile kinds.
func (k ProfileKind) Valid() bool {
	switch k {
	case KindJob, KindProject, KindCandidate:
		return true
	}
	return false
}

// IsPosting reports whether k is a job or a project.
func (k ProfileKind) IsPosting() bool {
	return k == KindJob || k == KindProject
}

// Profile is a job, project or candidate record. For candidates Title holds the
// candidate's name.
type Profile struct {
	ID              uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Kind            ProfileKind       `gorm:"type:text;not null;index" json:"kind"`
	Title           string            `gorm:"type:text" json:"title"`
	Company         string            `gorm:"type:text" json:"company,omitempty"`
	Description     string            `gorm:"type:text" json:"description"`
	Requirements    pq.StringArray    `gorm:"type:text[]" json:"requirements,omitempty"`
	SkillsRequired  pq.StringArray    `gorm:"type:text[]" json:"skills_required,omitempty"`
	Skills          pq.StringArray    `gorm:"type:text[]" json:"skills,omitempty"`
	Location        string            `gorm:"type:text;index" json:"location"`
	ExperienceYears int               `gorm:"not null;default:0" json:"experience_years"`
	SalaryMin       float64           `gorm:"type:numeric" json:"salary_min,omitempty"`
	SalaryMax       float64           `gorm:"type:numeric" json:"salary_max,omitempty"`
	Active          bool              `gorm:"not null;index" json:"active"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	Embedding       *pgvector.Vector  `gorm:"type:vector" json:"embedding,omitempty"`
	EmbeddingModel  string            `gorm:"type:text" json:"-"`
	EmbeddingHash   string            `gorm:"type:text" json:"-"`
	EmbeddingStale  bool              `gorm:"not null;index" json:"-"`
	CreatedAt       time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// EmbeddingValues returns the stored vector, or nil when none is stored.
func (p *Profile) EmbeddingValues() []float32 {
	if p == nil || p.Embedding == nil {
		return nil
	}
	return p.Embedding.Slice()
}

// SetEmbedding attaches a vector together with the model and text fingerprint
// it was derived from.
func (p *Profile) SetEmbedding(values []float32, model, hash string) {
	if len(values) == 0 {
		p.Embedding = nil
		return
	}
	vec := pgvector.NewVector(values)
	p.Embedding = &vec
	p.EmbeddingModel = model
	p.EmbeddingHash = hash
	p.EmbeddingStale = false
}

// Stripped returns a copy of the profile without its embedding.
func (p Profile) Stripped() Profile {
	p.Embedding = nil
	return p
}

// PostingRequirements returns the requirement list used for keyword scoring:
// Requirements, or the SkillsRequired alias when Requirements is empty.
func (p *Profile) PostingRequirements() []string {
	if len(p.Requirements) > 0 {
		return p.Requirements
	}
	return p.SkillsRequired
}

// RequiredSkills returns the union of Requirements and SkillsRequired in
// first-seen order.
func (p *Profile) RequiredSkills() []string {
	seen := make(map[string]bool, len(p.Requirements)+len(p.SkillsRequired))
	var out []string
	for _, list := range [][]string{p.Requirements, p.SkillsRequired} {
		for _, s := range list {
			key := NormalizeSkill(s)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// NormalizeSkill folds a skill name for set comparison.
func NormalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
