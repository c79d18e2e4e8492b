package models

type ProfileRequest struct {
	Kind            string         `json:"kind"`
	Title           string         `json:"title"`
	Name            string         `json:"name"`
	Company         string         `json:"company"`
	Description     string         `json:"description"`
	Requirements    []string       `json:"requirements"`
	SkillsRequired  []string       `json:"skills_required"`
	RequiredSkills  []string       `json:"required_skills"`
	Skills          []string       `json:"skills"`
	Location        string         `json:"location"`
	ExperienceYears int            `json:"experience_years"`
	SalaryMin       float64        `json:"salary_min"`
	SalaryMax       float64        `json:"salary_max"`
	Active          *bool          `json:"active"`
	Metadata        map[string]any `json:"metadata"`
}

// DisplayTitle returns the title, falling back to the candidate name field.
func (r *ProfileRequest) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// SkillsRequiredList merges the skills_required and required_skills aliases.
func (r *ProfileRequest) SkillsRequiredList() []string {
	if len(r.SkillsRequired) > 0 {
		return r.SkillsRequired
	}
	return r.RequiredSkills
}

type UploadResponse struct {
	ProfileID    string `json:"profile_id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	PageCount    int    `json:"page_count"`
}

type ScoreRequest struct {
	PostingID   string `json:"posting_id"`
	CandidateID string `json:"candidate_id"`
}

// MatchRequest scores SourceID against TargetIDs, or against up to Limit
// active profiles of the opposite side when TargetIDs is empty.
type MatchRequest struct {
	SourceID  string   `json:"source_id"`
	TargetIDs []string `json:"target_ids"`
	Limit     int      `json:"limit"`
	Persist   bool     `json:"persist"`
}

type MatchResponse struct {
	SourceID  string        `json:"source_id"`
	Results   []MatchResult `json:"results"`
	Persisted int           `json:"persisted"`
}

type SearchRequest struct {
	Collection string                 `json:"collection"`
	Query      string                 `json:"query"`
	TopK       int                    `json:"top_k"`
	Equals     map[string]any         `json:"equals"`
	Ranges     map[string]RangeFilter `json:"ranges"`
}

// RangeFilter bounds a numeric field; nil bounds are open.
type RangeFilter struct {
	Gte *float64 `json:"gte,omitempty"`
	Lte *float64 `json:"lte,omitempty"`
}

type SearchResponse struct {
	Collection string    `json:"collection"`
	Results    []Profile `json:"results"`
}
