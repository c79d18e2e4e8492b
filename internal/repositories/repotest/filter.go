// Package repotest holds helpers for tests that replace the gorm
// repositories with in-memory fakes.
package repotest

import (
	"alfredoptarigan/talent-matcher/internal/models"
	"alfredoptarigan/talent-matcher/internal/repositories"
)

// Matches evaluates f against an in-memory profile the way Filter.Apply
// constrains a SQL query. In-memory repository fakes use it.
func Matches(f repositories.Filter, p *models.Profile) bool {
	for key, want := range f.Equals {
		var got any
		switch key {
		case "title":
			got = p.Title
		case "company":
			got = p.Company
		case "location":
			got = p.Location
		case "active":
			got = p.Active
		case "experience_years":
			got = float64(p.ExperienceYears)
		default:
			got = p.Metadata[key]
		}
		if !looseEqual(got, want) {
			return false
		}
	}

	for key, r := range f.Ranges {
		var v float64
		switch key {
		case "experience_years":
			v = float64(p.ExperienceYears)
		case "salary_min":
			v = p.SalaryMin
		case "salary_max":
			v = p.SalaryMax
		}
		if r.Gte != nil && v < *r.Gte {
			return false
		}
		if r.Lte != nil && v > *r.Lte {
			return false
		}
	}

	return true
}

func looseEqual(a, b any) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
