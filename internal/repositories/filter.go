package repositories

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"alfredoptarigan/talent-matcher/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidFilter = errors.New("invalid filter")
)

// Filter restricts profile retrieval. Equality keys that are not profile
// columns are matched against the metadata document.
type Filter struct {
	Equals map[string]any
	Ranges map[string]models.RangeFilter
}

var equalityColumns = map[string]bool{
	"title":            true,
	"company":          true,
	"location":         true,
	"active":           true,
	"experience_years": true,
}

var rangeColumns = map[string]bool{
	"experience_years": true,
	"salary_min":       true,
	"salary_max":       true,
}

var metadataKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

func (f Filter) IsEmpty() bool {
	return len(f.Equals) == 0 && len(f.Ranges) == 0
}

func (f Filter) Validate() error {
	for key, value := range f.Equals {
		if equalityColumns[key] {
			continue
		}
		if !metadataKeyPattern.MatchString(key) {
			return fmt.Errorf("%w: unsupported key %q", ErrInvalidFilter, key)
		}
		switch value.(type) {
		case string, bool, float64, float32, int, int64:
		default:
			return fmt.Errorf("%w: unsupported value type %T for %q", ErrInvalidFilter, value, key)
		}
	}

	for key, r := range f.Ranges {
		if !rangeColumns[key] {
			return fmt.Errorf("%w: %q is not a range field", ErrInvalidFilter, key)
		}
		if r.Gte == nil && r.Lte == nil {
			return fmt.Errorf("%w: empty range for %q", ErrInvalidFilter, key)
		}
		if r.Gte != nil && r.Lte != nil && *r.Gte > *r.Lte {
			return fmt.Errorf("%w: inverted range for %q", ErrInvalidFilter, key)
		}
	}

	return nil
}

// Apply adds the filter predicates to db. Callers validate first.
func (f Filter) Apply(db *gorm.DB) *gorm.DB {
	if f.IsEmpty() {
		return db
	}

	for _, key := range sortedKeys(f.Equals) {
		value := f.Equals[key]
		if equalityColumns[key] {
			db = db.Where(fmt.Sprintf("%s = ?", key), value)
			continue
		}
		db = db.Where(datatypes.JSONQuery("metadata").Equals(value, key))
	}

	rangeKeys := make([]string, 0, len(f.Ranges))
	for key := range f.Ranges {
		rangeKeys = append(rangeKeys, key)
	}
	sort.Strings(rangeKeys)

	for _, key := range rangeKeys {
		r := f.Ranges[key]
		if r.Gte != nil {
			db = db.Where(fmt.Sprintf("%s >= ?", key), *r.Gte)
		}
		if r.Lte != nil {
			db = db.Where(fmt.Sprintf("%s <= ?", key), *r.Lte)
		}
	}

	return db
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
