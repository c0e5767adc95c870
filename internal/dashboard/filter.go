package dashboard

import (
	"strings"
	"time"

	"fintrack/internal/core"
)

// AllCategories is the form value meaning "do not filter by category".
const AllCategories = "todas"

// DisplayDateLayout is how dates are shown back to the user.
const DisplayDateLayout = "02/01/2006"

const endOfDay = 24*time.Hour - time.Second

// Criteria is a parsed filter. Zero values mean "no bound".
type Criteria struct {
	Start    time.Time
	End      time.Time // already extended to 23:59:59
	Category string
}

// AppliedFilters echoes the predicates that were actually applied.
type AppliedFilters struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Category  string `json:"category,omitempty"`
}

// ParseCriteria turns raw query values into Criteria. Blank or unparsable
// dates are dropped, as is the "all categories" sentinel.
func ParseCriteria(start, end, category string) Criteria {
	var c Criteria
	if d, err := time.Parse(core.DateLayout, strings.TrimSpace(start)); err == nil {
		c.Start = d
	}
	if d, err := time.Parse(core.DateLayout, strings.TrimSpace(end)); err == nil {
		c.End = d.Add(endOfDay)
	}
	if !isAllCategories(category) {
		c.Category = strings.TrimSpace(category)
	}
	return c
}

func isAllCategories(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, AllCategories) || strings.EqualFold(s, "all")
}

// IsZero reports whether c filters nothing.
func (c Criteria) IsZero() bool {
	return c.Start.IsZero() && c.End.IsZero() && c.Category == ""
}

// Match reports whether t satisfies every bound of c.
func (c Criteria) Match(t core.Transaction) bool {
	if !c.Start.IsZero() && t.OccurredAt.Before(c.Start) {
		return false
	}
	if !c.End.IsZero() && t.OccurredAt.After(c.End) {
		return false
	}
	if c.Category != "" && !strings.EqualFold(strings.TrimSpace(t.Category), c.Category) {
		return false
	}
	return true
}

// Applied returns the display echo of c.
func (c Criteria) Applied() AppliedFilters {
	var f AppliedFilters
	if !c.Start.IsZero() {
		f.StartDate = c.Start.Format(DisplayDateLayout)
	}
	if !c.End.IsZero() {
		f.EndDate = c.End.Format(DisplayDateLayout)
	}
	f.Category = c.Category
	return f
}

// Apply returns the records matching c in their original order. The input
// slice is never modified.
func Apply(records []core.Transaction, c Criteria) ([]core.Transaction, AppliedFilters) {
	out := make([]core.Transaction, 0, len(records))
	for _, t := range records {
		if c.Match(t) {
			out = append(out, t)
		}
	}
	return out, c.Applied()
}
