package ics

import (
	"strings"

	"github.com/jeffreylongo/lodge-api/internal/models"
)

// categoryKeywords maps, in match order, title substrings to categories.
var categoryKeywords = []struct {
	category models.EventCategory
	words    []string
}{
	{models.CategoryDinner, []string{"dinner", "meal"}},
	{models.CategoryDegree, []string{"degree", "initiation", "passing", "raising"}},
	{models.CategoryEducation, []string{"education", "lecture", "presentation"}},
	{models.CategoryMeeting, []string{"meeting", "communication"}},
}

// Classify buckets a free-text event title into a semantic category.
// Matching is a case-insensitive substring test, first match wins.
func Classify(title string) models.EventCategory {
	lower := strings.ToLower(title)
	for _, entry := range categoryKeywords {
		for _, word := range entry.words {
			if strings.Contains(lower, word) {
				return entry.category
			}
		}
	}
	return models.CategoryOther
}
