package normalize

import (
	"sort"
	"strings"
)

// DefaultCategory is assigned when no keyword table matches.
const DefaultCategory = "community"

// Classifier assigns a category to an event by keyword match against its
// title and description. Matching order is fixed so the same input always
// classifies the same way regardless of map iteration.
type Classifier struct {
	order    []string
	keywords map[string][]string
}

// NewClassifier builds a classifier from a category-to-keywords table.
// Keywords are matched case-insensitively as substrings.
func NewClassifier(categories map[string][]string) *Classifier {
	c := &Classifier{keywords: make(map[string][]string, len(categories))}
	for cat, words := range categories {
		lowered := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				lowered = append(lowered, w)
			}
		}
		c.keywords[cat] = lowered
		c.order = append(c.order, cat)
	}
	sort.Slice(c.order, func(i, j int) bool {
		return categoryRank(c.order[i]) < categoryRank(c.order[j]) ||
			(categoryRank(c.order[i]) == categoryRank(c.order[j]) && c.order[i] < c.order[j])
	})
	return c
}

// categoryRank pins school and church ahead of everything else; remaining
// categories tie-break alphabetically.
func categoryRank(cat string) int {
	switch cat {
	case "school":
		return 0
	case "church":
		return 1
	default:
		return 2
	}
}

// Classify returns the first category whose keyword table matches the
// event's text, or fallback when none does.
func (c *Classifier) Classify(title, description, fallback string) string {
	text := strings.ToLower(title + " " + description)
	for _, cat := range c.order {
		for _, kw := range c.keywords[cat] {
			if strings.Contains(text, kw) {
				return cat
			}
		}
	}
	if fallback == "" {
		return DefaultCategory
	}
	return fallback
}
