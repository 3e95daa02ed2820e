package ingest

import (
	"sort"
	"strings"
)

// Story categories, in display order.
const (
	CategoryAll           = "All"
	CategoryTechnology    = "Technology"
	CategorySports        = "Sports"
	CategoryPolitics      = "Politics"
	CategoryWorld         = "World News"
	CategoryBusiness      = "Business"
	CategoryEntertainment = "Entertainment"
	CategoryOther         = "Other"
)

// categoryRules are checked in order against the lowercased feed name; the
// first rule with a matching keyword wins. "espn" covers ESPN feeds, whose
// names rarely say "sports".
var categoryRules = []struct {
	keywords []string
	category string
}{
	{[]string{"technology"}, CategoryTechnology},
	{[]string{"sports", "espn"}, CategorySports},
	{[]string{"politics"}, CategoryPolitics},
	{[]string{"world", "international"}, CategoryWorld},
	{[]string{"business"}, CategoryBusiness},
	{[]string{"entertainment"}, CategoryEntertainment},
}

var categoryRank = map[string]int{
	CategoryAll:           0,
	CategoryTechnology:    1,
	CategorySports:        2,
	CategoryPolitics:      3,
	CategoryWorld:         4,
	CategoryBusiness:      5,
	CategoryEntertainment: 6,
	CategoryOther:         7,
}

// Categorize derives a story category from its feed's name. This is a
// keyword heuristic on the name only; story content is never inspected.
func Categorize(feedName string) string {
	name := strings.ToLower(feedName)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// SortCategories returns names in display order: known categories by their
// fixed rank, then anything else alphabetically.
func SortCategories(names []string) []string {
	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i]), rank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

func rank(category string) int {
	if r, ok := categoryRank[category]; ok {
		return r
	}
	return len(categoryRank)
}
