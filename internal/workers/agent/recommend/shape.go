// internal/workers/agent/recommend/shape.go
package recommend

import (
	"regexp"
	"strings"

	"gig-recommender/internal/models"
)

// Matches "1. X", "2) X", "**3.** X" and "### 1. X".
var numberedItem = regexp.MustCompile(`^\s*(?:#+\s*)?(?:\*\*)?([1-9])[.)](?:\*\*)?\s+(.+)$`)

// ParseShape reads numbered items and the closing rationale out of a
// recommendation. It is lenient and never fails; the result is used for
// logging and tests only.
func ParseShape(text string) models.RecommendationShape {
	var shape models.RecommendationShape
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	lastItem := -1
	for i, line := range lines {
		m := numberedItem.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		shape.Items = append(shape.Items, cleanItem(m[2]))
		lastItem = i
	}
	if lastItem < 0 {
		shape.Rationale = strings.TrimSpace(text)
		return shape
	}

	// The rationale is the first paragraph break after the last item onwards.
	rest := lines[lastItem+1:]
	for i, line := range rest {
		if strings.TrimSpace(line) == "" {
			shape.Rationale = strings.TrimSpace(strings.Join(rest[i:], "\n"))
			break
		}
	}
	return shape
}

func cleanItem(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(s)
}
