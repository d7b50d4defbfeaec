// Package prompt resolves {key} placeholders in stage instructions.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "gig-recommender/internal/common/errors"
)

// State holds the named values a template may reference.
type State map[string]string

// {key} is required, {key?} resolves to "" when missing. Keys are
// identifiers, so JSON-looking braces in the text are left alone.
var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(\?)?\}`)

// Render substitutes every placeholder in tmpl from state.
func Render(tmpl string, state State) (string, error) {
	var missing string
	out := placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		groups := placeholder.FindStringSubmatch(match)
		key, optional := groups[1], groups[2] == "?"
		if val, ok := state[key]; ok {
			return val
		}
		if optional {
			return ""
		}
		if missing == "" {
			missing = key
		}
		return match
	})
	if missing != "" {
		return "", apperrors.NewTemplateVariableMissingError(missing)
	}
	return out, nil
}

// Keys lists the distinct placeholder keys in tmpl in order of appearance.
func Keys(tmpl string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, m := range placeholder.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

// QuoteList renders values as a comma separated list of backticked names.
func QuoteList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, fmt.Sprintf("`%s`", v))
	}
	return strings.Join(quoted, ", ")
}
