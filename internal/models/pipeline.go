// internal/models/pipeline.go
package models

import "strings"

// Query is the end user's request. RunID correlates logs and spans of a
// single pipeline run.
type Query struct {
	Text  string `json:"query"`
	RunID string `json:"runId,omitempty"`
}

// ContextBlob is the named output of the data-gathering stage.
type ContextBlob struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// IsEmpty reports whether the gathering stage produced only whitespace.
func (c ContextBlob) IsEmpty() bool {
	return strings.TrimSpace(c.Value) == ""
}

// Recommendation is the final answer returned to the user.
type Recommendation struct {
	Text string `json:"recommendation"`
}

// RecommendationShape is a best-effort reading of a recommendation's layout.
type RecommendationShape struct {
	Items     []string `json:"items"`
	Rationale string   `json:"rationale,omitempty"`
}
