// internal/workers/agent/gather-context/models.go
package gathercontext

type Input struct {
	Query string `json:"query"`
	RunID string `json:"runId"`
}
