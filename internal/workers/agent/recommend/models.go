// internal/workers/agent/recommend/models.go
package recommend

// Input is read from job variables. Context holds every variable so the
// value stored under the configured key can be looked up by name.
type Input struct {
	Query   string
	RunID   string
	Context map[string]interface{}
}

type Output struct {
	Recommendation string `json:"recommendation"`
}
