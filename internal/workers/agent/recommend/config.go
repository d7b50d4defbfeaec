// internal/workers/agent/recommend/config.go
package recommend

import (
	"time"

	"gig-recommender/internal/common/config"
)

type Config struct {
	Name        string
	Instruction string
	// InputKey names the placeholder that receives the gathered context.
	InputKey string
	Timeout  time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	stage := cfg.Stages.Recommend
	return &Config{
		Name:        stage.Name,
		Instruction: stage.Instruction,
		InputKey:    cfg.Stages.GatherContext.OutputKey,
		Timeout:     config.GetDuration(stage.Timeout),
	}
}
