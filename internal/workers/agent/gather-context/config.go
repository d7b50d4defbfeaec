// internal/workers/agent/gather-context/config.go
package gathercontext

import (
	"path/filepath"
	"time"

	"gig-recommender/internal/common/config"
)

type Config struct {
	Name          string
	Instruction   string
	OutputKey     string
	MaxSteps      int
	Timeout       time.Duration
	DatasetPath   string
	DatasetSheets []string
}

func LoadConfig(cfg *config.Config) *Config {
	stage := cfg.Stages.GatherContext
	datasetPath := cfg.Dataset.Path
	if abs, err := filepath.Abs(datasetPath); err == nil {
		datasetPath = abs
	}
	return &Config{
		Name:          stage.Name,
		Instruction:   stage.Instruction,
		OutputKey:     stage.OutputKey,
		MaxSteps:      stage.MaxSteps,
		Timeout:       config.GetDuration(stage.Timeout),
		DatasetPath:   datasetPath,
		DatasetSheets: cfg.Dataset.Sheets,
	}
}
