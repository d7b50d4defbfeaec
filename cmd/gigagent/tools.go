package main

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"gig-recommender/internal/app"
	"gig-recommender/internal/common/config"
	"gig-recommender/internal/tools"
)

type ToolsCmd struct {
	root *Options
}

type catalogue struct {
	Bindings []config.ToolBinding `yaml:"bindings"`
	Tools    []tools.Definition   `yaml:"tools"`
}

func (c *ToolsCmd) Execute(_ []string) error {
	cfg, err := c.root.loadConfig()
	if err != nil {
		return err
	}

	a, err := app.Build(context.Background(), cfg, c.root.newLogger(cfg), app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	enc := yaml.NewEncoder(c.root.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(catalogue{Bindings: cfg.EnabledTools(), Tools: a.Tools.Definitions()}); err != nil {
		return fmt.Errorf("encode catalogue: %w", err)
	}
	return enc.Close()
}
