package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"gig-recommender/internal/common/config"
	apperrors "gig-recommender/internal/common/errors"
)

// Built-in binding names.
const (
	BuiltinExcel      = "excel"
	BuiltinGoogleMaps = "google_maps"
)

// Build populates registry from the enabled bindings in cfg. Stdio bindings
// are dialled with dial; built-in bindings are constructed in process. The
// first failure stops the build and already started servers stay owned by
// registry, so callers must still Close it.
func Build(ctx context.Context, cfg *config.Config, registry *Registry, dial Dialer) error {
	if dial == nil {
		dial = StdioDialer
	}
	for _, binding := range cfg.EnabledTools() {
		switch binding.Transport {
		case config.TransportStdio:
			if err := ConnectMCP(ctx, binding, dial, registry); err != nil {
				return err
			}
		case config.TransportBuiltin:
			builtins, err := builtinTools(cfg, binding)
			if err != nil {
				return err
			}
			for _, t := range builtins {
				if err := registry.Register(t); err != nil {
					return err
				}
			}
		default:
			return apperrors.NewInvalidConfigurationError(fmt.Sprintf("tools.%s: unsupported transport %q", binding.Name, binding.Transport))
		}
	}
	return nil
}

func builtinTools(cfg *config.Config, binding config.ToolBinding) ([]Tool, error) {
	switch binding.Name {
	case BuiltinExcel:
		path := cfg.Dataset.Path
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		return ExcelTools(binding.Name, path), nil
	case BuiltinGoogleMaps:
		return []Tool{NewGoogleMapsTool(binding.Name, ApifyConfig{
			Token:   cfg.Credentials.ApifyToken,
			Timeout: config.GetDuration(cfg.Stages.GatherContext.Timeout),
		})}, nil
	default:
		return nil, apperrors.NewInvalidConfigurationError(fmt.Sprintf("tools.%s: no built-in implementation", binding.Name))
	}
}
