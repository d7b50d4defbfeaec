// Package tools holds the explicit registry of callable tools and the
// adapters that populate it from MCP servers and built-in implementations.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "gig-recommender/internal/common/errors"
	"gig-recommender/internal/common/logger"
	"gig-recommender/internal/common/metrics"
	"gig-recommender/internal/common/observability"
	"gig-recommender/internal/common/validation"
)

// Definition is what the model sees of a tool.
type Definition struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description,omitempty"`
	Source      string                 `yaml:"source"`
	InputSchema map[string]interface{} `yaml:"inputSchema,omitempty"`
}

// Tool is a single invocable capability.
type Tool interface {
	Definition() Definition
	Invoke(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry maps tool names to implementations. Registration order is kept so
// the model always sees tools in the same order.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	order   []string
	closers []io.Closer
	logger  logger.Logger
	obs     *observability.Observability
}

func NewRegistry(log logger.Logger, obs *observability.Observability) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: log.With(map[string]interface{}{"component": "tools"}),
		obs:    obs,
	}
}

// Register adds t. A second tool with the same name is a configuration error.
func (r *Registry) Register(t Tool) error {
	def := t.Definition()
	if strings.TrimSpace(def.Name) == "" {
		return apperrors.NewInvalidConfigurationError("tool without a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return apperrors.NewInvalidConfigurationError(fmt.Sprintf("tool %q registered twice", def.Name))
	}
	r.tools[def.Name] = t
	r.order = append(r.order, def.Name)

	r.logger.Debug("tool registered", map[string]interface{}{
		"tool":   def.Name,
		"source": def.Source,
	})
	return nil
}

// AddCloser registers a resource released by Close.
func (r *Registry) AddCloser(c io.Closer) {
	r.mu.Lock()
	r.closers = append(r.closers, c)
	r.mu.Unlock()
}

// Definitions returns every registered tool in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Definition())
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Invoke validates args against the tool's input schema and calls it. Errors
// are returned as-is; nothing is retried.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		metrics.ToolCalls.WithLabelValues(name, metrics.StatusError).Inc()
		return "", apperrors.NewToolNotFoundError(name)
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	def := t.Definition()
	result, err := validation.ValidateInput(args, def.InputSchema)
	if err != nil {
		metrics.ToolCalls.WithLabelValues(name, metrics.StatusError).Inc()
		return "", apperrors.NewToolArgumentsInvalidError(name, err.Error())
	}
	if !result.Valid {
		metrics.ToolCalls.WithLabelValues(name, metrics.StatusError).Inc()
		return "", apperrors.NewToolArgumentsInvalidError(name, result.Summary())
	}

	ctx, span := r.obs.StartSpan(ctx, "tool."+name, attribute.String("tool.source", def.Source))
	start := time.Now()
	out, err := t.Invoke(ctx, args)
	if err != nil {
		if _, typed := apperrors.AsStandardError(err); !typed {
			err = apperrors.NewToolInvocationFailedError(name, err)
		}
	}
	observability.EndSpan(span, err)
	metrics.ToolCalls.WithLabelValues(name, metrics.StatusOf(err)).Inc()

	fields := map[string]interface{}{
		"tool":        name,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		r.logger.Warn("tool call failed", fields)
		return "", err
	}
	fields["resultBytes"] = len(out)
	r.logger.Info("tool call completed", fields)
	return out, nil
}

// InvokeJSON decodes rawArgs, as sent by the model, and calls Invoke.
func (r *Registry) InvokeJSON(ctx context.Context, name, rawArgs string) (string, error) {
	args := map[string]interface{}{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			metrics.ToolCalls.WithLabelValues(name, metrics.StatusError).Inc()
			return "", apperrors.NewToolArgumentsInvalidError(name, fmt.Sprintf("arguments are not a JSON object: %v", err))
		}
	}
	return r.Invoke(ctx, name, args)
}

// Close releases tool server connections.
func (r *Registry) Close() error {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var firstErr error
	for _, c := range closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
