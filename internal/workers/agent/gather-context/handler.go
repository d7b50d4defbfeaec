// internal/workers/agent/gather-context/handler.go
package gathercontext

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"

	"gig-recommender/internal/common/camunda"
	apperrors "gig-recommender/internal/common/errors"
	"gig-recommender/internal/common/llm"
	"gig-recommender/internal/common/logger"
	"gig-recommender/internal/common/metrics"
	"gig-recommender/internal/common/observability"
	"gig-recommender/internal/common/prompt"
	"gig-recommender/internal/models"
	"gig-recommender/internal/tools"
)

const (
	TaskType = "gather-context"
)

// ToolInvoker is the part of the tool registry the stage uses.
type ToolInvoker interface {
	Definitions() []tools.Definition
	InvokeJSON(ctx context.Context, name, rawArgs string) (string, error)
}

type Handler struct {
	config       *Config
	model        llm.ChatModel
	tools        ToolInvoker
	obs          *observability.Observability
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, model llm.ChatModel, toolset ToolInvoker, obs *observability.Observability, log logger.Logger) *Handler {
	scoped := log.With(map[string]interface{}{
		"taskType": TaskType,
		"stage":    config.Name,
	})
	return &Handler{
		config:       config,
		model:        model,
		tools:        toolset,
		obs:          obs,
		logger:       scoped,
		errorHandler: apperrors.NewErrorHandler(scoped),
	}
}

// Handle runs the stage for a Zeebe job and completes it with the gathered
// context under the configured output key.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx := context.Background()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidQueryError(fmt.Sprintf("parse input: %v", err)))
		return
	}
	if strings.TrimSpace(input.Query) == "" {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidQueryError("query is empty"))
		return
	}

	blob, err := h.Gather(ctx, models.Query{Text: input.Query, RunID: input.RunID})
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	camunda.CompleteJob(ctx, client, job, map[string]interface{}{blob.Key: blob.Value}, h.logger)
}

// Gather runs the tool-calling loop for query and returns the model's final
// answer as the context blob. Any tool error ends the stage.
func (h *Handler) Gather(ctx context.Context, query models.Query) (models.ContextBlob, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	ctx, span := h.obs.StartSpan(ctx, "stage."+TaskType,
		attribute.String("stage.name", h.config.Name),
		attribute.String("run.id", query.RunID),
	)
	start := time.Now()
	blob, err := h.gather(ctx, query)
	observability.EndSpan(span, err)
	metrics.StageDuration.WithLabelValues(TaskType, metrics.StatusOf(err)).Observe(time.Since(start).Seconds())

	log := h.logger.With(map[string]interface{}{"runId": query.RunID})
	if err != nil {
		log.Warn("stage failed", map[string]interface{}{
			"errorCode": string(apperrors.CodeOf(err)),
			"error":     err.Error(),
		})
		return models.ContextBlob{}, err
	}
	log.Info("stage completed", map[string]interface{}{
		"outputKey":   blob.Key,
		"outputBytes": len(blob.Value),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return blob, nil
}

func (h *Handler) gather(ctx context.Context, query models.Query) (models.ContextBlob, error) {
	instruction, err := prompt.Render(h.config.Instruction, prompt.State{
		"dataset_path":   h.config.DatasetPath,
		"dataset_sheets": prompt.QuoteList(h.config.DatasetSheets),
	})
	if err != nil {
		return models.ContextBlob{}, err
	}

	messages := []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: instruction},
		{Role: llm.RoleUser, Content: query.Text},
	}
	toolDefs := h.toolDefinitions()

	for step := 1; step <= h.config.MaxSteps; step++ {
		reply, err := h.model.Complete(ctx, messages, toolDefs)
		if err != nil {
			return models.ContextBlob{}, err
		}
		messages = append(messages, *reply)

		if len(reply.ToolCalls) == 0 {
			return models.ContextBlob{Key: h.config.OutputKey, Value: reply.Content}, nil
		}

		for _, call := range reply.ToolCalls {
			h.logger.Debug("tool requested", map[string]interface{}{
				"runId": query.RunID,
				"step":  step,
				"tool":  call.Function.Name,
			})
			out, err := h.tools.InvokeJSON(ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				return models.ContextBlob{}, err
			}
			messages = append(messages, llm.ChatMessage{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    out,
			})
		}
	}
	return models.ContextBlob{}, apperrors.NewStageStepLimitExceededError(h.config.Name, h.config.MaxSteps)
}

func (h *Handler) toolDefinitions() []llm.Tool {
	defs := h.tools.Definitions()
	out := make([]llm.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, llm.ToolDefinition(d.Name, d.Description, d.InputSchema))
	}
	return out
}
