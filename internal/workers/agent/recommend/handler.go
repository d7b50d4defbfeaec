// internal/workers/agent/recommend/handler.go
package recommend

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
)

const (
	TaskType = "recommend"
)

type Handler struct {
	config       *Config
	model        llm.ChatModel
	obs          *observability.Observability
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, model llm.ChatModel, obs *observability.Observability, log logger.Logger) *Handler {
	scoped := log.With(map[string]interface{}{
		"taskType": TaskType,
		"stage":    config.Name,
	})
	if !references(config.Instruction, config.InputKey) {
		scoped.Warn("instruction does not reference the gathered context", map[string]interface{}{
			"inputKey": config.InputKey,
		})
	}
	return &Handler{
		config:       config,
		model:        model,
		obs:          obs,
		logger:       scoped,
		errorHandler: apperrors.NewErrorHandler(scoped),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx := context.Background()

	vars, err := job.GetVariablesAsMap()
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidQueryError(fmt.Sprintf("parse input: %v", err)))
		return
	}
	input := parseInput(vars)
	if strings.TrimSpace(input.Query) == "" {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidQueryError("query is empty"))
		return
	}

	blob, ok := h.contextFrom(input)
	if !ok {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewTemplateVariableMissingError(h.config.InputKey))
		return
	}

	rec, err := h.Recommend(ctx, models.Query{Text: input.Query, RunID: input.RunID}, blob)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	camunda.CompleteJob(ctx, client, job, Output{Recommendation: rec.Text}, h.logger)
}

func parseInput(vars map[string]interface{}) Input {
	input := Input{Context: vars}
	input.Query, _ = vars["query"].(string)
	input.RunID, _ = vars["runId"].(string)
	return input
}

// contextFrom reads the gathered context from the job variables. Non-string
// values are passed on as JSON.
func (h *Handler) contextFrom(input Input) (models.ContextBlob, bool) {
	raw, ok := input.Context[h.config.InputKey]
	if !ok || raw == nil {
		return models.ContextBlob{}, false
	}
	if s, isString := raw.(string); isString {
		return models.ContextBlob{Key: h.config.InputKey, Value: s}, true
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return models.ContextBlob{}, false
	}
	return models.ContextBlob{Key: h.config.InputKey, Value: string(data)}, true
}

// Recommend makes a single tool-less model call with blob interpolated into
// the instruction and query as the user turn.
func (h *Handler) Recommend(ctx context.Context, query models.Query, blob models.ContextBlob) (models.Recommendation, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	ctx, span := h.obs.StartSpan(ctx, "stage."+TaskType,
		attribute.String("stage.name", h.config.Name),
		attribute.String("run.id", query.RunID),
		attribute.Int("context.bytes", len(blob.Value)),
	)
	start := time.Now()
	rec, err := h.recommend(ctx, query, blob)
	observability.EndSpan(span, err)
	metrics.StageDuration.WithLabelValues(TaskType, metrics.StatusOf(err)).Observe(time.Since(start).Seconds())

	log := h.logger.With(map[string]interface{}{"runId": query.RunID})
	if err != nil {
		log.Warn("stage failed", map[string]interface{}{
			"errorCode": string(apperrors.CodeOf(err)),
			"error":     err.Error(),
		})
		return models.Recommendation{}, err
	}

	shape := ParseShape(rec.Text)
	log.Info("stage completed", map[string]interface{}{
		"items":        len(shape.Items),
		"hasRationale": shape.Rationale != "",
		"duration_ms":  time.Since(start).Milliseconds(),
	})
	return rec, nil
}

func (h *Handler) recommend(ctx context.Context, query models.Query, blob models.ContextBlob) (models.Recommendation, error) {
	instruction, err := prompt.Render(h.config.Instruction, prompt.State{blob.Key: blob.Value})
	if err != nil {
		return models.Recommendation{}, err
	}

	reply, err := h.model.Complete(ctx, []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: instruction},
		{Role: llm.RoleUser, Content: query.Text},
	}, nil)
	if err != nil {
		return models.Recommendation{}, err
	}
	if len(reply.ToolCalls) > 0 {
		return models.Recommendation{}, apperrors.NewModelResponseMalformedError("recommendation stage received tool calls")
	}
	return models.Recommendation{Text: reply.Content}, nil
}

func references(instruction, key string) bool {
	for _, k := range prompt.Keys(instruction) {
		if k == key {
			return true
		}
	}
	return false
}
