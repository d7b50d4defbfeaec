// Package orchestrator composes the data-gathering and recommendation stages
// into one strictly sequential run.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"gig-recommender/internal/common/camunda"
	apperrors "gig-recommender/internal/common/errors"
	"gig-recommender/internal/common/logger"
	"gig-recommender/internal/common/metrics"
	"gig-recommender/internal/common/observability"
	"gig-recommender/internal/models"
)

const (
	TaskType = "gig-recommendation"

	// ProcessID is the BPMN process that chains the stage workers.
	ProcessID = "gig-recommendation-process"
)

// ContextGatherer is the data-gathering stage.
type ContextGatherer interface {
	Gather(ctx context.Context, query models.Query) (models.ContextBlob, error)
}

// Recommender is the recommendation stage.
type Recommender interface {
	Recommend(ctx context.Context, query models.Query, blob models.ContextBlob) (models.Recommendation, error)
}

type Config struct {
	Name               string
	RejectEmptyContext bool
}

type Orchestrator struct {
	config       *Config
	gatherer     ContextGatherer
	recommender  Recommender
	obs          *observability.Observability
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	newRunID     func() string
}

func New(config *Config, gatherer ContextGatherer, recommender Recommender, obs *observability.Observability, log logger.Logger) *Orchestrator {
	scoped := log.With(map[string]interface{}{
		"taskType": TaskType,
		"agent":    config.Name,
	})
	return &Orchestrator{
		config:       config,
		gatherer:     gatherer,
		recommender:  recommender,
		obs:          obs,
		logger:       scoped,
		errorHandler: apperrors.NewErrorHandler(scoped),
		newRunID:     func() string { return uuid.NewString() },
	}
}

// Run answers text by running the gathering stage and then the
// recommendation stage with the gathered context. Either stage failing fails
// the run and no partial result is returned.
func (o *Orchestrator) Run(ctx context.Context, text string) (models.Recommendation, error) {
	start := time.Now()
	if strings.TrimSpace(text) == "" {
		err := apperrors.NewInvalidQueryError("query is empty")
		o.record(ctx, start, err)
		return models.Recommendation{}, err
	}

	query := models.Query{Text: text, RunID: o.newRunID()}
	log := o.logger.With(map[string]interface{}{"runId": query.RunID})

	ctx, span := o.obs.StartSpan(ctx, "pipeline.run", attribute.String("run.id", query.RunID))
	rec, err := o.run(ctx, query, log)
	observability.EndSpan(span, err)
	o.record(ctx, start, err)

	if err != nil {
		log.Error("pipeline failed", map[string]interface{}{
			"errorCode":   string(apperrors.CodeOf(err)),
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return models.Recommendation{}, err
	}
	log.Info("pipeline completed", map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return rec, nil
}

func (o *Orchestrator) run(ctx context.Context, query models.Query, log logger.Logger) (models.Recommendation, error) {
	log.Info("stage started", map[string]interface{}{"stage": "gather-context"})
	blob, err := o.gatherer.Gather(ctx, query)
	if err != nil {
		return models.Recommendation{}, err
	}

	if blob.IsEmpty() {
		if o.config.RejectEmptyContext {
			return models.Recommendation{}, apperrors.NewEmptyContextError(blob.Key)
		}
		log.Warn("gathered context is empty", map[string]interface{}{"outputKey": blob.Key})
	}

	log.Info("stage started", map[string]interface{}{"stage": "recommend"})
	return o.recommender.Recommend(ctx, query, blob)
}

func (o *Orchestrator) record(ctx context.Context, start time.Time, err error) {
	status := metrics.StatusOf(err)
	code := ""
	if err != nil {
		code = string(apperrors.CodeOf(err))
	}
	metrics.PipelineRuns.WithLabelValues(status, code).Inc()
	o.obs.RecordRun(ctx, time.Since(start), status)
}

// Handle runs the whole pipeline inside a single Zeebe job.
func (o *Orchestrator) Handle(client worker.JobClient, job entities.Job) {
	o.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx := context.Background()

	vars, err := job.GetVariablesAsMap()
	if err != nil {
		o.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidQueryError(err.Error()))
		return
	}
	query, _ := vars["query"].(string)

	rec, err := o.Run(ctx, query)
	if err != nil {
		o.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	camunda.CompleteJob(ctx, client, job, rec, o.logger)
}
