package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gig-recommender/internal/common/errors"
	"gig-recommender/internal/common/logger"
	"gig-recommender/internal/common/observability"
	"gig-recommender/internal/models"
)

// callLog records stage calls across both fakes in order.
type callLog struct {
	calls []string
}

type fakeGatherer struct {
	log     *callLog
	blob    models.ContextBlob
	err     error
	queries []models.Query
}

func (f *fakeGatherer) Gather(_ context.Context, q models.Query) (models.ContextBlob, error) {
	f.log.calls = append(f.log.calls, "gather")
	f.queries = append(f.queries, q)
	return f.blob, f.err
}

type fakeRecommender struct {
	log     *callLog
	rec     models.Recommendation
	err     error
	queries []models.Query
	blobs   []models.ContextBlob
}

func (f *fakeRecommender) Recommend(_ context.Context, q models.Query, blob models.ContextBlob) (models.Recommendation, error) {
	f.log.calls = append(f.log.calls, "recommend")
	f.queries = append(f.queries, q)
	f.blobs = append(f.blobs, blob)
	return f.rec, f.err
}

func newTestOrchestrator(t *testing.T, cfg *Config, g ContextGatherer, r Recommender) *Orchestrator {
	o := New(cfg, g, r, observability.Noop(), logger.NewTestLogger(t))
	o.newRunID = func() string { return "run-fixed" }
	return o
}

func TestRun_StagesInOrderWithExactHandoff(t *testing.T) {
	log := &callLog{}
	sentinel := models.ContextBlob{Key: "potential_test_set", Value: "SENTINEL\x00{potential_test_set}\n  trailing  "}
	g := &fakeGatherer{log: log, blob: sentinel}
	r := &fakeRecommender{log: log, rec: models.Recommendation{Text: "1. A\n2. B\n3. C"}}

	o := newTestOrchestrator(t, &Config{Name: "root_agent"}, g, r)
	rec, err := o.Run(context.Background(), "Find top 3 rated coffee shops in Indiranagar, Bangalore")

	require.NoError(t, err)
	assert.Equal(t, "1. A\n2. B\n3. C", rec.Text)
	assert.Equal(t, []string{"gather", "recommend"}, log.calls)

	require.Len(t, r.blobs, 1)
	assert.Equal(t, sentinel, r.blobs[0])

	assert.Equal(t, "run-fixed", g.queries[0].RunID)
	assert.Equal(t, g.queries[0], r.queries[0])
	assert.Equal(t, "Find top 3 rated coffee shops in Indiranagar, Bangalore", r.queries[0].Text)
}

func TestRun_StageFailures(t *testing.T) {
	tests := []struct {
		name      string
		gatherErr error
		recErr    error
		wantCode  apperrors.ErrorCode
		wantCalls []string
	}{
		{
			name:      "tool failure skips recommendation",
			gatherErr: apperrors.NewToolInvocationFailedError("google_maps_search", errors.New("unexpected status 401")),
			wantCode:  apperrors.ErrCodeToolInvocationFailed,
			wantCalls: []string{"gather"},
		},
		{
			name:      "step limit skips recommendation",
			gatherErr: apperrors.NewStageStepLimitExceededError("geospatial_analyst_agent", 8),
			wantCode:  apperrors.ErrCodeStageStepLimitExceeded,
			wantCalls: []string{"gather"},
		},
		{
			name:      "recommendation failure has no partial result",
			recErr:    apperrors.NewModelTimeoutError(context.DeadlineExceeded),
			wantCode:  apperrors.ErrCodeModelTimeout,
			wantCalls: []string{"gather", "recommend"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &callLog{}
			g := &fakeGatherer{log: log, blob: models.ContextBlob{Key: "k", Value: "v"}, err: tt.gatherErr}
			r := &fakeRecommender{log: log, rec: models.Recommendation{Text: "partial"}, err: tt.recErr}

			rec, err := newTestOrchestrator(t, &Config{}, g, r).Run(context.Background(), "gyms")

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
			assert.Empty(t, rec.Text)
			assert.Equal(t, tt.wantCalls, log.calls)
		})
	}
}

func TestRun_EmptyQueryRejected(t *testing.T) {
	for _, q := range []string{"", "   \n\t"} {
		log := &callLog{}
		o := newTestOrchestrator(t, &Config{}, &fakeGatherer{log: log}, &fakeRecommender{log: log})

		_, err := o.Run(context.Background(), q)
		assert.Equal(t, apperrors.ErrCodeInvalidQuery, apperrors.CodeOf(err))
		assert.Empty(t, log.calls)
	}
}

func TestRun_EmptyContext(t *testing.T) {
	empty := models.ContextBlob{Key: "potential_test_set", Value: " \n"}

	t.Run("passes through by default", func(t *testing.T) {
		log := &callLog{}
		r := &fakeRecommender{log: log, rec: models.Recommendation{Text: "nothing found"}}
		rec, err := newTestOrchestrator(t, &Config{}, &fakeGatherer{log: log, blob: empty}, r).Run(context.Background(), "q")

		require.NoError(t, err)
		assert.Equal(t, "nothing found", rec.Text)
		assert.Equal(t, empty, r.blobs[0])
	})

	t.Run("rejected when configured", func(t *testing.T) {
		log := &callLog{}
		o := newTestOrchestrator(t, &Config{RejectEmptyContext: true}, &fakeGatherer{log: log, blob: empty}, &fakeRecommender{log: log})
		_, err := o.Run(context.Background(), "q")

		assert.Equal(t, apperrors.ErrCodeEmptyContext, apperrors.CodeOf(err))
		assert.Equal(t, []string{"gather"}, log.calls)
	})
}

func TestNew_AssignsDistinctRunIDs(t *testing.T) {
	log := &callLog{}
	g := &fakeGatherer{log: log, blob: models.ContextBlob{Key: "k", Value: "v"}}
	o := New(&Config{}, g, &fakeRecommender{log: log}, observability.Noop(), logger.NewNoOpLogger())

	for i := 0; i < 2; i++ {
		_, err := o.Run(context.Background(), "q")
		require.NoError(t, err)
	}
	require.Len(t, g.queries, 2)
	assert.Len(t, g.queries[0].RunID, 36)
	assert.NotEqual(t, g.queries[0].RunID, g.queries[1].RunID)
}
