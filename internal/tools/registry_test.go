package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gig-recommender/internal/common/errors"
	"gig-recommender/internal/common/logger"
	"gig-recommender/internal/common/observability"
	"gig-recommender/internal/common/validation"
)

type stubTool struct {
	name   string
	schema map[string]interface{}
	out    string
	err    error
	calls  []map[string]interface{}
}

func (s *stubTool) Definition() Definition {
	return Definition{Name: s.name, Description: "stub", Source: "builtin:test", InputSchema: s.schema}
}

func (s *stubTool) Invoke(_ context.Context, args map[string]interface{}) (string, error) {
	s.calls = append(s.calls, args)
	return s.out, s.err
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newTestRegistry(t *testing.T) *Registry {
	return NewRegistry(logger.NewTestLogger(t), observability.Noop())
}

func TestRegistry_RegisterAndDefinitions(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(&stubTool{name: "b"}))
	require.NoError(t, r.Register(&stubTool{name: "a"}))

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "b", defs[0].Name)
	assert.Equal(t, "a", defs[1].Name)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_RegisterRejectsDuplicatesAndBlankNames(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(&stubTool{name: "excel_read_sheet"}))

	err := r.Register(&stubTool{name: "excel_read_sheet"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidConfiguration))

	err = r.Register(&stubTool{name: "  "})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidConfiguration))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Invoke(t *testing.T) {
	schema := validation.ObjectSchema(map[string]map[string]interface{}{
		"sheetName": {"type": "string"},
	}, []string{"sheetName"})

	tests := []struct {
		name     string
		tool     *stubTool
		call     string
		args     map[string]interface{}
		wantOut  string
		wantCode apperrors.ErrorCode
		wantCall bool
	}{
		{
			name:     "success",
			tool:     &stubTool{name: "read", schema: schema, out: "rows"},
			call:     "read",
			args:     map[string]interface{}{"sheetName": "malls"},
			wantOut:  "rows",
			wantCall: true,
		},
		{
			name:     "unknown tool",
			tool:     &stubTool{name: "read", schema: schema},
			call:     "write",
			wantCode: apperrors.ErrCodeToolNotFound,
		},
		{
			name:     "missing required argument",
			tool:     &stubTool{name: "read", schema: schema},
			call:     "read",
			args:     map[string]interface{}{},
			wantCode: apperrors.ErrCodeToolArgumentsInvalid,
		},
		{
			name:     "wrong argument type",
			tool:     &stubTool{name: "read", schema: schema},
			call:     "read",
			args:     map[string]interface{}{"sheetName": 3},
			wantCode: apperrors.ErrCodeToolArgumentsInvalid,
		},
		{
			name:     "plain error is wrapped",
			tool:     &stubTool{name: "read", err: errors.New("boom")},
			call:     "read",
			wantCode: apperrors.ErrCodeToolInvocationFailed,
			wantCall: true,
		},
		{
			name:     "typed error is kept",
			tool:     &stubTool{name: "read", err: apperrors.NewMissingCredentialError("APIFY_TOKEN")},
			call:     "read",
			wantCode: apperrors.ErrCodeMissingCredential,
			wantCall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t)
			require.NoError(t, r.Register(tt.tool))

			out, err := r.Invoke(context.Background(), tt.call, tt.args)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
				assert.Empty(t, out)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantOut, out)
			}
			assert.Equal(t, tt.wantCall, len(tt.tool.calls) == 1)
		})
	}
}

func TestRegistry_InvokeJSON(t *testing.T) {
	tool := &stubTool{name: "google_maps_search", out: "[]"}
	r := newTestRegistry(t)
	require.NoError(t, r.Register(tool))

	out, err := r.InvokeJSON(context.Background(), "google_maps_search", `{"query":"coffee shops"}`)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
	assert.Equal(t, "coffee shops", tool.calls[0]["query"])

	_, err = r.InvokeJSON(context.Background(), "google_maps_search", "")
	require.NoError(t, err)
	assert.Empty(t, tool.calls[1])

	_, err = r.InvokeJSON(context.Background(), "google_maps_search", `{"query":`)
	assert.Equal(t, apperrors.ErrCodeToolArgumentsInvalid, apperrors.CodeOf(err))
	assert.Len(t, tool.calls, 2)
}

func TestRegistry_Close(t *testing.T) {
	r := newTestRegistry(t)
	closed := 0
	r.AddCloser(closerFunc(func() error { closed++; return nil }))
	r.AddCloser(closerFunc(func() error { closed++; return errors.New("already exited") }))

	err := r.Close()
	assert.EqualError(t, err, "already exited")
	assert.Equal(t, 2, closed)

	require.NoError(t, r.Close())
	assert.Equal(t, 2, closed)
}
