package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gig-recommender/internal/common/errors"
)

func createTestConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		Model:       "gpt-4o-mini",
		APIKey:      "sk-test",
		Temperature: 0.2,
		MaxTokens:   256,
		Timeout:     5 * time.Second,
	}
}

func writeCompletion(t *testing.T, w http.ResponseWriter, msg ChatMessage) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(ChatCompletionResponse{
		ID:      "chatcmpl-1",
		Choices: []Choice{{Message: msg, FinishReason: "stop"}},
		Usage:   &Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}))
}

func TestClient_Complete_Text(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Len(t, req.Messages, 2)
		assert.Empty(t, req.Tools)
		assert.Empty(t, req.ToolChoice)

		writeCompletion(t, w, ChatMessage{Role: RoleAssistant, Content: "1. Third Wave Coffee"})
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL + "/v1/"))
	msg, err := client.Complete(context.Background(), []ChatMessage{
		{Role: RoleSystem, Content: "rank things"},
		{Role: RoleUser, Content: "coffee"},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "1. Third Wave Coffee", msg.Content)
	assert.Equal(t, RoleAssistant, msg.Role)
}

func TestClient_Complete_ToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "function", req.Tools[0].Type)
		assert.Equal(t, "google_maps_search", req.Tools[0].Function.Name)
		assert.Equal(t, "auto", req.ToolChoice)

		writeCompletion(t, w, ChatMessage{
			ToolCalls: []ToolCall{{
				ID:   "call_1",
				Type: "function",
				Function: ToolCallFunction{
					Name:      "google_maps_search",
					Arguments: `{"query":"coffee shops Indiranagar"}`,
				},
			}},
		})
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL))
	tools := []Tool{ToolDefinition("google_maps_search", "search places", nil)}
	msg, err := client.Complete(context.Background(), []ChatMessage{{Role: RoleUser, Content: "coffee"}}, tools)

	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
	assert.Equal(t, "assistant: tool_calls[google_maps_search]", msg.String())
}

func TestClient_Complete_NoAPIKeyOmitsHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeCompletion(t, w, ChatMessage{Role: RoleAssistant, Content: "ok"})
	}))
	defer server.Close()

	cfg := createTestConfig(server.URL)
	cfg.APIKey = ""
	_, err := NewClient(cfg).Complete(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}}, nil)
	require.NoError(t, err)
}

func TestClient_Complete_SendsContentForEveryMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []map[string]json.RawMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 3)
		for _, m := range req.Messages {
			content, ok := m["content"]
			if assert.True(t, ok, "message %s without content", m["role"]) {
				assert.Equal(t, `""`, string(content))
			}
		}
		assert.JSONEq(t, `"call_1"`, string(req.Messages[2]["tool_call_id"]))
		writeCompletion(t, w, ChatMessage{Role: RoleAssistant, Content: "ok"})
	}))
	defer server.Close()

	_, err := NewClient(createTestConfig(server.URL)).Complete(context.Background(), []ChatMessage{
		{Role: RoleUser},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: ToolCallFunction{Name: "excel_read_sheet", Arguments: `{}`},
		}}},
		{Role: RoleTool, ToolCallID: "call_1", Name: "excel_read_sheet"},
	}, nil)
	require.NoError(t, err)
}

func TestClient_Complete_Errors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		timeout  time.Duration
		wantCode apperrors.ErrorCode
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"boom"}`))
			},
			wantCode: apperrors.ErrCodeModelInvocationFailed,
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			wantCode: apperrors.ErrCodeModelInvocationFailed,
		},
		{
			name: "undecodable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			wantCode: apperrors.ErrCodeModelInvocationFailed,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
			},
			wantCode: apperrors.ErrCodeModelResponseMalformed,
		},
		{
			name: "deadline",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout:  50 * time.Millisecond,
			wantCode: apperrors.ErrCodeModelTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			ctx := context.Background()
			if tt.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.timeout)
				defer cancel()
			}

			msg, err := NewClient(createTestConfig(server.URL)).Complete(ctx, []ChatMessage{{Role: RoleUser, Content: "x"}}, nil)

			assert.Nil(t, msg)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
		})
	}
}
