// Package llm calls an OpenAI-compatible chat completions endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "gig-recommender/internal/common/errors"
	commonhttp "gig-recommender/internal/common/http"
	"gig-recommender/internal/common/metrics"
)

// ChatModel is the single model operation the stages depend on.
type ChatModel interface {
	Complete(ctx context.Context, messages []ChatMessage, tools []Tool) (*ChatMessage, error)
}

type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client is a ChatModel over HTTP. It makes exactly one request per call.
type Client struct {
	config *Config
	http   *commonhttp.Client
}

func NewClient(config *Config) *Client {
	httpClient := commonhttp.NewClient(config.Timeout)
	if config.APIKey != "" {
		httpClient = httpClient.WithHeader("Authorization", "Bearer "+config.APIKey)
	}
	return &Client{config: config, http: httpClient}
}

// Complete sends one chat completion request and returns the first choice.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage, tools []Tool) (*ChatMessage, error) {
	req := ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Tools:       tools,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}
	if len(tools) > 0 {
		req.ToolChoice = "auto"
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	var resp ChatCompletionResponse
	err := c.http.PostJSON(ctx, url, req, &resp)
	metrics.ModelCalls.WithLabelValues(c.config.Model, metrics.StatusOf(err)).Inc()
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, apperrors.NewModelTimeoutError(err)
		}
		return nil, apperrors.NewModelInvocationFailedError(err)
	}

	if resp.Usage != nil {
		metrics.ModelTokens.WithLabelValues(c.config.Model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ModelTokens.WithLabelValues(c.config.Model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	if len(resp.Choices) == 0 {
		return nil, apperrors.NewModelResponseMalformedError("response has no choices")
	}
	msg := resp.Choices[0].Message
	if msg.Role == "" {
		msg.Role = RoleAssistant
	}
	return &msg, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ToolDefinition describes a callable tool to the model.
func ToolDefinition(name, description string, parameters map[string]interface{}) Tool {
	if parameters == nil {
		parameters = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	}
	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// String renders a message for debug logs.
func (m ChatMessage) String() string {
	if len(m.ToolCalls) > 0 {
		names := make([]string, 0, len(m.ToolCalls))
		for _, tc := range m.ToolCalls {
			names = append(names, tc.Function.Name)
		}
		return fmt.Sprintf("%s: tool_calls[%s]", m.Role, strings.Join(names, ","))
	}
	return fmt.Sprintf("%s: %s", m.Role, m.Content)
}
