package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcpschema "github.com/viant/mcp-protocol/schema"
	mcpclient "github.com/viant/mcp/client"

	"gig-recommender/internal/common/config"
	apperrors "gig-recommender/internal/common/errors"
	"gig-recommender/internal/common/validation"
)

// Session is the subset of an MCP client the registry needs. Close releases
// the client and whatever process or connection backs it.
type Session interface {
	Initialize(ctx context.Context, options ...mcpclient.RequestOption) (*mcpschema.InitializeResult, error)
	ListTools(ctx context.Context, cursor *string, options ...mcpclient.RequestOption) (*mcpschema.ListToolsResult, error)
	CallTool(ctx context.Context, params *mcpschema.CallToolRequestParams, options ...mcpclient.RequestOption) (*mcpschema.CallToolResult, error)
	Close() error
}

// Dialer starts or connects to the server behind a binding without
// performing the MCP handshake.
type Dialer func(binding config.ToolBinding) (Session, error)

// ConnectMCP dials binding, performs the MCP handshake within the binding's
// init timeout and registers every tool the server lists.
func ConnectMCP(ctx context.Context, binding config.ToolBinding, dial Dialer, registry *Registry) error {
	initCtx, cancel := context.WithTimeout(ctx, config.GetDuration(binding.InitTimeout))
	defer cancel()

	session, err := dial(binding)
	if err != nil {
		return apperrors.NewToolStartupFailedError(binding.Name, err)
	}
	if err := registerSession(initCtx, binding, session, registry); err != nil {
		_ = session.Close()
		return err
	}
	registry.AddCloser(session)
	return nil
}

func registerSession(ctx context.Context, binding config.ToolBinding, session Session, registry *Registry) error {
	if _, err := session.Initialize(ctx); err != nil {
		return apperrors.NewToolStartupFailedError(binding.Name, fmt.Errorf("mcp init: %w", err))
	}

	var cursor *string
	for {
		list, err := session.ListTools(ctx, cursor)
		if err != nil {
			return apperrors.NewToolStartupFailedError(binding.Name, fmt.Errorf("list tools: %w", err))
		}
		for _, td := range list.Tools {
			if err := registry.Register(&mcpTool{session: session, tool: td, source: binding.Name}); err != nil {
				return err
			}
		}
		if list.NextCursor == nil || *list.NextCursor == "" {
			return nil
		}
		cursor = list.NextCursor
	}
}

type mcpTool struct {
	session Session
	tool    mcpschema.Tool
	source  string
}

func (t *mcpTool) Definition() Definition {
	description := ""
	if t.tool.Description != nil {
		description = *t.tool.Description
	}
	return Definition{
		Name:        t.tool.Name,
		Description: description,
		Source:      "mcp:" + t.source,
		InputSchema: validation.ObjectSchema(t.tool.InputSchema.Properties, t.tool.InputSchema.Required),
	}
}

// Invoke calls the remote tool. A result flagged isError is returned as an error.
func (t *mcpTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	res, err := t.session.CallTool(ctx, &mcpschema.CallToolRequestParams{
		Name:      t.tool.Name,
		Arguments: args,
	})
	if err != nil {
		return "", err
	}

	text, err := renderContent(res.Content)
	if err != nil {
		return "", err
	}
	if res.IsError != nil && *res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return "", errors.New(text)
	}
	return text, nil
}

func renderContent(content []mcpschema.CallToolResultContentElem) (string, error) {
	if len(content) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(content))
	for _, c := range content {
		text, ok := textOf(c)
		if !ok {
			data, err := json.Marshal(content)
			if err != nil {
				return "", fmt.Errorf("encode tool content: %w", err)
			}
			return string(data), nil
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), nil
}

// textOf extracts the text of a text content element. Decoded results carry
// elements as generic maps; typed values come from in-process servers.
func textOf(elem mcpschema.CallToolResultContentElem) (string, bool) {
	switch c := elem.(type) {
	case mcpschema.TextContent:
		return c.Text, true
	case *mcpschema.TextContent:
		if c == nil {
			return "", false
		}
		return c.Text, true
	case map[string]interface{}:
		if kind, _ := c["type"].(string); kind != "text" {
			return "", false
		}
		text, ok := c["text"].(string)
		return text, ok
	}
	return "", false
}
