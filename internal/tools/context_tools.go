// Package tools exposes the host's picker state over MCP so an editor
// assistant can pull the captured component context instead of waiting
// for a pushed prompt.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/picket/internal/host"
	"github.com/standardbeagle/picket/internal/protocol"
)

// ElementContextInput defines input for the element_context tool.
type ElementContextInput struct {
	Raw bool `json:"raw,omitempty" jsonschema:"Return the raw capture fields instead of the markdown document (default: false)"`
}

// ElementContextOutput defines output for the element_context tool.
type ElementContextOutput struct {
	ComponentName string         `json:"component_name,omitempty"`
	FilePath      string         `json:"file_path,omitempty"`
	JSX           string         `json:"jsx,omitempty"`
	Props         map[string]any `json:"props,omitempty"`
	TagName       string         `json:"tag_name,omitempty"`
	Document      string         `json:"document,omitempty"`
	CapturedAt    *time.Time     `json:"captured_at,omitempty"`
}

// RegisterElementContextTool adds the element_context tool to the server.
func RegisterElementContextTool(server *mcp.Server, h *host.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "element_context",
		Description: `Get the most recent UI component the user pointed at in the browser.

Returns the component name, source file, generated JSX markup, sanitized
props, and the full markdown context document. Use this when the user
refers to "this component" or "the element I selected".

Examples:
  element_context {}
  element_context {raw: true}`,
	}, func(ctx context.Context, req *mcp.CallToolRequest, input ElementContextInput) (*mcp.CallToolResult, ElementContextOutput, error) {
		info, at, ok := h.LatestCapture()
		if !ok {
			return errorResult("no element captured yet - pick a component in the browser first"), ElementContextOutput{}, nil
		}

		out := ElementContextOutput{
			ComponentName: info.ComponentName,
			FilePath:      info.FilePath,
			TagName:       info.TagName,
			CapturedAt:    &at,
		}
		if input.Raw {
			out.JSX = info.JSX
			out.Props = info.Props
		} else {
			out.Document = info.MarkdownContext
		}
		return nil, out, nil
	})
}

// EndpointsInput defines input for the endpoints tool.
type EndpointsInput struct{}

// EndpointsOutput defines output for the endpoints tool.
type EndpointsOutput struct {
	Port    int           `json:"port"`
	Clients []ClientEntry `json:"clients,omitempty"`
	Count   int           `json:"count"`
}

// ClientEntry describes one connected picker.
type ClientEntry struct {
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

// RegisterEndpointsTool adds the endpoints tool to the server.
func RegisterEndpointsTool(server *mcp.Server, h *host.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "endpoints",
		Description: `List the relay port this workspace is serving on and the browser
pickers currently connected to it.

Examples:
  endpoints {}`,
	}, func(ctx context.Context, req *mcp.CallToolRequest, input EndpointsInput) (*mcp.CallToolResult, EndpointsOutput, error) {
		clients := h.Clients()
		out := EndpointsOutput{Port: h.Port(), Count: len(clients)}
		for _, c := range clients {
			out.Clients = append(out.Clients, ClientEntry{
				RemoteAddr:  c.RemoteAddr,
				ConnectedAt: c.ConnectedAt,
			})
		}
		return nil, out, nil
	})
}

// SendPromptInput defines input for the send_prompt tool.
type SendPromptInput struct {
	Target string `json:"target" jsonschema:"Assistant target: copilot or claude"`
	Prompt string `json:"prompt" jsonschema:"The instruction to send"`
}

// SendPromptOutput defines output for the send_prompt tool.
type SendPromptOutput struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
}

// RegisterSendPromptTool adds the send_prompt tool to the server.
func RegisterSendPromptTool(server *mcp.Server, h *host.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "send_prompt",
		Description: `Run a prompt against one of the configured assistant backends.

Targets:
  copilot: the external command hook
  claude: the Anthropic API

Examples:
  send_prompt {target: "claude", prompt: "Explain this component"}`,
	}, func(ctx context.Context, req *mcp.CallToolRequest, input SendPromptInput) (*mcp.CallToolResult, SendPromptOutput, error) {
		target := protocol.Target(input.Target)
		resp, err := h.RunPrompt(ctx, target, input.Prompt)
		if err != nil {
			return errorResult(fmt.Sprintf("prompt failed: %v", err)), SendPromptOutput{}, nil
		}
		return nil, SendPromptOutput{Success: true, Response: resp}, nil
	})
}

// errorResult builds a tool error without failing the MCP call itself.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
