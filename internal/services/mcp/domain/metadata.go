package domain

import (
	"github.com/lusky3/play-store-mcp/internal/platform/id"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// InvocationIDKey names the correlation id in tool result metadata.
const InvocationIDKey = "invocation_id"

// ToolCallMetadata carries correlation identifiers for MCP tool calls.
type ToolCallMetadata struct {
	InvocationID string
}

// NewInvocationID generates an invocation identifier for a tool call.
func NewInvocationID() (string, error) {
	return id.NewID()
}

// CallToolResultWithMetadata builds a tool result with correlation metadata.
func CallToolResultWithMetadata(meta ToolCallMetadata) *mcp.CallToolResult {
	result := &mcp.CallToolResult{Meta: map[string]any{}}
	if meta.InvocationID != "" {
		result.Meta[InvocationIDKey] = meta.InvocationID
	}
	return result
}
