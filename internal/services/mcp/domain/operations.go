package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lusky3/play-store-mcp/internal/platform/storage/journal"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Journal lists recorded operations.
type Journal interface {
	List(ctx context.Context, query journal.Query) ([]journal.Entry, error)
}

var errJournalDisabled = errors.New("operation journal is disabled; set PLAY_STORE_MCP_JOURNAL_PATH to enable it")

// Operation is one journal entry in tool output form.
type Operation struct {
	ID          string `json:"id" jsonschema:"entry identifier"`
	RecordedAt  string `json:"recorded_at" jsonschema:"RFC3339 timestamp when the operation finished"`
	Operation   string `json:"operation" jsonschema:"operation name, e.g. deploy"`
	PackageName string `json:"package_name" jsonschema:"app package name"`
	Track       string `json:"track,omitempty" jsonschema:"track, when the operation targets one"`
	Language    string `json:"language,omitempty" jsonschema:"listing language, when the operation targets one"`
	VersionCode *int64 `json:"version_code,omitempty" jsonschema:"version code, when known"`
	EditID      string `json:"edit_id,omitempty" jsonschema:"edit the operation ran in"`
	Success     bool   `json:"success" jsonschema:"whether the operation succeeded"`
	ErrorKind   string `json:"error_kind,omitempty" jsonschema:"failure kind"`
	Message     string `json:"message" jsonschema:"operation message"`
	BatchID     string `json:"batch_id,omitempty" jsonschema:"batch identifier for batch deploy entries"`
}

// ListRecentOperationsInput represents the MCP tool input for the journal.
type ListRecentOperationsInput struct {
	PackageName string `json:"package_name,omitempty" jsonschema:"optional package name filter"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum entries to return (default 20)"`
}

// ListRecentOperationsResult represents the MCP tool output for the journal.
type ListRecentOperationsResult struct {
	Operations []Operation `json:"operations" jsonschema:"operations, newest first"`
}

// ListRecentOperationsTool defines the MCP tool schema for the journal.
func ListRecentOperationsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_recent_operations",
		Description: "Lists the most recent publishing operations run by this server, newest first.",
	}
}

// ListRecentOperationsHandler reads the operation journal.
func ListRecentOperationsHandler(j Journal) mcp.ToolHandlerFor[ListRecentOperationsInput, ListRecentOperationsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListRecentOperationsInput) (*mcp.CallToolResult, ListRecentOperationsResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, ListRecentOperationsResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		if j == nil {
			return nil, ListRecentOperationsResult{}, errJournalDisabled
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		entries, err := j.List(runCtx, journal.Query{PackageName: input.PackageName, Limit: input.Limit})
		if err != nil {
			return nil, ListRecentOperationsResult{}, fmt.Errorf("list operations: %w", err)
		}
		out := ListRecentOperationsResult{Operations: make([]Operation, 0, len(entries))}
		for _, e := range entries {
			out.Operations = append(out.Operations, Operation{
				ID:          e.ID,
				RecordedAt:  e.RecordedAt.UTC().Format(time.RFC3339),
				Operation:   e.Operation,
				PackageName: e.PackageName,
				Track:       e.Track,
				Language:    e.Language,
				VersionCode: e.VersionCode,
				EditID:      e.EditID,
				Success:     e.Success,
				ErrorKind:   e.ErrorKind,
				Message:     e.Message,
				BatchID:     e.BatchID,
			})
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), out, nil
	}
}
