package domain

import (
	"context"
	"fmt"

	"github.com/lusky3/play-store-mcp/internal/play/publish"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// UpdateListingInput represents the MCP tool input for updating a listing.
// Omitted fields keep their current value.
type UpdateListingInput struct {
	PackageName      string  `json:"package_name" jsonschema:"app package name"`
	Language         string  `json:"language,omitempty" jsonschema:"listing language code (default en-US)"`
	Title            *string `json:"title,omitempty" jsonschema:"app title, at most 50 characters"`
	ShortDescription *string `json:"short_description,omitempty" jsonschema:"short description, at most 80 characters"`
	FullDescription  *string `json:"full_description,omitempty" jsonschema:"full description, at most 4000 characters"`
	Video            *string `json:"video,omitempty" jsonschema:"promo video URL"`
}

// UpdateListingTool defines the MCP tool schema for updating a listing.
func UpdateListingTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "update_listing",
		Description: "Updates the store listing for one language. Fields that are not given keep their current value.",
	}
}

// UpdateListingHandler executes a listing update.
func UpdateListingHandler(publisher Publisher) mcp.ToolHandlerFor[UpdateListingInput, publish.Result] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateListingInput) (*mcp.CallToolResult, publish.Result, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, publish.Result{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, mutationCallTimeout)
		defer cancel()

		language := languageOr(input.Language)
		res, err := publisher.UpdateListing(runCtx, publish.ListingRequest{
			PackageName:      input.PackageName,
			Language:         language,
			Title:            input.Title,
			ShortDescription: input.ShortDescription,
			FullDescription:  input.FullDescription,
			Video:            input.Video,
		})
		res = resultOrFailure(res, err, publish.Result{PackageName: input.PackageName, Language: language})
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), res, nil
	}
}

// UpdateTestersInput represents the MCP tool input for replacing testers.
type UpdateTestersInput struct {
	PackageName  string   `json:"package_name" jsonschema:"app package name"`
	Track        string   `json:"track" jsonschema:"testing track, e.g. alpha"`
	TesterEmails []string `json:"tester_emails" jsonschema:"Google Group emails that may test the track"`
}

// UpdateTestersTool defines the MCP tool schema for replacing testers.
func UpdateTestersTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "update_testers",
		Description: "Replaces the tester groups of a testing track.",
	}
}

// UpdateTestersHandler executes a testers update.
func UpdateTestersHandler(publisher Publisher) mcp.ToolHandlerFor[UpdateTestersInput, publish.Result] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateTestersInput) (*mcp.CallToolResult, publish.Result, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, publish.Result{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, mutationCallTimeout)
		defer cancel()

		res, err := publisher.UpdateTesters(runCtx, publish.TestersRequest{
			PackageName:  input.PackageName,
			Track:        input.Track,
			GoogleGroups: input.TesterEmails,
		})
		res = resultOrFailure(res, err, publish.Result{PackageName: input.PackageName, Track: input.Track})
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), res, nil
	}
}
