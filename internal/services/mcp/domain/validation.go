package domain

import (
	"context"
	"fmt"

	"github.com/lusky3/play-store-mcp/internal/play/validate"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ValidationResult represents the MCP tool output of a validation tool.
type ValidationResult struct {
	Valid       bool                  `json:"valid" jsonschema:"whether the input passed every check"`
	Errors      []validate.FieldError `json:"errors" jsonschema:"problems found, empty when valid"`
	PackageName string                `json:"package_name,omitempty" jsonschema:"validated package name"`
	Track       string                `json:"track,omitempty" jsonschema:"validated track"`
}

func validationResult(errs []validate.FieldError) ValidationResult {
	if errs == nil {
		errs = []validate.FieldError{}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidatePackageNameInput represents the MCP tool input for package name
// validation.
type ValidatePackageNameInput struct {
	PackageName string `json:"package_name" jsonschema:"package name to check, e.g. com.example.myapp"`
}

// ValidatePackageNameTool defines the MCP tool schema for package name
// validation.
func ValidatePackageNameTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "validate_package_name",
		Description: "Checks the format of a package name before it is used in other operations.",
	}
}

// ValidatePackageNameHandler checks a package name locally.
func ValidatePackageNameHandler() mcp.ToolHandlerFor[ValidatePackageNameInput, ValidationResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input ValidatePackageNameInput) (*mcp.CallToolResult, ValidationResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, ValidationResult{}, fmt.Errorf("generate invocation id: %w", err)
		}
		out := validationResult(validate.PackageName(input.PackageName))
		out.PackageName = input.PackageName
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), out, nil
	}
}

// ValidateTrackInput represents the MCP tool input for track validation.
type ValidateTrackInput struct {
	Track string `json:"track" jsonschema:"track to check: internal, alpha, beta or production"`
}

// ValidateTrackTool defines the MCP tool schema for track validation.
func ValidateTrackTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "validate_track",
		Description: "Checks a track name before it is used in deployment operations.",
	}
}

// ValidateTrackHandler checks a track name locally.
func ValidateTrackHandler() mcp.ToolHandlerFor[ValidateTrackInput, ValidationResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input ValidateTrackInput) (*mcp.CallToolResult, ValidationResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, ValidationResult{}, fmt.Errorf("generate invocation id: %w", err)
		}
		out := validationResult(validate.Track(input.Track))
		out.Track = input.Track
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), out, nil
	}
}

// ValidateListingTextInput represents the MCP tool input for listing text
// validation.
type ValidateListingTextInput struct {
	Title            string `json:"title,omitempty" jsonschema:"app title (max 50 characters)"`
	ShortDescription string `json:"short_description,omitempty" jsonschema:"short description (max 80 characters)"`
	FullDescription  string `json:"full_description,omitempty" jsonschema:"full description (max 4000 characters)"`
}

// ValidateListingTextTool defines the MCP tool schema for listing text
// validation.
func ValidateListingTextTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "validate_listing_text",
		Description: "Checks store listing text lengths before an update.",
	}
}

// ValidateListingTextHandler checks listing text lengths locally.
func ValidateListingTextHandler() mcp.ToolHandlerFor[ValidateListingTextInput, ValidationResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input ValidateListingTextInput) (*mcp.CallToolResult, ValidationResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, ValidationResult{}, fmt.Errorf("generate invocation id: %w", err)
		}
		out := validationResult(validate.ListingText(input.Title, input.ShortDescription, input.FullDescription))
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), out, nil
	}
}
