package domain

import (
	"context"
	"fmt"

	"github.com/lusky3/play-store-mcp/internal/play/catalog"
	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultListingLanguage = "en-US"
	defaultReviewResults   = 50
	defaultVoidedResults   = 100
)

// Catalog serves the read-only app views.
type Catalog interface {
	Releases(ctx context.Context, packageName string) ([]catalog.TrackInfo, error)
	AppDetails(ctx context.Context, packageName, language string) (catalog.AppDetails, error)
	Listing(ctx context.Context, packageName, language string) (gateway.Listing, error)
	Listings(ctx context.Context, packageName string) ([]gateway.Listing, error)
	Testers(ctx context.Context, packageName, track string) (catalog.TesterInfo, error)
	Reviews(ctx context.Context, packageName string, maxResults, startIndex int64, translationLanguage string) ([]catalog.Review, error)
	ReplyToReview(ctx context.Context, packageName, reviewID, text string) (catalog.ReplyResult, error)
	Subscriptions(ctx context.Context, packageName string) ([]catalog.SubscriptionProduct, error)
	SubscriptionPurchase(ctx context.Context, packageName, subscriptionID, token string) (catalog.SubscriptionStatus, error)
	VoidedPurchases(ctx context.Context, packageName string, maxResults int64) ([]catalog.VoidedPurchase, error)
	InAppProducts(ctx context.Context, packageName string) ([]catalog.InAppProduct, error)
	InAppProduct(ctx context.Context, packageName, sku string) (catalog.InAppProduct, error)
	Order(ctx context.Context, packageName, orderID string) (catalog.OrderInfo, error)
	ExpansionFile(ctx context.Context, packageName string, versionCode int64, fileType string) (catalog.ExpansionFileInfo, error)
}

func languageOr(language string) string {
	if language == "" {
		return defaultListingLanguage
	}
	return language
}

// PackageInput names the app a read acts on.
type PackageInput struct {
	PackageName string `json:"package_name" jsonschema:"app package name"`
}

// GetReleasesResult represents the MCP tool output for track releases.
type GetReleasesResult struct {
	PackageName string              `json:"package_name" jsonschema:"app package name"`
	Tracks      []catalog.TrackInfo `json:"tracks" jsonschema:"tracks with their releases"`
}

// GetReleasesTool defines the MCP tool schema for reading releases.
func GetReleasesTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_releases",
		Description: "Returns every track of an app with its releases, version codes and rollout percentages.",
	}
}

// GetReleasesHandler executes a releases read.
func GetReleasesHandler(c Catalog) mcp.ToolHandlerFor[PackageInput, GetReleasesResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PackageInput) (*mcp.CallToolResult, GetReleasesResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, GetReleasesResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		tracks, err := c.Releases(runCtx, input.PackageName)
		if err != nil {
			return nil, GetReleasesResult{}, err
		}
		if tracks == nil {
			tracks = []catalog.TrackInfo{}
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}),
			GetReleasesResult{PackageName: input.PackageName, Tracks: tracks}, nil
	}
}

// LanguageInput names an app and a listing language.
type LanguageInput struct {
	PackageName string `json:"package_name" jsonschema:"app package name"`
	Language    string `json:"language,omitempty" jsonschema:"listing language code (default en-US)"`
}

// GetAppDetailsTool defines the MCP tool schema for reading app details.
func GetAppDetailsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_app_details",
		Description: "Returns the app contact details together with its store listing in one language.",
	}
}

// GetAppDetailsHandler executes an app details read.
func GetAppDetailsHandler(c Catalog) mcp.ToolHandlerFor[LanguageInput, catalog.AppDetails] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input LanguageInput) (*mcp.CallToolResult, catalog.AppDetails, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, catalog.AppDetails{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		details, err := c.AppDetails(runCtx, input.PackageName, languageOr(input.Language))
		if err != nil {
			return nil, catalog.AppDetails{}, err
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), details, nil
	}
}

// GetListingTool defines the MCP tool schema for reading one listing.
func GetListingTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_listing",
		Description: "Returns the store listing (title, descriptions, video) for one language.",
	}
}

// GetListingHandler executes a listing read.
func GetListingHandler(c Catalog) mcp.ToolHandlerFor[LanguageInput, gateway.Listing] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input LanguageInput) (*mcp.CallToolResult, gateway.Listing, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, gateway.Listing{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		listing, err := c.Listing(runCtx, input.PackageName, languageOr(input.Language))
		if err != nil {
			return nil, gateway.Listing{}, err
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), listing, nil
	}
}

// ListAllListingsResult represents the MCP tool output for every listing.
type ListAllListingsResult struct {
	PackageName string            `json:"package_name" jsonschema:"app package name"`
	Listings    []gateway.Listing `json:"listings" jsonschema:"listings ordered by language"`
}

// ListAllListingsTool defines the MCP tool schema for reading every listing.
func ListAllListingsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_all_listings",
		Description: "Returns the store listings of every configured language.",
	}
}

// ListAllListingsHandler executes a read of every listing.
func ListAllListingsHandler(c Catalog) mcp.ToolHandlerFor[PackageInput, ListAllListingsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PackageInput) (*mcp.CallToolResult, ListAllListingsResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, ListAllListingsResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		listings, err := c.Listings(runCtx, input.PackageName)
		if err != nil {
			return nil, ListAllListingsResult{}, err
		}
		if listings == nil {
			listings = []gateway.Listing{}
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}),
			ListAllListingsResult{PackageName: input.PackageName, Listings: listings}, nil
	}
}

// GetTestersInput represents the MCP tool input for reading testers.
type GetTestersInput struct {
	PackageName string `json:"package_name" jsonschema:"app package name"`
	Track       string `json:"track" jsonschema:"testing track, e.g. alpha"`
}

// GetTestersTool defines the MCP tool schema for reading testers.
func GetTestersTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_testers",
		Description: "Returns the tester groups configured for a testing track.",
	}
}

// GetTestersHandler executes a testers read.
func GetTestersHandler(c Catalog) mcp.ToolHandlerFor[GetTestersInput, catalog.TesterInfo] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetTestersInput) (*mcp.CallToolResult, catalog.TesterInfo, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, catalog.TesterInfo{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		testers, err := c.Testers(runCtx, input.PackageName, input.Track)
		if err != nil {
			return nil, catalog.TesterInfo{}, err
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), testers, nil
	}
}

// GetExpansionFileInput represents the MCP tool input for an APK expansion file.
type GetExpansionFileInput struct {
	PackageName       string `json:"package_name" jsonschema:"app package name"`
	VersionCode       int64  `json:"version_code" jsonschema:"APK version code"`
	ExpansionFileType string `json:"expansion_file_type,omitempty" jsonschema:"main or patch, defaults to main"`
}

// GetExpansionFileTool defines the MCP tool schema for APK expansion files.
func GetExpansionFileTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_expansion_file",
		Description: "Returns the expansion file attached to an APK version, with its size or the version it references.",
	}
}

// GetExpansionFileHandler executes an expansion file read.
func GetExpansionFileHandler(c Catalog) mcp.ToolHandlerFor[GetExpansionFileInput, catalog.ExpansionFileInfo] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetExpansionFileInput) (*mcp.CallToolResult, catalog.ExpansionFileInfo, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, catalog.ExpansionFileInfo{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		file, err := c.ExpansionFile(runCtx, input.PackageName, input.VersionCode, input.ExpansionFileType)
		if err != nil {
			return nil, catalog.ExpansionFileInfo{}, err
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), file, nil
	}
}
