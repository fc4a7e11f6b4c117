package domain

import (
	"context"
	"fmt"

	"github.com/lusky3/play-store-mcp/internal/play/publish"
	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// defaultRolloutPercentage is a full rollout.
const defaultRolloutPercentage = 100.0

// Publisher runs the mutating release workflows.
type Publisher interface {
	Deploy(ctx context.Context, req publish.DeployRequest) (publish.Result, error)
	Promote(ctx context.Context, req publish.PromoteRequest) (publish.Result, error)
	Halt(ctx context.Context, req publish.HaltRequest) (publish.Result, error)
	UpdateRollout(ctx context.Context, req publish.RolloutRequest) (publish.Result, error)
	UpdateListing(ctx context.Context, req publish.ListingRequest) (publish.Result, error)
	UpdateTesters(ctx context.Context, req publish.TestersRequest) (publish.Result, error)
	BatchDeploy(ctx context.Context, req publish.BatchDeployRequest) (publish.BatchResult, error)
}

// rolloutOr returns the requested rollout or a full rollout when omitted.
func rolloutOr(value *float64) float64 {
	if value == nil {
		return defaultRolloutPercentage
	}
	return *value
}

// resultOrFailure folds an error returned before any session work into a
// failed result so every mutation tool answers with the same shape.
func resultOrFailure(res publish.Result, err error, base publish.Result) publish.Result {
	if err == nil {
		return res
	}
	base.Success = false
	base.Message = err.Error()
	base.ErrorKind = string(apperrors.CodeOf(err))
	return base
}

// DeployAppInput represents the MCP tool input for deploying an artifact.
type DeployAppInput struct {
	PackageName          string   `json:"package_name" jsonschema:"app package name, e.g. com.example.myapp"`
	Track                string   `json:"track" jsonschema:"release track: internal, alpha, beta or production"`
	FilePath             string   `json:"file_path" jsonschema:"absolute path to the APK or AAB file"`
	ReleaseNotes         string   `json:"release_notes,omitempty" jsonschema:"optional release notes for this version"`
	ReleaseNotesLanguage string   `json:"release_notes_language,omitempty" jsonschema:"language of the release notes (default en-US)"`
	RolloutPercentage    *float64 `json:"rollout_percentage,omitempty" jsonschema:"rollout percentage 0-100 (default 100)"`
}

// DeployAppTool defines the MCP tool schema for deploying an artifact.
func DeployAppTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "deploy_app",
		Description: "Uploads an APK or AAB file and releases it on a Play Store track. A rollout below 100 creates a staged release.",
	}
}

// DeployAppHandler executes a deploy request.
func DeployAppHandler(publisher Publisher) mcp.ToolHandlerFor[DeployAppInput, publish.Result] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DeployAppInput) (*mcp.CallToolResult, publish.Result, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, publish.Result{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, mutationCallTimeout)
		defer cancel()

		language := input.ReleaseNotesLanguage
		if language == "" {
			language = publish.DefaultNotesLanguage
		}
		res, err := publisher.Deploy(runCtx, publish.DeployRequest{
			PackageName:       input.PackageName,
			Track:             input.Track,
			FilePath:          input.FilePath,
			ReleaseNotes:      publish.ReleaseNotes{Text: input.ReleaseNotes, Language: language},
			RolloutPercentage: rolloutOr(input.RolloutPercentage),
		})
		res = resultOrFailure(res, err, publish.Result{PackageName: input.PackageName, Track: input.Track})
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), res, nil
	}
}

// DeployAppMultilangInput represents the MCP tool input for deploying with
// release notes in several languages.
type DeployAppMultilangInput struct {
	PackageName       string            `json:"package_name" jsonschema:"app package name"`
	Track             string            `json:"track" jsonschema:"release track: internal, alpha, beta or production"`
	FilePath          string            `json:"file_path" jsonschema:"absolute path to the APK or AAB file"`
	ReleaseNotes      map[string]string `json:"release_notes" jsonschema:"release notes keyed by language code, e.g. {\"en-US\": \"Bug fixes\"}"`
	RolloutPercentage *float64          `json:"rollout_percentage,omitempty" jsonschema:"rollout percentage 0-100 (default 100)"`
}

// DeployAppMultilangTool defines the MCP tool schema for a multi-language deploy.
func DeployAppMultilangTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "deploy_app_multilang",
		Description: "Uploads an APK or AAB file and releases it on a track with release notes in multiple languages.",
	}
}

// DeployAppMultilangHandler executes a multi-language deploy request.
func DeployAppMultilangHandler(publisher Publisher) mcp.ToolHandlerFor[DeployAppMultilangInput, publish.Result] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DeployAppMultilangInput) (*mcp.CallToolResult, publish.Result, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, publish.Result{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, mutationCallTimeout)
		defer cancel()

		res, err := publisher.Deploy(runCtx, publish.DeployRequest{
			PackageName:       input.PackageName,
			Track:             input.Track,
			FilePath:          input.FilePath,
			ReleaseNotes:      publish.ReleaseNotes{ByLanguage: input.ReleaseNotes},
			RolloutPercentage: rolloutOr(input.RolloutPercentage),
		})
		res = resultOrFailure(res, err, publish.Result{PackageName: input.PackageName, Track: input.Track})
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), res, nil
	}
}

// PromoteReleaseInput represents the MCP tool input for promoting a release.
type PromoteReleaseInput struct {
	PackageName       string   `json:"package_name" jsonschema:"app package name"`
	FromTrack         string   `json:"from_track" jsonschema:"source track, e.g. beta"`
	ToTrack           string   `json:"to_track" jsonschema:"destination track, e.g. production"`
	VersionCode       int64    `json:"version_code" jsonschema:"version code to promote"`
	RolloutPercentage *float64 `json:"rollout_percentage,omitempty" jsonschema:"rollout percentage on the destination track (default 100)"`
}

// PromoteReleaseTool defines the MCP tool schema for promoting a release.
func PromoteReleaseTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "promote_release",
		Description: "Promotes a version from one track to another, carrying its release notes.",
	}
}

// PromoteReleaseHandler executes a promote request.
func PromoteReleaseHandler(publisher Publisher) mcp.ToolHandlerFor[PromoteReleaseInput, publish.Result] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PromoteReleaseInput) (*mcp.CallToolResult, publish.Result, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, publish.Result{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, mutationCallTimeout)
		defer cancel()

		res, err := publisher.Promote(runCtx, publish.PromoteRequest{
			PackageName:       input.PackageName,
			FromTrack:         input.FromTrack,
			ToTrack:           input.ToTrack,
			VersionCode:       input.VersionCode,
			RolloutPercentage: rolloutOr(input.RolloutPercentage),
		})
		versionCode := input.VersionCode
		res = resultOrFailure(res, err, publish.Result{PackageName: input.PackageName, Track: input.ToTrack, VersionCode: &versionCode})
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), res, nil
	}
}

// HaltReleaseInput represents the MCP tool input for halting a release.
type HaltReleaseInput struct {
	PackageName string `json:"package_name" jsonschema:"app package name"`
	Track       string `json:"track" jsonschema:"track carrying the release"`
	VersionCode int64  `json:"version_code" jsonschema:"version code to halt"`
}

// HaltReleaseTool defines the MCP tool schema for halting a release.
func HaltReleaseTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "halt_release",
		Description: "Halts a staged rollout, stopping distribution of the version to new users.",
	}
}

// HaltReleaseHandler executes a halt request.
func HaltReleaseHandler(publisher Publisher) mcp.ToolHandlerFor[HaltReleaseInput, publish.Result] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input HaltReleaseInput) (*mcp.CallToolResult, publish.Result, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, publish.Result{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, mutationCallTimeout)
		defer cancel()

		res, err := publisher.Halt(runCtx, publish.HaltRequest{
			PackageName: input.PackageName,
			Track:       input.Track,
			VersionCode: input.VersionCode,
		})
		versionCode := input.VersionCode
		res = resultOrFailure(res, err, publish.Result{PackageName: input.PackageName, Track: input.Track, VersionCode: &versionCode})
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), res, nil
	}
}

// UpdateRolloutInput represents the MCP tool input for changing a rollout.
type UpdateRolloutInput struct {
	PackageName       string  `json:"package_name" jsonschema:"app package name"`
	Track             string  `json:"track" jsonschema:"track carrying the release"`
	VersionCode       int64   `json:"version_code" jsonschema:"version code to update"`
	RolloutPercentage float64 `json:"rollout_percentage" jsonschema:"new rollout percentage 0-100; 100 completes the release"`
}

// UpdateRolloutTool defines the MCP tool schema for changing a rollout.
func UpdateRolloutTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "update_rollout",
		Description: "Changes the rollout percentage of a staged release. Setting 100 completes the release.",
	}
}

// UpdateRolloutHandler executes a rollout update request.
func UpdateRolloutHandler(publisher Publisher) mcp.ToolHandlerFor[UpdateRolloutInput, publish.Result] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateRolloutInput) (*mcp.CallToolResult, publish.Result, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, publish.Result{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, mutationCallTimeout)
		defer cancel()

		res, err := publisher.UpdateRollout(runCtx, publish.RolloutRequest{
			PackageName:       input.PackageName,
			Track:             input.Track,
			VersionCode:       input.VersionCode,
			RolloutPercentage: input.RolloutPercentage,
		})
		versionCode := input.VersionCode
		res = resultOrFailure(res, err, publish.Result{PackageName: input.PackageName, Track: input.Track, VersionCode: &versionCode})
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), res, nil
	}
}

// BatchDeployInput represents the MCP tool input for a multi-track deploy.
type BatchDeployInput struct {
	PackageName        string             `json:"package_name" jsonschema:"app package name"`
	FilePath           string             `json:"file_path" jsonschema:"absolute path to the APK or AAB file"`
	Tracks             []string           `json:"tracks" jsonschema:"tracks to deploy to, e.g. [\"internal\", \"alpha\"]"`
	ReleaseNotes       string             `json:"release_notes,omitempty" jsonschema:"optional release notes for all tracks"`
	RolloutPercentages map[string]float64 `json:"rollout_percentages,omitempty" jsonschema:"optional rollout percentage per track (default 100)"`
}

// BatchDeployTool defines the MCP tool schema for a multi-track deploy.
func BatchDeployTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "batch_deploy",
		Description: "Deploys one artifact to several tracks, each in its own edit. Failures on one track do not stop the others.",
	}
}

// BatchDeployHandler executes a batch deploy request.
func BatchDeployHandler(publisher Publisher) mcp.ToolHandlerFor[BatchDeployInput, publish.BatchResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input BatchDeployInput) (*mcp.CallToolResult, publish.BatchResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, publish.BatchResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, batchCallTimeout)
		defer cancel()

		res, err := publisher.BatchDeploy(runCtx, publish.BatchDeployRequest{
			PackageName:        input.PackageName,
			FilePath:           input.FilePath,
			Tracks:             input.Tracks,
			ReleaseNotes:       publish.ReleaseNotes{Text: input.ReleaseNotes},
			RolloutPercentages: input.RolloutPercentages,
		})
		if err != nil {
			return nil, publish.BatchResult{}, fmt.Errorf("batch deploy failed: %w", err)
		}
		if res.Results == nil {
			res.Results = []publish.Result{}
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), res, nil
	}
}
