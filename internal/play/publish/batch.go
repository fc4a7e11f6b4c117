package publish

import (
	"context"
	"fmt"

	"github.com/lusky3/play-store-mcp/internal/platform/id"
)

// BatchDeployRequest deploys one artifact to several tracks.
type BatchDeployRequest struct {
	PackageName  string
	FilePath     string
	Tracks       []string
	ReleaseNotes ReleaseNotes
	// RolloutPercentages maps a track to its rollout; missing tracks get 100.
	RolloutPercentages map[string]float64
}

// BatchResult aggregates per-track results in input order.
type BatchResult struct {
	Success      bool     `json:"success"`
	Results      []Result `json:"results"`
	SuccessCount int      `json:"successful_count"`
	FailCount    int      `json:"failed_count"`
	Message      string   `json:"message"`
}

type batchIDKey struct{}

func withBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, batchIDKey{}, batchID)
}

func batchIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(batchIDKey{}).(string)
	return v
}

// BatchDeploy runs Deploy once per track, in order. Tracks are independent:
// a failure on one never stops the others, and a failure to open a session
// becomes that track's failed result.
func (s *Service) BatchDeploy(ctx context.Context, req BatchDeployRequest) (BatchResult, error) {
	batchID, err := id.NewID()
	if err != nil {
		return BatchResult{}, fmt.Errorf("generate batch id: %w", err)
	}
	ctx = withBatchID(ctx, batchID)
	s.logger.Info().
		Str("package_name", req.PackageName).
		Strs("tracks", req.Tracks).
		Str("batch_id", batchID).
		Msg("starting batch deployment")

	out := BatchResult{Results: make([]Result, 0, len(req.Tracks))}
	for _, track := range req.Tracks {
		percentage := 100.0
		if p, ok := req.RolloutPercentages[track]; ok {
			percentage = p
		}
		res, err := s.Deploy(ctx, DeployRequest{
			PackageName:       req.PackageName,
			Track:             track,
			FilePath:          req.FilePath,
			ReleaseNotes:      req.ReleaseNotes,
			RolloutPercentage: percentage,
		})
		if err != nil {
			res = failed(Result{PackageName: req.PackageName, Track: track}, "Deployment failed", err)
			s.record(ctx, OpDeploy, res)
		}
		out.Results = append(out.Results, res)
		if res.Success {
			out.SuccessCount++
		} else {
			out.FailCount++
		}
	}

	out.Success = out.FailCount == 0
	out.Message = fmt.Sprintf("Deployed to %d/%d tracks successfully", out.SuccessCount, len(req.Tracks))
	if out.FailCount > 0 {
		out.Message += fmt.Sprintf(" (%d failed)", out.FailCount)
	}
	return out, nil
}
