package publish

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/lusky3/play-store-mcp/internal/play/edit"
	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	"github.com/lusky3/play-store-mcp/internal/play/validate"
	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
)

// PromoteRequest copies a release from one track to another.
type PromoteRequest struct {
	PackageName       string
	FromTrack         string
	ToTrack           string
	VersionCode       int64
	RolloutPercentage float64
}

// HaltRequest halts the release carrying VersionCode.
type HaltRequest struct {
	PackageName string
	Track       string
	VersionCode int64
}

// RolloutRequest changes the rollout of the release carrying VersionCode.
type RolloutRequest struct {
	PackageName       string
	Track             string
	VersionCode       int64
	RolloutPercentage float64
}

func versionNotFound(versionCode int64, track string) error {
	return apperrors.WithMetadata(apperrors.CodeVersionNotFound,
		fmt.Sprintf("Version %d not found in %s", versionCode, track),
		map[string]string{"track": track, "version_code": strconv.FormatInt(versionCode, 10)})
}

// findRelease returns the index of the first release shipping versionCode.
func findRelease(releases []gateway.Release, versionCode int64) int {
	return slices.IndexFunc(releases, func(r gateway.Release) bool {
		return r.HasVersionCode(versionCode)
	})
}

// Promote releases VersionCode on ToTrack with the notes it carries on
// FromTrack. The destination track is replaced by the single new release.
func (s *Service) Promote(ctx context.Context, req PromoteRequest) (Result, error) {
	base := Result{PackageName: req.PackageName, Track: req.ToTrack, VersionCode: int64Ptr(req.VersionCode)}
	s.logger.Info().
		Str("package_name", req.PackageName).
		Str("from_track", req.FromTrack).
		Str("to_track", req.ToTrack).
		Int64("version_code", req.VersionCode).
		Msg("promoting release")

	if err := validate.Err(
		validate.PackageName(req.PackageName),
		validate.TrackField("from_track", req.FromTrack),
		validate.TrackField("to_track", req.ToTrack),
		validate.VersionCode(req.VersionCode),
		validate.Rollout(req.RolloutPercentage),
	); err != nil {
		return s.finish(ctx, OpPromote, rejected(base, err)), nil
	}

	return s.mutate(ctx, mutation{
		op:         OpPromote,
		failPrefix: "Promotion failed",
		result:     base,
		body: func(ctx context.Context, session *edit.Session, res *Result) error {
			edits := session.Edits()
			source, err := edits.GetTrack(ctx, session.PackageName, session.EditID, req.FromTrack)
			if err != nil {
				return err
			}
			i := findRelease(source.Releases, req.VersionCode)
			if i < 0 {
				return versionNotFound(req.VersionCode, req.FromTrack)
			}
			release := rolloutRelease(gateway.Release{
				VersionCodes: []int64{req.VersionCode},
				ReleaseNotes: slices.Clone(source.Releases[i].ReleaseNotes),
			}, req.RolloutPercentage)
			dest := gateway.Track{Name: req.ToTrack, Releases: []gateway.Release{release}}
			if err := edits.UpdateTrack(ctx, session.PackageName, session.EditID, dest); err != nil {
				return err
			}
			res.Message = fmt.Sprintf("Successfully promoted version %d from %s to %s", req.VersionCode, req.FromTrack, req.ToTrack)
			return nil
		},
	})
}

// Halt marks the matching release halted and writes back the full release
// list of the track.
func (s *Service) Halt(ctx context.Context, req HaltRequest) (Result, error) {
	base := Result{PackageName: req.PackageName, Track: req.Track, VersionCode: int64Ptr(req.VersionCode)}
	s.logger.Info().
		Str("package_name", req.PackageName).
		Str("track", req.Track).
		Int64("version_code", req.VersionCode).
		Msg("halting release")

	if err := validate.Err(
		validate.PackageName(req.PackageName),
		validate.Track(req.Track),
		validate.VersionCode(req.VersionCode),
	); err != nil {
		return s.finish(ctx, OpHalt, rejected(base, err)), nil
	}

	return s.mutate(ctx, mutation{
		op:         OpHalt,
		failPrefix: "Halt failed",
		result:     base,
		body: func(ctx context.Context, session *edit.Session, res *Result) error {
			err := s.rewriteRelease(ctx, session, req.Track, req.VersionCode, func(r gateway.Release) gateway.Release {
				r.Status = gateway.StatusHalted
				return r
			})
			if err != nil {
				return err
			}
			res.Message = fmt.Sprintf("Successfully halted version %d on %s", req.VersionCode, req.Track)
			return nil
		},
	})
}

// UpdateRollout applies the rollout rule to the matching release. Applying
// the same percentage twice yields the same track state.
func (s *Service) UpdateRollout(ctx context.Context, req RolloutRequest) (Result, error) {
	base := Result{PackageName: req.PackageName, Track: req.Track, VersionCode: int64Ptr(req.VersionCode)}
	s.logger.Info().
		Str("package_name", req.PackageName).
		Str("track", req.Track).
		Int64("version_code", req.VersionCode).
		Float64("rollout_percentage", req.RolloutPercentage).
		Msg("updating rollout")

	if err := validate.Err(
		validate.PackageName(req.PackageName),
		validate.Track(req.Track),
		validate.VersionCode(req.VersionCode),
		validate.Rollout(req.RolloutPercentage),
	); err != nil {
		return s.finish(ctx, OpUpdateRollout, rejected(base, err)), nil
	}

	return s.mutate(ctx, mutation{
		op:         OpUpdateRollout,
		failPrefix: "Rollout update failed",
		result:     base,
		body: func(ctx context.Context, session *edit.Session, res *Result) error {
			err := s.rewriteRelease(ctx, session, req.Track, req.VersionCode, func(r gateway.Release) gateway.Release {
				return rolloutRelease(r, req.RolloutPercentage)
			})
			if err != nil {
				return err
			}
			res.Message = fmt.Sprintf("Successfully updated rollout to %s%% for version %d",
				strconv.FormatFloat(req.RolloutPercentage, 'f', -1, 64), req.VersionCode)
			return nil
		},
	})
}

// rewriteRelease applies change to the first release carrying versionCode
// and writes every release of the track back.
func (s *Service) rewriteRelease(ctx context.Context, session *edit.Session, trackName string, versionCode int64, change func(gateway.Release) gateway.Release) error {
	edits := session.Edits()
	track, err := edits.GetTrack(ctx, session.PackageName, session.EditID, trackName)
	if err != nil {
		return err
	}
	i := findRelease(track.Releases, versionCode)
	if i < 0 {
		return versionNotFound(versionCode, trackName)
	}
	track.Releases[i] = change(track.Releases[i])
	track.Name = trackName
	return edits.UpdateTrack(ctx, session.PackageName, session.EditID, track)
}
