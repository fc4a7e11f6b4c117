package publish

import (
	"context"
	"fmt"

	"github.com/lusky3/play-store-mcp/internal/play/edit"
	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	"github.com/lusky3/play-store-mcp/internal/play/validate"
)

// ListingRequest updates the listing of one language. Nil fields keep their
// current value; Video is only written when set.
type ListingRequest struct {
	PackageName      string
	Language         string
	Title            *string
	ShortDescription *string
	FullDescription  *string
	Video            *string
}

// TestersRequest replaces the tester groups of a track.
type TestersRequest struct {
	PackageName  string
	Track        string
	GoogleGroups []string
}

func valueOr(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}

// UpdateListing merges req into the current listing and writes it. Only a
// listing that does not exist yet is treated as empty; any other read
// failure aborts the update.
func (s *Service) UpdateListing(ctx context.Context, req ListingRequest) (Result, error) {
	base := Result{PackageName: req.PackageName, Language: req.Language}
	s.logger.Info().Str("package_name", req.PackageName).Str("language", req.Language).Msg("updating store listing")

	if err := validate.Err(
		validate.PackageName(req.PackageName),
		validate.Language(req.Language),
		validate.ListingText(valueOr(req.Title, ""), valueOr(req.ShortDescription, ""), valueOr(req.FullDescription, "")),
	); err != nil {
		return s.finish(ctx, OpUpdateListing, rejected(base, err)), nil
	}

	return s.mutate(ctx, mutation{
		op:         OpUpdateListing,
		failPrefix: "Failed to update listing",
		result:     base,
		body: func(ctx context.Context, session *edit.Session, res *Result) error {
			edits := session.Edits()
			current, err := edits.GetListing(ctx, session.PackageName, session.EditID, req.Language)
			switch {
			case gateway.IsNotFound(err):
				s.logger.Debug().Str("language", req.Language).Msg("no current listing, using defaults")
				current = gateway.Listing{}
			case err != nil:
				return err
			}
			listing := gateway.Listing{
				Language:         req.Language,
				Title:            valueOr(req.Title, current.Title),
				ShortDescription: valueOr(req.ShortDescription, current.ShortDescription),
				FullDescription:  valueOr(req.FullDescription, current.FullDescription),
				Video:            valueOr(req.Video, ""),
			}
			if err := edits.UpdateListing(ctx, session.PackageName, session.EditID, listing); err != nil {
				return err
			}
			res.Message = "Successfully updated listing for " + req.Language
			return nil
		},
	})
}

// UpdateTesters overwrites the tester groups of req.Track.
func (s *Service) UpdateTesters(ctx context.Context, req TestersRequest) (Result, error) {
	base := Result{PackageName: req.PackageName, Track: req.Track}
	s.logger.Info().
		Str("package_name", req.PackageName).
		Str("track", req.Track).
		Int("count", len(req.GoogleGroups)).
		Msg("updating testers")

	if err := validate.Err(
		validate.PackageName(req.PackageName),
		validate.Track(req.Track),
	); err != nil {
		return s.finish(ctx, OpUpdateTesters, rejected(base, err)), nil
	}

	return s.mutate(ctx, mutation{
		op:         OpUpdateTesters,
		failPrefix: "Failed to update testers",
		result:     base,
		body: func(ctx context.Context, session *edit.Session, res *Result) error {
			groups := req.GoogleGroups
			if groups == nil {
				groups = []string{}
			}
			if err := session.Edits().UpdateTesters(ctx, session.PackageName, session.EditID, req.Track, groups); err != nil {
				return err
			}
			res.Message = fmt.Sprintf("Successfully updated %d testers for %s", len(groups), req.Track)
			return nil
		},
	})
}
