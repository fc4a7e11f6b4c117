package publish

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lusky3/play-store-mcp/internal/play/edit"
	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	"github.com/lusky3/play-store-mcp/internal/play/validate"
	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
)

// DefaultNotesLanguage is used for single-language release notes.
const DefaultNotesLanguage = "en-US"

// ReleaseNotes are either one text in Language or one text per language.
// ByLanguage wins when both are set.
type ReleaseNotes struct {
	Text       string
	Language   string
	ByLanguage map[string]string
}

// Localized returns the notes in upload form, ordered by language.
func (n ReleaseNotes) Localized() []gateway.LocalizedText {
	if len(n.ByLanguage) > 0 {
		out := make([]gateway.LocalizedText, 0, len(n.ByLanguage))
		for _, lang := range slices.Sorted(maps.Keys(n.ByLanguage)) {
			out = append(out, gateway.LocalizedText{Language: lang, Text: n.ByLanguage[lang]})
		}
		return out
	}
	if n.Text == "" {
		return nil
	}
	lang := n.Language
	if lang == "" {
		lang = DefaultNotesLanguage
	}
	return []gateway.LocalizedText{{Language: lang, Text: n.Text}}
}

func (n ReleaseNotes) validate() []validate.FieldError {
	var errs []validate.FieldError
	for _, note := range n.Localized() {
		for _, fe := range validate.Language(note.Language) {
			fe.Field = "release_notes." + fe.Field
			errs = append(errs, fe)
		}
	}
	return errs
}

// DeployRequest uploads an artifact and releases it on one track.
type DeployRequest struct {
	PackageName       string
	Track             string
	FilePath          string
	ReleaseNotes      ReleaseNotes
	RolloutPercentage float64
}

// ContentTypeFor picks the upload content type from the artifact extension.
func ContentTypeFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".aab") {
		return gateway.ContentTypeBundle
	}
	return gateway.ContentTypeAPK
}

// Deploy uploads req.FilePath and makes it the only release on req.Track.
// A missing file is reported without contacting the API.
func (s *Service) Deploy(ctx context.Context, req DeployRequest) (Result, error) {
	base := Result{PackageName: req.PackageName, Track: req.Track}
	s.logger.Info().
		Str("package_name", req.PackageName).
		Str("track", req.Track).
		Str("file_path", req.FilePath).
		Float64("rollout_percentage", req.RolloutPercentage).
		Msg("deploying app")

	if err := validate.Err(
		validate.PackageName(req.PackageName),
		validate.Track(req.Track),
		validate.Rollout(req.RolloutPercentage),
		req.ReleaseNotes.validate(),
	); err != nil {
		return s.finish(ctx, OpDeploy, rejected(base, err)), nil
	}
	if info, err := os.Stat(req.FilePath); err != nil || info.IsDir() {
		notFound := apperrors.WithMetadata(apperrors.CodeFileNotFound, "File not found: "+req.FilePath,
			map[string]string{"file_path": req.FilePath})
		return s.finish(ctx, OpDeploy, rejected(base, notFound)), nil
	}

	return s.mutate(ctx, mutation{
		op:         OpDeploy,
		failPrefix: "Deployment failed",
		result:     base,
		body: func(ctx context.Context, session *edit.Session, res *Result) error {
			code, err := upload(ctx, session, req.FilePath)
			if err != nil {
				return err
			}
			res.VersionCode = int64Ptr(code)
			s.logger.Info().Str("package_name", req.PackageName).Int64("version_code", code).Msg("upload complete")

			release := rolloutRelease(gateway.Release{
				VersionCodes: []int64{code},
				ReleaseNotes: req.ReleaseNotes.Localized(),
			}, req.RolloutPercentage)
			track := gateway.Track{Name: req.Track, Releases: []gateway.Release{release}}
			if err := session.Edits().UpdateTrack(ctx, session.PackageName, session.EditID, track); err != nil {
				return err
			}
			res.Message = fmt.Sprintf("Successfully deployed version %d to %s", code, req.Track)
			return nil
		},
	})
}

func upload(ctx context.Context, session *edit.Session, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeFileNotFound, "open artifact", err)
	}
	defer f.Close()
	return session.Edits().UploadBinary(ctx, session.PackageName, session.EditID, f, ContentTypeFor(path))
}

// rolloutRelease applies the rollout rule: at or above 100 percent the
// release completes with no fraction, below it is staged.
func rolloutRelease(r gateway.Release, percentage float64) gateway.Release {
	if percentage >= 100 {
		r.Status = gateway.StatusCompleted
		r.UserFraction = nil
		return r
	}
	fraction := percentage / 100
	r.Status = gateway.StatusInProgress
	r.UserFraction = &fraction
	return r
}
