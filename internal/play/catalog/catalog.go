// Package catalog serves the read-only views of an app: tracks, listings,
// testers, expansion files, reviews, subscriptions, orders and in-app
// products.
//
// Reads that need an edit open one, read, and always discard it. Failures
// are returned as coded errors whose message names the read that failed.
package catalog

import (
	"context"
	"slices"
	"strings"

	"github.com/lusky3/play-store-mcp/internal/play/edit"
	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
	"github.com/rs/zerolog"
)

// ReleaseInfo is one release on a track in caller form.
type ReleaseInfo struct {
	PackageName       string            `json:"package_name"`
	Track             string            `json:"track"`
	Status            string            `json:"status"`
	VersionCodes      []int64           `json:"version_codes"`
	VersionName       string            `json:"version_name,omitempty"`
	RolloutPercentage float64           `json:"rollout_percentage"`
	ReleaseNotes      map[string]string `json:"release_notes"`
}

// TrackInfo is a track and its releases.
type TrackInfo struct {
	Track    string        `json:"track"`
	Releases []ReleaseInfo `json:"releases"`
}

// TesterInfo lists the tester groups of a track.
type TesterInfo struct {
	Track        string   `json:"track"`
	TesterEmails []string `json:"tester_emails"`
}

// AppDetails combines the app contact details with one localized listing.
type AppDetails struct {
	PackageName      string `json:"package_name"`
	Title            string `json:"title,omitempty"`
	ShortDescription string `json:"short_description,omitempty"`
	FullDescription  string `json:"full_description,omitempty"`
	DefaultLanguage  string `json:"default_language,omitempty"`
	ContactEmail     string `json:"contact_email,omitempty"`
	ContactPhone     string `json:"contact_phone,omitempty"`
	ContactWebsite   string `json:"contact_website,omitempty"`
}

// ExpansionFileInfo describes the expansion file of an APK. Both size and
// referenced version are zero when the APK has none.
type ExpansionFileInfo struct {
	PackageName       string `json:"package_name"`
	VersionCode       int64  `json:"version_code"`
	ExpansionFileType string `json:"expansion_file_type"`
	FileSize          int64  `json:"file_size,omitempty"`
	ReferencesVersion int64  `json:"references_version,omitempty"`
}

// Service reads app state through gateways resolved per call.
type Service struct {
	factory gateway.Factory
	edits   *edit.Manager
	logger  zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithEditManager replaces the default session manager.
func WithEditManager(m *edit.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.edits = m
		}
	}
}

// New returns a catalog resolving gateways through factory.
func New(factory gateway.Factory, opts ...Option) *Service {
	s := &Service{factory: factory, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.edits == nil {
		s.edits = edit.NewManager(edit.WithLogger(s.logger))
	}
	return s
}

// readFailed keeps the code of err and names the failed read.
func readFailed(message string, err error) error {
	return apperrors.Wrap(apperrors.CodeOf(err), message, err)
}

// read runs fn inside a throwaway edit for packageName.
func (s *Service) read(ctx context.Context, packageName, message string, fn func(*edit.Session) error) error {
	g, err := s.factory.Gateway(ctx)
	if err != nil {
		return err
	}
	if err := s.edits.Read(ctx, g, packageName, fn); err != nil {
		return readFailed(message, err)
	}
	return nil
}

// Releases returns every track with its releases. A release without a user
// fraction is reported at 100 percent.
func (s *Service) Releases(ctx context.Context, packageName string) ([]TrackInfo, error) {
	s.logger.Info().Str("package_name", packageName).Msg("fetching releases")

	var tracks []gateway.Track
	err := s.read(ctx, packageName, "failed to get releases", func(session *edit.Session) error {
		var err error
		tracks, err = session.Edits().ListTracks(ctx, session.PackageName, session.EditID)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]TrackInfo, 0, len(tracks))
	for _, t := range tracks {
		info := TrackInfo{Track: t.Name, Releases: make([]ReleaseInfo, 0, len(t.Releases))}
		for _, r := range t.Releases {
			info.Releases = append(info.Releases, releaseInfo(packageName, t.Name, r))
		}
		out = append(out, info)
	}
	return out, nil
}

func releaseInfo(packageName, track string, r gateway.Release) ReleaseInfo {
	rollout := 100.0
	if r.UserFraction != nil {
		rollout = *r.UserFraction * 100
	}
	notes := make(map[string]string, len(r.ReleaseNotes))
	for _, n := range r.ReleaseNotes {
		notes[n.Language] = n.Text
	}
	return ReleaseInfo{
		PackageName:       packageName,
		Track:             track,
		Status:            r.Status,
		VersionCodes:      slices.Clone(r.VersionCodes),
		VersionName:       r.Name,
		RolloutPercentage: rollout,
		ReleaseNotes:      notes,
	}
}

// Listing returns the store listing for language.
func (s *Service) Listing(ctx context.Context, packageName, language string) (gateway.Listing, error) {
	s.logger.Info().Str("package_name", packageName).Str("language", language).Msg("fetching listing")

	var listing gateway.Listing
	err := s.read(ctx, packageName, "failed to get listing", func(session *edit.Session) error {
		var err error
		listing, err = session.Edits().GetListing(ctx, session.PackageName, session.EditID, language)
		return err
	})
	if err != nil {
		return gateway.Listing{}, err
	}
	listing.Language = language
	return listing, nil
}

// Listings returns the listings of every configured language, ordered by
// language.
func (s *Service) Listings(ctx context.Context, packageName string) ([]gateway.Listing, error) {
	s.logger.Info().Str("package_name", packageName).Msg("listing all store listings")

	var listings []gateway.Listing
	err := s.read(ctx, packageName, "failed to list listings", func(session *edit.Session) error {
		var err error
		listings, err = session.Edits().ListListings(ctx, session.PackageName, session.EditID)
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(listings, func(a, b gateway.Listing) int {
		return strings.Compare(a.Language, b.Language)
	})
	return listings, nil
}

// Testers returns the tester groups of track. A track without testers is
// reported with an empty list.
func (s *Service) Testers(ctx context.Context, packageName, track string) (TesterInfo, error) {
	s.logger.Info().Str("package_name", packageName).Str("track", track).Msg("fetching testers")

	groups := []string{}
	err := s.read(ctx, packageName, "failed to get testers", func(session *edit.Session) error {
		got, err := session.Edits().GetTesters(ctx, session.PackageName, session.EditID, track)
		if gateway.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if got != nil {
			groups = got
		}
		return nil
	})
	if err != nil {
		return TesterInfo{}, err
	}
	return TesterInfo{Track: track, TesterEmails: groups}, nil
}

// AppDetails returns the app contact details and the listing for language.
// A listing that cannot be read leaves the localized fields empty.
func (s *Service) AppDetails(ctx context.Context, packageName, language string) (AppDetails, error) {
	s.logger.Info().Str("package_name", packageName).Str("language", language).Msg("fetching app details")

	out := AppDetails{PackageName: packageName}
	err := s.read(ctx, packageName, "failed to get app details", func(session *edit.Session) error {
		edits := session.Edits()
		details, err := edits.GetDetails(ctx, session.PackageName, session.EditID)
		if err != nil {
			return err
		}
		out.DefaultLanguage = details.DefaultLanguage
		out.ContactEmail = details.ContactEmail
		out.ContactPhone = details.ContactPhone
		out.ContactWebsite = details.ContactWebsite

		listing, err := edits.GetListing(ctx, session.PackageName, session.EditID, language)
		if err != nil {
			s.logger.Debug().Err(err).Str("language", language).Msg("listing unavailable")
			return nil
		}
		out.Title = listing.Title
		out.ShortDescription = listing.ShortDescription
		out.FullDescription = listing.FullDescription
		return nil
	})
	if err != nil {
		return AppDetails{}, err
	}
	return out, nil
}

// ExpansionFile returns the expansion file of versionCode. fileType is main
// or patch and defaults to main. An APK without one is not an error.
func (s *Service) ExpansionFile(ctx context.Context, packageName string, versionCode int64, fileType string) (ExpansionFileInfo, error) {
	if fileType == "" {
		fileType = gateway.ExpansionFileMain
	}
	if fileType != gateway.ExpansionFileMain && fileType != gateway.ExpansionFilePatch {
		return ExpansionFileInfo{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			"expansion file type must be main or patch", map[string]string{"expansion_file_type": fileType})
	}
	s.logger.Info().
		Str("package_name", packageName).
		Int64("version_code", versionCode).
		Str("expansion_file_type", fileType).
		Msg("fetching expansion file")

	out := ExpansionFileInfo{PackageName: packageName, VersionCode: versionCode, ExpansionFileType: fileType}
	err := s.read(ctx, packageName, "failed to get expansion file", func(session *edit.Session) error {
		file, err := session.Edits().GetExpansionFile(ctx, session.PackageName, session.EditID, versionCode, fileType)
		if gateway.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		out.FileSize = file.FileSize
		out.ReferencesVersion = file.ReferencesVersion
		return nil
	})
	if err != nil {
		return ExpansionFileInfo{}, err
	}
	return out, nil
}
