// Package validate checks publishing inputs before any API work is done.
// Every check returns field errors instead of failing on the first problem.
package validate

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
	"golang.org/x/text/language"
)

// Listing text limits, in characters.
const (
	MaxTitle            = 50
	MaxShortDescription = 80
	MaxFullDescription  = 4000
)

// Tracks are the distribution tracks accepted by the publishing tools.
var Tracks = []string{"internal", "alpha", "beta", "production"}

var packageNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// PackageName checks the application id format.
func PackageName(name string) []FieldError {
	if name == "" {
		return []FieldError{{Field: "package_name", Message: "Package name cannot be empty", Value: name}}
	}
	var errs []FieldError
	if !strings.Contains(name, ".") {
		errs = append(errs, FieldError{
			Field:   "package_name",
			Message: "Package name must contain at least one dot (e.g., com.example.app)",
			Value:   name,
		})
	}
	if !packageNamePattern.MatchString(name) {
		errs = append(errs, FieldError{
			Field:   "package_name",
			Message: "Package name must start with lowercase letter and contain only lowercase letters, numbers, underscores, and dots",
			Value:   name,
		})
	}
	return errs
}

// Track checks that track is a known track name.
func Track(track string) []FieldError {
	return trackField("track", track)
}

func trackField(field, track string) []FieldError {
	if slices.Contains(Tracks, track) {
		return nil
	}
	return []FieldError{{
		Field:   field,
		Message: "Track must be one of: " + strings.Join(Tracks, ", "),
		Value:   track,
	}}
}

// TrackField is Track reported under a different field name.
func TrackField(field, track string) []FieldError {
	return trackField(field, track)
}

// ListingText checks listing text lengths. Empty fields are not checked.
func ListingText(title, shortDescription, fullDescription string) []FieldError {
	var errs []FieldError
	check := func(field, label, text string, limit int) {
		if n := utf8.RuneCountInString(text); n > limit {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("%s must be %d characters or less", label, limit),
				Value:   fmt.Sprintf("%d characters", n),
			})
		}
	}
	check("title", "Title", title, MaxTitle)
	check("short_description", "Short description", shortDescription, MaxShortDescription)
	check("full_description", "Full description", fullDescription, MaxFullDescription)
	return errs
}

// Rollout checks a rollout percentage.
func Rollout(percentage float64) []FieldError {
	if percentage >= 0 && percentage <= 100 {
		return nil
	}
	return []FieldError{{
		Field:   "rollout_percentage",
		Message: "Rollout percentage must be between 0 and 100",
		Value:   fmt.Sprintf("%g", percentage),
	}}
}

// VersionCode checks that a version code is positive.
func VersionCode(code int64) []FieldError {
	if code > 0 {
		return nil
	}
	return []FieldError{{Field: "version_code", Message: "Version code must be positive", Value: fmt.Sprintf("%d", code)}}
}

// Language checks a BCP 47 language tag such as en-US.
func Language(tag string) []FieldError {
	if tag == "" {
		return []FieldError{{Field: "language", Message: "Language cannot be empty"}}
	}
	if _, err := language.Parse(tag); err != nil {
		return []FieldError{{Field: "language", Message: "Language must be a BCP 47 tag (e.g., en-US)", Value: tag}}
	}
	return nil
}

// Err folds field errors into one InvalidArgument error, or nil.
func Err(errs ...[]FieldError) error {
	var all []FieldError
	for _, e := range errs {
		all = append(all, e...)
	}
	if len(all) == 0 {
		return nil
	}
	messages := make([]string, 0, len(all))
	metadata := make(map[string]string, len(all))
	for _, fe := range all {
		messages = append(messages, fe.Message)
		if _, ok := metadata[fe.Field]; !ok {
			metadata[fe.Field] = fe.Value
		}
	}
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument, strings.Join(messages, "; "), metadata)
}
