package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"

	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/androidpublisher/v3"
)

const serviceAccountType = "service_account"

// ErrNoCredentials is returned when no credential source is configured.
var ErrNoCredentials = apperrors.New(apperrors.CodeBadCredentials,
	"No valid credentials found. Set GOOGLE_APPLICATION_CREDENTIALS (path) or GOOGLE_PLAY_STORE_CREDENTIALS (JSON or path).")

type serviceAccountKey struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ParseCredentials validates a service account key and scopes it to the
// publishing API. The returned credentials outlive ctx.
func ParseCredentials(ctx context.Context, raw []byte) (*google.Credentials, error) {
	var key serviceAccountKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadCredentials, "invalid JSON in credentials", err)
	}
	if key.Type != serviceAccountType {
		return nil, apperrors.New(apperrors.CodeBadCredentials, "credentials must be a service account key")
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, apperrors.New(apperrors.CodeBadCredentials, "service account key is missing client_email or private_key")
	}
	creds, err := google.CredentialsFromJSON(context.WithoutCancel(ctx), raw, androidpublisher.AndroidpublisherScope)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadCredentials, "invalid service account key", err)
	}
	return creds, nil
}

// LoadCredentials accepts either inline JSON or a path to a key file.
func LoadCredentials(ctx context.Context, value string) (*google.Credentials, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrNoCredentials
	}
	if strings.HasPrefix(value, "{") {
		return ParseCredentials(ctx, []byte(value))
	}
	raw, err := os.ReadFile(value)
	if err != nil {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeBadCredentials, "read credentials file",
			map[string]string{"path": value}, err)
	}
	return ParseCredentials(ctx, raw)
}

// DecodeCredentials parses base64-encoded key JSON.
func DecodeCredentials(ctx context.Context, encoded string) (*google.Credentials, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadCredentials, "invalid base64 encoding", err)
	}
	return ParseCredentials(ctx, raw)
}

// CredentialSource yields the process-wide credentials.
type CredentialSource func(ctx context.Context) (*google.Credentials, error)

// ProcessCredentials tries primary (inline JSON or path) and then
// fallbackPath. A primary path that does not exist falls through.
func ProcessCredentials(primary, fallbackPath string) CredentialSource {
	return func(ctx context.Context) (*google.Credentials, error) {
		if value := strings.TrimSpace(primary); value != "" {
			creds, err := LoadCredentials(ctx, value)
			if err == nil {
				return creds, nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
		if strings.TrimSpace(fallbackPath) != "" {
			return LoadCredentials(ctx, fallbackPath)
		}
		return nil, ErrNoCredentials
	}
}
