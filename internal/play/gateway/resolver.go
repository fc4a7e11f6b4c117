package gateway

import (
	"context"
	"sync"

	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
)

type requestCredentialsKey struct{}

// WithRequestCredentials scopes creds to one request. Resolver prefers them
// over the shared gateway.
func WithRequestCredentials(ctx context.Context, creds *google.Credentials) context.Context {
	return context.WithValue(ctx, requestCredentialsKey{}, creds)
}

// RequestCredentials returns credentials attached by WithRequestCredentials.
func RequestCredentials(ctx context.Context) (*google.Credentials, bool) {
	creds, ok := ctx.Value(requestCredentialsKey{}).(*google.Credentials)
	return creds, ok && creds != nil
}

// Builder turns credentials into a ready gateway.
type Builder func(ctx context.Context, creds *google.Credentials) (Gateway, error)

// Resolver implements Factory. Per-request credentials build a fresh gateway;
// otherwise a shared gateway is built from the process credentials on first
// use and can be replaced at runtime.
type Resolver struct {
	source CredentialSource
	build  Builder
	logger zerolog.Logger

	mu     sync.Mutex
	shared Gateway
}

// NewResolver returns a resolver over source and build.
func NewResolver(source CredentialSource, build Builder, logger zerolog.Logger) *Resolver {
	return &Resolver{source: source, build: build, logger: logger}
}

// Gateway resolves the gateway for ctx.
func (r *Resolver) Gateway(ctx context.Context) (Gateway, error) {
	if creds, ok := RequestCredentials(ctx); ok {
		return r.buildGateway(ctx, creds)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shared != nil {
		return r.shared, nil
	}
	if r.source == nil {
		return nil, ErrNoCredentials
	}
	creds, err := r.source(ctx)
	if err != nil {
		return nil, err
	}
	g, err := r.buildGateway(ctx, creds)
	if err != nil {
		return nil, err
	}
	r.shared = g
	r.logger.Info().Msg("api client initialized")
	return g, nil
}

// Init builds the shared gateway eagerly. Failures are logged and returned;
// the resolver retries on next use.
func (r *Resolver) Init(ctx context.Context) error {
	if _, err := r.Gateway(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("api client initialization failed")
		return err
	}
	return nil
}

// Replace builds a gateway from creds and makes it the shared one.
func (r *Resolver) Replace(ctx context.Context, creds *google.Credentials) error {
	g, err := r.buildGateway(ctx, creds)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.shared = g
	r.mu.Unlock()
	r.logger.Info().Msg("credentials updated")
	return nil
}

func (r *Resolver) buildGateway(ctx context.Context, creds *google.Credentials) (Gateway, error) {
	g, err := r.build(context.WithoutCancel(ctx), creds)
	if err != nil {
		if apperrors.CodeOf(err) != apperrors.CodeUnknown {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeServiceUnavailable, "failed to initialize API client", err)
	}
	return g, nil
}
