// Package retry guards Play Developer API calls with bounded exponential
// backoff. A Policy is a value: it holds no state across calls, and every
// guarded call builds its own backoff sequence.
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxAttempts counts the first call plus retries.
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 32 * time.Second
	// DefaultJitter spreads each delay over [0.5x, 1.5x].
	DefaultJitter = 0.5
	// MaxJitter spreads each delay over [0, 2x].
	MaxJitter = 1.0
)

// Classifier reports whether a failure is worth retrying.
type Classifier func(error) bool

// State describes one scheduled retry.
type State struct {
	Attempt int
	Status  int
	Backoff time.Duration
	Err     error
}

// Policy configures a guarded call. The zero value retries transient
// failures three times without jitter; use Default for production settings.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Jitter is the randomization factor, clamped to [0, MaxJitter].
	Jitter float64

	Classify Classifier
	Sleep    func(context.Context, time.Duration) error
	Notify   func(State)
	Logger   zerolog.Logger
}

// Default returns the policy used for all gateway calls.
func Default(logger zerolog.Logger) Policy {
	return Policy{
		MaxAttempts:    DefaultMaxAttempts,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		Jitter:         DefaultJitter,
		Classify:       IsTransient,
		Logger:         logger,
	}
}

// Run guards op and returns its final error unchanged.
func (p Policy) Run(ctx context.Context, op func(context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do calls op until it succeeds, fails permanently, or exhausts the attempt
// budget. The last failure is returned as-is. A context cancelled during a
// backoff wait aborts with the context error.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	delays := p.backOff()

	for attempt := 1; ; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		if attempt >= p.MaxAttempts || !p.Classify(err) {
			return value, err
		}

		state := State{
			Attempt: attempt,
			Status:  StatusOf(err),
			Backoff: delays.NextBackOff(),
			Err:     err,
		}
		p.Logger.Warn().
			Err(err).
			Int("status", state.Status).
			Int("retry", attempt).
			Int("max_attempts", p.MaxAttempts).
			Dur("backoff", state.Backoff).
			Msg("transient upstream failure, retrying")
		if p.Notify != nil {
			p.Notify(state)
		}
		if err := p.Sleep(ctx, state.Backoff); err != nil {
			var zero T
			return zero, err
		}
	}
}

// IsTransient reports whether err carries HTTP 429, 500 or 503.
func IsTransient(err error) bool {
	switch StatusOf(err) {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var statusErr apperrors.HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.HTTPStatus()
	}
	return 0
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = DefaultInitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = DefaultMaxBackoff
	}
	p.Jitter = min(max(p.Jitter, 0), MaxJitter)
	if p.Classify == nil {
		p.Classify = IsTransient
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialBackoff,
		RandomizationFactor: p.Jitter,
		Multiplier:          2,
		MaxInterval:         p.MaxBackoff,
	}
	b.Reset()
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
