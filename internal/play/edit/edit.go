// Package edit manages the lifecycle of Play Console edits. An edit is the
// server-side transaction that stages publishing changes; every session
// opened here must end committed or discarded exactly once.
package edit

import (
	"context"
	"errors"
	"time"

	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
	"github.com/lusky3/play-store-mcp/internal/platform/telemetry/metrics"
	"github.com/lusky3/play-store-mcp/internal/platform/timeouts"
	"github.com/rs/zerolog"
)

// State is the lifecycle state of a session.
type State int

const (
	StateOpen State = iota
	StateCommitted
	StateDiscarded
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCommitted:
		return "committed"
	case StateDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// ErrSessionResolved is returned when a committed or discarded session is
// resolved again.
var ErrSessionResolved = errors.New("edit session already resolved")

// Session is one open edit for one package. It is owned by the call that
// opened it and is not safe for concurrent use.
type Session struct {
	PackageName string
	EditID      string

	edits gateway.Edits
	state State
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Edits returns the gateway the session was opened on.
func (s *Session) Edits() gateway.Edits {
	return s.edits
}

// Manager opens and resolves sessions.
type Manager struct {
	logger         zerolog.Logger
	metrics        *metrics.Metrics
	discardTimeout time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics sets the counters updated on every transition.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mx
	}
}

// WithDiscardTimeout bounds the detached cleanup call.
func WithDiscardTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.discardTimeout = d
		}
	}
}

// NewManager returns a manager with a no-op logger unless configured.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger:         zerolog.Nop(),
		discardTimeout: timeouts.Discard,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open inserts a new edit for packageName. Upstream failures keep their
// classification.
func (m *Manager) Open(ctx context.Context, edits gateway.Edits, packageName string) (*Session, error) {
	id, err := edits.InsertEdit(ctx, packageName)
	if err != nil {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeOf(err), "failed to open edit",
			map[string]string{"package_name": packageName}, err)
	}
	m.metrics.EditOpened()
	m.logger.Debug().Str("package_name", packageName).Str("edit_id", id).Msg("edit opened")
	return &Session{PackageName: packageName, EditID: id, edits: edits, state: StateOpen}, nil
}

// Commit publishes the staged changes. On failure the session stays open and
// the caller must discard it.
func (m *Manager) Commit(ctx context.Context, s *Session) error {
	if s.state != StateOpen {
		return ErrSessionResolved
	}
	if err := s.edits.CommitEdit(ctx, s.PackageName, s.EditID); err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeOf(err), "failed to commit edit",
			map[string]string{"package_name": s.PackageName, "edit_id": s.EditID}, err)
	}
	s.state = StateCommitted
	m.metrics.EditCommitted()
	m.logger.Debug().Str("package_name", s.PackageName).Str("edit_id", s.EditID).Msg("edit committed")
	return nil
}

// Discard abandons the edit. Upstream failures are logged and counted but
// not returned. The delete runs detached from ctx cancellation so a
// cancelled caller still cleans up.
func (m *Manager) Discard(ctx context.Context, s *Session) error {
	if s.state != StateOpen {
		return ErrSessionResolved
	}
	s.state = StateDiscarded
	m.metrics.EditDiscarded()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.discardTimeout)
	defer cancel()
	if err := s.edits.DeleteEdit(ctx, s.PackageName, s.EditID); err != nil {
		m.metrics.DiscardFailed()
		m.logger.Warn().
			Err(err).
			Str("package_name", s.PackageName).
			Str("edit_id", s.EditID).
			Msg("failed to discard edit")
		return nil
	}
	m.logger.Debug().Str("package_name", s.PackageName).Str("edit_id", s.EditID).Msg("edit discarded")
	return nil
}

// Release discards s if it is still open. Use it in a defer right after Open.
func (m *Manager) Release(ctx context.Context, s *Session) {
	if s != nil && s.state == StateOpen {
		_ = m.Discard(ctx, s)
	}
}

// Read opens an edit, runs fn, and always discards the edit afterwards.
func (m *Manager) Read(ctx context.Context, edits gateway.Edits, packageName string, fn func(*Session) error) error {
	s, err := m.Open(ctx, edits, packageName)
	if err != nil {
		return err
	}
	defer m.Release(ctx, s)
	return fn(s)
}
