// Package publish runs the mutating Play Console workflows. Each workflow
// validates its inputs, opens one edit session, stages its changes, and then
// commits on success or discards on any failure before returning a Result.
//
// Expected failures (bad input, missing files, unknown versions, upstream
// errors after the session is open) are reported in the Result. Only failures
// to resolve a gateway or to open a session are returned as Go errors.
package publish

import (
	"context"
	"time"

	"github.com/lusky3/play-store-mcp/internal/play/edit"
	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
	"github.com/lusky3/play-store-mcp/internal/platform/storage/journal"
	"github.com/lusky3/play-store-mcp/internal/platform/telemetry/metrics"
	"github.com/rs/zerolog"
)

// Operation names used in logs, metrics and the journal.
const (
	OpDeploy        = "deploy"
	OpPromote       = "promote"
	OpHalt          = "halt"
	OpUpdateRollout = "update_rollout"
	OpUpdateListing = "update_listing"
	OpUpdateTesters = "update_testers"
)

const outcomeSuccess = "success"

// Result is the outcome of one mutation.
type Result struct {
	Success     bool   `json:"success"`
	PackageName string `json:"package_name"`
	Track       string `json:"track,omitempty"`
	Language    string `json:"language,omitempty"`
	VersionCode *int64 `json:"version_code,omitempty"`
	EditID      string `json:"edit_id,omitempty"`
	Message     string `json:"message"`
	ErrorKind   string `json:"error_kind,omitempty"`
}

// Recorder receives every finished mutation.
type Recorder interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// Service runs mutations against gateways resolved per call.
type Service struct {
	factory  gateway.Factory
	edits    *edit.Manager
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	recorder Recorder
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the mutation counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRecorder journals every result.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
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

// WithClock overrides the journal timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a service resolving gateways through factory.
func New(factory gateway.Factory, opts ...Option) *Service {
	s := &Service{
		factory: factory,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.edits == nil {
		s.edits = edit.NewManager(edit.WithLogger(s.logger), edit.WithMetrics(s.metrics))
	}
	return s
}

// mutation describes one workflow run by mutate.
type mutation struct {
	op string
	// failPrefix leads the message of upstream failures, e.g. "Deployment failed".
	failPrefix string
	// result holds the identifying fields copied into every outcome.
	result Result
	body   func(ctx context.Context, s *edit.Session, res *Result) error
}

// mutate is the shared session skeleton: resolve gateway, open, run body,
// then commit or discard. The deferred release covers panics in body.
func (s *Service) mutate(ctx context.Context, m mutation) (Result, error) {
	logger := s.logger.With().Str("operation", m.op).Str("package_name", m.result.PackageName).Logger()

	g, err := s.factory.Gateway(ctx)
	if err != nil {
		s.metrics.Mutation(m.op, string(apperrors.CodeOf(err)))
		logger.Error().Err(err).Msg("resolve gateway")
		return Result{}, err
	}
	session, err := s.edits.Open(ctx, g, m.result.PackageName)
	if err != nil {
		s.metrics.Mutation(m.op, string(apperrors.CodeOf(err)))
		logger.Error().Err(err).Msg("open edit")
		return Result{}, err
	}
	defer s.edits.Release(ctx, session)

	res := m.result
	if err := m.body(ctx, session, &res); err != nil {
		_ = s.edits.Discard(ctx, session)
		return s.finish(ctx, m.op, failed(res, m.failPrefix, err)), nil
	}
	if err := s.edits.Commit(ctx, session); err != nil {
		_ = s.edits.Discard(ctx, session)
		return s.finish(ctx, m.op, failed(res, m.failPrefix, err)), nil
	}

	res.Success = true
	res.EditID = session.EditID
	return s.finish(ctx, m.op, res), nil
}

// failed builds the failure result for err. Business-rule misses and
// unprefixed rejections carry the error message as is.
func failed(res Result, prefix string, err error) Result {
	code := apperrors.CodeOf(err)
	res.Success = false
	res.EditID = ""
	res.ErrorKind = string(code)
	if prefix == "" || code == apperrors.CodeVersionNotFound {
		res.Message = err.Error()
	} else {
		res.Message = prefix + ": " + err.Error()
	}
	return res
}

// rejected is a failure decided before any gateway work.
func rejected(res Result, err error) Result {
	return failed(res, "", err)
}

// finish logs, counts and journals res, then returns it unchanged.
func (s *Service) finish(ctx context.Context, op string, res Result) Result {
	outcome := outcomeSuccess
	event := s.logger.Info()
	if !res.Success {
		outcome = res.ErrorKind
		event = s.logger.Warn().Str("error_kind", res.ErrorKind)
	}
	s.metrics.Mutation(op, outcome)
	event.
		Str("operation", op).
		Str("package_name", res.PackageName).
		Str("track", res.Track).
		Str("edit_id", res.EditID).
		Msg(res.Message)

	s.record(ctx, op, res)
	return res
}

// record journals res. Journal failures never change the result.
func (s *Service) record(ctx context.Context, op string, res Result) {
	if s.recorder != nil {
		entry := journal.Entry{
			RecordedAt:  s.now(),
			Operation:   op,
			PackageName: res.PackageName,
			Track:       res.Track,
			Language:    res.Language,
			VersionCode: res.VersionCode,
			EditID:      res.EditID,
			Success:     res.Success,
			ErrorKind:   res.ErrorKind,
			Message:     res.Message,
			BatchID:     batchIDFrom(ctx),
		}
		if err := s.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
			s.logger.Warn().Err(err).Str("operation", op).Msg("journal write failed")
		}
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}
