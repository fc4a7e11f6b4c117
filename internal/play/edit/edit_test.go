package edit_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lusky3/play-store-mcp/internal/play/edit"
	"github.com/lusky3/play-store-mcp/internal/play/gateway/gatewaytest"
	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
	"github.com/lusky3/play-store-mcp/internal/platform/telemetry/metrics"
)

const pkg = "com.example.app"

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestOpenCommit(t *testing.T) {
	fake := gatewaytest.New()
	m := edit.NewManager()
	ctx := context.Background()

	s, err := m.Open(ctx, fake, pkg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.State() != edit.StateOpen || s.EditID == "" || s.PackageName != pkg {
		t.Fatalf("unexpected session %+v", s)
	}
	if err := m.Commit(ctx, s); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if s.State() != edit.StateCommitted {
		t.Fatalf("state = %v, want committed", s.State())
	}
	if len(fake.OpenEdits()) != 0 {
		t.Fatalf("open edits = %v, want none", fake.OpenEdits())
	}
}

func TestOpenFailureKeepsClassification(t *testing.T) {
	fake := gatewaytest.New()
	fake.Fail(gatewaytest.OpInsertEdit, gatewaytest.Status(http.StatusForbidden))

	_, err := edit.NewManager().Open(context.Background(), fake, pkg)
	if err == nil {
		t.Fatal("expected open error")
	}
	if got := apperrors.CodeOf(err); got != apperrors.CodePermissionDenied {
		t.Fatalf("code = %q, want %q", got, apperrors.CodePermissionDenied)
	}
}

func TestCommitFailureLeavesSessionOpen(t *testing.T) {
	fake := gatewaytest.New()
	fake.Fail(gatewaytest.OpCommitEdit, gatewaytest.Status(http.StatusBadRequest))
	m := edit.NewManager()
	ctx := context.Background()

	s, err := m.Open(ctx, fake, pkg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Commit(ctx, s); err == nil {
		t.Fatal("expected commit error")
	}
	if s.State() != edit.StateOpen {
		t.Fatalf("state = %v, want open", s.State())
	}
	if err := m.Discard(ctx, s); err != nil {
		t.Fatalf("discard: %v", err)
	}
	want := []string{gatewaytest.OpInsertEdit, gatewaytest.OpCommitEdit, gatewaytest.OpDeleteEdit}
	if diff := cmp.Diff(want, fake.Ops()); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscardSwallowsFailuresAndCounts(t *testing.T) {
	fake := gatewaytest.New()
	fake.FailAlways(gatewaytest.OpDeleteEdit, gatewaytest.Status(http.StatusInternalServerError))
	mx := metrics.New()
	m := edit.NewManager(edit.WithMetrics(mx))
	ctx := context.Background()

	s, err := m.Open(ctx, fake, pkg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Discard(ctx, s); err != nil {
		t.Fatalf("discard returned %v, want nil", err)
	}
	if s.State() != edit.StateDiscarded {
		t.Fatalf("state = %v, want discarded", s.State())
	}
	body := scrape(t, mx)
	for _, line := range []string{
		"playstore_edit_opened_total 1",
		"playstore_edit_discarded_total 1",
		"playstore_edit_discard_failures_total 1",
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("metrics missing %q", line)
		}
	}
}

func TestResolveTwiceFails(t *testing.T) {
	fake := gatewaytest.New()
	m := edit.NewManager()
	ctx := context.Background()

	s, err := m.Open(ctx, fake, pkg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Commit(ctx, s); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := m.Commit(ctx, s); !errors.Is(err, edit.ErrSessionResolved) {
		t.Fatalf("second commit = %v, want ErrSessionResolved", err)
	}
	if err := m.Discard(ctx, s); !errors.Is(err, edit.ErrSessionResolved) {
		t.Fatalf("discard after commit = %v, want ErrSessionResolved", err)
	}
	if got := fake.Count(gatewaytest.OpDeleteEdit); got != 0 {
		t.Fatalf("delete calls = %d, want 0", got)
	}
}

func TestDiscardRunsAfterCancellation(t *testing.T) {
	fake := gatewaytest.New()
	m := edit.NewManager()
	ctx, cancel := context.WithCancel(context.Background())

	s, err := m.Open(ctx, fake, pkg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	cancel()
	m.Release(ctx, s)
	if s.State() != edit.StateDiscarded {
		t.Fatalf("state = %v, want discarded", s.State())
	}
	if len(fake.OpenEdits()) != 0 {
		t.Fatalf("open edits = %v, want none", fake.OpenEdits())
	}
}

func TestReadAlwaysDiscards(t *testing.T) {
	fake := gatewaytest.New()
	m := edit.NewManager()
	boom := errors.New("boom")

	err := m.Read(context.Background(), fake, pkg, func(s *edit.Session) error {
		if s.Edits() == nil {
			t.Fatal("session has no gateway")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("read = %v, want boom", err)
	}
	if err := m.Read(context.Background(), fake, pkg, func(*edit.Session) error { return nil }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := fake.Count(gatewaytest.OpDeleteEdit); got != 2 {
		t.Fatalf("delete calls = %d, want 2", got)
	}
	if got := fake.Count(gatewaytest.OpCommitEdit); got != 0 {
		t.Fatalf("commit calls = %d, want 0", got)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[edit.State]string{
		edit.StateOpen:      "open",
		edit.StateCommitted: "committed",
		edit.StateDiscarded: "discarded",
		edit.State(9):       "unknown",
	} {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
