package publish

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	"github.com/lusky3/play-store-mcp/internal/play/gateway/gatewaytest"
	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
	"github.com/lusky3/play-store-mcp/internal/platform/storage/journal"
)

const testPackage = "com.example.app"

type fakeRecorder struct {
	entries []journal.Entry
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, entry journal.Entry) error {
	r.entries = append(r.entries, entry)
	return r.err
}

func newTestService(t *testing.T, fake *gatewaytest.Fake, opts ...Option) *Service {
	t.Helper()
	return New(gateway.Static(fake), opts...)
}

func writeArtifact(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("artifact:"+name), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

// assertSessionsResolved checks every opened edit was committed or deleted
// exactly once.
func assertSessionsResolved(t *testing.T, fake *gatewaytest.Fake) {
	t.Helper()
	if open := fake.OpenEdits(); len(open) != 0 {
		t.Fatalf("edits left open: %v", open)
	}
	deletesPerEdit := map[string]int{}
	for _, call := range fake.Calls {
		if call.Op == gatewaytest.OpDeleteEdit {
			deletesPerEdit[call.EditID]++
		}
	}
	for editID, deletes := range deletesPerEdit {
		if deletes > 1 {
			t.Fatalf("edit %s discarded %d times", editID, deletes)
		}
	}
}

func TestFailedResultMessages(t *testing.T) {
	base := Result{PackageName: testPackage, Track: "beta", EditID: "e1"}

	got := failed(base, "Halt failed", versionNotFound(7, "beta"))
	want := Result{PackageName: testPackage, Track: "beta", Message: "Version 7 not found in beta", ErrorKind: "VersionNotFound"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("version miss mismatch (-want +got):\n%s", diff)
	}

	got = failed(base, "Halt failed", gatewaytest.Status(http.StatusForbidden))
	if got.ErrorKind != string(apperrors.CodePermissionDenied) {
		t.Fatalf("kind = %q, want PermissionDenied", got.ErrorKind)
	}
	if got.Message != "Halt failed: fake: HTTP 403: Forbidden" {
		t.Fatalf("message = %q", got.Message)
	}

	got = failed(base, "Halt failed", context.Canceled)
	if got.ErrorKind != string(apperrors.CodeCanceled) {
		t.Fatalf("kind = %q, want Canceled", got.ErrorKind)
	}
}

func TestMutationsAreJournaled(t *testing.T) {
	fake := gatewaytest.New()
	fake.NextVersionCode = 12
	rec := &fakeRecorder{}
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, fake, WithRecorder(rec), WithClock(func() time.Time { return at }))

	res, err := svc.Deploy(context.Background(), DeployRequest{
		PackageName:       testPackage,
		Track:             "internal",
		FilePath:          writeArtifact(t, "app.aab"),
		RolloutPercentage: 100,
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	want := []journal.Entry{{
		RecordedAt:  at,
		Operation:   OpDeploy,
		PackageName: testPackage,
		Track:       "internal",
		VersionCode: res.VersionCode,
		EditID:      res.EditID,
		Success:     true,
		Message:     "Successfully deployed version 12 to internal",
	}}
	if diff := cmp.Diff(want, rec.entries); diff != "" {
		t.Fatalf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestJournalFailureDoesNotChangeResult(t *testing.T) {
	fake := gatewaytest.New()
	rec := &fakeRecorder{err: errors.New("disk full")}
	svc := newTestService(t, fake, WithRecorder(rec))

	res, err := svc.UpdateTesters(context.Background(), TestersRequest{
		PackageName:  testPackage,
		Track:        "alpha",
		GoogleGroups: []string{"qa@example.com"},
	})
	if err != nil {
		t.Fatalf("update testers: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v, want success", res)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("journal attempts = %d, want 1", len(rec.entries))
	}
}

func TestGatewayResolutionFailureIsReturned(t *testing.T) {
	svc := New(gateway.FactoryFunc(func(context.Context) (gateway.Gateway, error) {
		return nil, gateway.ErrNoCredentials
	}))
	_, err := svc.Halt(context.Background(), HaltRequest{PackageName: testPackage, Track: "beta", VersionCode: 3})
	if !errors.Is(err, gateway.ErrNoCredentials) {
		t.Fatalf("error = %v, want ErrNoCredentials", err)
	}
}

func TestOpenFailureIsReturned(t *testing.T) {
	fake := gatewaytest.New()
	fake.Fail(gatewaytest.OpInsertEdit, gatewaytest.Status(http.StatusUnauthorized))
	svc := newTestService(t, fake)

	_, err := svc.UpdateRollout(context.Background(), RolloutRequest{
		PackageName: testPackage, Track: "production", VersionCode: 3, RolloutPercentage: 50,
	})
	if got := apperrors.CodeOf(err); got != apperrors.CodeBadCredentials {
		t.Fatalf("code = %q, want BadCredentials", got)
	}
}

func TestCancellationStillDiscards(t *testing.T) {
	fake := gatewaytest.New()
	fake.Tracks["beta"] = gateway.Track{Name: "beta", Releases: []gateway.Release{{Status: gateway.StatusInProgress, VersionCodes: []int64{3}}}}
	fake.Fail(gatewaytest.OpUpdateTrack, context.Canceled)
	svc := newTestService(t, fake)

	res, err := svc.Halt(context.Background(), HaltRequest{PackageName: testPackage, Track: "beta", VersionCode: 3})
	if err != nil {
		t.Fatalf("halt: %v", err)
	}
	if res.Success || res.ErrorKind != string(apperrors.CodeCanceled) {
		t.Fatalf("result = %+v, want canceled failure", res)
	}
	if got := fake.Count(gatewaytest.OpDeleteEdit); got != 1 {
		t.Fatalf("delete calls = %d, want 1", got)
	}
	assertSessionsResolved(t, fake)
}
