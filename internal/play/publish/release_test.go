package publish

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	"github.com/lusky3/play-store-mcp/internal/play/gateway/gatewaytest"
	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
)

func seededFake() *gatewaytest.Fake {
	half := 0.5
	fake := gatewaytest.New()
	fake.Tracks["beta"] = gateway.Track{Name: "beta", Releases: []gateway.Release{
		{Name: "2.0", Status: gateway.StatusInProgress, VersionCodes: []int64{20}, UserFraction: &half,
			ReleaseNotes: []gateway.LocalizedText{{Language: "en-US", Text: "New things"}}},
		{Name: "1.9", Status: gateway.StatusCompleted, VersionCodes: []int64{19}},
	}}
	return fake
}

func TestPromoteCopiesNotes(t *testing.T) {
	fake := seededFake()
	svc := newTestService(t, fake)

	res, err := svc.Promote(context.Background(), PromoteRequest{
		PackageName: testPackage, FromTrack: "beta", ToTrack: "production", VersionCode: 20, RolloutPercentage: 10,
	})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if !res.Success || res.Track != "production" {
		t.Fatalf("result = %+v", res)
	}
	if res.Message != "Successfully promoted version 20 from beta to production" {
		t.Fatalf("message = %q", res.Message)
	}
	tenth := 0.1
	want := gateway.Track{Name: "production", Releases: []gateway.Release{{
		Status:       gateway.StatusInProgress,
		VersionCodes: []int64{20},
		UserFraction: &tenth,
		ReleaseNotes: []gateway.LocalizedText{{Language: "en-US", Text: "New things"}},
	}}}
	if diff := cmp.Diff(want, fake.Track("production")); diff != "" {
		t.Fatalf("production mismatch (-want +got):\n%s", diff)
	}
	assertSessionsResolved(t, fake)
}

func TestVersionMissDiscardsWithoutCommit(t *testing.T) {
	ctx := context.Background()
	calls := map[string]func(*Service) (Result, error){
		"promote": func(s *Service) (Result, error) {
			return s.Promote(ctx, PromoteRequest{PackageName: testPackage, FromTrack: "beta", ToTrack: "production", VersionCode: 99, RolloutPercentage: 100})
		},
		"halt": func(s *Service) (Result, error) {
			return s.Halt(ctx, HaltRequest{PackageName: testPackage, Track: "beta", VersionCode: 99})
		},
		"rollout": func(s *Service) (Result, error) {
			return s.UpdateRollout(ctx, RolloutRequest{PackageName: testPackage, Track: "beta", VersionCode: 99, RolloutPercentage: 50})
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			fake := seededFake()
			res, err := call(newTestService(t, fake))
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if res.Success || res.ErrorKind != string(apperrors.CodeVersionNotFound) {
				t.Fatalf("result = %+v, want VersionNotFound", res)
			}
			if !strings.Contains(res.Message, "not found") {
				t.Fatalf("message = %q", res.Message)
			}
			if got := fake.Count(gatewaytest.OpCommitEdit); got != 0 {
				t.Fatalf("commit calls = %d, want 0", got)
			}
			if got := fake.Count(gatewaytest.OpDeleteEdit); got != 1 {
				t.Fatalf("delete calls = %d, want 1", got)
			}
			assertSessionsResolved(t, fake)
		})
	}
}

func TestHaltWritesBackAllReleases(t *testing.T) {
	fake := seededFake()
	svc := newTestService(t, fake)

	res, err := svc.Halt(context.Background(), HaltRequest{PackageName: testPackage, Track: "beta", VersionCode: 20})
	if err != nil {
		t.Fatalf("halt: %v", err)
	}
	if res.Message != "Successfully halted version 20 on beta" {
		t.Fatalf("message = %q", res.Message)
	}
	track := fake.Track("beta")
	if len(track.Releases) != 2 {
		t.Fatalf("releases = %d, want 2", len(track.Releases))
	}
	if track.Releases[0].Status != gateway.StatusHalted || track.Releases[1].Status != gateway.StatusCompleted {
		t.Fatalf("statuses = %q, %q", track.Releases[0].Status, track.Releases[1].Status)
	}
}

func TestUpdateRolloutIsIdempotent(t *testing.T) {
	fake := seededFake()
	svc := newTestService(t, fake)
	req := RolloutRequest{PackageName: testPackage, Track: "beta", VersionCode: 20, RolloutPercentage: 75}

	first, err := svc.UpdateRollout(context.Background(), req)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	afterFirst := fake.Track("beta")
	if _, err := svc.UpdateRollout(context.Background(), req); err != nil {
		t.Fatalf("second update: %v", err)
	}
	if diff := cmp.Diff(afterFirst, fake.Track("beta")); diff != "" {
		t.Fatalf("second update changed track (-first +second):\n%s", diff)
	}
	if first.Message != "Successfully updated rollout to 75% for version 20" {
		t.Fatalf("message = %q", first.Message)
	}
	if got := *afterFirst.Releases[0].UserFraction; got != 0.75 {
		t.Fatalf("fraction = %v, want 0.75", got)
	}
}

func TestUpdateRolloutCompletes(t *testing.T) {
	fake := seededFake()
	svc := newTestService(t, fake)

	res, err := svc.UpdateRollout(context.Background(), RolloutRequest{PackageName: testPackage, Track: "beta", VersionCode: 20, RolloutPercentage: 100})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	release := fake.Track("beta").Releases[0]
	if release.Status != gateway.StatusCompleted || release.UserFraction != nil {
		t.Fatalf("release = %+v, want completed without fraction", release)
	}
	if release.Name != "2.0" {
		t.Fatalf("name = %q, want preserved", release.Name)
	}
}
