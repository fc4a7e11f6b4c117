package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	"github.com/lusky3/play-store-mcp/internal/play/gateway/gatewaytest"
	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
)

const testPackage = "com.example.app"

func newTestService(fake *gatewaytest.Fake) *Service {
	return New(gateway.Static(fake))
}

// assertEditsDiscarded checks that every opened edit was deleted and none
// committed.
func assertEditsDiscarded(t *testing.T, fake *gatewaytest.Fake) {
	t.Helper()
	if open := fake.OpenEdits(); len(open) != 0 {
		t.Fatalf("edits left open: %v", open)
	}
	if got := fake.Count(gatewaytest.OpCommitEdit); got != 0 {
		t.Fatalf("commit calls = %d, want 0", got)
	}
	if inserts, deletes := fake.Count(gatewaytest.OpInsertEdit), fake.Count(gatewaytest.OpDeleteEdit); inserts != deletes {
		t.Fatalf("inserts = %d, deletes = %d", inserts, deletes)
	}
}

func TestReleases(t *testing.T) {
	fake := gatewaytest.New()
	quarter := 0.25
	fake.Tracks["beta"] = gateway.Track{Name: "beta", Releases: []gateway.Release{{
		Name:         "2.1",
		Status:       gateway.StatusInProgress,
		VersionCodes: []int64{21},
		UserFraction: &quarter,
		ReleaseNotes: []gateway.LocalizedText{{Language: "en-US", Text: "Fixes"}},
	}}}
	fake.Tracks["production"] = gateway.Track{Name: "production", Releases: []gateway.Release{{
		Status:       gateway.StatusCompleted,
		VersionCodes: []int64{20},
	}}}

	got, err := newTestService(fake).Releases(context.Background(), testPackage)
	if err != nil {
		t.Fatalf("releases: %v", err)
	}
	want := []TrackInfo{
		{Track: "beta", Releases: []ReleaseInfo{{
			PackageName:       testPackage,
			Track:             "beta",
			Status:            gateway.StatusInProgress,
			VersionCodes:      []int64{21},
			VersionName:       "2.1",
			RolloutPercentage: 25,
			ReleaseNotes:      map[string]string{"en-US": "Fixes"},
		}}},
		{Track: "production", Releases: []ReleaseInfo{{
			PackageName:       testPackage,
			Track:             "production",
			Status:            gateway.StatusCompleted,
			VersionCodes:      []int64{20},
			RolloutPercentage: 100,
			ReleaseNotes:      map[string]string{},
		}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("releases mismatch (-want +got):\n%s", diff)
	}
	assertEditsDiscarded(t, fake)
}

func TestReadFailureDiscardsAndKeepsCode(t *testing.T) {
	fake := gatewaytest.New()
	fake.Fail(gatewaytest.OpListTracks, gatewaytest.Status(http.StatusForbidden))

	_, err := newTestService(fake).Releases(context.Background(), testPackage)
	if got := apperrors.CodeOf(err); got != apperrors.CodePermissionDenied {
		t.Fatalf("code = %q, want PermissionDenied", got)
	}
	if !strings.HasPrefix(err.Error(), "failed to get releases: ") {
		t.Fatalf("error = %q", err)
	}
	assertEditsDiscarded(t, fake)
}

func TestListingAndListings(t *testing.T) {
	fake := gatewaytest.New()
	fake.Listings["fr-FR"] = gateway.Listing{Language: "fr-FR", Title: "Bonjour"}
	fake.Listings["en-US"] = gateway.Listing{Language: "en-US", Title: "Hello"}
	svc := newTestService(fake)
	ctx := context.Background()

	listing, err := svc.Listing(ctx, testPackage, "fr-FR")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if listing.Title != "Bonjour" {
		t.Fatalf("title = %q", listing.Title)
	}

	all, err := svc.Listings(ctx, testPackage)
	if err != nil {
		t.Fatalf("listings: %v", err)
	}
	var langs []string
	for _, l := range all {
		langs = append(langs, l.Language)
	}
	if diff := cmp.Diff([]string{"en-US", "fr-FR"}, langs); diff != "" {
		t.Fatalf("languages mismatch (-want +got):\n%s", diff)
	}

	_, err = svc.Listing(ctx, testPackage, "de-DE")
	if got := apperrors.CodeOf(err); got != apperrors.CodeNotFound {
		t.Fatalf("missing listing code = %q, want NotFound", got)
	}
	assertEditsDiscarded(t, fake)
}

func TestTesters(t *testing.T) {
	fake := gatewaytest.New()
	fake.Testers["alpha"] = []string{"qa@example.com"}
	svc := newTestService(fake)
	ctx := context.Background()

	got, err := svc.Testers(ctx, testPackage, "alpha")
	if err != nil {
		t.Fatalf("testers: %v", err)
	}
	if diff := cmp.Diff(TesterInfo{Track: "alpha", TesterEmails: []string{"qa@example.com"}}, got); diff != "" {
		t.Fatalf("testers mismatch (-want +got):\n%s", diff)
	}

	got, err = svc.Testers(ctx, testPackage, "beta")
	if err != nil {
		t.Fatalf("testers without config: %v", err)
	}
	if got.TesterEmails == nil || len(got.TesterEmails) != 0 {
		t.Fatalf("testers = %#v, want empty list", got.TesterEmails)
	}

	fake.Fail(gatewaytest.OpGetTesters, gatewaytest.Status(http.StatusInternalServerError))
	if _, err := svc.Testers(ctx, testPackage, "alpha"); err == nil {
		t.Fatal("expected error for upstream failure")
	}
	assertEditsDiscarded(t, fake)
}

func TestAppDetailsToleratesMissingListing(t *testing.T) {
	fake := gatewaytest.New()
	fake.Details = gateway.AppDetails{DefaultLanguage: "en-US", ContactEmail: "dev@example.com", ContactWebsite: "https://example.com"}
	svc := newTestService(fake)

	got, err := svc.AppDetails(context.Background(), testPackage, "ja-JP")
	if err != nil {
		t.Fatalf("app details: %v", err)
	}
	want := AppDetails{
		PackageName:     testPackage,
		DefaultLanguage: "en-US",
		ContactEmail:    "dev@example.com",
		ContactWebsite:  "https://example.com",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("details mismatch (-want +got):\n%s", diff)
	}

	fake.Listings["en-US"] = gateway.Listing{Language: "en-US", Title: "App", ShortDescription: "Short"}
	got, err = svc.AppDetails(context.Background(), testPackage, "en-US")
	if err != nil {
		t.Fatalf("app details: %v", err)
	}
	if got.Title != "App" || got.ShortDescription != "Short" {
		t.Fatalf("details = %+v", got)
	}
	assertEditsDiscarded(t, fake)
}

func TestGatewayResolutionFailure(t *testing.T) {
	svc := New(gateway.FactoryFunc(func(context.Context) (gateway.Gateway, error) {
		return nil, gateway.ErrNoCredentials
	}))
	if _, err := svc.Releases(context.Background(), testPackage); !errors.Is(err, gateway.ErrNoCredentials) {
		t.Fatalf("releases error = %v", err)
	}
	if _, err := svc.Reviews(context.Background(), testPackage, 10, 0, ""); !errors.Is(err, gateway.ErrNoCredentials) {
		t.Fatalf("reviews error = %v", err)
	}
}

func TestReviewsKeepLatestComments(t *testing.T) {
	fake := gatewaytest.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fake.Reviews = []gateway.Review{
		{
			ReviewID: "r1",
			Comments: []gateway.Comment{
				{User: &gateway.UserComment{Text: "first", StarRating: 2}},
				{Developer: &gateway.DeveloperComment{Text: "thanks", LastModified: at}},
				{User: &gateway.UserComment{Text: "edited", StarRating: 4, Language: "de", LastModified: at}},
			},
		},
		{ReviewID: "r2", AuthorName: "Sam", Comments: []gateway.Comment{{Developer: &gateway.DeveloperComment{Text: "orphan"}}}},
	}

	got, err := newTestService(fake).Reviews(context.Background(), testPackage, 500, 0, "")
	if err != nil {
		t.Fatalf("reviews: %v", err)
	}
	want := []Review{{
		ReviewID:           "r1",
		AuthorName:         "Anonymous",
		StarRating:         4,
		Comment:            "edited",
		Language:           "de",
		LastModified:       "2026-03-01T12:00:00Z",
		DeveloperReply:     "thanks",
		DeveloperReplyTime: "2026-03-01T12:00:00Z",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("reviews mismatch (-want +got):\n%s", diff)
	}
	if got := fake.Count(gatewaytest.OpInsertEdit); got != 0 {
		t.Fatalf("reviews opened %d edits", got)
	}
}

func TestReplyToReview(t *testing.T) {
	fake := gatewaytest.New()
	svc := newTestService(fake)
	ctx := context.Background()

	got, err := svc.ReplyToReview(ctx, testPackage, "r1", "Thanks!")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if diff := cmp.Diff(ReplyResult{Success: true, ReviewID: "r1", Message: "Reply posted successfully"}, got); diff != "" {
		t.Fatalf("reply mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]gatewaytest.Reply{{ReviewID: "r1", Text: "Thanks!"}}, fake.Replies); diff != "" {
		t.Fatalf("replies mismatch (-want +got):\n%s", diff)
	}

	fake.Fail(gatewaytest.OpReplyToReview, gatewaytest.Status(http.StatusBadRequest))
	got, err = svc.ReplyToReview(ctx, testPackage, "r2", "Hi")
	if err != nil {
		t.Fatalf("reply failure returned error: %v", err)
	}
	want := ReplyResult{
		ReviewID:  "r2",
		Message:   "Failed to reply: fake: HTTP 400: Bad Request",
		ErrorKind: string(apperrors.CodeInvalidArgument),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("failed reply mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscriptionPurchaseAutoRenewing(t *testing.T) {
	fake := gatewaytest.New()
	fake.Purchases["active"] = gateway.SubscriptionPurchase{LatestOrderID: "GPA.1", State: SubscriptionStateActive}
	fake.Purchases["canceled"] = gateway.SubscriptionPurchase{LatestOrderID: "GPA.2", State: "SUBSCRIPTION_STATE_CANCELED"}
	svc := newTestService(fake)
	ctx := context.Background()

	tests := []struct {
		token string
		want  bool
	}{
		{token: "active", want: true},
		{token: "canceled", want: false},
	}
	for _, tt := range tests {
		got, err := svc.SubscriptionPurchase(ctx, testPackage, "premium", tt.token)
		if err != nil {
			t.Fatalf("%s: %v", tt.token, err)
		}
		if got.AutoRenewing != tt.want || got.SubscriptionID != "premium" || got.PurchaseToken != tt.token {
			t.Fatalf("%s: status = %+v", tt.token, got)
		}
	}

	_, err := svc.SubscriptionPurchase(ctx, testPackage, "premium", "unknown")
	if got := apperrors.CodeOf(err); got != apperrors.CodeNotFound {
		t.Fatalf("unknown token code = %q, want NotFound", got)
	}
	if !strings.HasPrefix(err.Error(), "failed to get subscription status: ") {
		t.Fatalf("error = %q", err)
	}
}

func TestSubscriptionsAndVoided(t *testing.T) {
	fake := gatewaytest.New()
	fake.Subscriptions = []gateway.Subscription{{
		ProductID: "premium",
		BasePlans: []gateway.BasePlan{{BasePlanID: "monthly", State: "ACTIVE", AutoRenewing: true}},
	}}
	voidedAt := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	fake.Voided = []gateway.VoidedPurchase{
		{PurchaseToken: "t1", OrderID: "o1", VoidedReason: 1, VoidedSource: 0, VoidedTime: voidedAt},
		{PurchaseToken: "t2"},
	}
	svc := newTestService(fake)
	ctx := context.Background()

	subs, err := svc.Subscriptions(ctx, testPackage)
	if err != nil {
		t.Fatalf("subscriptions: %v", err)
	}
	wantSubs := []SubscriptionProduct{{
		ProductID:   "premium",
		PackageName: testPackage,
		BasePlans:   []BasePlan{{BasePlanID: "monthly", State: "ACTIVE", AutoRenewing: true}},
	}}
	if diff := cmp.Diff(wantSubs, subs); diff != "" {
		t.Fatalf("subscriptions mismatch (-want +got):\n%s", diff)
	}

	voided, err := svc.VoidedPurchases(ctx, testPackage, 1)
	if err != nil {
		t.Fatalf("voided: %v", err)
	}
	wantVoided := []VoidedPurchase{{PackageName: testPackage, PurchaseToken: "t1", OrderID: "o1", VoidedTime: "2026-02-02T00:00:00Z", VoidedReason: 1}}
	if diff := cmp.Diff(wantVoided, voided); diff != "" {
		t.Fatalf("voided mismatch (-want +got):\n%s", diff)
	}
}

func TestInAppProducts(t *testing.T) {
	fake := gatewaytest.New()
	fake.Products = []gateway.InAppProduct{
		{
			SKU:             "coins",
			PurchaseType:    "managedUser",
			Status:          "active",
			DefaultLanguage: "fr-FR",
			Listings: map[string]gateway.ProductListing{
				"fr-FR": {Title: "Pièces", Description: "Des pièces"},
				"en-US": {Title: "Coins"},
			},
			DefaultPrice: &gateway.Price{Currency: "EUR", PriceMicros: "990000"},
		},
		{
			SKU:      "gems",
			Listings: map[string]gateway.ProductListing{"en-US": {Title: "Gems"}},
		},
	}
	svc := newTestService(fake)
	ctx := context.Background()

	all, err := svc.InAppProducts(ctx, testPackage)
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	want := []InAppProduct{
		{
			SKU:             "coins",
			PackageName:     testPackage,
			ProductType:     "managedUser",
			Status:          "active",
			DefaultLanguage: "fr-FR",
			Title:           "Pièces",
			Description:     "Des pièces",
			DefaultPrice:    &gateway.Price{Currency: "EUR", PriceMicros: "990000"},
		},
		{SKU: "gems", PackageName: testPackage, ProductType: "managedProduct", Title: "Gems"},
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Fatalf("products mismatch (-want +got):\n%s", diff)
	}

	one, err := svc.InAppProduct(ctx, testPackage, "gems")
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	if diff := cmp.Diff(want[1], one); diff != "" {
		t.Fatalf("product mismatch (-want +got):\n%s", diff)
	}

	if _, err := svc.InAppProduct(ctx, testPackage, "missing"); apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("missing product error = %v", err)
	}
}

func TestExpansionFile(t *testing.T) {
	fake := gatewaytest.New()
	fake.ExpansionFiles[gatewaytest.ExpansionKey(42, gateway.ExpansionFileMain)] = gateway.ExpansionFile{FileSize: 1 << 20}
	svc := newTestService(fake)
	ctx := context.Background()

	got, err := svc.ExpansionFile(ctx, testPackage, 42, "")
	if err != nil {
		t.Fatalf("expansion file: %v", err)
	}
	want := ExpansionFileInfo{PackageName: testPackage, VersionCode: 42, ExpansionFileType: "main", FileSize: 1 << 20}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("expansion file mismatch (-want +got):\n%s", diff)
	}

	got, err = svc.ExpansionFile(ctx, testPackage, 42, gateway.ExpansionFilePatch)
	if err != nil {
		t.Fatalf("missing expansion file: %v", err)
	}
	want = ExpansionFileInfo{PackageName: testPackage, VersionCode: 42, ExpansionFileType: "patch"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("missing expansion file mismatch (-want +got):\n%s", diff)
	}
	assertEditsDiscarded(t, fake)
}

func TestExpansionFileFailures(t *testing.T) {
	fake := gatewaytest.New()
	svc := newTestService(fake)
	ctx := context.Background()

	if _, err := svc.ExpansionFile(ctx, testPackage, 42, "obb"); apperrors.CodeOf(err) != apperrors.CodeInvalidArgument {
		t.Fatalf("bad type error = %v, want InvalidArgument", err)
	}
	if len(fake.Calls) != 0 {
		t.Fatalf("gateway calls = %v, want none", fake.Ops())
	}

	fake.Fail(gatewaytest.OpGetExpansion, gatewaytest.Status(http.StatusForbidden))
	_, err := svc.ExpansionFile(ctx, testPackage, 42, gateway.ExpansionFileMain)
	if apperrors.CodeOf(err) != apperrors.CodePermissionDenied {
		t.Fatalf("code = %q, want PermissionDenied", apperrors.CodeOf(err))
	}
	if !strings.HasPrefix(err.Error(), "failed to get expansion file: ") {
		t.Fatalf("error = %q", err)
	}
	assertEditsDiscarded(t, fake)
}

func TestOrder(t *testing.T) {
	fake := gatewaytest.New()
	fake.Orders["GPA.1234"] = gateway.Order{
		OrderID:       "GPA.1234",
		State:         "PROCESSED",
		PurchaseToken: "token-1",
		ProductID:     "coins",
		CreateTime:    "2026-01-02T03:04:05Z",
	}
	svc := newTestService(fake)
	ctx := context.Background()

	got, err := svc.Order(ctx, testPackage, "GPA.1234")
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	want := OrderInfo{
		OrderID:       "GPA.1234",
		PackageName:   testPackage,
		ProductID:     "coins",
		State:         "PROCESSED",
		PurchaseToken: "token-1",
		CreateTime:    "2026-01-02T03:04:05Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if n := fake.Count(gatewaytest.OpInsertEdit); n != 0 {
		t.Fatalf("edits opened = %d, want 0", n)
	}

	_, err = svc.Order(ctx, testPackage, "GPA.missing")
	if apperrors.CodeOf(err) != apperrors.CodeNotFound || !strings.HasPrefix(err.Error(), "failed to get order: ") {
		t.Fatalf("missing order error = %v", err)
	}
}
