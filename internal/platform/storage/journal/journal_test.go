package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close journal: %v", err)
		}
	})
	return store
}

func TestRecordAndListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	code := int64(42)

	entries := []Entry{
		{ID: "a", RecordedAt: base, Operation: "deploy", PackageName: "com.example.app", Track: "internal",
			VersionCode: &code, EditID: "e1", Success: true, Message: "Successfully deployed version 42 to internal"},
		{ID: "b", RecordedAt: base.Add(time.Minute), Operation: "halt", PackageName: "com.example.app", Track: "production",
			ErrorKind: "VersionNotFound", Message: "Version 7 not found in production"},
		{ID: "c", RecordedAt: base.Add(2 * time.Minute), Operation: "update_listing", PackageName: "com.other.app",
			Language: "en-US", Success: true, Message: "Successfully updated listing for en-US"},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("record %s: %v", e.ID, err)
		}
	}

	got, err := store.List(ctx, Query{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []Entry{entries[2], entries[1], entries[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	filtered, err := store.List(ctx, Query{PackageName: "com.example.app", Limit: 1})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "b" {
		t.Fatalf("filtered = %+v, want only b", filtered)
	}
}

func TestRecordFillsDefaults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, Entry{Operation: "deploy", PackageName: "com.example.app", Message: "x"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := store.List(ctx, Query{Limit: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1", len(got))
	}
	if len(got[0].ID) != 26 {
		t.Fatalf("generated id = %q", got[0].ID)
	}
	if got[0].RecordedAt.IsZero() {
		t.Fatal("expected recorded time")
	}
	if got[0].VersionCode != nil {
		t.Fatalf("version code = %v, want nil", *got[0].VersionCode)
	}
}

func TestRecordRequiresFields(t *testing.T) {
	store := openTestStore(t)
	if err := store.Record(context.Background(), Entry{PackageName: "com.example.app"}); err == nil {
		t.Fatal("expected missing operation error")
	}
	if err := store.Record(context.Background(), Entry{Operation: "deploy"}); err == nil {
		t.Fatal("expected missing package error")
	}
}

func TestNilStore(t *testing.T) {
	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
	if _, err := store.List(context.Background(), Query{}); err == nil {
		t.Fatal("expected unconfigured error")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected path error")
	}
}
