package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/promptvault/promptvault/internal/vault"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(":memory:", logger)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }

func TestCreateEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("assigns defaults", func(t *testing.T) {
		entry, err := s.CreateEntry(ctx, vault.Draft{
			Raw: vault.Raw{Positive: "  a castle at dusk  "},
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if entry.ID == "" {
			t.Error("expected a generated id")
		}
		if entry.Title != "untitled" {
			t.Errorf("expected default title, got %q", entry.Title)
		}
		if entry.Status != vault.StatusActive {
			t.Errorf("expected active status, got %q", entry.Status)
		}
		if entry.Version != 1 {
			t.Errorf("expected version 1, got %d", entry.Version)
		}
		if entry.Raw.Positive != "a castle at dusk" {
			t.Errorf("expected trimmed positive, got %q", entry.Raw.Positive)
		}
		if entry.UpdatedAt == "" || entry.UpdatedAt != entry.CreatedAt {
			t.Errorf("expected created_at == updated_at on create, got %q / %q", entry.CreatedAt, entry.UpdatedAt)
		}
	})

	t.Run("dedupes tags", func(t *testing.T) {
		entry, err := s.CreateEntry(ctx, vault.Draft{
			Title: "tagged",
			Tags:  []string{"portrait", " portrait ", "", "sdxl"},
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if len(entry.Tags) != 2 || entry.Tags[0] != "portrait" || entry.Tags[1] != "sdxl" {
			t.Errorf("expected deduped tags [portrait sdxl], got %v", entry.Tags)
		}
	})

	t.Run("round trips through get", func(t *testing.T) {
		created, err := s.CreateEntry(ctx, vault.Draft{
			Title:     "round trip",
			Variables: map[string]string{"style": "oil painting"},
			Params:    vault.Params{Steps: 30, CFG: 7.5, Sampler: "euler"},
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		got, err := s.GetEntry(ctx, created.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Title != "round trip" || got.Variables["style"] != "oil painting" || got.Params.Steps != 30 {
			t.Errorf("entry did not round trip: %+v", got)
		}
	})
}

func TestGetEntryNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetEntry(context.Background(), "entry_missing"); !vault.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateEntry(ctx, vault.Draft{Title: "first"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	t.Run("matching pair succeeds and advances both", func(t *testing.T) {
		updated, err := s.UpdateEntry(ctx, created.ID, vault.Patch{Title: strPtr("second")},
			created.Version, created.UpdatedAt)
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if updated.Title != "second" {
			t.Errorf("expected patched title, got %q", updated.Title)
		}
		if updated.Version != created.Version+1 {
			t.Errorf("expected version bump to %d, got %d", created.Version+1, updated.Version)
		}
	})

	t.Run("stale pair conflicts", func(t *testing.T) {
		// The first update already advanced the pair; replaying it must fail.
		_, err := s.UpdateEntry(ctx, created.ID, vault.Patch{Title: strPtr("third")},
			created.Version, created.UpdatedAt)
		if !vault.IsConflict(err) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
		got, err := s.GetEntry(ctx, created.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Title != "second" {
			t.Errorf("conflicting update must not apply, title is %q", got.Title)
		}
	})

	t.Run("stale updated_at alone conflicts", func(t *testing.T) {
		current, err := s.GetEntry(ctx, created.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		_, err = s.UpdateEntry(ctx, created.ID, vault.Patch{Title: strPtr("fourth")},
			current.Version, "2020-01-01T00:00:00Z")
		if !vault.IsConflict(err) {
			t.Errorf("expected ErrConflict on mismatched updated_at, got %v", err)
		}
	})

	t.Run("rejects out of range score", func(t *testing.T) {
		current, err := s.GetEntry(ctx, created.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		_, err = s.UpdateEntry(ctx, created.ID, vault.Patch{Score: intPtr(9)},
			current.Version, current.UpdatedAt)
		var verr *vault.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := s.UpdateEntry(ctx, "entry_missing", vault.Patch{}, 1, "x")
		if !vault.IsNotFound(err) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDeleteAndPurge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	kept, err := s.CreateEntry(ctx, vault.Draft{Title: "kept"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	doomed, err := s.CreateEntry(ctx, vault.Draft{Title: "doomed"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	deleted, err := s.DeleteEntry(ctx, doomed.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted.Status != vault.StatusDeleted {
		t.Errorf("expected deleted status, got %q", deleted.Status)
	}
	if deleted.Version != doomed.Version+1 {
		t.Errorf("delete must advance version, got %d", deleted.Version)
	}

	// Soft delete keeps the row readable.
	if _, err := s.GetEntry(ctx, doomed.ID); err != nil {
		t.Fatalf("soft-deleted entry must stay readable: %v", err)
	}

	// Recovery is a status patch through the normal update path.
	active := vault.StatusActive
	recovered, err := s.UpdateEntry(ctx, doomed.ID, vault.Patch{Status: &active},
		deleted.Version, deleted.UpdatedAt)
	if err != nil {
		t.Fatalf("recovery failed: %v", err)
	}
	if recovered.Status != vault.StatusActive {
		t.Errorf("expected recovered entry to be active, got %q", recovered.Status)
	}

	if _, err := s.DeleteEntry(ctx, doomed.ID); err != nil {
		t.Fatalf("re-delete failed: %v", err)
	}
	count, err := s.PurgeDeleted(ctx)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 purged entry, got %d", count)
	}
	if _, err := s.GetEntry(ctx, doomed.ID); !vault.IsNotFound(err) {
		t.Errorf("purged entry must be gone, got %v", err)
	}
	if _, err := s.GetEntry(ctx, kept.ID); err != nil {
		t.Errorf("active entry must survive purge: %v", err)
	}
}

func TestListVersions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry, err := s.CreateEntry(ctx, vault.Draft{Title: "v1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	cur := entry
	for _, title := range []string{"v2", "v3"} {
		cur, err = s.UpdateEntry(ctx, entry.ID, vault.Patch{Title: strPtr(title)},
			cur.Version, cur.UpdatedAt)
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
	}

	versions, err := s.ListVersions(ctx, entry.ID, 0)
	if err != nil {
		t.Fatalf("list versions failed: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}
	for i, want := range []int{3, 2, 1} {
		if versions[i].Version != want {
			t.Errorf("version[%d] = %d, want %d (newest first)", i, versions[i].Version, want)
		}
	}

	if _, err := s.ListVersions(ctx, "entry_missing", 0); !vault.IsNotFound(err) {
		t.Errorf("expected ErrNotFound for unknown entry, got %v", err)
	}
}

func TestThumbnailLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	png := []byte{0x89, 'P', 'N', 'G'}

	entry, err := s.CreateEntry(ctx, vault.Draft{
		Title:     "pictured",
		Thumbnail: &vault.Thumbnail{PNG: png, Width: 256, Height: 256},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !entry.HasThumbnail || entry.ThumbWidth != 256 {
		t.Errorf("expected thumbnail metadata on create, got %+v", entry)
	}

	thumb, err := s.GetThumbnail(ctx, entry.ID)
	if err != nil {
		t.Fatalf("get thumbnail failed: %v", err)
	}
	if thumb == nil || string(thumb.PNG) != string(png) {
		t.Fatalf("thumbnail bytes did not round trip: %+v", thumb)
	}

	// A non-nil patch with empty PNG clears the image.
	cleared, err := s.UpdateEntry(ctx, entry.ID, vault.Patch{Thumbnail: &vault.Thumbnail{}},
		entry.Version, entry.UpdatedAt)
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if cleared.HasThumbnail {
		t.Error("expected thumbnail cleared")
	}
	thumb, err = s.GetThumbnail(ctx, entry.ID)
	if err != nil {
		t.Fatalf("get thumbnail failed: %v", err)
	}
	if thumb != nil {
		t.Errorf("expected nil thumbnail after clear, got %+v", thumb)
	}

	if _, err := s.GetThumbnail(ctx, "entry_missing"); !vault.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
