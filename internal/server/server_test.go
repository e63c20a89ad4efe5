package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/server/endpoints"
	"github.com/promptvault/promptvault/internal/vault"
)

// startTestServer runs a server on a random port against a throwaway
// database and returns its base URL.
func startTestServer(t *testing.T) string {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(Config{
		Host:         "127.0.0.1",
		Port:         0,
		DatabasePath: filepath.Join(t.TempDir(), "vault.db"),
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Error("server did not shut down")
		}
	})

	var baseURL string
	err = retry.Do(func() error {
		baseURL = "http://" + srv.Addr()
		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}, retry.Attempts(50), retry.Delay(50*time.Millisecond))
	if err != nil {
		t.Fatalf("server did not become ready: %v", err)
	}
	return baseURL
}

func TestServerEndpoints(t *testing.T) {
	baseURL := startTestServer(t)
	client := api.NewClient(baseURL)
	ctx := context.Background()

	var created vault.Entry
	t.Run("create entry", func(t *testing.T) {
		draft := vault.Draft{
			Title: "server test",
			Tags:  []string{"portrait"},
			Raw:   vault.Raw{Positive: "a {subject} in moonlight"},
			Variables: map[string]string{
				"subject": "ghost ship",
			},
		}
		if err := client.Post(ctx, "/api/entries", draft, &created); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if created.Version != 1 || created.Status != vault.StatusActive {
			t.Errorf("unexpected created entry: %+v", created)
		}
	})

	t.Run("list entries", func(t *testing.T) {
		var result vault.ListResult
		if err := client.Get(ctx, "/api/entries?q=server", &result); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if result.Total != 1 || result.Items[0].ID != created.ID {
			t.Errorf("expected single match, got %+v", result)
		}
	})

	t.Run("update with stale pair conflicts", func(t *testing.T) {
		title := "renamed"
		req := endpoints.UpdateEntryRequest{
			Patch:             vault.Patch{Title: &title},
			ExpectedVersion:   created.Version,
			ExpectedUpdatedAt: created.UpdatedAt,
		}
		var updated vault.Entry
		if err := client.Put(ctx, "/api/entries/"+created.ID, req, &updated); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if updated.Version != created.Version+1 {
			t.Errorf("expected version bump, got %d", updated.Version)
		}

		// Replaying the same expected pair must yield 409.
		err := client.Put(ctx, "/api/entries/"+created.ID, req, &updated)
		var serr *api.StatusError
		if !errors.As(err, &serr) || serr.StatusCode != http.StatusConflict {
			t.Errorf("expected 409, got %v", err)
		}
	})

	t.Run("assemble substitutes variables", func(t *testing.T) {
		req := endpoints.AssembleRequest{
			EntryID:   created.ID,
			Overrides: map[string]string{"subject": "lighthouse"},
		}
		var out vault.Assembled
		if err := client.Post(ctx, "/api/assemble", req, &out); err != nil {
			t.Fatalf("assemble failed: %v", err)
		}
		if out.Positive != "a lighthouse in moonlight" {
			t.Errorf("positive = %q", out.Positive)
		}
	})

	t.Run("missing entry yields 404", func(t *testing.T) {
		var entry vault.Entry
		err := client.Get(ctx, "/api/entries/entry_missing", &entry)
		var serr *api.StatusError
		if !errors.As(err, &serr) || serr.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %v", err)
		}
	})

	t.Run("invalid payload yields 400", func(t *testing.T) {
		var entry vault.Entry
		err := client.Post(ctx, "/api/entries", map[string]any{"bogus_field": true}, &entry)
		var serr *api.StatusError
		if !errors.As(err, &serr) || serr.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %v", err)
		}
	})

	t.Run("tags and tidy", func(t *testing.T) {
		var tags endpoints.TagsResponse
		if err := client.Get(ctx, "/api/tags", &tags); err != nil {
			t.Fatalf("tags failed: %v", err)
		}
		if len(tags.Tags) != 1 || tags.Tags[0].Name != "portrait" {
			t.Errorf("expected portrait tag, got %+v", tags.Tags)
		}
	})

	t.Run("delete then purge", func(t *testing.T) {
		var deleted vault.Entry
		if err := client.Delete(ctx, "/api/entries/"+created.ID, &deleted); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if deleted.Status != vault.StatusDeleted {
			t.Errorf("expected deleted status, got %q", deleted.Status)
		}

		var purge endpoints.PurgeResponse
		if err := client.Post(ctx, "/api/entries/purge", nil, &purge); err != nil {
			t.Fatalf("purge failed: %v", err)
		}
		if purge.Purged != 1 {
			t.Errorf("expected 1 purged, got %d", purge.Purged)
		}
	})
}
