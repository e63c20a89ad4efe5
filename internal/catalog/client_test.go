package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/promptvault/promptvault/internal/vault"
)

func TestClientErrorMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/entries/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "entry not found"})
	})
	mux.HandleFunc("PUT /api/entries/stale", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "version mismatch"})
	})
	mux.HandleFunc("POST /api/entries", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "title too long"})
	})
	mux.HandleFunc("GET /api/entries/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL)
	ctx := context.Background()

	t.Run("404 is ErrNotFound", func(t *testing.T) {
		_, err := client.GetEntry(ctx, "gone")
		if !vault.IsNotFound(err) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("409 is ErrConflict", func(t *testing.T) {
		_, err := client.UpdateEntry(ctx, "stale", vault.Patch{}, 2, "T2")
		if !vault.IsConflict(err) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("400 is ValidationError", func(t *testing.T) {
		_, err := client.CreateEntry(ctx, vault.Draft{Title: "x"})
		var verr *vault.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("5xx is TransportError", func(t *testing.T) {
		_, err := client.GetEntry(ctx, "broken")
		var terr *vault.TransportError
		if !errors.As(err, &terr) || terr.Status != http.StatusInternalServerError {
			t.Errorf("expected TransportError(500), got %v", err)
		}
	})

	t.Run("connection failure is TransportError", func(t *testing.T) {
		dead := NewClient("http://127.0.0.1:0")
		_, err := dead.GetEntry(ctx, "x")
		var terr *vault.TransportError
		if !errors.As(err, &terr) {
			t.Errorf("expected TransportError, got %v", err)
		}
	})

	t.Run("local validation happens before any request", func(t *testing.T) {
		dead := NewClient("http://127.0.0.1:0")
		bad := 9
		_, err := dead.UpdateEntry(ctx, "x", vault.Patch{Score: &bad}, 1, "T1")
		var verr *vault.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError without a request, got %v", err)
		}
	})
}

func TestClientListEntries(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(vault.ListResult{
			Items: []vault.Summary{{ID: "entry_1", Title: "one"}},
			Total: 1,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.ListEntries(context.Background(), vault.ListQuery{
		Status: vault.StatusActive,
		Query:  "castle",
		Tags:   []string{"a", "b"},
		Sort:   vault.SortUpdatedDesc,
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 1 || result.Items[0].ID != "entry_1" {
		t.Errorf("unexpected result: %+v", result)
	}
	for _, want := range []string{"status=active", "q=castle", "tag=a", "tag=b", "sort=updated_desc", "limit=10"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestWaitReady(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if err := client.WaitReady(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("WaitReady failed: %v", err)
	}
	if calls < 3 {
		t.Errorf("expected at least 3 polls, got %d", calls)
	}
}
