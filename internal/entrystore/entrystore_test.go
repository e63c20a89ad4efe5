package entrystore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/promptvault/promptvault/internal/vault"
)

// blockingCatalog lets a test hold an update open to exercise the
// in-flight guard.
type blockingCatalog struct {
	mu            sync.Mutex
	entry         *vault.Entry
	updateCalls   int
	getCalls      int
	assembleCalls int
	updateErr     error
	release       chan struct{}
}

func (c *blockingCatalog) ListEntries(context.Context, vault.ListQuery) (*vault.ListResult, error) {
	return &vault.ListResult{}, nil
}

func (c *blockingCatalog) GetEntry(context.Context, string) (*vault.Entry, error) {
	c.mu.Lock()
	c.getCalls++
	c.mu.Unlock()
	return c.entry, nil
}

func (c *blockingCatalog) CreateEntry(context.Context, vault.Draft) (*vault.Entry, error) {
	return c.entry, nil
}

func (c *blockingCatalog) UpdateEntry(_ context.Context, id string, _ vault.Patch, _ int, _ string) (*vault.Entry, error) {
	c.mu.Lock()
	c.updateCalls++
	c.mu.Unlock()
	if c.release != nil && id == "e1" {
		<-c.release
	}
	if c.updateErr != nil {
		return nil, c.updateErr
	}
	return c.entry, nil
}

func (c *blockingCatalog) DeleteEntry(context.Context, string) (*vault.Entry, error) {
	return c.entry, nil
}

func (c *blockingCatalog) PurgeDeleted(context.Context) (int, error) { return 0, nil }

func (c *blockingCatalog) Assemble(context.Context, string, map[string]string) (*vault.Assembled, error) {
	c.mu.Lock()
	c.assembleCalls++
	c.mu.Unlock()
	return &vault.Assembled{Positive: "assembled"}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMutate(t *testing.T) {
	entry := &vault.Entry{ID: "e1", Title: "Castle", Version: 2, UpdatedAt: "2026-08-30T10:00:00Z"}

	t.Run("success refetches, re-derives assembled text, and invalidates", func(t *testing.T) {
		cat := &blockingCatalog{entry: entry}
		var invalidated *vault.Entry
		s := New(cat, discardLogger(), func(e *vault.Entry) { invalidated = e })

		positive := "a castle at {time}"
		got, err := s.Mutate(context.Background(), "e1", vault.Patch{Positive: &positive}, 2, entry.UpdatedAt)
		if err != nil {
			t.Fatalf("Mutate: %v", err)
		}
		if got.Entry.ID != "e1" {
			t.Fatalf("got entry %+v", got.Entry)
		}
		if got.Assembled == nil || got.Assembled.Positive != "assembled" {
			t.Fatalf("got assembled %+v", got.Assembled)
		}
		if cat.updateCalls != 1 || cat.getCalls != 1 || cat.assembleCalls != 1 {
			t.Fatalf("update=%d get=%d assemble=%d, want one of each", cat.updateCalls, cat.getCalls, cat.assembleCalls)
		}
		if invalidated == nil || invalidated.ID != "e1" {
			t.Fatalf("invalidate callback got %+v", invalidated)
		}
	})

	t.Run("conflict passes through without refetch", func(t *testing.T) {
		cat := &blockingCatalog{entry: entry, updateErr: vault.ErrConflict}
		called := false
		s := New(cat, discardLogger(), func(*vault.Entry) { called = true })

		score := 4
		_, err := s.Mutate(context.Background(), "e1", vault.Patch{Score: &score}, 1, "stale")
		if !vault.IsConflict(err) {
			t.Fatalf("want conflict, got %v", err)
		}
		if cat.getCalls != 0 || cat.assembleCalls != 0 {
			t.Fatalf("failed mutation re-derived state: get=%d assemble=%d", cat.getCalls, cat.assembleCalls)
		}
		if called {
			t.Fatal("failed mutation fired invalidation")
		}
	})

	t.Run("invalid patch rejected before any request", func(t *testing.T) {
		cat := &blockingCatalog{entry: entry}
		s := New(cat, discardLogger(), nil)

		score := 9
		_, err := s.Mutate(context.Background(), "e1", vault.Patch{Score: &score}, 2, entry.UpdatedAt)
		var verr *vault.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("want validation error, got %v", err)
		}
		if cat.updateCalls != 0 {
			t.Fatalf("invalid patch reached the server %d times", cat.updateCalls)
		}
	})

	t.Run("second mutation for same entry is rejected while first runs", func(t *testing.T) {
		cat := &blockingCatalog{entry: entry, release: make(chan struct{})}
		s := New(cat, discardLogger(), nil)

		fav := true
		started := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			close(started)
			_, err := s.Mutate(context.Background(), "e1", vault.Patch{Favorite: &fav}, 2, entry.UpdatedAt)
			done <- err
		}()
		<-started
		// Wait for the first mutation to take the guard.
		for {
			s.mu.Lock()
			_, busy := s.inFlight["e1"]
			s.mu.Unlock()
			if busy {
				break
			}
			time.Sleep(time.Millisecond)
		}

		if _, err := s.Mutate(context.Background(), "e1", vault.Patch{Favorite: &fav}, 2, entry.UpdatedAt); !errors.Is(err, vault.ErrMutationInFlight) {
			t.Fatalf("want ErrMutationInFlight, got %v", err)
		}

		// A different entry is not blocked.
		if _, err := s.Mutate(context.Background(), "e2", vault.Patch{Favorite: &fav}, 1, "ts"); err != nil {
			t.Fatalf("unrelated entry blocked: %v", err)
		}

		close(cat.release)
		if err := <-done; err != nil {
			t.Fatalf("first mutation failed: %v", err)
		}

		// Guard clears after completion.
		if _, err := s.Mutate(context.Background(), "e1", vault.Patch{Favorite: &fav}, 2, entry.UpdatedAt); err != nil {
			t.Fatalf("guard did not clear: %v", err)
		}
	})
}

func TestConveniences(t *testing.T) {
	entry := &vault.Entry{ID: "e1", Favorite: false, Version: 3, UpdatedAt: "2026-08-30T10:00:00Z"}
	cat := &blockingCatalog{entry: entry}
	s := New(cat, discardLogger(), nil)

	if _, err := s.ToggleFavorite(context.Background(), entry); err != nil {
		t.Fatalf("ToggleFavorite: %v", err)
	}
	if _, err := s.SetScore(context.Background(), entry, 5); err != nil {
		t.Fatalf("SetScore: %v", err)
	}
	if _, err := s.SetStatus(context.Background(), entry, vault.StatusActive); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	title := "Castle at dusk"
	positive := "castle, {time}"
	res, err := s.Save(context.Background(), entry, vault.Patch{Title: &title, Positive: &positive})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Entry == nil || res.Assembled == nil {
		t.Fatalf("Save result = %+v", res)
	}

	if cat.updateCalls != 4 {
		t.Fatalf("updateCalls = %d", cat.updateCalls)
	}
	if cat.assembleCalls != 4 {
		t.Fatalf("assembleCalls = %d, want one re-derivation per mutation", cat.assembleCalls)
	}

	got, err := s.Delete(context.Background(), "e1")
	if err != nil || got.ID != "e1" {
		t.Fatalf("Delete: %v %+v", err, got)
	}

	asm, err := s.Assemble(context.Background(), "e1", nil)
	if err != nil || asm.Positive != "assembled" {
		t.Fatalf("Assemble: %v %+v", err, asm)
	}
}
