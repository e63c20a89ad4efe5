// Package entrystore wraps the catalog with the client-side mutation
// protocol: every write carries the expected (version, updated_at) pair,
// every successful write refetches the authoritative record, and at most
// one mutation per entry is in flight at a time.
package entrystore

import (
	"context"
	"log/slog"
	"sync"

	"github.com/promptvault/promptvault/internal/catalog"
	"github.com/promptvault/promptvault/internal/vault"
)

// InvalidateFunc is called after a successful mutation so list views can
// refresh. It receives the updated entry.
type InvalidateFunc func(entry *vault.Entry)

// MutateResult is the post-mutation truth: the refetched record plus the
// re-derived assembled text, so a view never renders stale derived
// output after a raw-field edit.
type MutateResult struct {
	Entry     *vault.Entry
	Assembled *vault.Assembled
}

// Store mediates entry mutations against the remote catalog.
type Store struct {
	catalog    catalog.Catalog
	logger     *slog.Logger
	invalidate InvalidateFunc

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func New(cat catalog.Catalog, logger *slog.Logger, invalidate InvalidateFunc) *Store {
	return &Store{
		catalog:    cat,
		logger:     logger,
		invalidate: invalidate,
		inFlight:   make(map[string]struct{}),
	}
}

// Get fetches the authoritative record for an entry.
func (s *Store) Get(ctx context.Context, id string) (*vault.Entry, error) {
	return s.catalog.GetEntry(ctx, id)
}

// Mutate applies patch to the entry identified by id, guarded by the
// expected (version, updated_at) pair the caller last observed. On
// success the record is refetched, the assembled text is re-derived from
// the new record, and the invalidate callback fires. A second mutation
// for the same id while one is outstanding returns ErrMutationInFlight
// without touching the server. Failed mutations are never retried here;
// a conflict belongs to the caller, who must refetch before trying
// again.
func (s *Store) Mutate(ctx context.Context, id string, patch vault.Patch, expectedVersion int, expectedUpdatedAt string) (*MutateResult, error) {
	if err := vault.ValidatePatch(&patch); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, busy := s.inFlight[id]; busy {
		s.mu.Unlock()
		return nil, vault.ErrMutationInFlight
	}
	s.inFlight[id] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, id)
		s.mu.Unlock()
	}()

	if _, err := s.catalog.UpdateEntry(ctx, id, patch, expectedVersion, expectedUpdatedAt); err != nil {
		if vault.IsConflict(err) {
			s.logger.Warn("entry changed on server, mutation rejected", "entry_id", id, "expected_version", expectedVersion)
		}
		return nil, err
	}

	// The update response already carries the new record, but the refetch
	// keeps one code path as the single source of post-mutation truth.
	entry, err := s.catalog.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	assembled, err := s.catalog.Assemble(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	if s.invalidate != nil {
		s.invalidate(entry)
	}
	return &MutateResult{Entry: entry, Assembled: assembled}, nil
}

// ToggleFavorite flips the favorite flag relative to the observed record.
func (s *Store) ToggleFavorite(ctx context.Context, observed *vault.Entry) (*MutateResult, error) {
	fav := !observed.Favorite
	return s.Mutate(ctx, observed.ID, vault.Patch{Favorite: &fav}, observed.Version, observed.UpdatedAt)
}

// SetScore sets the 0-5 score on the observed record.
func (s *Store) SetScore(ctx context.Context, observed *vault.Entry, score int) (*MutateResult, error) {
	return s.Mutate(ctx, observed.ID, vault.Patch{Score: &score}, observed.Version, observed.UpdatedAt)
}

// SetStatus moves the observed record between active and deleted. Setting
// active on a soft-deleted entry is the recovery path.
func (s *Store) SetStatus(ctx context.Context, observed *vault.Entry, status string) (*MutateResult, error) {
	return s.Mutate(ctx, observed.ID, vault.Patch{Status: &status}, observed.Version, observed.UpdatedAt)
}

// Save applies a full-editor patch against the observed record. It is
// the multi-field sibling of the single-field affordances above and
// shares the same observed-pair plumbing.
func (s *Store) Save(ctx context.Context, observed *vault.Entry, patch vault.Patch) (*MutateResult, error) {
	return s.Mutate(ctx, observed.ID, patch, observed.Version, observed.UpdatedAt)
}

// Delete soft-deletes the entry through the dedicated endpoint, then
// fires invalidation like any other mutation.
func (s *Store) Delete(ctx context.Context, id string) (*vault.Entry, error) {
	entry, err := s.catalog.DeleteEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.invalidate != nil {
		s.invalidate(entry)
	}
	return entry, nil
}

// Assemble returns the server-substituted prompt text for an entry.
func (s *Store) Assemble(ctx context.Context, id string, overrides map[string]string) (*vault.Assembled, error) {
	return s.catalog.Assemble(ctx, id, overrides)
}
