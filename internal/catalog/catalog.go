// Package catalog is the client-side face of the remote catalog store.
// It exposes the store's operations behind an interface with domain-typed
// errors so the resolver, entry store, and view coordinator never touch
// HTTP status codes.
package catalog

import (
	"context"

	"github.com/promptvault/promptvault/internal/vault"
)

// Catalog is the remote catalog store as seen by client components.
type Catalog interface {
	// ListEntries returns one page of summaries plus the total match count.
	ListEntries(ctx context.Context, q vault.ListQuery) (*vault.ListResult, error)

	// GetEntry returns the full record, or ErrNotFound when the id is
	// unknown or purged.
	GetEntry(ctx context.Context, id string) (*vault.Entry, error)

	// CreateEntry creates a record with version 1.
	CreateEntry(ctx context.Context, draft vault.Draft) (*vault.Entry, error)

	// UpdateEntry applies patch when the expected (version, updated_at)
	// pair still matches the server state; ErrConflict otherwise.
	UpdateEntry(ctx context.Context, id string, patch vault.Patch, expectedVersion int, expectedUpdatedAt string) (*vault.Entry, error)

	// DeleteEntry soft-deletes the record.
	DeleteEntry(ctx context.Context, id string) (*vault.Entry, error)

	// PurgeDeleted hard-deletes every soft-deleted record.
	PurgeDeleted(ctx context.Context) (int, error)

	// Assemble returns the server-substituted prompt text. The client
	// treats it as authoritative and never substitutes locally.
	Assemble(ctx context.Context, entryID string, overrides map[string]string) (*vault.Assembled, error)
}
