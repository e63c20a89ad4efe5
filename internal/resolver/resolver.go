// Package resolver turns a node binding into a concrete catalog entry.
// A locked binding fetches its entry by id; an auto binding walks a
// cascade of progressively looser searches until one returns a row.
package resolver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/promptvault/promptvault/internal/catalog"
	"github.com/promptvault/promptvault/internal/vault"
)

// Outcome tags describe how a resolution was obtained. They surface in
// logs and in the api resolve command so a user can tell a real match
// from a latest-entry fallback.
const (
	OutcomeLocked                  = "locked"
	OutcomeLockedMissingID         = "locked_missing_id"
	OutcomeLockedMissingIDFallback = "locked_missing_id_fallback_latest"
	OutcomeMatched                 = "matched"
	OutcomeFallbackLatest          = "fallback_latest"
	OutcomeNoMatch                 = "no_match"
)

// searchPageSize is the fixed candidate page per cascade step.
const searchPageSize = 10

// Resolution is the outcome of resolving a binding. Entry is nil only
// when Outcome is no_match.
type Resolution struct {
	Entry   *vault.Entry
	Outcome string
}

// Resolver resolves bindings against a catalog.
type Resolver struct {
	catalog catalog.Catalog
	logger  *slog.Logger
}

func New(cat catalog.Catalog, logger *slog.Logger) *Resolver {
	return &Resolver{catalog: cat, logger: logger}
}

// Resolve resolves a binding to an entry. In locked mode with a non-empty
// id the entry is fetched directly and any failure, including a
// soft-deleted entry, is surfaced as an error rather than downgraded to a
// search. In auto mode, and in locked mode with an empty id, the search
// cascade runs; an empty catalog yields Outcome no_match, not an error.
func (r *Resolver) Resolve(ctx context.Context, b Binding) (*Resolution, error) {
	if b.Mode == ModeLocked && b.EntryID != "" {
		entry, err := r.catalog.GetEntry(ctx, b.EntryID)
		if err != nil {
			return nil, err
		}
		if entry.Status == vault.StatusDeleted {
			return nil, vault.ErrNotFound
		}
		r.logger.Debug("resolved locked binding", "entry_id", entry.ID)
		return &Resolution{Entry: entry, Outcome: OutcomeLocked}, nil
	}

	degraded := b.Mode == ModeLocked
	if degraded {
		r.logger.Warn("locked binding has no entry id, falling back to search")
	}

	res, err := r.cascade(ctx, b)
	if err != nil {
		return nil, err
	}
	if degraded {
		switch res.Outcome {
		case OutcomeMatched:
			res.Outcome = OutcomeLockedMissingID
		case OutcomeFallbackLatest:
			res.Outcome = OutcomeLockedMissingIDFallback
		}
	}
	return res, nil
}

// cascade runs the auto-mode search ladder. Steps run strictly in order
// and the first step with a candidate row wins; a later step is never
// consulted once an earlier one produced rows.
func (r *Resolver) cascade(ctx context.Context, b Binding) (*Resolution, error) {
	combined := b.combinedQuery()
	title := strings.TrimSpace(b.Title)
	query := strings.TrimSpace(b.Query)
	tags := b.tagList()
	model := strings.TrimSpace(b.Model)
	hasTags := len(tags) > 0
	hasModel := model != ""

	type step struct {
		query string
		tags  []string
		model string
		run   bool
	}
	steps := []step{
		{combined, tags, model, true},
		{combined, tags, "", hasTags || hasModel},
		{combined, nil, model, hasTags},
		{combined, nil, "", hasTags || hasModel},
		{query, nil, "", title != "" && query != "" && query != combined},
		{title, nil, "", title != ""},
	}

	for i, st := range steps {
		if !st.run {
			continue
		}
		rows, err := r.search(ctx, st.query, st.tags, st.model)
		if err != nil {
			return nil, err
		}
		rows = narrowByTitle(rows, title)
		if len(rows) == 0 {
			continue
		}
		entry, err := r.catalog.GetEntry(ctx, rows[0].ID)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("resolved by search", "entry_id", entry.ID, "step", i+1)
		return &Resolution{Entry: entry, Outcome: OutcomeMatched}, nil
	}

	// Last resort: most recently updated entry, regardless of criteria.
	rows, err := r.search(ctx, "", nil, "")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Resolution{Outcome: OutcomeNoMatch}, nil
	}
	entry, err := r.catalog.GetEntry(ctx, rows[0].ID)
	if err != nil {
		return nil, err
	}
	r.logger.Warn("no binding criteria matched, using latest entry", "entry_id", entry.ID)
	return &Resolution{Entry: entry, Outcome: OutcomeFallbackLatest}, nil
}

func (r *Resolver) search(ctx context.Context, query string, tags []string, model string) ([]vault.Summary, error) {
	result, err := r.catalog.ListEntries(ctx, vault.ListQuery{
		Status: vault.StatusActive,
		Query:  query,
		Tags:   tags,
		Model:  model,
		Sort:   vault.SortUpdatedDesc,
		Limit:  searchPageSize,
	})
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// narrowByTitle keeps rows whose title contains the binding title,
// case-insensitively. A narrowing that would empty a non-empty candidate
// set is discarded so a near-miss title never erases real matches.
func narrowByTitle(rows []vault.Summary, title string) []vault.Summary {
	if title == "" || len(rows) == 0 {
		return rows
	}
	needle := strings.ToLower(title)
	var narrowed []vault.Summary
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.Title), needle) {
			narrowed = append(narrowed, row)
		}
	}
	if len(narrowed) == 0 {
		return rows
	}
	return narrowed
}
