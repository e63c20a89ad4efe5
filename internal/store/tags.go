package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/promptvault/promptvault/internal/vault"
)

// ListTags returns the tag index in name order.
func (s *Store) ListTags(ctx context.Context, limit int) ([]vault.Tag, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, created_at FROM tags ORDER BY name ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	tags := []vault.Tag{}
	for rows.Next() {
		var t vault.Tag
		if err := rows.Scan(&t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// TidyResult reports what a tag-index maintenance pass changed.
type TidyResult struct {
	Removed int `json:"removed"`
	Added   int `json:"added"`
}

// TidyTags reconciles the tag index against non-deleted entries: drops
// names no entry references, adds names entries use but the index lacks.
func (s *Store) TidyTags(ctx context.Context) (*TidyResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT tags_json FROM entries WHERE status != ?`, vault.StatusDeleted)
	if err != nil {
		return nil, fmt.Errorf("collecting entry tags: %w", err)
	}
	used := map[string]struct{}{}
	for rows.Next() {
		var tagsJSON string
		if err := rows.Scan(&tagsJSON); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning entry tags: %w", err)
		}
		for _, tag := range decodeStrings(tagsJSON) {
			used[tag] = struct{}{}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	indexed, err := allTagNames(ctx, tx)
	if err != nil {
		return nil, err
	}

	result := &TidyResult{}
	now := nowISO()
	for _, name := range indexed {
		if _, ok := used[name]; !ok {
			if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE name = ?`, name); err != nil {
				return nil, fmt.Errorf("removing unused tag %q: %w", name, err)
			}
			result.Removed++
		}
		delete(used, name)
	}
	for name := range used {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO tags (name, created_at) VALUES (?, ?)`, name, now); err != nil {
			return nil, fmt.Errorf("adding missing tag %q: %w", name, err)
		}
		result.Added++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	s.logger.Info("tidied tag index", "removed", result.Removed, "added", result.Added)
	return result, nil
}

func allTagNames(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM tags`)
	if err != nil {
		return nil, fmt.Errorf("listing tag index: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning tag name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) upsertTags(ctx context.Context, tx *sql.Tx, tags []string, now string) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO tags (name, created_at) VALUES (?, ?)`, tag, now); err != nil {
			return fmt.Errorf("indexing tag %q: %w", tag, err)
		}
	}
	return nil
}
