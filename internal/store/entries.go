package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault/internal/vault"
)

const entryColumns = `id, title, status, version, tags_json, model_scope_json,
	variables_json, raw_positive, raw_negative, params_json, favorite, score,
	thumbnail_png IS NOT NULL, thumbnail_width, thumbnail_height, created_at, updated_at`

// CreateEntry inserts a new entry with version 1 and records the first
// version snapshot.
func (s *Store) CreateEntry(ctx context.Context, draft vault.Draft) (*vault.Entry, error) {
	id := normalizeText(draft.ID)
	if id == "" {
		id = "entry_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	}
	now := nowISO()

	entry := &vault.Entry{
		ID:         id,
		Title:      normalizeText(draft.Title),
		Status:     vault.StatusActive,
		Version:    1,
		Tags:       normalizeList(draft.Tags),
		ModelScope: normalizeList(draft.ModelScope),
		Variables:  draft.Variables,
		Raw: vault.Raw{
			Positive: normalizeText(draft.Raw.Positive),
			Negative: normalizeText(draft.Raw.Negative),
		},
		Params:    draft.Params,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if entry.Title == "" {
		entry.Title = "untitled"
	}
	if entry.Variables == nil {
		entry.Variables = map[string]string{}
	}

	var thumb []byte
	if draft.Thumbnail != nil && len(draft.Thumbnail.PNG) > 0 {
		thumb = draft.Thumbnail.PNG
		entry.HasThumbnail = true
		entry.ThumbWidth = draft.Thumbnail.Width
		entry.ThumbHeight = draft.Thumbnail.Height
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (
			id, title, status, version, tags_json, model_scope_json,
			variables_json, raw_positive, raw_negative, params_json,
			favorite, score, thumbnail_png, thumbnail_width, thumbnail_height,
			created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		entry.ID, entry.Title, entry.Status, entry.Version,
		mustJSON(entry.Tags), mustJSON(entry.ModelScope), mustJSON(entry.Variables),
		entry.Raw.Positive, entry.Raw.Negative, mustJSON(entry.Params),
		entry.Favorite, entry.Score,
		nullBytes(thumb), nullInt(entry.ThumbWidth), nullInt(entry.ThumbHeight),
		entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting entry: %w", err)
	}

	if err := s.snapshotVersion(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := s.upsertTags(ctx, tx, entry.Tags, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return entry, nil
}

// GetEntry returns the full entry for id, including soft-deleted rows.
func (s *Store) GetEntry(ctx context.Context, id string) (*vault.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vault.ErrNotFound
		}
		return nil, fmt.Errorf("reading entry: %w", err)
	}
	return entry, nil
}

// GetThumbnail returns the stored PNG bytes, or ErrNotFound when the entry
// is missing and (nil, nil) when it simply has no thumbnail.
func (s *Store) GetThumbnail(ctx context.Context, id string) (*vault.Thumbnail, error) {
	var png []byte
	var w, h sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT thumbnail_png, thumbnail_width, thumbnail_height FROM entries WHERE id = ?`, id,
	).Scan(&png, &w, &h)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, vault.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading thumbnail: %w", err)
	}
	if len(png) == 0 {
		return nil, nil
	}
	return &vault.Thumbnail{PNG: png, Width: int(w.Int64), Height: int(h.Int64)}, nil
}

// UpdateEntry applies patch if and only if the entry's current
// (version, updated_at) pair matches what the client last observed.
// On success version is incremented, updated_at reassigned, and a version
// snapshot recorded.
func (s *Store) UpdateEntry(ctx context.Context, id string, patch vault.Patch, expectedVersion int, expectedUpdatedAt string) (*vault.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vault.ErrNotFound
		}
		return nil, fmt.Errorf("reading entry: %w", err)
	}

	if entry.Version != expectedVersion || entry.UpdatedAt != expectedUpdatedAt {
		return nil, fmt.Errorf("entry %s at version %d (expected %d): %w",
			id, entry.Version, expectedVersion, vault.ErrConflict)
	}

	thumbPatched, thumb, err := s.applyPatch(ctx, entry, patch)
	if err != nil {
		return nil, err
	}

	entry.Version++
	entry.UpdatedAt = nowISO()

	if err := s.writeEntry(ctx, tx, entry, thumbPatched, thumb); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return entry, nil
}

// DeleteEntry soft-deletes an entry: status flips to deleted and version
// advances, but the row (and its history) stays until an explicit purge.
// Recovery uses UpdateEntry with a status patch.
func (s *Store) DeleteEntry(ctx context.Context, id string) (*vault.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vault.ErrNotFound
		}
		return nil, fmt.Errorf("reading entry: %w", err)
	}

	entry.Status = vault.StatusDeleted
	entry.Version++
	entry.UpdatedAt = nowISO()

	_, err = tx.ExecContext(ctx,
		`UPDATE entries SET status = ?, version = ?, updated_at = ? WHERE id = ?`,
		entry.Status, entry.Version, entry.UpdatedAt, entry.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("soft-deleting entry: %w", err)
	}
	if err := s.snapshotVersion(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return entry, nil
}

// PurgeDeleted hard-deletes every soft-deleted entry along with its version
// history. Returns the number of entries removed.
func (s *Store) PurgeDeleted(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entry_versions WHERE entry_id IN (SELECT id FROM entries WHERE status = ?)`,
		vault.StatusDeleted,
	); err != nil {
		return 0, fmt.Errorf("purging version history: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE status = ?`, vault.StatusDeleted)
	if err != nil {
		return 0, fmt.Errorf("purging entries: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	s.logger.Info("purged deleted entries", "count", count)
	return int(count), nil
}

// ListVersions returns the version history for an entry, newest first.
func (s *Store) ListVersions(ctx context.Context, id string, limit int) ([]vault.VersionInfo, error) {
	if _, err := s.GetEntry(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, created_at FROM entry_versions WHERE entry_id = ? ORDER BY version DESC LIMIT ?`,
		id, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	defer rows.Close()

	var out []vault.VersionInfo
	for rows.Next() {
		var v vault.VersionInfo
		if err := rows.Scan(&v.Version, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning version row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// applyPatch merges patch into entry in place. The returned flag reports
// whether the thumbnail column must be rewritten (patch touched it).
func (s *Store) applyPatch(ctx context.Context, entry *vault.Entry, patch vault.Patch) (bool, []byte, error) {
	if patch.Title != nil {
		if t := normalizeText(*patch.Title); t != "" {
			entry.Title = t
		}
	}
	if patch.Tags != nil {
		entry.Tags = normalizeList(*patch.Tags)
	}
	if patch.ModelScope != nil {
		entry.ModelScope = normalizeList(*patch.ModelScope)
	}
	if patch.Variables != nil {
		entry.Variables = *patch.Variables
		if entry.Variables == nil {
			entry.Variables = map[string]string{}
		}
	}
	if patch.Positive != nil {
		entry.Raw.Positive = normalizeText(*patch.Positive)
	}
	if patch.Negative != nil {
		entry.Raw.Negative = normalizeText(*patch.Negative)
	}
	if patch.Params != nil {
		entry.Params = *patch.Params
	}
	if patch.Status != nil {
		switch *patch.Status {
		case vault.StatusActive, vault.StatusDeleted:
			entry.Status = *patch.Status
		default:
			return false, nil, &vault.ValidationError{Field: "status", Msg: "must be active or deleted"}
		}
	}
	if patch.Favorite != nil {
		entry.Favorite = *patch.Favorite
	}
	if patch.Score != nil {
		if *patch.Score < 0 || *patch.Score > vault.ScoreMax {
			return false, nil, &vault.ValidationError{Field: "score", Msg: "must be between 0 and 5"}
		}
		entry.Score = *patch.Score
	}

	if patch.Thumbnail == nil {
		return false, nil, nil
	}
	if len(patch.Thumbnail.PNG) == 0 {
		entry.HasThumbnail = false
		entry.ThumbWidth = 0
		entry.ThumbHeight = 0
		return true, nil, nil
	}
	entry.HasThumbnail = true
	entry.ThumbWidth = patch.Thumbnail.Width
	entry.ThumbHeight = patch.Thumbnail.Height
	return true, patch.Thumbnail.PNG, nil
}

// writeEntry persists a mutated entry, its version snapshot, and any new
// tags inside tx.
func (s *Store) writeEntry(ctx context.Context, tx *sql.Tx, entry *vault.Entry, thumbPatched bool, thumb []byte) error {
	if thumbPatched {
		_, err := tx.ExecContext(ctx, `
			UPDATE entries SET
				title = ?, status = ?, version = ?, tags_json = ?, model_scope_json = ?,
				variables_json = ?, raw_positive = ?, raw_negative = ?, params_json = ?,
				favorite = ?, score = ?, thumbnail_png = ?, thumbnail_width = ?,
				thumbnail_height = ?, updated_at = ?
			WHERE id = ?`,
			entry.Title, entry.Status, entry.Version,
			mustJSON(entry.Tags), mustJSON(entry.ModelScope), mustJSON(entry.Variables),
			entry.Raw.Positive, entry.Raw.Negative, mustJSON(entry.Params),
			entry.Favorite, entry.Score,
			nullBytes(thumb), nullInt(entry.ThumbWidth), nullInt(entry.ThumbHeight),
			entry.UpdatedAt, entry.ID,
		)
		if err != nil {
			return fmt.Errorf("updating entry: %w", err)
		}
	} else {
		_, err := tx.ExecContext(ctx, `
			UPDATE entries SET
				title = ?, status = ?, version = ?, tags_json = ?, model_scope_json = ?,
				variables_json = ?, raw_positive = ?, raw_negative = ?, params_json = ?,
				favorite = ?, score = ?, updated_at = ?
			WHERE id = ?`,
			entry.Title, entry.Status, entry.Version,
			mustJSON(entry.Tags), mustJSON(entry.ModelScope), mustJSON(entry.Variables),
			entry.Raw.Positive, entry.Raw.Negative, mustJSON(entry.Params),
			entry.Favorite, entry.Score, entry.UpdatedAt, entry.ID,
		)
		if err != nil {
			return fmt.Errorf("updating entry: %w", err)
		}
	}

	if err := s.snapshotVersion(ctx, tx, entry); err != nil {
		return err
	}
	return s.upsertTags(ctx, tx, entry.Tags, entry.UpdatedAt)
}

func (s *Store) snapshotVersion(ctx context.Context, tx *sql.Tx, entry *vault.Entry) error {
	snapshot, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding version snapshot: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO entry_versions (entry_id, version, snapshot_json, created_at) VALUES (?,?,?,?)`,
		entry.ID, entry.Version, string(snapshot), entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording version snapshot: %w", err)
	}
	return nil
}

func scanEntry(row *sql.Row) (*vault.Entry, error) {
	var e vault.Entry
	var tagsJSON, scopeJSON, varsJSON, paramsJSON string
	var thumbW, thumbH sql.NullInt64
	err := row.Scan(
		&e.ID, &e.Title, &e.Status, &e.Version, &tagsJSON, &scopeJSON,
		&varsJSON, &e.Raw.Positive, &e.Raw.Negative, &paramsJSON,
		&e.Favorite, &e.Score, &e.HasThumbnail, &thumbW, &thumbH,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Tags = decodeStrings(tagsJSON)
	e.ModelScope = decodeStrings(scopeJSON)
	e.Variables = decodeStringMap(varsJSON)
	if err := json.Unmarshal([]byte(paramsJSON), &e.Params); err != nil {
		e.Params = vault.Params{}
	}
	e.ThumbWidth = int(thumbW.Int64)
	e.ThumbHeight = int(thumbH.Int64)
	return &e, nil
}

func decodeStrings(raw string) []string {
	var out []string
	if json.Unmarshal([]byte(raw), &out) != nil || out == nil {
		return []string{}
	}
	return out
}

func decodeStringMap(raw string) map[string]string {
	var out map[string]string
	if json.Unmarshal([]byte(raw), &out) != nil || out == nil {
		return map[string]string{}
	}
	return out
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
