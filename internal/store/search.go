package store

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/promptvault/promptvault/internal/vault"
)

const previewLimit = 96

// SearchEntries returns one page of list rows plus the total match count
// for the same filters, in a single call so pagination state can never
// observe items and total from different catalog states.
func (s *Store) SearchEntries(ctx context.Context, q vault.ListQuery) (*vault.ListResult, error) {
	if q.Status == "" {
		q.Status = vault.StatusActive
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	where, params := buildFilter(q)

	var total int
	countSQL := `SELECT COUNT(*) FROM entries WHERE ` + strings.Join(where, " AND ")
	if err := s.db.QueryRowContext(ctx, countSQL, params...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting entries: %w", err)
	}

	listSQL := `SELECT id, title, tags_json, model_scope_json, favorite, score,
		thumbnail_png IS NOT NULL, raw_positive, updated_at
		FROM entries WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + orderBy(q.Sort) + ` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, listSQL, append(params, q.Limit, q.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("searching entries: %w", err)
	}
	defer rows.Close()

	result := &vault.ListResult{Items: []vault.Summary{}, Total: total}
	for rows.Next() {
		var item vault.Summary
		var tagsJSON, scopeJSON, positive string
		if err := rows.Scan(&item.ID, &item.Title, &tagsJSON, &scopeJSON,
			&item.Favorite, &item.Score, &item.HasThumbnail, &positive, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning entry row: %w", err)
		}
		item.Tags = decodeStrings(tagsJSON)
		item.ModelScope = decodeStrings(scopeJSON)
		item.PositivePreview = preview(positive)
		item.MatchReasons = matchReasons(q.Query, item.Title, item.Tags, item.PositivePreview)
		result.Items = append(result.Items, item)
	}
	return result, rows.Err()
}

func buildFilter(q vault.ListQuery) ([]string, []any) {
	where := []string{"status = ?"}
	params := []any{q.Status}

	if model := normalizeText(q.Model); model != "" {
		where = append(where, "model_scope_json LIKE ?")
		params = append(params, "%"+model+"%")
	}
	for _, tag := range normalizeList(q.Tags) {
		where = append(where, "tags_json LIKE ?")
		params = append(params, "%"+tag+"%")
	}
	if q.FavoriteOnly {
		where = append(where, "favorite = 1")
	}
	if q.HasThumbnail {
		where = append(where, "thumbnail_png IS NOT NULL")
	}
	if kw := normalizeText(q.Query); kw != "" {
		where = append(where, "(title LIKE ? OR raw_positive LIKE ? OR raw_negative LIKE ? OR tags_json LIKE ?)")
		like := "%" + kw + "%"
		params = append(params, like, like, like, like)
	}
	return where, params
}

func orderBy(sort string) string {
	switch sort {
	case vault.SortScoreDesc:
		return "score DESC, updated_at DESC"
	case vault.SortFavoriteDesc:
		return "favorite DESC, score DESC, updated_at DESC"
	default:
		return "updated_at DESC"
	}
}

func preview(positive string) string {
	positive = normalizeText(positive)
	if utf8.RuneCountInString(positive) <= previewLimit {
		return positive
	}
	runes := []rune(positive)
	return strings.TrimRight(string(runes[:previewLimit-1]), " ") + "…"
}

// matchReasons labels why a row matched the free-text query, for list-row
// badges. Empty when no query was given.
func matchReasons(query, title string, tags []string, previewText string) []string {
	kw := strings.ToLower(normalizeText(query))
	if kw == "" {
		return nil
	}
	var reasons []string
	if strings.Contains(strings.ToLower(title), kw) {
		reasons = append(reasons, "title")
	}
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), kw) {
			reasons = append(reasons, "tag")
			break
		}
	}
	if strings.Contains(strings.ToLower(previewText), kw) {
		reasons = append(reasons, "content")
	}
	return reasons
}
