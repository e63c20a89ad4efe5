package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/promptvault/promptvault/internal/vault"
)

// BundleFormatVersion identifies the export bundle layout.
const BundleFormatVersion = "1.0"

// Bundle is the portable export/import container.
type Bundle struct {
	Version    string        `json:"version"`
	ExportedAt string        `json:"exported_at"`
	Entries    []BundleEntry `json:"entries"`
}

// BundleEntry is an entry with its thumbnail inlined as base64 so the
// bundle is a single self-contained document.
type BundleEntry struct {
	vault.Entry
	ThumbnailB64 string `json:"thumbnail_b64,omitempty"`
}

// ImportResult summarizes a merge import. Per-record failures are
// collected here rather than aborting the whole bundle.
type ImportResult struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Errors  []ImportError `json:"errors"`
}

// ImportError names one record that could not be merged.
type ImportError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// bundleEntrySchema validates one imported record before it touches the
// database. Shape only; merge semantics handle the rest.
const bundleEntrySchema = `{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"title": {"type": "string"},
		"status": {"enum": ["active", "deleted", ""]},
		"tags": {"type": "array", "items": {"type": "string"}},
		"model_scope": {"type": "array", "items": {"type": "string"}},
		"variables": {"type": "object", "additionalProperties": {"type": "string"}},
		"raw": {
			"type": "object",
			"properties": {
				"positive": {"type": "string"},
				"negative": {"type": "string"}
			}
		},
		"favorite": {"type": "boolean"},
		"score": {"type": "integer"},
		"thumbnail_b64": {"type": "string"}
	}
}`

var (
	importSchemaOnce sync.Once
	importSchema     *jsonschema.Schema
	importSchemaErr  error
)

func compiledImportSchema() (*jsonschema.Schema, error) {
	importSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("bundle_entry.json", strings.NewReader(bundleEntrySchema)); err != nil {
			importSchemaErr = fmt.Errorf("failed to load bundle schema: %w", err)
			return
		}
		importSchema, importSchemaErr = compiler.Compile("bundle_entry.json")
	})
	return importSchema, importSchemaErr
}

// ExportBundle returns every entry (all statuses) as a portable bundle.
func (s *Store) ExportBundle(ctx context.Context) (*Bundle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+`, thumbnail_png
		FROM entries ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("exporting entries: %w", err)
	}
	defer rows.Close()

	bundle := &Bundle{Version: BundleFormatVersion, ExportedAt: nowISO(), Entries: []BundleEntry{}}
	for rows.Next() {
		var e vault.Entry
		var tagsJSON, scopeJSON, varsJSON, paramsJSON string
		var thumbW, thumbH sql.NullInt64
		var png []byte
		err := rows.Scan(
			&e.ID, &e.Title, &e.Status, &e.Version, &tagsJSON, &scopeJSON,
			&varsJSON, &e.Raw.Positive, &e.Raw.Negative, &paramsJSON,
			&e.Favorite, &e.Score, &e.HasThumbnail, &thumbW, &thumbH,
			&e.CreatedAt, &e.UpdatedAt, &png,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning export row: %w", err)
		}
		e.Tags = decodeStrings(tagsJSON)
		e.ModelScope = decodeStrings(scopeJSON)
		e.Variables = decodeStringMap(varsJSON)
		if json.Unmarshal([]byte(paramsJSON), &e.Params) != nil {
			e.Params = vault.Params{}
		}
		e.ThumbWidth = int(thumbW.Int64)
		e.ThumbHeight = int(thumbH.Int64)

		be := BundleEntry{Entry: e}
		if len(png) > 0 {
			be.ThumbnailB64 = base64.StdEncoding.EncodeToString(png)
		}
		bundle.Entries = append(bundle.Entries, be)
	}
	return bundle, rows.Err()
}

// ImportBundle merges a bundle into the catalog: an existing id is updated
// (version bumped through the normal mutation path), an unknown id is
// created. Only the merge strategy exists; record-level failures are
// reported, not fatal.
func (s *Store) ImportBundle(ctx context.Context, bundle *Bundle) (*ImportResult, error) {
	schema, err := compiledImportSchema()
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: []ImportError{}}
	for _, record := range bundle.Entries {
		if err := validateBundleEntry(schema, record); err != nil {
			result.Errors = append(result.Errors, ImportError{ID: record.ID, Error: err.Error()})
			continue
		}
		action, err := s.mergeEntry(ctx, record)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{ID: record.ID, Error: err.Error()})
			continue
		}
		switch action {
		case "created":
			result.Created++
		case "updated":
			result.Updated++
		}
	}
	return result, nil
}

func validateBundleEntry(schema *jsonschema.Schema, record BundleEntry) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record for validation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding record for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("record does not match bundle schema: %w", err)
	}
	return nil
}

func (s *Store) mergeEntry(ctx context.Context, record BundleEntry) (string, error) {
	var thumb *vault.Thumbnail
	if record.ThumbnailB64 != "" {
		png, err := base64.StdEncoding.DecodeString(record.ThumbnailB64)
		if err != nil {
			return "", fmt.Errorf("invalid thumbnail_b64: %w", err)
		}
		thumb = &vault.Thumbnail{PNG: png, Width: record.ThumbWidth, Height: record.ThumbHeight}
	}

	existing, err := s.GetEntry(ctx, record.ID)
	if err != nil && !vault.IsNotFound(err) {
		return "", err
	}

	if existing == nil {
		draft := vault.Draft{
			ID:         record.ID,
			Title:      record.Title,
			Tags:       record.Tags,
			ModelScope: record.ModelScope,
			Variables:  record.Variables,
			Raw:        record.Raw,
			Params:     record.Params,
			Thumbnail:  thumb,
		}
		created, err := s.CreateEntry(ctx, draft)
		if err != nil {
			return "", err
		}
		// Imported metadata the create path doesn't accept.
		patch := vault.Patch{}
		needsPatch := false
		if record.Favorite {
			patch.Favorite = &record.Favorite
			needsPatch = true
		}
		if record.Score != 0 {
			score := clampScore(record.Score)
			patch.Score = &score
			needsPatch = true
		}
		if record.Status == vault.StatusDeleted {
			status := vault.StatusDeleted
			patch.Status = &status
			needsPatch = true
		}
		if needsPatch {
			if _, err := s.UpdateEntry(ctx, created.ID, patch, created.Version, created.UpdatedAt); err != nil {
				return "", err
			}
		}
		return "created", nil
	}

	status := record.Status
	if status == "" {
		status = existing.Status
	}
	score := clampScore(record.Score)
	patch := vault.Patch{
		Title:      &record.Title,
		Tags:       &record.Tags,
		ModelScope: &record.ModelScope,
		Variables:  &record.Variables,
		Positive:   &record.Raw.Positive,
		Negative:   &record.Raw.Negative,
		Params:     &record.Params,
		Status:     &status,
		Favorite:   &record.Favorite,
		Score:      &score,
		Thumbnail:  thumb,
	}
	if _, err := s.UpdateEntry(ctx, existing.ID, patch, existing.Version, existing.UpdatedAt); err != nil {
		return "", err
	}
	return "updated", nil
}

var csvHeader = []string{
	"id", "title", "status", "version", "tags_json", "model_scope_json",
	"variables_json", "raw_positive", "raw_negative", "params_json",
	"favorite", "score", "thumbnail_b64", "thumbnail_width",
	"thumbnail_height", "created_at", "updated_at",
}

// WriteCSV renders a bundle as CSV, one entry per row.
func WriteCSV(w io.Writer, bundle *Bundle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, e := range bundle.Entries {
		row := []string{
			e.ID, e.Title, e.Status, strconv.Itoa(e.Version),
			mustJSON(e.Tags), mustJSON(e.ModelScope), mustJSON(e.Variables),
			e.Raw.Positive, e.Raw.Negative, mustJSON(e.Params),
			strconv.FormatBool(e.Favorite), strconv.Itoa(e.Score),
			e.ThumbnailB64, strconv.Itoa(e.ThumbWidth), strconv.Itoa(e.ThumbHeight),
			e.CreatedAt, e.UpdatedAt,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses CSV produced by WriteCSV back into a bundle.
func ReadCSV(r io.Reader) (*Bundle, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["id"]; !ok {
		return nil, &vault.ValidationError{Field: "csv", Msg: "missing id column"}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	bundle := &Bundle{Version: BundleFormatVersion, Entries: []BundleEntry{}}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}
		var e BundleEntry
		e.ID = field(row, "id")
		e.Title = field(row, "title")
		e.Status = field(row, "status")
		e.Version, _ = strconv.Atoi(field(row, "version"))
		e.Tags = decodeStrings(field(row, "tags_json"))
		e.ModelScope = decodeStrings(field(row, "model_scope_json"))
		e.Variables = decodeStringMap(field(row, "variables_json"))
		e.Raw.Positive = field(row, "raw_positive")
		e.Raw.Negative = field(row, "raw_negative")
		if json.Unmarshal([]byte(field(row, "params_json")), &e.Params) != nil {
			e.Params = vault.Params{}
		}
		e.Favorite = field(row, "favorite") == "true"
		e.Score, _ = strconv.Atoi(field(row, "score"))
		e.ThumbnailB64 = field(row, "thumbnail_b64")
		e.ThumbWidth, _ = strconv.Atoi(field(row, "thumbnail_width"))
		e.ThumbHeight, _ = strconv.Atoi(field(row, "thumbnail_height"))
		e.CreatedAt = field(row, "created_at")
		e.UpdatedAt = field(row, "updated_at")
		bundle.Entries = append(bundle.Entries, e)
	}
	return bundle, nil
}
