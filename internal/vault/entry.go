// Package vault defines the catalog's domain types and error taxonomy.
// It is shared by the server-side store and every client-side component so
// that both halves agree on the wire shape of an entry.
package vault

// Status values for an entry. Deletion is a status transition, never a row
// removal; hard removal happens only through the explicit purge operation.
const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// Sort keys accepted by the list operation.
const (
	SortUpdatedDesc  = "updated_desc"
	SortScoreDesc    = "score_desc"
	SortFavoriteDesc = "favorite_desc"
)

// ScoreMax is the upper bound of the 0-5 score scale.
const ScoreMax = 5

// Raw holds the free-text prompt bodies. Variable placeholders use the
// {name} syntax and are substituted server-side by assemble.
type Raw struct {
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

// Params holds structured generation parameters.
type Params struct {
	Steps     int     `json:"steps,omitempty"`
	CFG       float64 `json:"cfg,omitempty"`
	Sampler   string  `json:"sampler,omitempty"`
	Scheduler string  `json:"scheduler,omitempty"`
	Seed      int64   `json:"seed,omitempty"`
}

// Thumbnail is a PNG preview image attached to an entry.
type Thumbnail struct {
	PNG    []byte `json:"png"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Entry is one full catalog record.
//
// Version and UpdatedAt are assigned by the store and change together on
// every successful mutation; clients never set them. UpdatedAt is carried
// as the server's RFC3339 string and echoed back verbatim in the
// optimistic-concurrency check, so no client-side time parsing can drift.
type Entry struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Status       string            `json:"status"`
	Version      int               `json:"version"`
	Tags         []string          `json:"tags"`
	ModelScope   []string          `json:"model_scope"`
	Variables    map[string]string `json:"variables"`
	Raw          Raw               `json:"raw"`
	Params       Params            `json:"params"`
	Favorite     bool              `json:"favorite"`
	Score        int               `json:"score"`
	HasThumbnail bool              `json:"has_thumbnail"`
	ThumbWidth   int               `json:"thumbnail_width,omitempty"`
	ThumbHeight  int               `json:"thumbnail_height,omitempty"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
}

// Summary is the list-row projection of an entry.
type Summary struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Tags            []string `json:"tags"`
	ModelScope      []string `json:"model_scope"`
	Favorite        bool     `json:"favorite"`
	Score           int      `json:"score"`
	HasThumbnail    bool     `json:"has_thumbnail"`
	PositivePreview string   `json:"positive_preview"`
	MatchReasons    []string `json:"match_reasons,omitempty"`
	UpdatedAt       string   `json:"updated_at"`
}

// Draft is the payload for creating an entry. The store normalizes text,
// dedupes tags, and assigns id/version/timestamps.
type Draft struct {
	ID         string            `json:"id,omitempty"`
	Title      string            `json:"title" validate:"max=512"`
	Tags       []string          `json:"tags,omitempty"`
	ModelScope []string          `json:"model_scope,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
	Raw        Raw               `json:"raw"`
	Params     Params            `json:"params,omitempty"`
	Thumbnail  *Thumbnail        `json:"thumbnail,omitempty"`
}

// Patch is a partial update. Nil fields are left untouched; a non-nil
// Thumbnail with empty PNG clears the stored image.
type Patch struct {
	Title      *string            `json:"title,omitempty"`
	Tags       *[]string          `json:"tags,omitempty"`
	ModelScope *[]string          `json:"model_scope,omitempty"`
	Variables  *map[string]string `json:"variables,omitempty"`
	Positive   *string            `json:"positive,omitempty"`
	Negative   *string            `json:"negative,omitempty"`
	Params     *Params            `json:"params,omitempty"`
	Status     *string            `json:"status,omitempty" validate:"omitempty,oneof=active deleted"`
	Favorite   *bool              `json:"favorite,omitempty"`
	Score      *int               `json:"score,omitempty" validate:"omitempty,min=0,max=5"`
	Thumbnail  *Thumbnail         `json:"thumbnail,omitempty"`
}

// ListQuery is the server query recomputed by the view state coordinator.
type ListQuery struct {
	Status       string
	Query        string
	Tags         []string
	Model        string
	Sort         string
	Offset       int
	Limit        int
	FavoriteOnly bool
	HasThumbnail bool
}

// ListResult is one page of entries plus the overall match count.
type ListResult struct {
	Items []Summary `json:"items"`
	Total int       `json:"total"`
}

// Assembled is the server-computed prompt text with variable substitution
// applied. Clients treat it as authoritative and never substitute locally.
type Assembled struct {
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

// Tag is one row of the tag index.
type Tag struct {
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// VersionInfo is one row of an entry's version history.
type VersionInfo struct {
	Version   int    `json:"version"`
	CreatedAt string `json:"created_at"`
}
