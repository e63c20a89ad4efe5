// Package viewstate owns the browser's list state: which filters, sort,
// page, view mode, and selection are in effect, and which server query
// those imply. All remote reads flow through one coordinator so stale
// replies can be dropped and pagination stays consistent with the server
// total.
package viewstate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/promptvault/promptvault/internal/catalog"
	"github.com/promptvault/promptvault/internal/vault"
)

// View modes.
const (
	ModeList = "list"
	ModeCard = "card"
)

// State is a snapshot of the coordinator handed to the render callback.
type State struct {
	Status       string
	Query        string
	Tags         []string
	Model        string
	FavoriteOnly bool
	HasThumbnail bool
	Sort         string
	Offset       int
	PageSize     int
	Mode         string
	SelectedID   string
	Rows         []vault.Summary
	Total        int
	Err          error
}

// RenderFunc receives every applied state change.
type RenderFunc func(State)

// Coordinator recomputes the server query from its axes and applies
// replies in order. A reply is dropped when a newer query was issued
// after it, so the view always reflects the latest request.
type Coordinator struct {
	catalog  catalog.Catalog
	logger   *slog.Logger
	onRender RenderFunc

	mu         sync.Mutex
	state      State
	generation uint64
}

func New(cat catalog.Catalog, pageSize int, logger *slog.Logger, onRender RenderFunc) *Coordinator {
	return &Coordinator{
		catalog:  cat,
		logger:   logger,
		onRender: onRender,
		state: State{
			Status:   vault.StatusActive,
			Sort:     vault.SortUpdatedDesc,
			PageSize: pageSize,
			Mode:     ModeList,
		},
	}
}

// State returns a copy of the current snapshot.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setAxis mutates one filter or sort axis and resets the page, then
// refreshes. Pagination never survives an axis change.
func (c *Coordinator) setAxis(ctx context.Context, apply func(*State)) {
	c.mu.Lock()
	apply(&c.state)
	c.state.Offset = 0
	c.mu.Unlock()
	c.Refresh(ctx)
}

func (c *Coordinator) SetQuery(ctx context.Context, q string) {
	c.setAxis(ctx, func(s *State) { s.Query = q })
}

func (c *Coordinator) SetTags(ctx context.Context, tags []string) {
	c.setAxis(ctx, func(s *State) { s.Tags = tags })
}

func (c *Coordinator) SetModel(ctx context.Context, model string) {
	c.setAxis(ctx, func(s *State) { s.Model = model })
}

func (c *Coordinator) SetStatus(ctx context.Context, status string) {
	c.setAxis(ctx, func(s *State) { s.Status = status })
}

func (c *Coordinator) SetFavoriteOnly(ctx context.Context, on bool) {
	c.setAxis(ctx, func(s *State) { s.FavoriteOnly = on })
}

func (c *Coordinator) SetHasThumbnail(ctx context.Context, on bool) {
	c.setAxis(ctx, func(s *State) { s.HasThumbnail = on })
}

func (c *Coordinator) SetSort(ctx context.Context, sort string) {
	c.setAxis(ctx, func(s *State) { s.Sort = sort })
}

// CanNext reports whether a further page exists under the last known
// total.
func (c *Coordinator) CanNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Offset+c.state.PageSize < c.state.Total
}

// CanPrev reports whether the view is past the first page.
func (c *Coordinator) CanPrev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Offset > 0
}

// NextPage advances one page. The move is gated, never clamped: when no
// next page exists the call is a no-op and no query is issued.
func (c *Coordinator) NextPage(ctx context.Context) {
	c.mu.Lock()
	if c.state.Offset+c.state.PageSize >= c.state.Total {
		c.mu.Unlock()
		return
	}
	c.state.Offset += c.state.PageSize
	c.mu.Unlock()
	c.Refresh(ctx)
}

// PrevPage moves one page back, gated the same way.
func (c *Coordinator) PrevPage(ctx context.Context) {
	c.mu.Lock()
	if c.state.Offset == 0 {
		c.mu.Unlock()
		return
	}
	c.state.Offset -= c.state.PageSize
	c.mu.Unlock()
	c.Refresh(ctx)
}

// SetViewMode switches between list and card rendering. Nothing else
// changes: no refetch, no offset reset, and the current selection is
// left as is.
func (c *Coordinator) SetViewMode(mode string) {
	c.mu.Lock()
	c.state.Mode = mode
	snapshot := c.state
	c.mu.Unlock()
	c.render(snapshot)
}

// Select sets the selected entry when the id is on the current page.
func (c *Coordinator) Select(id string) {
	c.mu.Lock()
	for _, row := range c.state.Rows {
		if row.ID == id {
			c.state.SelectedID = id
			break
		}
	}
	snapshot := c.state
	c.mu.Unlock()
	c.render(snapshot)
}

// Refresh issues the server query implied by the current axes and
// applies the reply unless a newer query was issued meanwhile. An empty
// page with a non-zero total means the page slid off the end (rows were
// deleted or a filter narrowed); the offset is recomputed to the last
// valid page and the query reissued exactly once.
func (c *Coordinator) Refresh(ctx context.Context) {
	c.refresh(ctx, true)
}

func (c *Coordinator) refresh(ctx context.Context, allowReissue bool) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	query := vault.ListQuery{
		Status:       c.state.Status,
		Query:        c.state.Query,
		Tags:         c.state.Tags,
		Model:        c.state.Model,
		Sort:         c.state.Sort,
		Offset:       c.state.Offset,
		Limit:        c.state.PageSize,
		FavoriteOnly: c.state.FavoriteOnly,
		HasThumbnail: c.state.HasThumbnail,
	}
	c.mu.Unlock()

	result, err := c.catalog.ListEntries(ctx, query)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("dropping stale list reply", "generation", gen)
		return
	}
	if err != nil {
		c.state.Err = err
		snapshot := c.state
		c.mu.Unlock()
		c.render(snapshot)
		return
	}
	c.state.Err = nil

	if len(result.Items) == 0 && result.Total > 0 && c.state.Offset > 0 && allowReissue {
		last := ((result.Total - 1) / c.state.PageSize) * c.state.PageSize
		c.state.Offset = last
		c.mu.Unlock()
		c.logger.Debug("page past end of results, moving to last page", "offset", last, "total", result.Total)
		c.refresh(ctx, false)
		return
	}

	c.state.Rows = result.Items
	c.state.Total = result.Total
	c.applySelectionLocked()
	snapshot := c.state
	c.mu.Unlock()
	c.render(snapshot)
}

// applySelectionLocked reconciles the selection with the new page. In
// list view the selection follows the entry id when it is still on the
// page and otherwise lands on the first row. Card view selection is
// ephemeral and clears on every refresh.
func (c *Coordinator) applySelectionLocked() {
	if c.state.Mode == ModeCard {
		c.state.SelectedID = ""
		return
	}
	for _, row := range c.state.Rows {
		if row.ID == c.state.SelectedID {
			return
		}
	}
	if len(c.state.Rows) > 0 {
		c.state.SelectedID = c.state.Rows[0].ID
	} else {
		c.state.SelectedID = ""
	}
}

func (c *Coordinator) render(s State) {
	if c.onRender != nil {
		c.onRender(s)
	}
}
