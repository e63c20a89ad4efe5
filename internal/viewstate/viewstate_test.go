package viewstate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/promptvault/promptvault/internal/vault"
)

// pagedCatalog serves a fixed ordered row set, sliced per query, so
// pagination behaves like the real store.
type pagedCatalog struct {
	mu    sync.Mutex
	rows  []vault.Summary
	calls []vault.ListQuery
	block chan struct{}
}

func (c *pagedCatalog) ListEntries(_ context.Context, q vault.ListQuery) (*vault.ListResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, q)
	rows := c.rows
	block := c.block
	c.mu.Unlock()
	if block != nil {
		<-block
	}

	var filtered []vault.Summary
	for _, row := range rows {
		if q.Query != "" && row.Title != q.Query {
			continue
		}
		filtered = append(filtered, row)
	}
	total := len(filtered)
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return &vault.ListResult{Items: filtered[start:end], Total: total}, nil
}

func (c *pagedCatalog) GetEntry(context.Context, string) (*vault.Entry, error) {
	return nil, vault.ErrNotFound
}
func (c *pagedCatalog) CreateEntry(context.Context, vault.Draft) (*vault.Entry, error) {
	return nil, errors.New("not implemented")
}
func (c *pagedCatalog) UpdateEntry(context.Context, string, vault.Patch, int, string) (*vault.Entry, error) {
	return nil, errors.New("not implemented")
}
func (c *pagedCatalog) DeleteEntry(context.Context, string) (*vault.Entry, error) {
	return nil, errors.New("not implemented")
}
func (c *pagedCatalog) PurgeDeleted(context.Context) (int, error) { return 0, errors.New("not implemented") }
func (c *pagedCatalog) Assemble(context.Context, string, map[string]string) (*vault.Assembled, error) {
	return nil, errors.New("not implemented")
}

func makeRows(n int) []vault.Summary {
	rows := make([]vault.Summary, n)
	for i := range rows {
		rows[i] = vault.Summary{ID: fmt.Sprintf("e%02d", i), Title: fmt.Sprintf("Entry %02d", i)}
	}
	return rows
}

func newTestCoordinator(cat *pagedCatalog, pageSize int) *Coordinator {
	return New(cat, pageSize, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestRefreshAndPagination(t *testing.T) {
	ctx := context.Background()

	t.Run("first page and totals", func(t *testing.T) {
		cat := &pagedCatalog{rows: makeRows(25)}
		c := newTestCoordinator(cat, 10)
		c.Refresh(ctx)

		s := c.State()
		if len(s.Rows) != 10 || s.Total != 25 || s.Offset != 0 {
			t.Fatalf("state = rows:%d total:%d offset:%d", len(s.Rows), s.Total, s.Offset)
		}
		if !c.CanNext() || c.CanPrev() {
			t.Fatalf("CanNext=%v CanPrev=%v", c.CanNext(), c.CanPrev())
		}
	})

	t.Run("next and prev are gated, never clamped", func(t *testing.T) {
		cat := &pagedCatalog{rows: makeRows(25)}
		c := newTestCoordinator(cat, 10)
		c.Refresh(ctx)

		c.PrevPage(ctx)
		if got := c.State().Offset; got != 0 {
			t.Fatalf("prev on first page moved offset to %d", got)
		}

		c.NextPage(ctx)
		c.NextPage(ctx)
		s := c.State()
		if s.Offset != 20 || len(s.Rows) != 5 {
			t.Fatalf("last page: offset %d rows %d", s.Offset, len(s.Rows))
		}
		if c.CanNext() {
			t.Fatal("CanNext true on last page")
		}

		before := len(cat.calls)
		c.NextPage(ctx)
		if c.State().Offset != 20 || len(cat.calls) != before {
			t.Fatal("gated next page still issued a query")
		}
	})

	t.Run("axis change resets offset", func(t *testing.T) {
		cat := &pagedCatalog{rows: makeRows(25)}
		c := newTestCoordinator(cat, 10)
		c.Refresh(ctx)
		c.NextPage(ctx)
		if c.State().Offset != 10 {
			t.Fatalf("offset = %d", c.State().Offset)
		}

		c.SetQuery(ctx, "Entry 03")
		s := c.State()
		if s.Offset != 0 {
			t.Fatalf("axis change kept offset %d", s.Offset)
		}
		if s.Total != 1 || s.Rows[0].ID != "e03" {
			t.Fatalf("filtered state = %+v", s)
		}
	})

	t.Run("empty page with remaining total reissues once at last page", func(t *testing.T) {
		cat := &pagedCatalog{rows: makeRows(25)}
		c := newTestCoordinator(cat, 10)
		c.Refresh(ctx)
		c.NextPage(ctx)
		c.NextPage(ctx)
		if c.State().Offset != 20 {
			t.Fatalf("offset = %d", c.State().Offset)
		}

		// Shrink the result set under the current page.
		cat.mu.Lock()
		cat.rows = makeRows(12)
		cat.mu.Unlock()

		before := len(cat.calls)
		c.Refresh(ctx)
		s := c.State()
		if s.Offset != 10 {
			t.Fatalf("offset = %d, want last page 10", s.Offset)
		}
		if len(s.Rows) != 2 || s.Total != 12 {
			t.Fatalf("rows:%d total:%d", len(s.Rows), s.Total)
		}
		if got := len(cat.calls) - before; got != 2 {
			t.Fatalf("issued %d queries, want initial plus exactly one reissue", got)
		}
	})

	t.Run("empty result set renders empty without reissue loop", func(t *testing.T) {
		cat := &pagedCatalog{}
		c := newTestCoordinator(cat, 10)
		c.Refresh(ctx)
		s := c.State()
		if len(s.Rows) != 0 || s.Total != 0 || s.SelectedID != "" {
			t.Fatalf("state = %+v", s)
		}
		if len(cat.calls) != 1 {
			t.Fatalf("issued %d queries", len(cat.calls))
		}
	})
}

func TestSelection(t *testing.T) {
	ctx := context.Background()

	t.Run("list view selects first row by default", func(t *testing.T) {
		cat := &pagedCatalog{rows: makeRows(5)}
		c := newTestCoordinator(cat, 10)
		c.Refresh(ctx)
		if got := c.State().SelectedID; got != "e00" {
			t.Fatalf("selected %q", got)
		}
	})

	t.Run("list view selection persists by id across refresh", func(t *testing.T) {
		cat := &pagedCatalog{rows: makeRows(5)}
		c := newTestCoordinator(cat, 10)
		c.Refresh(ctx)
		c.Select("e03")
		c.Refresh(ctx)
		if got := c.State().SelectedID; got != "e03" {
			t.Fatalf("selected %q after refresh", got)
		}
	})

	t.Run("selection falls back to first row when id leaves the page", func(t *testing.T) {
		cat := &pagedCatalog{rows: makeRows(5)}
		c := newTestCoordinator(cat, 10)
		c.Refresh(ctx)
		c.Select("e03")

		cat.mu.Lock()
		cat.rows = []vault.Summary{{ID: "x1", Title: "Other"}, {ID: "x2", Title: "Other 2"}}
		cat.mu.Unlock()
		c.Refresh(ctx)
		if got := c.State().SelectedID; got != "x1" {
			t.Fatalf("selected %q, want first row", got)
		}
	})

	t.Run("select ignores ids not on the page", func(t *testing.T) {
		cat := &pagedCatalog{rows: makeRows(5)}
		c := newTestCoordinator(cat, 10)
		c.Refresh(ctx)
		c.Select("nope")
		if got := c.State().SelectedID; got != "e00" {
			t.Fatalf("selected %q", got)
		}
	})

	t.Run("card view selection clears on refresh", func(t *testing.T) {
		cat := &pagedCatalog{rows: makeRows(5)}
		c := newTestCoordinator(cat, 10)
		c.Refresh(ctx)
		c.SetViewMode(ModeCard)
		c.Select("e02")
		if got := c.State().SelectedID; got != "e02" {
			t.Fatalf("selected %q", got)
		}
		c.Refresh(ctx)
		if got := c.State().SelectedID; got != "" {
			t.Fatalf("card selection survived refresh: %q", got)
		}
	})
}

func TestSetViewModeTouchesNothingElse(t *testing.T) {
	ctx := context.Background()
	cat := &pagedCatalog{rows: makeRows(25)}
	c := newTestCoordinator(cat, 10)
	c.Refresh(ctx)
	c.NextPage(ctx)
	before := c.State()
	calls := len(cat.calls)

	c.SetViewMode(ModeCard)
	after := c.State()
	if after.Mode != ModeCard {
		t.Fatalf("mode = %q", after.Mode)
	}
	if after.Offset != before.Offset || after.Total != before.Total || len(after.Rows) != len(before.Rows) {
		t.Fatal("view mode switch changed list state")
	}
	if after.SelectedID != before.SelectedID {
		t.Fatalf("view mode switch changed selection: %q -> %q", before.SelectedID, after.SelectedID)
	}
	if len(cat.calls) != calls {
		t.Fatal("view mode switch issued a query")
	}
}

func TestStaleRepliesDropped(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	cat := &pagedCatalog{rows: makeRows(5), block: release}
	c := newTestCoordinator(cat, 10)

	done := make(chan struct{})
	go func() {
		c.Refresh(ctx)
		close(done)
	}()

	// Wait until the slow query is in flight, then issue a newer one.
	for {
		cat.mu.Lock()
		n := len(cat.calls)
		cat.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	cat.mu.Lock()
	cat.block = nil
	cat.rows = []vault.Summary{{ID: "fresh", Title: "Fresh"}}
	cat.mu.Unlock()
	c.Refresh(ctx)

	close(release)
	<-done

	s := c.State()
	if len(s.Rows) != 1 || s.Rows[0].ID != "fresh" {
		t.Fatalf("stale reply overwrote newer state: %+v", s.Rows)
	}
}

func TestRefreshError(t *testing.T) {
	ctx := context.Background()
	var renders []State
	cat := &failingCatalog{}
	c := New(cat, 10, slog.New(slog.NewTextHandler(io.Discard, nil)), func(s State) { renders = append(renders, s) })
	c.Refresh(ctx)

	s := c.State()
	var terr *vault.TransportError
	if !errors.As(s.Err, &terr) {
		t.Fatalf("state error = %v", s.Err)
	}
	if len(renders) != 1 {
		t.Fatalf("renders = %d", len(renders))
	}
}

type failingCatalog struct{ pagedCatalog }

func (f *failingCatalog) ListEntries(context.Context, vault.ListQuery) (*vault.ListResult, error) {
	return nil, &vault.TransportError{Err: errors.New("connection refused")}
}
