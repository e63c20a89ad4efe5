package resolver

import (
	"strconv"
	"strings"
)

// Binding modes.
const (
	ModeAuto   = "auto"
	ModeLocked = "locked"
)

// Widget names used by the binding accessors.
const (
	WidgetMode    = "mode"
	WidgetEntryID = "entry_id"
	WidgetQuery   = "query"
	WidgetTitle   = "title"
	WidgetTags    = "tags"
	WidgetModel   = "model"
	WidgetTopK    = "top_k"
)

// Binding is a snapshot of a graph node's query binding: either a hard
// reference to one entry (locked) or soft search criteria (auto).
type Binding struct {
	Mode    string
	EntryID string
	Query   string
	Title   string
	Tags    string
	Model   string
	TopK    int
}

// Widgets is the capability interface over a host graph node's named
// widgets. The resolver only reads and writes through it, never touching
// the host node type.
type Widgets interface {
	Get(name string) (string, bool)
	Set(name, value string)
}

// MapWidgets adapts a plain map to the Widgets interface, mostly for
// tests and embedding hosts without a widget runtime.
type MapWidgets map[string]string

func (m MapWidgets) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func (m MapWidgets) Set(name, value string) {
	m[name] = value
}

// ReadBinding snapshots a binding from widget state. Missing widgets read
// as zero values; mode defaults to auto.
func ReadBinding(w Widgets) Binding {
	b := Binding{Mode: ModeAuto}
	if v, ok := w.Get(WidgetMode); ok && v != "" {
		b.Mode = v
	}
	if v, ok := w.Get(WidgetEntryID); ok {
		b.EntryID = strings.TrimSpace(v)
	}
	if v, ok := w.Get(WidgetQuery); ok {
		b.Query = strings.TrimSpace(v)
	}
	if v, ok := w.Get(WidgetTitle); ok {
		b.Title = strings.TrimSpace(v)
	}
	if v, ok := w.Get(WidgetTags); ok {
		b.Tags = v
	}
	if v, ok := w.Get(WidgetModel); ok {
		b.Model = strings.TrimSpace(v)
	}
	if v, ok := w.Get(WidgetTopK); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			b.TopK = n
		}
	}
	return b
}

// CommitLock writes a resolved entry id back into the binding as a hard
// lock. Set triggers the host node's own change notification.
func CommitLock(w Widgets, entryID string) {
	w.Set(WidgetEntryID, entryID)
	w.Set(WidgetMode, ModeLocked)
}

// tagList splits the binding's comma-separated tag string.
func (b Binding) tagList() []string {
	var out []string
	for _, tag := range strings.Split(b.Tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// combinedQuery concatenates title and query, title first, when title is
// present; otherwise it is the query alone.
func (b Binding) combinedQuery() string {
	title := strings.TrimSpace(b.Title)
	query := strings.TrimSpace(b.Query)
	if title == "" {
		return query
	}
	if query == "" {
		return title
	}
	return title + " " + query
}
