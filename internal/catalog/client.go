package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/server/endpoints"
	"github.com/promptvault/promptvault/internal/vault"
)

// Client implements Catalog over the promptvault HTTP API.
type Client struct {
	http *api.Client
}

// NewClient creates a catalog client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{http: api.NewClient(baseURL)}
}

var _ Catalog = (*Client)(nil)

// WaitReady polls /health until the server answers or attempts run out.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	deadline, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return retry.Do(
		func() error {
			var resp endpoints.HealthResponse
			return c.http.Get(deadline, "/health", &resp)
		},
		retry.Context(deadline),
		retry.Attempts(0), // bounded by the deadline
		retry.Delay(100*time.Millisecond),
		retry.MaxDelay(time.Second),
	)
}

func (c *Client) ListEntries(ctx context.Context, q vault.ListQuery) (*vault.ListResult, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	for _, tag := range q.Tags {
		params.Add("tag", tag)
	}
	if q.Model != "" {
		params.Set("model", q.Model)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.FavoriteOnly {
		params.Set("favorite_only", "true")
	}
	if q.HasThumbnail {
		params.Set("has_thumbnail", "true")
	}

	path := "/api/entries"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var result vault.ListResult
	if err := c.http.Get(ctx, path, &result); err != nil {
		return nil, domainError(err)
	}
	return &result, nil
}

func (c *Client) GetEntry(ctx context.Context, id string) (*vault.Entry, error) {
	var entry vault.Entry
	if err := c.http.Get(ctx, "/api/entries/"+url.PathEscape(id), &entry); err != nil {
		return nil, domainError(err)
	}
	return &entry, nil
}

func (c *Client) CreateEntry(ctx context.Context, draft vault.Draft) (*vault.Entry, error) {
	if err := vault.ValidateDraft(&draft); err != nil {
		return nil, err
	}
	var entry vault.Entry
	if err := c.http.Post(ctx, "/api/entries", draft, &entry); err != nil {
		return nil, domainError(err)
	}
	return &entry, nil
}

func (c *Client) UpdateEntry(ctx context.Context, id string, patch vault.Patch, expectedVersion int, expectedUpdatedAt string) (*vault.Entry, error) {
	if err := vault.ValidatePatch(&patch); err != nil {
		return nil, err
	}
	req := endpoints.UpdateEntryRequest{
		Patch:             patch,
		ExpectedVersion:   expectedVersion,
		ExpectedUpdatedAt: expectedUpdatedAt,
	}
	var entry vault.Entry
	if err := c.http.Put(ctx, "/api/entries/"+url.PathEscape(id), req, &entry); err != nil {
		return nil, domainError(err)
	}
	return &entry, nil
}

func (c *Client) DeleteEntry(ctx context.Context, id string) (*vault.Entry, error) {
	var entry vault.Entry
	if err := c.http.Delete(ctx, "/api/entries/"+url.PathEscape(id), &entry); err != nil {
		return nil, domainError(err)
	}
	return &entry, nil
}

func (c *Client) PurgeDeleted(ctx context.Context) (int, error) {
	var resp endpoints.PurgeResponse
	if err := c.http.Post(ctx, "/api/entries/purge", nil, &resp); err != nil {
		return 0, domainError(err)
	}
	return resp.Purged, nil
}

func (c *Client) Assemble(ctx context.Context, entryID string, overrides map[string]string) (*vault.Assembled, error) {
	req := endpoints.AssembleRequest{EntryID: entryID, Overrides: overrides}
	var out vault.Assembled
	if err := c.http.Post(ctx, "/api/assemble", req, &out); err != nil {
		return nil, domainError(err)
	}
	return &out, nil
}

// domainError rebuilds the error taxonomy from HTTP status codes. Anything
// that is not a recognized status, including connection failures, becomes
// a TransportError.
func domainError(err error) error {
	var serr *api.StatusError
	if !errors.As(err, &serr) {
		return &vault.TransportError{Err: err}
	}
	switch serr.StatusCode {
	case http.StatusNotFound:
		return vault.ErrNotFound
	case http.StatusConflict:
		return vault.ErrConflict
	case http.StatusBadRequest:
		return &vault.ValidationError{Msg: serr.Message}
	default:
		return &vault.TransportError{Status: serr.StatusCode, Err: serr}
	}
}
