package scans

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/five82/xrayview/internal/state"
	"github.com/five82/xrayview/internal/xray"
)

// ErrSuperseded is returned when a newer request was issued (or the client
// was closed) before this one completed. Its result was discarded.
var ErrSuperseded = errors.New("request superseded")

// Fetcher retrieves scan lists. *xray.Client implements it.
type Fetcher interface {
	ListScans(ctx context.Context, q xray.ScanQuery) ([]xray.Scan, error)
}

var _ Fetcher = (*xray.Client)(nil)

// Client owns the filter state of the list screen and keeps the store in
// step with the most recently issued request.
type Client struct {
	fetcher Fetcher
	store   *state.Store
	log     zerolog.Logger

	mu      sync.Mutex
	filters FilterState
	options FilterOptions
	seq     uint64
	cancel  context.CancelFunc
	closed  bool
}

// NewClient builds a Client. A nil store gets a fresh one.
func NewClient(fetcher Fetcher, store *state.Store, log zerolog.Logger) *Client {
	if store == nil {
		store = &state.Store{}
	}
	return &Client{fetcher: fetcher, store: store, log: log}
}

// LoadAll fetches the unfiltered collection, resets the filters and derives
// the filter options from the result.
func (c *Client) LoadAll(ctx context.Context) ([]xray.Scan, error) {
	return c.run(ctx, FilterState{})
}

// ApplyFilters records filters and fetches the matching scans. A filtered
// result leaves the options untouched so the pickers keep offering every
// value; an empty filter state is a full load and re-derives them.
func (c *Client) ApplyFilters(ctx context.Context, filters FilterState) ([]xray.Scan, error) {
	return c.run(ctx, filters)
}

// Clear unsets every filter and refetches. It behaves exactly like LoadAll.
func (c *Client) Clear(ctx context.Context) ([]xray.Scan, error) {
	return c.LoadAll(ctx)
}

// Filters returns the most recently requested filter state.
func (c *Client) Filters() FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Options returns the options derived by the last successful unfiltered fetch.
func (c *Client) Options() FilterOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.options.clone()
}

// Snapshot returns the current list state.
func (c *Client) Snapshot() state.Snapshot {
	return c.store.Snapshot()
}

// Close cancels any in-flight request. Responses arriving afterwards are
// dropped and every later call returns ErrSuperseded.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Client) run(ctx context.Context, filters FilterState) ([]xray.Scan, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	c.seq++
	seq := c.seq
	if c.cancel != nil {
		c.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.filters = filters
	c.mu.Unlock()

	scans, err := c.fetcher.ListScans(reqCtx, filters.Query())

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		cancel()
		c.log.Debug().Uint64("seq", seq).Uint64("latest", c.seq).Msg("discarding superseded scan list")
		return nil, ErrSuperseded
	}
	cancel()
	c.cancel = nil

	c.store.Update(scans, err)
	if err != nil {
		c.log.Warn().Err(err).Str("search", filters.Search).Msg("scan list fetch failed")
		return nil, err
	}
	if filters.IsEmpty() {
		c.options = DeriveOptions(scans)
	}
	c.log.Debug().Int("count", len(scans)).Bool("filtered", !filters.IsEmpty()).Msg("scan list updated")
	return scans, nil
}
