// Package pagination drains paged backend listings.
package pagination

import (
	"context"
	"fmt"
	"sync"

	"github.com/sindit-io/kgsync/pkg/apperrors"
	"github.com/sindit-io/kgsync/pkg/retry"
)

// DefaultPageSize is used by Controller when no page size is given.
const DefaultPageSize = 20

// PageFunc fetches one page of at most limit items starting at skip.
type PageFunc[T any] func(ctx context.Context, depth, skip, limit int) ([]T, error)

// FetchAllPages calls fetch with an advancing skip until a page comes back
// empty or shorter than pageSize, and returns every item in server order.
// Any page error fails the whole call; no partial result is returned.
func FetchAllPages[T any](ctx context.Context, fetch PageFunc[T], depth, pageSize int) ([]T, error) {
	if pageSize < 1 {
		return nil, apperrors.NewValidationError("page_size", "must be at least 1, got %d", pageSize)
	}

	var all []T
	skip := 0
	for {
		items, err := fetch(ctx, depth, skip, pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch page at skip=%d: %w", skip, err)
		}
		if len(items) == 0 {
			break
		}

		all = append(all, items...)
		skip += len(items)

		if len(items) < pageSize {
			break
		}
	}

	if all == nil {
		all = []T{}
	}
	return all, nil
}

// WithRetry wraps fetch so transient page failures are retried with backoff.
// Authentication failures are returned immediately.
func WithRetry[T any](fetch PageFunc[T], cfg *retry.Config) PageFunc[T] {
	return func(ctx context.Context, depth, skip, limit int) ([]T, error) {
		return retry.DoIfRetryableWithResult(ctx, cfg, func() ([]T, error) {
			return fetch(ctx, depth, skip, limit)
		})
	}
}

// State is a snapshot of a Controller.
type State struct {
	CurrentPage int  `json:"currentPage" yaml:"current_page"`
	PageSize    int  `json:"pageSize" yaml:"page_size"`
	TotalItems  int  `json:"totalItems" yaml:"total_items"`
	HasMore     bool `json:"hasMore" yaml:"has_more"`
	IsLoading   bool `json:"isLoading" yaml:"is_loading"`
}

// Controller loads a paged listing incrementally, one page per call.
type Controller[T any] struct {
	fetch    PageFunc[T]
	pageSize int
	depth    int

	mu          sync.Mutex
	items       []T
	currentPage int
	hasMore     bool
	loading     bool
}

// NewController creates a controller. A pageSize below 1 uses DefaultPageSize.
func NewController[T any](fetch PageFunc[T], pageSize, depth int) *Controller[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Controller[T]{
		fetch:    fetch,
		pageSize: pageSize,
		depth:    depth,
		hasMore:  true,
	}
}

// LoadNextPage fetches the next page and returns its items. It returns an
// empty page when the listing is exhausted or another load is in flight.
func (c *Controller[T]) LoadNextPage(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	if c.loading || !c.hasMore {
		c.mu.Unlock()
		return []T{}, nil
	}
	c.loading = true
	skip := c.currentPage * c.pageSize
	c.mu.Unlock()

	items, err := c.fetch(ctx, c.depth, skip, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		return nil, err
	}
	if len(items) < c.pageSize {
		c.hasMore = false
	}
	c.items = append(c.items, items...)
	c.currentPage++
	return items, nil
}

// LoadAll loads every remaining page and returns all loaded items.
func (c *Controller[T]) LoadAll(ctx context.Context) ([]T, error) {
	for {
		c.mu.Lock()
		done := !c.hasMore || c.loading
		c.mu.Unlock()
		if done {
			break
		}
		if _, err := c.LoadNextPage(ctx); err != nil {
			return nil, err
		}
	}
	return c.Items(), nil
}

// Reset drops loaded items and starts over from the first page.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.currentPage = 0
	c.hasMore = true
	c.loading = false
}

// Items returns a copy of the loaded items.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T{}, c.items...)
}

func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		CurrentPage: c.currentPage,
		PageSize:    c.pageSize,
		TotalItems:  len(c.items),
		HasMore:     c.hasMore,
		IsLoading:   c.loading,
	}
}
