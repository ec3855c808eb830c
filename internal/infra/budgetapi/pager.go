package budgetapi

import (
	"context"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
)

const (
	// DefaultPageSize is the row count requested per page.
	DefaultPageSize = 100
	// DefaultMaxPages bounds a listing against a server that never reports its last page.
	DefaultMaxPages = 50
)

// PageFunc fetches one page (1-based) and returns its decoded payload.
type PageFunc func(ctx context.Context, page, limit int) (any, error)

// Pager walks a paginated listing sequentially.
type Pager struct {
	PageSize int
	MaxPages int
	// OnPage, if set, is called after every successfully fetched page.
	OnPage func(page int)
}

// NewPager returns a pager with the default page size and cap.
func NewPager() Pager {
	return Pager{PageSize: DefaultPageSize, MaxPages: DefaultMaxPages}
}

func (p Pager) limits() (int, int) {
	size, maxPages := p.PageSize, p.MaxPages
	if size <= 0 {
		size = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return size, maxPages
}

// FetchAll requests pages 1, 2, ... and concatenates their records. It stops
// when the pagination metadata reports the last page, when a page holds fewer
// rows than the page size, or after MaxPages pages. Pages are not retried: the
// first failure is returned as *domain.ErrFetchFailed with no partial result.
func (p Pager) FetchAll(ctx context.Context, resource string, fetch PageFunc) ([]record, error) {
	size, maxPages := p.limits()

	var all []record
	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, &domain.ErrFetchFailed{Resource: resource, Page: page, Err: err}
		}

		payload, err := fetch(ctx, page, size)
		if err != nil {
			return nil, &domain.ErrFetchFailed{Resource: resource, Page: page, Err: err}
		}
		if p.OnPage != nil {
			p.OnPage(page)
		}

		all = append(all, ExtractList(payload)...)

		if meta, ok := parsePageMeta(payload); ok && meta.lastPage(page, size) {
			break
		}
		if rawLen(payload) < size {
			break
		}
	}
	if all == nil {
		all = []record{}
	}
	return all, nil
}
