// Package catalog discovers every listing page of a paginated catalog
// whose page count is not published.
//
// The catalog site serves page 1 again once a request goes past the last
// real page, so the walk stops at the first page whose leading title equals
// page 1's leading title.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"fitfinder/ingest/internal/domain"

	log "github.com/sirupsen/logrus"
)

var ErrEmptyFirstPage = errors.New("first listing page has no entries")

type PageFetcher interface {
	GetListingPage(ctx context.Context, baseURL string, pageNumber int) (*domain.ListingPage, error)
}

type StopReason int

const (
	StopNone StopReason = iota
	StopWrapped
	StopEmptyPage
	StopPageLimit
	StopError
)

func (r StopReason) String() string {
	switch r {
	case StopWrapped:
		return "wrapped"
	case StopEmptyPage:
		return "empty_page"
	case StopPageLimit:
		return "page_limit"
	case StopError:
		return "error"
	default:
		return "running"
	}
}

// PageIterator lazily yields pages 1..N-1, where N is the wrapped page,
// never more than maxPages of them.
type PageIterator struct {
	fetcher  PageFetcher
	baseURL  string
	maxPages int

	next   int
	first  *domain.ListingPage
	page   *domain.ListingPage
	reason StopReason
	err    error
}

// Next fetches the next page. It returns false once the walk has stopped;
// Err and Reason then explain why.
func (it *PageIterator) Next(ctx context.Context) bool {
	if it.reason != StopNone {
		return false
	}
	it.page = nil

	if it.next > it.maxPages {
		it.reason = StopPageLimit
		log.Warnf("⚠️ Stopped walking %s at page ceiling %d without detecting wrap", it.baseURL, it.maxPages)
		return false
	}

	page, err := it.fetcher.GetListingPage(ctx, it.baseURL, it.next)
	if err != nil {
		it.reason = StopError
		it.err = fmt.Errorf("listing page %d: %w", it.next, err)
		return false
	}

	if it.next == 1 {
		if len(page.Entries) == 0 {
			it.reason = StopError
			it.err = ErrEmptyFirstPage
			return false
		}
		it.first = page
	} else {
		if len(page.Entries) == 0 {
			it.reason = StopEmptyPage
			log.Infof("📄 Page %d is empty, catalog is %d pages long", it.next, it.next-1)
			return false
		}
		if page.FirstTitle() == it.first.FirstTitle() {
			it.reason = StopWrapped
			log.Infof("🔁 Page %d repeats page 1, catalog is %d pages long", it.next, it.next-1)
			return false
		}
	}

	it.page = page
	it.next++
	return true
}

func (it *PageIterator) Page() *domain.ListingPage {
	return it.page
}

func (it *PageIterator) Err() error {
	return it.err
}

func (it *PageIterator) Reason() StopReason {
	return it.reason
}

type Walker struct {
	fetcher  PageFetcher
	maxPages int
}

func NewWalker(fetcher PageFetcher, maxPages int) *Walker {
	return &Walker{
		fetcher:  fetcher,
		maxPages: maxPages,
	}
}

func (w *Walker) Pages(baseURL string) *PageIterator {
	return &PageIterator{
		fetcher:  w.fetcher,
		baseURL:  baseURL,
		maxPages: w.maxPages,
		next:     1,
	}
}

// Walk collects every page of the catalog at baseURL in page order.
func (w *Walker) Walk(ctx context.Context, baseURL string) (*domain.CatalogResults, error) {
	results := &domain.CatalogResults{
		SourceURL: baseURL,
		Pages:     make([]*domain.ListingPage, 0),
	}

	it := w.Pages(baseURL)
	for it.Next(ctx) {
		log.Debugf("Scraped page %d", it.Page().PageNumber)
		results.Pages = append(results.Pages, it.Page())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	results.Wrapped = it.Reason() != StopPageLimit
	return results, nil
}
