package client

import (
	"fmt"
	"net/url"
	"strings"

	"fitfinder/ingest/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

type listingParser struct {
	titleSelector string
	priceSelector string
	linkSelector  string
}

func newListingParser(titleSelector, priceSelector, linkSelector string) *listingParser {
	return &listingParser{
		titleSelector: titleSelector,
		priceSelector: priceSelector,
		linkSelector:  linkSelector,
	}
}

// Parse extracts listing entries. Titles drive the entry count; prices and
// links that run short default to "".
func (p *listingParser) Parse(html, pageURL string, pageNumber int) (*domain.ListingPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	titles := texts(doc.Find(p.titleSelector))
	prices := texts(doc.Find(p.priceSelector))

	var links []string
	doc.Find(p.linkSelector).Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		links = append(links, resolveLink(pageURL, strings.TrimSpace(href)))
	})

	if len(prices) != len(titles) || len(links) != len(titles) {
		log.Debugf("Listing page %d has %d titles, %d prices, %d links", pageNumber, len(titles), len(prices), len(links))
	}

	page := &domain.ListingPage{
		PageNumber: pageNumber,
		Entries:    make([]domain.ListingEntry, 0, len(titles)),
	}
	for i, title := range titles {
		page.Entries = append(page.Entries, domain.ListingEntry{
			Title:      title,
			Price:      at(prices, i),
			DetailLink: at(links, i),
		})
	}

	return page, nil
}

func texts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(i int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func resolveLink(pageURL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
