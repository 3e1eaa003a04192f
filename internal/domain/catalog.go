package domain

// ListingEntry is one product summary scraped from a catalog listing page.
type ListingEntry struct {
	Title      string `json:"title"`
	Price      string `json:"price"`
	DetailLink string `json:"detail_link"`
}

type ListingPage struct {
	PageNumber int            `json:"page_number"`
	Entries    []ListingEntry `json:"entries"`
}

// FirstTitle returns the title of the first entry, or "" for an empty page.
func (p *ListingPage) FirstTitle() string {
	if p == nil || len(p.Entries) == 0 {
		return ""
	}
	return p.Entries[0].Title
}

type CatalogResults struct {
	SourceURL string         `json:"source_url"`
	Pages     []*ListingPage `json:"pages"`
	Wrapped   bool           `json:"wrapped"` // false when the walk stopped on the page ceiling
}

// Entries concatenates all pages in page order.
func (r *CatalogResults) Entries() []ListingEntry {
	var entries []ListingEntry
	for _, page := range r.Pages {
		entries = append(entries, page.Entries...)
	}
	return entries
}
