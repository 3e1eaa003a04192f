package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body>
<article>
  <a class="productLink_KM4PI" href="https://shop.example/prd/1">
    <h2 class="productDescription_sryaw"> Oversized Tee </h2>
  </a>
  <p class="container_s8SSI">£12.00</p>
</article>
<article>
  <a class="productLink_KM4PI" href="/prd/2">
    <h2 class="productDescription_sryaw">Straight Jeans</h2>
  </a>
  <p class="container_s8SSI">£30.00</p>
</article>
<article>
  <h2 class="productDescription_sryaw">Canvas Sneakers</h2>
</article>
</body></html>`

func newTestListingParser() *listingParser {
	return newListingParser("h2.productDescription_sryaw", "p.container_s8SSI", "a.productLink_KM4PI")
}

func TestListingParserExtractsAlignedEntries(t *testing.T) {
	page, err := newTestListingParser().Parse(listingHTML, "https://shop.example/men/cat?cid=1", 3)
	require.NoError(t, err)

	assert.Equal(t, 3, page.PageNumber)
	require.Len(t, page.Entries, 3)

	assert.Equal(t, "Oversized Tee", page.Entries[0].Title)
	assert.Equal(t, "£12.00", page.Entries[0].Price)
	assert.Equal(t, "https://shop.example/prd/1", page.Entries[0].DetailLink)

	assert.Equal(t, "https://shop.example/prd/2", page.Entries[1].DetailLink)
}

func TestListingParserDefaultsShortColumns(t *testing.T) {
	page, err := newTestListingParser().Parse(listingHTML, "https://shop.example/men/cat", 1)
	require.NoError(t, err)

	last := page.Entries[2]
	assert.Equal(t, "Canvas Sneakers", last.Title)
	assert.Equal(t, "", last.Price)
	assert.Equal(t, "", last.DetailLink)
}

func TestListingParserEmptyPage(t *testing.T) {
	page, err := newTestListingParser().Parse("<html><body><p>nothing here</p></body></html>", "https://shop.example", 1)
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.Equal(t, "", page.FirstTitle())
}
