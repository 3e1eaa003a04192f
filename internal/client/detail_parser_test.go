package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detailPage(config string) string {
	return `<html><head>
<script type="text/javascript">var unrelated = 1;</script>
<script type="text/javascript">
window.asos = window.asos || {};
window.asos.pdp.config.product = ` + config + `;
window.asos.pdp.config.other = {};
</script>
</head><body></body></html>`
}

func TestDetailParserPrimaryPath(t *testing.T) {
	html := detailPage(`{"gender":"Men","variants":[{"size":"M","colour":"Black"},{"size":"L","colour":"Black"},{"size":"M","colour":"White"},{"size":"S","colour":"White"}],"images":[{"url":"images.example/fallback.jpg"}],"facetGroup":{"facets":[{"products":[{"isInStock":true,"description":"Black","imageUrl":"images.example/black.jpg"},{"isInStock":false,"description":"Red","imageUrl":"images.example/red.jpg"},{"isInStock":true,"description":"White","imageUrl":"images.example/white.jpg"}]}]}}`)

	detail, err := newDetailParser().Parse(html)
	require.NoError(t, err)

	assert.Equal(t, "Men", detail.Gender)
	assert.Equal(t, []string{"M", "L", "S"}, detail.Sizes)
	assert.Equal(t, []string{"Black", "White"}, detail.Colors)
	assert.Equal(t, []string{"https://images.example/black.jpg", "https://images.example/white.jpg"}, detail.PhotoLinks)
}

func TestDetailParserFallbackWhenFacetsMalformed(t *testing.T) {
	cases := map[string]string{
		"missing facetGroup": `{"gender":"Women","variants":[{"size":"8","colour":"Navy"},{"size":"10","colour":"Navy"}],"images":[{"url":"https://images.example/navy.jpg"}]}`,
		"empty facets":       `{"gender":"Women","variants":[{"size":"8","colour":"Navy"}],"images":[{"url":"https://images.example/navy.jpg"}],"facetGroup":{"facets":[]}}`,
		"facets wrong type":  `{"gender":"Women","variants":[{"size":"8","colour":"Navy"}],"images":[{"url":"https://images.example/navy.jpg"}],"facetGroup":{"facets":"nope"}}`,
		"partial product":    `{"gender":"Women","variants":[{"size":"8","colour":"Navy"}],"images":[{"url":"https://images.example/navy.jpg"}],"facetGroup":{"facets":[{"products":[{"isInStock":true,"description":"Navy","imageUrl":"images.example/a.jpg"},{"isInStock":true}]}]}}`,
	}

	for name, config := range cases {
		t.Run(name, func(t *testing.T) {
			detail, err := newDetailParser().Parse(detailPage(config))
			require.NoError(t, err)

			assert.Equal(t, "Women", detail.Gender)
			assert.Equal(t, []string{"Navy"}, detail.Colors)
			assert.Equal(t, []string{"https://images.example/navy.jpg"}, detail.PhotoLinks)
		})
	}
}

func TestDetailParserMissingGenderDefaultsEmpty(t *testing.T) {
	detail, err := newDetailParser().Parse(detailPage(`{"variants":[{"size":"One Size","colour":"Beige"}],"images":[{"url":"u"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "", detail.Gender)
	assert.Equal(t, []string{"One Size"}, detail.Sizes)
}

func TestDetailParserFailures(t *testing.T) {
	t.Run("no script", func(t *testing.T) {
		_, err := newDetailParser().Parse("<html><body>gone</body></html>")
		assert.ErrorIs(t, err, ErrProductConfigNotFound)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := newDetailParser().Parse(detailPage(`{"gender": oops}`))
		assert.Error(t, err)
	})

	t.Run("no fallback source", func(t *testing.T) {
		_, err := newDetailParser().Parse(detailPage(`{"gender":"Men","variants":[]}`))
		assert.ErrorIs(t, err, ErrNoColorSource)
	})
}

func TestDetailParserToleratesOddFallbackFields(t *testing.T) {
	t.Run("facets win over malformed images", func(t *testing.T) {
		detail, err := newDetailParser().Parse(detailPage(`{"gender":"Men","variants":[{"size":"M","colour":"Black"}],"images":"not-a-list","facetGroup":{"facets":[{"products":[{"isInStock":true,"description":"Black","imageUrl":"images.example/black.jpg"}]}]}}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"Black"}, detail.Colors)
		assert.Equal(t, []string{"https://images.example/black.jpg"}, detail.PhotoLinks)
	})

	t.Run("non-string gender", func(t *testing.T) {
		detail, err := newDetailParser().Parse(detailPage(`{"gender":{"id":2},"variants":[{"size":"M","colour":"Black"}],"facetGroup":{"facets":[{"products":[{"isInStock":true,"description":"Black","imageUrl":"i/b.jpg"}]}]}}`))
		require.NoError(t, err)
		assert.Equal(t, "", detail.Gender)
		assert.Equal(t, []string{"M"}, detail.Sizes)
	})

	t.Run("malformed images without facets", func(t *testing.T) {
		_, err := newDetailParser().Parse(detailPage(`{"gender":"Men","variants":[{"size":"M","colour":"Black"}],"images":{"url":"x"}}`))
		assert.ErrorIs(t, err, ErrNoColorSource)
	})
}

func TestUniqueSizesKeepsFirstOccurrence(t *testing.T) {
	variants := []productVariant{{Size: "M"}, {Size: "L"}, {Size: "M"}, {Size: "S"}}
	assert.Equal(t, []string{"M", "L", "S"}, uniqueSizes(variants))
}
