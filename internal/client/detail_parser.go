package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"fitfinder/ingest/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

const productConfigMarker = "window.asos.pdp.config.product"

var productConfigRegex = regexp.MustCompile(`window\.asos\.pdp\.config\.product\s*=\s*(\{.*\});`)

// productConfig decodes only what every path needs. Fields read by a
// single path stay raw so a bad shape there does not sink the others.
type productConfig struct {
	Gender     json.RawMessage  `json:"gender"`
	Variants   []productVariant `json:"variants"`
	Images     json.RawMessage  `json:"images"`
	FacetGroup json.RawMessage  `json:"facetGroup"`
}

type productVariant struct {
	Size   string `json:"size"`
	Colour string `json:"colour"`
}

type productImage struct {
	URL string `json:"url"`
}

type facetGroup struct {
	Facets []facet `json:"facets"`
}

type facet struct {
	Products *[]facetProduct `json:"products"`
}

type facetProduct struct {
	IsInStock   *bool   `json:"isInStock"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
}

type colorSource int

const (
	colorSourceFacets colorSource = iota
	colorSourceFirstVariant
)

func (s colorSource) String() string {
	if s == colorSourceFacets {
		return "facets"
	}
	return "first_variant"
}

// colorSet is the output of one color extraction path. colors and
// photoLinks are appended together so they stay index-aligned.
type colorSet struct {
	source     colorSource
	colors     []string
	photoLinks []string
}

func (c *colorSet) add(color, photo string) {
	c.colors = append(c.colors, color)
	c.photoLinks = append(c.photoLinks, photo)
}

type detailParser struct{}

func newDetailParser() *detailParser {
	return &detailParser{}
}

func (p *detailParser) Parse(html string) (*domain.ItemDetail, error) {
	raw, err := p.extractProductConfig(html)
	if err != nil {
		return nil, err
	}

	var cfg productConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode product config: %w", err)
	}

	colors, err := primaryColors(cfg.FacetGroup)
	if err != nil {
		log.Debugf("Facet colors unavailable, falling back to first variant: %v", err)
		colors, err = fallbackColors(cfg)
		if err != nil {
			return nil, err
		}
	}
	log.Debugf("Extracted %d colors via %s", len(colors.colors), colors.source)

	return &domain.ItemDetail{
		Gender:     decodeGender(cfg.Gender),
		Sizes:      uniqueSizes(cfg.Variants),
		Colors:     colors.colors,
		PhotoLinks: colors.photoLinks,
	}, nil
}

func (p *detailParser) extractProductConfig(html string) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var script string
	doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, productConfigMarker) {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		return nil, ErrProductConfigNotFound
	}

	matches := productConfigRegex.FindStringSubmatch(script)
	if len(matches) < 2 {
		return nil, ErrProductConfigNotFound
	}

	return []byte(matches[1]), nil
}

// uniqueSizes keeps the first occurrence of each size.
func uniqueSizes(variants []productVariant) []string {
	seen := make(map[string]struct{}, len(variants))
	sizes := make([]string, 0, len(variants))
	for _, v := range variants {
		if _, ok := seen[v.Size]; ok {
			continue
		}
		seen[v.Size] = struct{}{}
		sizes = append(sizes, v.Size)
	}
	return sizes
}

// primaryColors reads in-stock products from the first facet. Any
// structural problem discards the whole result.
func primaryColors(raw json.RawMessage) (colorSet, error) {
	set := colorSet{source: colorSourceFacets}
	if len(raw) == 0 || string(raw) == "null" {
		return set, errors.New("facetGroup missing")
	}

	var group facetGroup
	if err := json.Unmarshal(raw, &group); err != nil {
		return set, fmt.Errorf("facetGroup malformed: %w", err)
	}
	if len(group.Facets) == 0 {
		return set, errors.New("facetGroup has no facets")
	}
	if group.Facets[0].Products == nil {
		return set, errors.New("first facet has no products")
	}

	for i, product := range *group.Facets[0].Products {
		if product.IsInStock == nil {
			return colorSet{source: colorSourceFacets}, fmt.Errorf("product %d missing isInStock", i)
		}
		if !*product.IsInStock {
			continue
		}
		if product.Description == nil || product.ImageURL == nil {
			return colorSet{source: colorSourceFacets}, fmt.Errorf("product %d missing description or imageUrl", i)
		}
		set.add(*product.Description, "https://"+*product.ImageURL)
	}

	return set, nil
}

// fallbackColors takes the first variant's colour and the first image.
func fallbackColors(cfg productConfig) (colorSet, error) {
	set := colorSet{source: colorSourceFirstVariant}
	if len(cfg.Variants) == 0 || len(cfg.Images) == 0 {
		return set, ErrNoColorSource
	}

	var images []productImage
	if err := json.Unmarshal(cfg.Images, &images); err != nil {
		return set, fmt.Errorf("%w: images malformed: %v", ErrNoColorSource, err)
	}
	if len(images) == 0 {
		return set, ErrNoColorSource
	}

	set.add(cfg.Variants[0].Colour, images[0].URL)
	return set, nil
}

// decodeGender returns the gender string, or "" when it is absent or not
// a string.
func decodeGender(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var gender string
	if err := json.Unmarshal(raw, &gender); err != nil {
		log.Debugf("Ignoring non-string gender %s", raw)
		return ""
	}
	return gender
}
