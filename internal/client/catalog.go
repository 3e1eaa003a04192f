package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fitfinder/ingest/internal/config"
	"fitfinder/ingest/internal/domain"
	"fitfinder/ingest/internal/metrics"
	"fitfinder/ingest/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

type CatalogClient interface {
	GetListingPage(ctx context.Context, baseURL string, pageNumber int) (*domain.ListingPage, error)
	GetItemDetail(ctx context.Context, detailLink string) (*domain.ItemDetail, error)
}

type catalogClient struct {
	rl            ratelimit.Limiter
	timeout       time.Duration
	httpClient    *resty.Client
	listing       *listingParser
	detail        *detailParser
	proxySupplier proxy.ProxySupplier
}

func NewCatalogClient(cfg config.CatalogConfig, proxySupplier proxy.ProxySupplier) CatalogClient {
	client := resty.New().
		SetTimeout(cfg.RequestTimeout()).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.5").
		SetTLSClientConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})

	if proxySupplier != nil {
		if proxyURL := proxySupplier.Get(); proxyURL != "" {
			client.SetProxy(proxyURL)
			log.Infof("🔗 Using initial proxy: %s", proxyURL)
		}
	}

	return &catalogClient{
		rl:            ratelimit.New(cfg.MaxRequestsPerSecond),
		timeout:       cfg.RequestTimeout(),
		httpClient:    client,
		listing:       newListingParser(cfg.TitleSelector, cfg.PriceSelector, cfg.LinkSelector),
		detail:        newDetailParser(),
		proxySupplier: proxySupplier,
	}
}

// GetListingPage fetches one listing page. Any non-200 response is a
// *FetchError; the caller decides whether that is fatal.
func (c *catalogClient) GetListingPage(ctx context.Context, baseURL string, pageNumber int) (*domain.ListingPage, error) {
	html, err := c.fetchHTML(ctx, baseURL, map[string]string{"page": strconv.Itoa(pageNumber)})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing page %d: %w", pageNumber, err)
	}
	metrics.ListingPagesFetched.Inc()

	page, err := c.listing.Parse(html, baseURL, pageNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page %d: %w", pageNumber, err)
	}

	log.Debugf("Fetched listing page %d with %d entries", pageNumber, len(page.Entries))
	return page, nil
}

func (c *catalogClient) GetItemDetail(ctx context.Context, detailLink string) (*domain.ItemDetail, error) {
	if detailLink == "" {
		return nil, fmt.Errorf("empty detail link")
	}

	html, err := c.fetchHTML(ctx, detailLink, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch detail page %s: %w", detailLink, err)
	}
	metrics.DetailPagesFetched.Inc()

	detail, err := c.detail.Parse(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail page %s: %w", detailLink, err)
	}

	return detail, nil
}

func (c *catalogClient) fetchHTML(ctx context.Context, url string, query map[string]string) (string, error) {
	c.rl.Take()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.get(reqCtx, url, query)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}

	if isBlocked(resp.StatusCode()) && c.proxySupplier != nil {
		if newProxy := c.proxySupplier.Get(); newProxy != "" {
			log.Warnf("🚫 Blocked with status %d on %s, switching to proxy %s", resp.StatusCode(), url, newProxy)
			c.httpClient.SetProxy(newProxy)

			retryResp, retryErr := c.get(reqCtx, url, query)
			if retryErr == nil {
				resp = retryResp
			}
		}
	}

	if resp.StatusCode() != http.StatusOK {
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode()}
	}

	return resp.String(), nil
}

func (c *catalogClient) get(ctx context.Context, url string, query map[string]string) (*resty.Response, error) {
	req := c.httpClient.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	return req.Get(url)
}

func isBlocked(status int) bool {
	return status == http.StatusForbidden || status == http.StatusTooManyRequests
}
