package proxy

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"
)

// ProxySupplier hands out proxies in round-robin order
type ProxySupplier interface {
	Get() string
}

type proxySupplier struct {
	proxies []string
	current int
	mutex   sync.Mutex
}

// NewProxySupplier probes every configured proxy against probeURL and keeps
// the ones that answer. An empty list yields a supplier that returns "".
func NewProxySupplier(ctx context.Context, proxies []string, probeURL string) (ProxySupplier, error) {
	if len(proxies) == 0 || probeURL == "" {
		return &proxySupplier{proxies: append([]string(nil), proxies...)}, nil
	}

	log.Infof("🔄 Probing %d proxies...", len(proxies))

	healthy := make([]bool, len(proxies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)
	for i, proxyURL := range proxies {
		g.Go(func() error {
			healthy[i] = probe(gctx, proxyURL, probeURL)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	working := make([]string, 0, len(proxies))
	for i, ok := range healthy {
		if ok {
			working = append(working, proxies[i])
		} else {
			log.Warnf("❌ Proxy %s is not working, skipping", proxies[i])
		}
	}

	log.Infof("✅ Proxy supplier ready with %d of %d proxies", len(working), len(proxies))
	return &proxySupplier{proxies: working}, nil
}

// Get returns the next proxy URL in round-robin fashion
func (p *proxySupplier) Get() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	proxy := p.proxies[p.current]
	p.current = (p.current + 1) % len(p.proxies)

	return proxy
}

func probe(ctx context.Context, proxyURL, probeURL string) bool {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(0).
		SetProxy(proxyURL)
	defer client.Close()

	resp, err := client.R().
		SetContext(ctx).
		Head(probeURL)
	if err != nil {
		log.Debugf("Proxy probe failed for %s: %v", proxyURL, err)
		return false
	}

	return !resp.IsError()
}
