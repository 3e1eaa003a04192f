package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Skip reasons for ItemsSkipped.
const (
	SkipNoDetail  = "no_detail"
	SkipDuplicate = "duplicate"
	SkipConflict  = "conflict"
)

var (
	ListingPagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_listing_pages_fetched_total",
		Help: "Total number of catalog listing pages fetched",
	})
	DetailPagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_detail_pages_fetched_total",
		Help: "Total number of item detail pages fetched",
	})
	ItemsInserted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_items_inserted_total",
		Help: "Total number of items persisted",
	})
	ItemsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_items_skipped_total",
		Help: "Listing entries processed without persisting an item",
	}, []string{"reason"})
	TaskRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_task_runs_total",
		Help: "Ingestion runs by final task status",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(ListingPagesFetched, DetailPagesFetched, ItemsInserted, ItemsSkipped, TaskRuns)
}

// Serve exposes /metrics on port until ctx is cancelled.
func Serve(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("📈 Metrics listening on %s/metrics", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
