package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fitfinder/ingest/internal/domain"
	"fitfinder/ingest/internal/domain/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWalker struct {
	results *domain.CatalogResults
	err     error
}

func (w *fakeWalker) Walk(context.Context, string) (*domain.CatalogResults, error) {
	return w.results, w.err
}

type fakeDetails struct {
	missing map[string]bool
	detail  domain.ItemDetail
}

func (f *fakeDetails) GetItemDetail(_ context.Context, link string) (*domain.ItemDetail, error) {
	if f.missing[link] {
		return nil, errors.New("product config script not found")
	}
	d := f.detail
	return &d, nil
}

type fakeStore struct {
	byName    map[string]int64
	sizes     map[int64][]domain.Size
	colors    map[int64][]domain.Color
	nextID    int64
	conflicts map[string]bool
	failOnce  map[string]error
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byName:    map[string]int64{},
		sizes:     map[int64][]domain.Size{},
		colors:    map[int64][]domain.Color{},
		conflicts: map[string]bool{},
		failOnce:  map[string]error{},
	}
}

func (s *fakeStore) ItemExists(_ context.Context, name string) (bool, error) {
	_, ok := s.byName[name]
	return ok, nil
}

func (s *fakeStore) InsertItem(_ context.Context, item domain.Item, variants domain.ItemVariants) (domain.InsertOutcome, error) {
	if s.insertErr != nil {
		return domain.InsertOutcome{}, s.insertErr
	}
	if _, ok := s.byName[item.Name]; ok || s.conflicts[item.Name] {
		return domain.AlreadyExists(), nil
	}
	if err, ok := s.failOnce[item.Name]; ok {
		delete(s.failOnce, item.Name)
		return domain.InsertOutcome{}, err
	}
	s.nextID++
	s.byName[item.Name] = s.nextID
	bound := variants.WithItemID(s.nextID)
	s.sizes[s.nextID] = bound.Sizes
	s.colors[s.nextID] = bound.Colors
	return domain.Inserted(s.nextID), nil
}

type fakeTracker struct {
	status   domain.TaskStatus
	progress []string
	summary  domain.ProcessingSummary
	failures []error
}

func (t *fakeTracker) Start(context.Context, int64) error {
	t.status = domain.TaskStatusInProgress
	return nil
}

func (t *fakeTracker) ReportProgress(_ context.Context, _ int64, processed, total int) error {
	t.progress = append(t.progress, domain.FormatProgress(processed, total))
	return nil
}

func (t *fakeTracker) Complete(_ context.Context, _ int64, summary domain.ProcessingSummary) error {
	t.status = domain.TaskStatusCompleted
	t.summary = summary
	return nil
}

func (t *fakeTracker) Fail(_ context.Context, _ int64, cause error) {
	t.status = domain.TaskStatusFailed
	t.failures = append(t.failures, cause)
}

func entries(n int) []domain.ListingEntry {
	out := make([]domain.ListingEntry, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.ListingEntry{
			Title:      fmt.Sprintf("Item %02d", i),
			Price:      fmt.Sprintf("£%d.00", i),
			DetailLink: fmt.Sprintf("https://shop.example/prd/%d", i),
		})
	}
	return out
}

func singlePage(e []domain.ListingEntry) *domain.CatalogResults {
	return &domain.CatalogResults{Pages: []*domain.ListingPage{{PageNumber: 1, Entries: e}}, Wrapped: true}
}

func defaultDetail() domain.ItemDetail {
	return domain.ItemDetail{
		Gender:     "Men",
		Sizes:      []string{"S", "M"},
		Colors:     []string{"Black"},
		PhotoLinks: []string{"https://img/black.jpg"},
	}
}

func newTestPipeline(walker CatalogWalker, store *fakeStore, tracker *fakeTracker, opts Options) *Pipeline {
	return New(walker, &fakeDetails{detail: defaultDetail()}, store, tracker, opts)
}

func TestRunReportsProgressEveryTenEntries(t *testing.T) {
	store := newFakeStore()
	tracker := &fakeTracker{}
	p := newTestPipeline(&fakeWalker{results: singlePage(entries(25))}, store, tracker, Options{ProgressInterval: 10})

	summary, err := p.Run(context.Background(), &task.ScrapeTask{TaskID: 1, URL: "https://shop.example/c"})
	require.NoError(t, err)

	assert.Equal(t, []string{"10/25", "20/25"}, tracker.progress)
	assert.Equal(t, domain.ProcessingSummary{Processed: 25, Total: 25}, summary)
	assert.Equal(t, summary, tracker.summary)
	assert.Equal(t, domain.TaskStatusCompleted, tracker.status)
	assert.Len(t, store.byName, 25)
}

func TestIngestIsIdempotent(t *testing.T) {
	store := newFakeStore()
	list := append(entries(12), entries(3)...)
	p := newTestPipeline(nil, store, &fakeTracker{}, Options{})

	first, err := p.Ingest(context.Background(), 1, list)
	require.NoError(t, err)
	second, err := p.Ingest(context.Background(), 2, list)
	require.NoError(t, err)

	assert.Equal(t, 15, first.Processed)
	assert.Equal(t, 15, second.Processed)
	assert.Len(t, store.byName, 12)
	assert.Equal(t, int64(12), store.nextID)
	for _, id := range store.byName {
		assert.Len(t, store.sizes[id], 2)
		assert.Len(t, store.colors[id], 1)
	}
}

func TestIngestPersistsVariants(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(nil, store, &fakeTracker{}, Options{})

	_, err := p.Ingest(context.Background(), 1, entries(1))
	require.NoError(t, err)

	id := store.byName["Item 01"]
	assert.Equal(t, []domain.Size{{ItemID: id, Size: "S"}, {ItemID: id, Size: "M"}}, store.sizes[id])
	assert.Equal(t, []domain.Color{{ItemID: id, Color: "Black", PhotoURL: "https://img/black.jpg"}}, store.colors[id])
}

func TestIngestSkipsEntriesWithoutDetail(t *testing.T) {
	store := newFakeStore()
	list := entries(3)
	details := &fakeDetails{detail: defaultDetail(), missing: map[string]bool{list[1].DetailLink: true}}
	p := New(nil, details, store, &fakeTracker{}, Options{})

	summary, err := p.Ingest(context.Background(), 1, list)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Len(t, store.byName, 2)
	assert.NotContains(t, store.byName, list[1].Title)
}

func TestIngestTreatsInsertConflictAsSkip(t *testing.T) {
	store := newFakeStore()
	store.conflicts["Item 02"] = true
	p := newTestPipeline(nil, store, &fakeTracker{}, Options{})

	summary, err := p.Ingest(context.Background(), 1, entries(3))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Len(t, store.byName, 2)
	assert.Len(t, store.sizes, 2)
}

func TestIngestTruncatesMismatchedColors(t *testing.T) {
	store := newFakeStore()
	detail := defaultDetail()
	detail.Colors = []string{"Black", "White"}
	p := New(nil, &fakeDetails{detail: detail}, store, &fakeTracker{}, Options{})

	_, err := p.Ingest(context.Background(), 1, entries(1))
	require.NoError(t, err)
	assert.Len(t, store.colors[store.byName["Item 01"]], 1)
}

func TestIngestHonoursItemCap(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(nil, store, &fakeTracker{}, Options{MaxItems: 3})

	summary, err := p.Ingest(context.Background(), 1, entries(5))
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessingSummary{Processed: 3, Total: 5}, summary)
	assert.Len(t, store.byName, 3)
}

func TestRunFailsOnStoreError(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("connection refused")
	tracker := &fakeTracker{}
	p := newTestPipeline(&fakeWalker{results: singlePage(entries(4))}, store, tracker, Options{})

	_, err := p.Run(context.Background(), &task.ScrapeTask{TaskID: 9, URL: "u"})
	require.Error(t, err)
	assert.Equal(t, domain.TaskStatusFailed, tracker.status)
	require.Len(t, tracker.failures, 1)
	assert.ErrorIs(t, tracker.failures[0], store.insertErr)
}

func TestRunFailsOnWalkError(t *testing.T) {
	walkErr := errors.New("listing page 1: HTTP error: 503")
	tracker := &fakeTracker{}
	p := newTestPipeline(&fakeWalker{err: walkErr}, newFakeStore(), tracker, Options{})

	_, err := p.Run(context.Background(), &task.ScrapeTask{TaskID: 2, URL: "u"})
	assert.ErrorIs(t, err, walkErr)
	assert.Equal(t, domain.TaskStatusFailed, tracker.status)
}

func TestRunAlwaysEndsTerminal(t *testing.T) {
	cases := map[string]*fakeWalker{
		"success": {results: singlePage(entries(2))},
		"failure": {err: errors.New("boom")},
		"empty":   {results: &domain.CatalogResults{}},
	}
	for name, walker := range cases {
		t.Run(name, func(t *testing.T) {
			tracker := &fakeTracker{}
			p := newTestPipeline(walker, newFakeStore(), tracker, Options{})
			_, _ = p.Run(context.Background(), &task.ScrapeTask{TaskID: 1, URL: "u"})
			assert.True(t, tracker.status.IsTerminal(), "status %s", tracker.status)
		})
	}
}

func TestIngestStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(nil, newFakeStore(), &fakeTracker{}, Options{})
	_, err := p.Ingest(ctx, 1, entries(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRerunStoresItemWhoseWriteFailed(t *testing.T) {
	store := newFakeStore()
	writeErr := errors.New("connection reset")
	store.failOnce["Item 01"] = writeErr
	p := newTestPipeline(nil, store, &fakeTracker{}, Options{})

	_, err := p.Ingest(context.Background(), 1, entries(2))
	require.ErrorIs(t, err, writeErr)
	assert.Empty(t, store.byName)

	_, err = p.Ingest(context.Background(), 1, entries(2))
	require.NoError(t, err)

	id, ok := store.byName["Item 01"]
	require.True(t, ok)
	assert.Len(t, store.sizes[id], 2)
	assert.Len(t, store.colors[id], 1)
}
