package tasks

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Autilos/r107-garage-hub/app/cfg"
	"github.com/Autilos/r107-garage-hub/app/database"
	"github.com/Autilos/r107-garage-hub/app/feed"
	"github.com/Autilos/r107-garage-hub/app/ingest"
)

// countingRunner is safe for concurrent workers
type countingRunner struct {
	calls atomic.Int64
	err   error
}

func (f *countingRunner) Run(ctx context.Context) (*ingest.Stats, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &ingest.Stats{}, nil
}

type fakeReclassifyRunner struct{}

func (f *fakeReclassifyRunner) Run(ctx context.Context) (*ingest.ReclassifyStats, error) {
	return &ingest.ReclassifyStats{}, nil
}

type fakeListingRepo struct {
	database.ListingRepository
}

func (f *fakeListingRepo) GetListingsForEnrichment(limit int) ([]database.Listing, error) {
	return nil, nil
}

func newTestScheduler(t *testing.T, pipeline IngestRunner) TaskSchedulerInterface {
	t.Helper()
	cfg.Set(&cfg.Cfg{
		UserAgent:         "TestBot/1.0",
		FeedTimeout:       5,
		DescriptionLimit:  2000,
		SchedulerInterval: 60,
		WorkerCount:       2,
	})

	return NewScheduler(pipeline, &fakeReclassifyRunner{}, &fakeListingRepo{},
		&http.Client{}, feed.NewContentExtractor())
}

func TestSchedulerStopLeavesQueueUsable(t *testing.T) {
	// A failing task schedules a delayed retry; stopping while that retry is
	// pending must not panic the late enqueue attempt
	runner := &countingRunner{err: errors.New("sources unavailable")}
	scheduler := newTestScheduler(t, runner)

	scheduler.Start()
	time.Sleep(50 * time.Millisecond)
	scheduler.Stop()

	for i := 0; i < 100; i++ {
		if err := scheduler.EnqueueTask(NewIngestFeedsTask(runner)); err == nil {
			t.Fatal("Expected enqueue after Stop to fail")
		}
	}
}

func TestSchedulerRunsEnqueuedTask(t *testing.T) {
	runner := &countingRunner{}
	scheduler := newTestScheduler(t, runner)

	scheduler.Start()

	deadline := time.Now().Add(2 * time.Second)
	for runner.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	scheduler.Stop()

	if runner.calls.Load() == 0 {
		t.Error("Expected the startup ingest task to run")
	}
}
