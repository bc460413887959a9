package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Autilos/r107-garage-hub/app/cfg"
	"github.com/Autilos/r107-garage-hub/app/database"
	"github.com/Autilos/r107-garage-hub/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	pipeline         IngestRunner
	reclassifier     ReclassifyRunner
	listingRepo      database.ListingRepository
	httpClient       *http.Client
	contentExtractor *feed.ContentExtractor
	userAgent        string
	fetchTimeout     time.Duration
	descriptionLimit int
	interval         time.Duration
	workerCount      int
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(pipeline IngestRunner, reclassifier ReclassifyRunner,
	listingRepo database.ListingRepository, httpClient *http.Client,
	contentExtractor *feed.ContentExtractor) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		pipeline:         pipeline,
		reclassifier:     reclassifier,
		listingRepo:      listingRepo,
		httpClient:       httpClient,
		contentExtractor: contentExtractor,
		userAgent:        cfg.UserAgent,
		fetchTimeout:     time.Duration(cfg.FeedTimeout) * time.Second,
		descriptionLimit: cfg.DescriptionLimit,
		interval:         time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:      cfg.WorkerCount,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 100),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()
		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

// Stop cancels workers and waits for in-flight tasks. The queue is left
// open: a retry goroutine may still attempt an enqueue after shutdown, and
// EnqueueTask on a live channel just fails with the context error.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// enqueueStartupTasks runs one-off backfill work after boot, tag extraction
// for listings classified before the current prompt revision
func (s *Scheduler) enqueueStartupTasks() {
	reclassifyTask := NewReclassifyTask(s.reclassifier)
	if err := s.EnqueueTask(reclassifyTask); err != nil {
		slog.Warn("Failed to enqueue ReclassifyTask", "error", err)
	}
}

func (s *Scheduler) enqueueTasks() {
	ingestTask := NewIngestFeedsTask(s.pipeline)
	if err := s.EnqueueTask(ingestTask); err != nil {
		slog.Warn("Failed to enqueue IngestFeedsTask", "error", err)
	}

	enrichTask := NewEnrichContentTask(s.listingRepo, s.httpClient, s.contentExtractor,
		s.userAgent, s.fetchTimeout, s.descriptionLimit)
	if err := s.EnqueueTask(enrichTask); err != nil {
		slog.Warn("Failed to enqueue EnrichContentTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-time.After(retryDelay):
				}
				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
