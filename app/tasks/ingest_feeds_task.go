package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Autilos/r107-garage-hub/app/ingest"
)

// IngestRunner is the feed ingestion entry point the task drives
type IngestRunner interface {
	Run(ctx context.Context) (*ingest.Stats, error)
}

type IngestFeedsTask struct {
	Task
	pipeline IngestRunner
}

func NewIngestFeedsTask(pipeline IngestRunner) *IngestFeedsTask {
	return &IngestFeedsTask{
		Task:     NewTask(TaskTypeIngestFeeds),
		pipeline: pipeline,
	}
}

func (t *IngestFeedsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	stats, err := t.pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion run failed: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"processed", stats.Processed,
		"allowed", stats.Allowed,
		"rejected", stats.Rejected,
		"duplicates", stats.Duplicates,
		"errors", stats.Errors)

	return nil
}
