package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Autilos/r107-garage-hub/app/ingest"
)

// ReclassifyRunner re-runs model extraction over stored listings
type ReclassifyRunner interface {
	Run(ctx context.Context) (*ingest.ReclassifyStats, error)
}

type ReclassifyTask struct {
	Task
	reclassifier ReclassifyRunner
}

func NewReclassifyTask(reclassifier ReclassifyRunner) *ReclassifyTask {
	return &ReclassifyTask{
		Task:         NewTask(TaskTypeReclassify),
		reclassifier: reclassifier,
	}
}

func (t *ReclassifyTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	stats, err := t.reclassifier.Run(ctx)
	if err != nil {
		return fmt.Errorf("reclassification run failed: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"processed", stats.Processed,
		"updated", stats.Updated,
		"errors", stats.Errors)

	return nil
}
