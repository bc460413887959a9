package tasks

// TaskSchedulerInterface defines the interface for background task scheduling.
// Used by the main application to manage periodic ingestion runs.
// Example usage:
//
//	scheduler := NewScheduler(pipeline, reclassifier, listingRepo, httpClient, extractor)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewIngestFeedsTask(pipeline))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
