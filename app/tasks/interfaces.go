package tasks

import (
	"context"

	"github.com/lysyi3m/newsroom/app/jobs"
)

// TaskSchedulerInterface is what the main application uses to drive the
// background job loop.
//
//	scheduler := NewScheduler(orchestrator, jobs.Names, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	Health() map[string]any
}

// JobRunner runs a named job if its period has elapsed.
type JobRunner interface {
	RunScheduled(ctx context.Context, name string) (*jobs.Result, error)
}
