package tasks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lysyi3m/newsroom/app/jobs"
)

type RunJobTask struct {
	Task
	runner JobRunner
}

func NewRunJobTask(jobName string, runner JobRunner) *RunJobTask {
	return &RunJobTask{
		Task:   NewTask(TaskTypeRunJob, jobName),
		runner: runner,
	}
}

func (t *RunJobTask) Execute(ctx context.Context) error {
	result, err := t.runner.RunScheduled(ctx, t.JobName)
	if errors.Is(err, jobs.ErrJobRunning) {
		slog.Debug("Job already running, skipping", "job", t.JobName)
		return nil
	}
	if err != nil {
		return err
	}

	if result.Skipped {
		slog.Debug("Job not due", "job", t.JobName, "next_generation_in_minutes", result.NextGenerationInMinutes)
		return nil
	}

	slog.Info("Task completed", "type", string(t.GetType()), "job", t.JobName, "duration", t.GetDuration())
	return nil
}
