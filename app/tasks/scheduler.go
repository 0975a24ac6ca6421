package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const queueSize = 300

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler enqueues one RunJobTask per job on every tick and executes
// them on a fixed worker pool. Failed tasks are not retried; the next tick
// asks the job again. Runs are bounded by the job timeout of the runner and
// cancelled by Stop.
type Scheduler struct {
	runner      JobRunner
	jobNames    []string
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu             sync.Mutex
	totalProcessed int64
	totalErrors    int64
}

func NewScheduler(runner JobRunner, jobNames []string, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:      runner,
		jobNames:    jobNames,
		interval:    interval,
		workerCount: max(workerCount, 1),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
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

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) Health() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"workers":         s.workerCount,
		"queue_size":      len(s.taskQueue),
		"total_processed": s.totalProcessed,
		"total_errors":    s.totalErrors,
	}
}

func (s *Scheduler) enqueueTasks() {
	slog.Debug("Scheduling job checks", "count", len(s.jobNames))

	for _, name := range s.jobNames {
		if err := s.EnqueueTask(NewRunJobTask(name, s.runner)); err != nil {
			slog.Warn("Failed to enqueue RunJobTask", "job", name, "error", err)
		}
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

	err := task.Execute(s.ctx)

	s.mu.Lock()
	s.totalProcessed++
	if err != nil {
		s.totalErrors++
	}
	s.mu.Unlock()

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "job", task.GetJobName(), "error", err)
	}
}
