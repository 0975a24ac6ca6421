package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/metrics"
)

const (
	JobReporter  = "reporter"
	JobNewspaper = "newspaper"
	JobDaily     = "daily"
	JobEvents    = "events"
)

// Names lists every job in display order.
var Names = []string{JobReporter, JobNewspaper, JobDaily, JobEvents}

const (
	DefaultTimeout = 10 * time.Minute
	DefaultLease   = 30 * time.Minute
)

var (
	ErrJobRunning = errors.New("job is already running")
	ErrUnknownJob = errors.New("unknown job")
)

type ArticleRunner interface {
	GenerateAllReporterArticles(ctx context.Context) (map[string][]database.Article, error)
}

type EditionRunner interface {
	GenerateHourlyEdition(ctx context.Context) (*database.NewspaperEdition, error)
	GenerateDailyEdition(ctx context.Context) (*database.DailyEdition, error)
	GenerateEvents(ctx context.Context) ([]database.Event, error)
}

type Store interface {
	database.EditorRepository
	database.JobRepository
}

// Result describes one run request. A skipped run did not touch any state.
type Result struct {
	Job                     string `json:"job"`
	Skipped                 bool   `json:"skipped,omitempty"`
	NextGenerationInMinutes int    `json:"nextGenerationInMinutes,omitempty"`
	TotalArticles           int    `json:"totalArticles,omitempty"`
	HourlyEditionID         string `json:"hourlyEditionId,omitempty"`
	DailyEditionID          string `json:"dailyEditionId,omitempty"`
	TotalEvents             int    `json:"totalEvents,omitempty"`
}

type Status struct {
	Name          string     `json:"name"`
	Running       bool       `json:"running"`
	LastRun       *time.Time `json:"lastRun"`
	LastSuccess   *time.Time `json:"lastSuccess"`
	NextRun       *time.Time `json:"nextRun"`
	PeriodMinutes int        `json:"periodMinutes"`
}

type job struct {
	kind database.GenerationKind
	run  func(ctx context.Context, result *Result) error
}

// Orchestrator runs the generation jobs with running/lastRun/lastSuccess
// bookkeeping. At most one run per job is in flight: the running flag is
// claimed atomically before any work starts. A claim older than the lease
// is considered abandoned by a dead process and can be taken over.
type Orchestrator struct {
	store   Store
	jobs    map[string]job
	clock   func() time.Time
	timeout time.Duration
	lease   time.Duration
}

func NewOrchestrator(store Store, articles ArticleRunner, editions EditionRunner, clock func() time.Time) *Orchestrator {
	if clock == nil {
		clock = time.Now
	}

	o := &Orchestrator{
		store:   store,
		clock:   clock,
		timeout: DefaultTimeout,
		lease:   DefaultLease,
	}
	o.jobs = map[string]job{
		JobReporter: {
			kind: database.GenerationArticle,
			run: func(ctx context.Context, result *Result) error {
				byReporter, err := articles.GenerateAllReporterArticles(ctx)
				if err != nil {
					return err
				}
				for _, generated := range byReporter {
					result.TotalArticles += len(generated)
				}
				return nil
			},
		},
		JobNewspaper: {
			kind: database.GenerationEdition,
			run: func(ctx context.Context, result *Result) error {
				edition, err := editions.GenerateHourlyEdition(ctx)
				if err != nil {
					return err
				}
				result.HourlyEditionID = edition.ID
				return nil
			},
		},
		JobDaily: {
			kind: database.GenerationDaily,
			run: func(ctx context.Context, result *Result) error {
				daily, err := editions.GenerateDailyEdition(ctx)
				if err != nil {
					return err
				}
				result.DailyEditionID = daily.ID
				return nil
			},
		},
		JobEvents: {
			kind: database.GenerationEvent,
			run: func(ctx context.Context, result *Result) error {
				events, err := editions.GenerateEvents(ctx)
				if err != nil {
					return err
				}
				result.TotalEvents = len(events)
				return nil
			},
		},
	}
	return o
}

// WithLimits sets how long a single run may take and after how long a
// running claim is treated as abandoned. The lease must exceed the timeout,
// otherwise a live run could be taken over.
func (o *Orchestrator) WithLimits(timeout, lease time.Duration) *Orchestrator {
	if timeout > 0 {
		o.timeout = timeout
	}
	if lease > o.timeout {
		o.lease = lease
	} else {
		o.lease = 3 * o.timeout
	}
	return o
}

// RunScheduled runs the job unless its editor period has not yet elapsed
// since the last successful generation.
func (o *Orchestrator) RunScheduled(ctx context.Context, name string) (*Result, error) {
	j, ok := o.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	editor, err := o.store.GetEditor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load editor: %w", err)
	}

	now := o.clock()
	if wait, due := remainingMinutes(editor, j.kind, now); !due {
		metrics.RecordJobRun(name, "skipped", 0)
		slog.Debug("Job not due yet", "job", name, "next_generation_in_minutes", wait)
		return &Result{Job: name, Skipped: true, NextGenerationInMinutes: wait}, nil
	}

	return o.run(ctx, name, j)
}

// Trigger runs the job immediately regardless of its period.
func (o *Orchestrator) Trigger(ctx context.Context, name string) (*Result, error) {
	j, ok := o.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return o.run(ctx, name, j)
}

func (o *Orchestrator) run(ctx context.Context, name string, j job) (*Result, error) {
	claimed, err := o.store.ClaimJob(ctx, name, o.clock(), o.lease)
	if err != nil {
		return nil, err
	}
	if !claimed {
		metrics.RecordJobRun(name, "busy", 0)
		return nil, fmt.Errorf("%w: %s", ErrJobRunning, name)
	}

	start := time.Now()
	result := &Result{Job: name}

	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	runErr := j.run(runCtx, result)
	if runErr == nil && runCtx.Err() != nil {
		// Work cut short by cancellation is a failure even when every step
		// swallowed its own error.
		runErr = fmt.Errorf("run interrupted: %w", context.Cause(runCtx))
	}
	cancel()

	// The bookkeeping must land even if the run's context expired.
	bookkeepingCtx := context.WithoutCancel(ctx)
	finished := o.clock()

	if runErr != nil {
		metrics.RecordJobRun(name, "failed", time.Since(start).Seconds())
		slog.Error("Job failed", "job", name, "duration", time.Since(start), "error", runErr)

		if err := o.store.FinishJob(bookkeepingCtx, name, false, finished); err != nil {
			return nil, errors.Join(fmt.Errorf("job %s failed: %w", name, runErr), err)
		}
		return nil, fmt.Errorf("job %s failed: %w", name, runErr)
	}

	if err := o.store.FinishJob(bookkeepingCtx, name, true, finished); err != nil {
		return nil, err
	}
	if err := o.store.SetLastGeneration(bookkeepingCtx, j.kind, finished); err != nil {
		return nil, err
	}

	metrics.RecordJobRun(name, "success", time.Since(start).Seconds())
	slog.Info("Job completed", "job", name, "duration", time.Since(start))
	return result, nil
}

func (o *Orchestrator) Statuses(ctx context.Context) ([]Status, error) {
	editor, err := o.store.GetEditor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load editor: %w", err)
	}

	statuses := make([]Status, 0, len(Names))
	for _, name := range Names {
		jobStatus, err := o.store.GetJobStatus(ctx, name)
		if err != nil {
			return nil, err
		}

		status := Status{
			Name:          name,
			Running:       jobStatus.Running,
			LastRun:       jobStatus.LastRun,
			LastSuccess:   jobStatus.LastSuccess,
			PeriodMinutes: editor.Period(o.jobs[name].kind),
		}
		if jobStatus.LastRun != nil {
			next := jobStatus.LastRun.Add(time.Duration(status.PeriodMinutes) * time.Minute)
			status.NextRun = &next
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// remainingMinutes reports whether kind is due at now and, if not, how many
// whole minutes (rounded up) remain.
func remainingMinutes(editor *database.Editor, kind database.GenerationKind, now time.Time) (int, bool) {
	last := editor.LastGeneration(kind)
	if last.IsZero() {
		return 0, true
	}

	period := float64(editor.Period(kind))
	minutesSince := float64(now.Sub(last).Milliseconds()) / 60000
	if minutesSince >= period {
		return 0, true
	}
	return int(math.Ceil(period - minutesSince)), false
}
