package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/newsroom/app/database"
)

var testNow = time.UnixMilli(1700000000000).UTC()

func newTestStore(t *testing.T) *database.RedisStore {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return database.NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

type fakeArticles struct {
	calls  int
	result map[string][]database.Article
	err    error
	during func(ctx context.Context)
}

func (f *fakeArticles) GenerateAllReporterArticles(ctx context.Context) (map[string][]database.Article, error) {
	f.calls++
	if f.during != nil {
		f.during(ctx)
	}
	return f.result, f.err
}

type fakeEditions struct {
	hourlyCalls int
	err         error
}

func (f *fakeEditions) GenerateHourlyEdition(ctx context.Context) (*database.NewspaperEdition, error) {
	f.hourlyCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &database.NewspaperEdition{ID: "edition_1"}, nil
}

func (f *fakeEditions) GenerateDailyEdition(ctx context.Context) (*database.DailyEdition, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &database.DailyEdition{ID: "daily_1"}, nil
}

func (f *fakeEditions) GenerateEvents(ctx context.Context) ([]database.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []database.Event{{ID: "event_1"}, {ID: "event_2"}}, nil
}

func newTestOrchestrator(t *testing.T, now *time.Time) (*Orchestrator, *database.RedisStore, *fakeArticles, *fakeEditions) {
	t.Helper()

	store := newTestStore(t)
	articles := &fakeArticles{result: map[string][]database.Article{
		"tech":   {{ID: "a1"}, {ID: "a2"}},
		"sports": {},
	}}
	editions := &fakeEditions{}
	o := NewOrchestrator(store, articles, editions, func() time.Time { return *now })
	return o, store, articles, editions
}

func TestRunScheduledSkipsWithinPeriod(t *testing.T) {
	now := testNow
	o, store, articles, _ := newTestOrchestrator(t, &now)
	ctx := context.Background()

	last := testNow.Add(-30*time.Minute - 30*time.Second)
	require.NoError(t, store.SetLastGeneration(ctx, database.GenerationArticle, last))

	result, err := o.RunScheduled(ctx, JobReporter)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, 30, result.NextGenerationInMinutes)
	assert.Zero(t, articles.calls)

	status, err := store.GetJobStatus(ctx, JobReporter)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Nil(t, status.LastRun)
	assert.Nil(t, status.LastSuccess)

	editor, err := store.GetEditor(ctx)
	require.NoError(t, err)
	assert.True(t, editor.LastArticleGenerationTime.Equal(last))
}

func TestRunScheduledRunsWhenDue(t *testing.T) {
	now := testNow
	o, store, articles, _ := newTestOrchestrator(t, &now)
	ctx := context.Background()

	require.NoError(t, store.SetLastGeneration(ctx, database.GenerationArticle, testNow.Add(-60*time.Minute)))

	result, err := o.RunScheduled(ctx, JobReporter)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 2, result.TotalArticles)
	assert.Equal(t, 1, articles.calls)

	status, err := store.GetJobStatus(ctx, JobReporter)
	require.NoError(t, err)
	assert.False(t, status.Running)
	require.NotNil(t, status.LastSuccess)
	assert.True(t, status.LastSuccess.Equal(testNow))

	editor, err := store.GetEditor(ctx)
	require.NoError(t, err)
	assert.True(t, editor.LastArticleGenerationTime.Equal(testNow))

	// Immediately afterwards the job is not due again.
	result, err = o.RunScheduled(ctx, JobReporter)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, database.DefaultArticlePeriod, result.NextGenerationInMinutes)
	assert.Equal(t, 1, articles.calls)
}

func TestRunScheduledFirstRunIsDue(t *testing.T) {
	now := testNow
	o, _, _, editions := newTestOrchestrator(t, &now)

	result, err := o.RunScheduled(context.Background(), JobNewspaper)
	require.NoError(t, err)
	assert.Equal(t, "edition_1", result.HourlyEditionID)
	assert.Equal(t, 1, editions.hourlyCalls)
}

func TestFailedRunKeepsLastSuccess(t *testing.T) {
	now := testNow
	o, store, _, editions := newTestOrchestrator(t, &now)
	ctx := context.Background()

	_, err := o.Trigger(ctx, JobDaily)
	require.NoError(t, err)

	now = testNow.Add(2 * time.Hour)
	editions.err = errors.New("model unavailable")

	_, err = o.Trigger(ctx, JobDaily)
	require.Error(t, err)
	assert.ErrorIs(t, err, editions.err)

	status, err := store.GetJobStatus(ctx, JobDaily)
	require.NoError(t, err)
	assert.False(t, status.Running)
	require.NotNil(t, status.LastRun)
	assert.True(t, status.LastRun.Equal(now))
	require.NotNil(t, status.LastSuccess)
	assert.True(t, status.LastSuccess.Equal(testNow))

	editor, err := store.GetEditor(ctx)
	require.NoError(t, err)
	assert.True(t, editor.LastDailyGenerationTime.Equal(testNow))
}

func TestTriggerIgnoresPeriod(t *testing.T) {
	now := testNow
	o, store, _, _ := newTestOrchestrator(t, &now)
	ctx := context.Background()

	require.NoError(t, store.SetLastGeneration(ctx, database.GenerationEvent, testNow.Add(-time.Minute)))

	result, err := o.Trigger(ctx, JobEvents)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 2, result.TotalEvents)
}

func TestRunRejectsBusyJob(t *testing.T) {
	now := testNow
	o, store, articles, _ := newTestOrchestrator(t, &now)
	ctx := context.Background()

	claimed, err := store.ClaimJob(ctx, JobReporter, testNow.Add(-time.Minute), DefaultLease)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = o.Trigger(ctx, JobReporter)
	assert.ErrorIs(t, err, ErrJobRunning)
	assert.Zero(t, articles.calls)

	status, err := store.GetJobStatus(ctx, JobReporter)
	require.NoError(t, err)
	assert.True(t, status.Running)
}

func TestUnknownJob(t *testing.T) {
	now := testNow
	o, _, _, _ := newTestOrchestrator(t, &now)

	_, err := o.Trigger(context.Background(), "weather")
	assert.ErrorIs(t, err, ErrUnknownJob)

	_, err = o.RunScheduled(context.Background(), "weather")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestStatuses(t *testing.T) {
	now := testNow
	o, _, _, _ := newTestOrchestrator(t, &now)
	ctx := context.Background()

	_, err := o.Trigger(ctx, JobNewspaper)
	require.NoError(t, err)

	statuses, err := o.Statuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, len(Names))

	for i, status := range statuses {
		assert.Equal(t, Names[i], status.Name)
		if status.Name != JobNewspaper {
			assert.Nil(t, status.NextRun)
			continue
		}
		assert.Equal(t, database.DefaultEditionPeriod, status.PeriodMinutes)
		require.NotNil(t, status.NextRun)
		assert.True(t, status.NextRun.Equal(testNow.Add(180*time.Minute)))
	}
}

func TestRunTakesOverAbandonedClaim(t *testing.T) {
	now := testNow
	o, store, articles, _ := newTestOrchestrator(t, &now)
	ctx := context.Background()

	// A process died after claiming, long ago.
	claimed, err := store.ClaimJob(ctx, JobReporter, testNow.Add(-30*24*time.Hour), DefaultLease)
	require.NoError(t, err)
	require.True(t, claimed)

	result, err := o.RunScheduled(ctx, JobReporter)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalArticles)
	assert.Equal(t, 1, articles.calls)

	status, err := store.GetJobStatus(ctx, JobReporter)
	require.NoError(t, err)
	assert.False(t, status.Running)
	require.NotNil(t, status.LastSuccess)
	assert.Equal(t, testNow.UnixMilli(), status.LastSuccess.UnixMilli())

	_, err = o.Trigger(ctx, JobReporter)
	assert.NoError(t, err)
}

func TestRunKeepsClaimWithinLease(t *testing.T) {
	now := testNow
	o, store, articles, _ := newTestOrchestrator(t, &now)
	o.WithLimits(time.Minute, time.Hour)
	ctx := context.Background()

	claimed, err := store.ClaimJob(ctx, JobReporter, testNow.Add(-59*time.Minute), time.Hour)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = o.Trigger(ctx, JobReporter)
	assert.ErrorIs(t, err, ErrJobRunning)
	assert.Zero(t, articles.calls)
}

func TestRunFailsWhenCancelled(t *testing.T) {
	now := testNow
	o, store, articles, _ := newTestOrchestrator(t, &now)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	articles.during = func(context.Context) { cancel() }

	_, err := o.RunScheduled(ctx, JobReporter)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	bg := context.Background()
	status, err := store.GetJobStatus(bg, JobReporter)
	require.NoError(t, err)
	assert.False(t, status.Running, "running flag must be cleared after an interrupted run")
	assert.Nil(t, status.LastSuccess)

	editor, err := store.GetEditor(bg)
	require.NoError(t, err)
	assert.True(t, editor.LastGeneration(database.GenerationArticle).IsZero())
}

func TestRunFailsOnTimeout(t *testing.T) {
	now := testNow
	o, store, articles, _ := newTestOrchestrator(t, &now)
	o.WithLimits(20*time.Millisecond, time.Minute)
	articles.during = func(ctx context.Context) { <-ctx.Done() }

	_, err := o.Trigger(context.Background(), JobReporter)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	status, err := store.GetJobStatus(context.Background(), JobReporter)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Nil(t, status.LastSuccess)
}

func TestWithLimitsKeepsLeaseAboveTimeout(t *testing.T) {
	now := testNow
	o, _, _, _ := newTestOrchestrator(t, &now)

	o.WithLimits(10*time.Minute, 5*time.Minute)
	assert.Equal(t, 10*time.Minute, o.timeout)
	assert.Equal(t, 30*time.Minute, o.lease)

	o.WithLimits(0, 0)
	assert.Equal(t, 10*time.Minute, o.timeout)
	assert.Equal(t, 30*time.Minute, o.lease)
}
