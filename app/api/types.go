package api

import (
	"context"
	"time"

	"github.com/lysyi3m/newsroom/app/auth"
	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/jobs"
	"github.com/lysyi3m/newsroom/app/newsroom"
	"github.com/lysyi3m/newsroom/app/tasks"
)

type ArticleService interface {
	GenerateArticlesForReporter(ctx context.Context, reporterID string) ([]database.Article, error)
	GenerateArticlesFromEvents(ctx context.Context) (map[string][]database.Article, error)
}

type EditionService interface {
	HydrateEdition(ctx context.Context, edition *database.NewspaperEdition) ([]database.Article, error)
	GenerateEvents(ctx context.Context) ([]database.Event, error)
}

type JobService interface {
	RunScheduled(ctx context.Context, name string) (*jobs.Result, error)
	Trigger(ctx context.Context, name string) (*jobs.Result, error)
	Statuses(ctx context.Context) ([]jobs.Status, error)
}

type FeedRenderer interface {
	Run(editions []database.DailyEdition, now time.Time) string
}

var (
	_ ArticleService = (*newsroom.ArticleGenerator)(nil)
	_ EditionService = (*newsroom.EditionAssembler)(nil)
	_ JobService     = (*jobs.Orchestrator)(nil)
	_ FeedRenderer   = (*newsroom.FeedGenerator)(nil)
)

type Handler struct {
	store     database.Store
	articles  ArticleService
	editions  EditionService
	jobs      JobService
	feed      FeedRenderer
	issuer    *auth.Issuer
	scheduler tasks.TaskSchedulerInterface
	version   string
	clock     func() time.Time
}

type editorRequest struct {
	Bio                            *string `json:"bio"`
	Prompt                         *string `json:"prompt"`
	ModelName                      *string `json:"modelName"`
	MessageSliceCount              *int    `json:"messageSliceCount"`
	ArticleGenerationPeriodMinutes *int    `json:"articleGenerationPeriodMinutes"`
	EventGenerationPeriodMinutes   *int    `json:"eventGenerationPeriodMinutes"`
	EditionGenerationPeriodMinutes *int    `json:"editionGenerationPeriodMinutes"`
	DailyGenerationPeriodMinutes   *int    `json:"dailyGenerationPeriodMinutes"`
}

type reporterRequest struct {
	ID      string   `json:"id"`
	Beats   []string `json:"beats"`
	Prompt  *string  `json:"prompt"`
	Enabled *bool    `json:"enabled"`
}

type adRequest struct {
	Name          *string  `json:"name"`
	BidPrice      *float64 `json:"bidPrice"`
	PromptContent *string  `json:"promptContent"`
}

type jobRequest struct {
	JobType string `json:"jobType"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type roleRequest struct {
	Role database.Role `json:"role"`
}
