package database

import (
	"context"
	"time"
)

type EditorRepository interface {
	GetEditor(ctx context.Context) (*Editor, error)
	SaveEditor(ctx context.Context, editor *Editor) error
	SetLastGeneration(ctx context.Context, kind GenerationKind, t time.Time) error
}

type ReporterRepository interface {
	ListReporters(ctx context.Context) ([]Reporter, error)
	GetReporter(ctx context.Context, id string) (*Reporter, error)
	SaveReporter(ctx context.Context, reporter *Reporter) error
	DeleteReporter(ctx context.Context, id string) error
}

// ArticleRepository keeps one time-ordered index per reporter. Range bounds
// are inclusive on both ends.
type ArticleRepository interface {
	SaveArticle(ctx context.Context, article *Article) error
	GetArticle(ctx context.Context, id string) (*Article, error)
	GetArticles(ctx context.Context, ids []string) ([]Article, error)
	RecentArticles(ctx context.Context, reporterID string, limit int) ([]Article, error)
	ArticlesInRange(ctx context.Context, reporterID string, start, end time.Time) ([]Article, error)
}

type EditionRepository interface {
	SaveEdition(ctx context.Context, edition *NewspaperEdition) error
	GetEdition(ctx context.Context, id string) (*NewspaperEdition, error)
	RecentEditions(ctx context.Context, limit int) ([]NewspaperEdition, error)
	EditionsInRange(ctx context.Context, start, end time.Time) ([]NewspaperEdition, error)

	SaveDailyEdition(ctx context.Context, edition *DailyEdition) error
	GetDailyEdition(ctx context.Context, id string) (*DailyEdition, error)
	RecentDailyEditions(ctx context.Context, limit int) ([]DailyEdition, error)
}

type EventRepository interface {
	SaveEvent(ctx context.Context, event *Event) error
	RecentEvents(ctx context.Context, limit int) ([]Event, error)
	EventsInRange(ctx context.Context, start, end time.Time) ([]Event, error)
}

type AdRepository interface {
	ListAds(ctx context.Context) ([]AdEntry, error)
	GetAd(ctx context.Context, id string) (*AdEntry, error)
	SaveAd(ctx context.Context, ad *AdEntry) error
	DeleteAd(ctx context.Context, id string) error
	// MostRecentAd returns the ad with the greatest CreatedAt, ties broken
	// by id descending. ErrNotFound when there are no ads.
	MostRecentAd(ctx context.Context) (*AdEntry, error)
}

type UserRepository interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	SaveUser(ctx context.Context, user *User) error
	// CreateUser stores a new account and fails with ErrConflict when the
	// email is taken. The very first account gets firstRole; the emptiness
	// check and the insert are one atomic step.
	CreateUser(ctx context.Context, user *User, firstRole Role) error
}

type JobRepository interface {
	GetJobStatus(ctx context.Context, name string) (*JobStatus, error)
	// ClaimJob marks the job running and records lastRun only if it is not
	// already running. The check and the write are a single atomic step.
	// A running flag whose lastRun is at least lease old belongs to a dead
	// run and is taken over; a zero lease never expires.
	ClaimJob(ctx context.Context, name string, now time.Time, lease time.Duration) (bool, error)
	// FinishJob clears the running flag; lastSuccess is only moved on success.
	FinishJob(ctx context.Context, name string, success bool, now time.Time) error
}

type Store interface {
	EditorRepository
	ReporterRepository
	ArticleRepository
	EditionRepository
	EventRepository
	AdRepository
	UserRepository
	JobRepository

	Ping(ctx context.Context) error
	ClearAllData(ctx context.Context) error
	Close() error
}
