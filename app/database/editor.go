package database

import (
	"fmt"
	"time"
)

const (
	DefaultMessageSliceCount = 200
	DefaultArticlePeriod     = 60
	DefaultEventPeriod       = 60
	DefaultEditionPeriod     = 180
	DefaultDailyPeriod       = 1440

	MinPeriodMinutes     = 1
	MaxPeriodMinutes     = 1440
	MaxMessageSliceCount = 1000
)

// GenerationKind names one of the editor's period/last-time pairs.
type GenerationKind string

const (
	GenerationArticle GenerationKind = "Article"
	GenerationEvent   GenerationKind = "Event"
	GenerationEdition GenerationKind = "Edition"
	GenerationDaily   GenerationKind = "Daily"
)

var GenerationKinds = []GenerationKind{GenerationArticle, GenerationEvent, GenerationEdition, GenerationDaily}

// Editor is the singleton editorial configuration.
type Editor struct {
	Bio               string `json:"bio" yaml:"bio"`
	Prompt            string `json:"prompt" yaml:"prompt"`
	ModelName         string `json:"modelName" yaml:"model_name"`
	MessageSliceCount int    `json:"messageSliceCount" yaml:"message_slice_count"`

	ArticleGenerationPeriodMinutes int       `json:"articleGenerationPeriodMinutes" yaml:"article_generation_period_minutes"`
	LastArticleGenerationTime      time.Time `json:"lastArticleGenerationTime,omitzero" yaml:"-"`
	EventGenerationPeriodMinutes   int       `json:"eventGenerationPeriodMinutes" yaml:"event_generation_period_minutes"`
	LastEventGenerationTime        time.Time `json:"lastEventGenerationTime,omitzero" yaml:"-"`
	EditionGenerationPeriodMinutes int       `json:"editionGenerationPeriodMinutes" yaml:"edition_generation_period_minutes"`
	LastEditionGenerationTime      time.Time `json:"lastEditionGenerationTime,omitzero" yaml:"-"`
	DailyGenerationPeriodMinutes   int       `json:"dailyGenerationPeriodMinutes" yaml:"daily_generation_period_minutes"`
	LastDailyGenerationTime        time.Time `json:"lastDailyGenerationTime,omitzero" yaml:"-"`
}

func DefaultEditor() *Editor {
	return &Editor{
		MessageSliceCount:              DefaultMessageSliceCount,
		ArticleGenerationPeriodMinutes: DefaultArticlePeriod,
		EventGenerationPeriodMinutes:   DefaultEventPeriod,
		EditionGenerationPeriodMinutes: DefaultEditionPeriod,
		DailyGenerationPeriodMinutes:   DefaultDailyPeriod,
	}
}

// ApplyDefaults fills zero-valued numeric settings.
func (e *Editor) ApplyDefaults() {
	d := DefaultEditor()
	if e.MessageSliceCount == 0 {
		e.MessageSliceCount = d.MessageSliceCount
	}
	if e.ArticleGenerationPeriodMinutes == 0 {
		e.ArticleGenerationPeriodMinutes = d.ArticleGenerationPeriodMinutes
	}
	if e.EventGenerationPeriodMinutes == 0 {
		e.EventGenerationPeriodMinutes = d.EventGenerationPeriodMinutes
	}
	if e.EditionGenerationPeriodMinutes == 0 {
		e.EditionGenerationPeriodMinutes = d.EditionGenerationPeriodMinutes
	}
	if e.DailyGenerationPeriodMinutes == 0 {
		e.DailyGenerationPeriodMinutes = d.DailyGenerationPeriodMinutes
	}
}

func (e *Editor) Validate() error {
	if e.MessageSliceCount < 1 || e.MessageSliceCount > MaxMessageSliceCount {
		return &ValidationError{Field: "messageSliceCount", Message: fmt.Sprintf("must be between 1 and %d", MaxMessageSliceCount)}
	}

	periods := []struct {
		field string
		value int
	}{
		{"articleGenerationPeriodMinutes", e.ArticleGenerationPeriodMinutes},
		{"eventGenerationPeriodMinutes", e.EventGenerationPeriodMinutes},
		{"editionGenerationPeriodMinutes", e.EditionGenerationPeriodMinutes},
		{"dailyGenerationPeriodMinutes", e.DailyGenerationPeriodMinutes},
	}
	for _, p := range periods {
		if p.value < MinPeriodMinutes || p.value > MaxPeriodMinutes {
			return &ValidationError{Field: p.field, Message: fmt.Sprintf("must be between %d and %d", MinPeriodMinutes, MaxPeriodMinutes)}
		}
	}

	return nil
}

// Period returns the minimum number of minutes between two runs of kind.
func (e *Editor) Period(kind GenerationKind) int {
	switch kind {
	case GenerationArticle:
		return e.ArticleGenerationPeriodMinutes
	case GenerationEvent:
		return e.EventGenerationPeriodMinutes
	case GenerationEdition:
		return e.EditionGenerationPeriodMinutes
	case GenerationDaily:
		return e.DailyGenerationPeriodMinutes
	}
	return 0
}

// LastGeneration returns the time of the last successful run of kind.
func (e *Editor) LastGeneration(kind GenerationKind) time.Time {
	switch kind {
	case GenerationArticle:
		return e.LastArticleGenerationTime
	case GenerationEvent:
		return e.LastEventGenerationTime
	case GenerationEdition:
		return e.LastEditionGenerationTime
	case GenerationDaily:
		return e.LastDailyGenerationTime
	}
	return time.Time{}
}

func (e *Editor) SetLastGeneration(kind GenerationKind, t time.Time) {
	switch kind {
	case GenerationArticle:
		e.LastArticleGenerationTime = t
	case GenerationEvent:
		e.LastEventGenerationTime = t
	case GenerationEdition:
		e.LastEditionGenerationTime = t
	case GenerationDaily:
		e.LastDailyGenerationTime = t
	}
}
