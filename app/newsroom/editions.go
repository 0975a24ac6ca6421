package newsroom

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/generation"
)

const (
	hourlyWindow = 3 * time.Hour
	dailyWindow  = 24 * time.Hour
)

// EditionAssembler builds editions out of stored content. Every operation
// reads, makes one generation call and writes a single entity; nothing is
// stored when an earlier step fails.
type EditionAssembler struct {
	deps Deps
}

func NewEditionAssembler(deps Deps) *EditionAssembler {
	return &EditionAssembler{deps: deps}
}

// GenerateHourlyEdition selects stories from articles generated in the last
// three hours, bounds included.
func (a *EditionAssembler) GenerateHourlyEdition(ctx context.Context) (*database.NewspaperEdition, error) {
	now := a.deps.now()

	reporters, err := a.deps.Store.ListReporters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reporters: %w", err)
	}
	if len(reporters) == 0 {
		return nil, fmt.Errorf("no reporters: %w", ErrNoContent)
	}

	var articles []database.Article
	for _, reporter := range reporters {
		recent, err := a.deps.Store.ArticlesInRange(ctx, reporter.ID, now.Add(-hourlyWindow), now)
		if err != nil {
			return nil, fmt.Errorf("failed to load articles for reporter %s: %w", reporter.ID, err)
		}
		articles = append(articles, recent...)
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("no articles in the last %v: %w", hourlyWindow, ErrNoContent)
	}

	slices.SortStableFunc(articles, func(x, y database.Article) int {
		return x.GenerationTime.Compare(y.GenerationTime)
	})

	editor, err := a.deps.Store.GetEditor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load editor: %w", err)
	}

	selection := a.deps.Generator.SelectNewsworthyStories(ctx, articles, editor.Prompt, editor.ModelName)

	stories := make([]string, len(selection.Selected))
	for i, article := range selection.Selected {
		stories[i] = article.ID
	}

	edition := &database.NewspaperEdition{
		ID:             database.GenerateID("edition"),
		Stories:        stories,
		GenerationTime: now,
		Prompt:         selection.FullPrompt,
		UsedFallback:   selection.UsedFallback,
	}
	if err := a.deps.Store.SaveEdition(ctx, edition); err != nil {
		return nil, fmt.Errorf("failed to save edition: %w", err)
	}

	slog.Info("Newspaper edition generated", "edition", edition.ID, "candidates", len(articles), "stories", len(stories), "fallback", edition.UsedFallback)
	return edition, nil
}

// GenerateDailyEdition synthesises the newspaper editions of the last 24
// hours.
func (a *EditionAssembler) GenerateDailyEdition(ctx context.Context) (*database.DailyEdition, error) {
	now := a.deps.now()

	editions, err := a.deps.Store.EditionsInRange(ctx, now.Add(-dailyWindow), now)
	if err != nil {
		return nil, fmt.Errorf("failed to load editions: %w", err)
	}
	if len(editions) == 0 {
		return nil, fmt.Errorf("no editions in the last %v: %w", dailyWindow, ErrNoContent)
	}

	digests := make([]generation.EditionDigest, 0, len(editions))
	editionIDs := make([]string, 0, len(editions))
	for _, edition := range editions {
		articles, err := a.HydrateEdition(ctx, &edition)
		if err != nil {
			return nil, err
		}
		digests = append(digests, generation.EditionDigest{Edition: edition, Articles: articles})
		editionIDs = append(editionIDs, edition.ID)
	}

	editor, err := a.deps.Store.GetEditor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load editor: %w", err)
	}

	selection := a.deps.Generator.SelectNotableEditions(ctx, digests, editor.Prompt, editor.ModelName)

	daily := &database.DailyEdition{
		ID:                  database.GenerateID("daily"),
		Editions:            editionIDs,
		GenerationTime:      now,
		DailyEditionContent: selection.Content,
		Prompt:              selection.FullPrompt,
		UsedFallback:        selection.UsedFallback,
	}
	if err := a.deps.Store.SaveDailyEdition(ctx, daily); err != nil {
		return nil, fmt.Errorf("failed to save daily edition: %w", err)
	}

	slog.Info("Daily edition generated", "daily_edition", daily.ID, "editions", len(editionIDs), "fallback", daily.UsedFallback)
	return daily, nil
}

// HydrateEdition loads the edition's articles in story order. Stories whose
// article no longer exists are left out.
func (a *EditionAssembler) HydrateEdition(ctx context.Context, edition *database.NewspaperEdition) ([]database.Article, error) {
	articles, err := a.deps.Store.GetArticles(ctx, edition.Stories)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles for edition %s: %w", edition.ID, err)
	}
	if missing := len(edition.Stories) - len(articles); missing > 0 {
		slog.Debug("Edition references missing articles", "edition", edition.ID, "missing", missing)
	}
	return articles, nil
}

// GenerateEvents extracts newsworthy events from the recent social stream
// and stores those that cite at least one message.
func (a *EditionAssembler) GenerateEvents(ctx context.Context) ([]database.Event, error) {
	now := a.deps.now()

	editor, err := a.deps.Store.GetEditor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load editor: %w", err)
	}

	messages, err := a.deps.Messages.RecentMessages(ctx, editor.MessageSliceCount)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch social messages: %w", err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no social messages: %w", ErrNoContent)
	}
	texts := messageTexts(messages)

	extraction := a.deps.Generator.ExtractEvents(ctx, texts, editor.Prompt, editor.ModelName)

	events := make([]database.Event, 0, len(extraction.Events))
	for _, extracted := range extraction.Events {
		cited := citedIndices(extracted.MessageIDs, len(texts))
		if len(cited) == 0 {
			continue
		}

		event := database.Event{
			ID:             database.GenerateID("event"),
			Title:          extracted.Title,
			Summary:        extracted.Summary,
			MessageIDs:     cited,
			MessageTexts:   resolveTexts(texts, cited),
			GenerationTime: now,
			UsedFallback:   extraction.UsedFallback,
		}
		if err := a.deps.Store.SaveEvent(ctx, &event); err != nil {
			return nil, fmt.Errorf("failed to save event: %w", err)
		}
		events = append(events, event)
	}

	slog.Info("Events generated", "messages", len(texts), "events", len(events), "fallback", extraction.UsedFallback)
	return events, nil
}
