package newsroom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/generation"
	"github.com/lysyi3m/newsroom/app/metrics"
)

const eventWindow = 24 * time.Hour

type ArticleGenerator struct {
	deps        Deps
	concurrency int
}

func NewArticleGenerator(deps Deps, concurrency int) *ArticleGenerator {
	return &ArticleGenerator{
		deps:        deps,
		concurrency: max(concurrency, 1),
	}
}

// GenerateArticlesForReporter drafts at most one article from the recent
// social stream. An empty result means the model cited no sources and
// nothing was stored.
func (g *ArticleGenerator) GenerateArticlesForReporter(ctx context.Context, reporterID string) ([]database.Article, error) {
	reporter, err := g.deps.Store.GetReporter(ctx, reporterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reporter %s: %w", reporterID, err)
	}

	editor, err := g.deps.Store.GetEditor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load editor: %w", err)
	}

	var sources []string
	if messages, err := g.deps.Messages.RecentMessages(ctx, editor.MessageSliceCount); err != nil {
		slog.Warn("Failed to fetch social messages, continuing without", "reporter", reporterID, "error", err)
	} else {
		sources = messageTexts(messages)
	}

	ad := g.mostRecentAd(ctx)

	return g.generate(ctx, reporter, editor, sources, ad, "social")
}

// GenerateAllReporterArticles runs every enabled reporter. A failing
// reporter is logged and reported with an empty list; a cancelled context
// fails the whole batch.
func (g *ArticleGenerator) GenerateAllReporterArticles(ctx context.Context) (map[string][]database.Article, error) {
	reporters, err := g.enabledReporters(ctx)
	if err != nil {
		return nil, err
	}

	return g.fanOut(ctx, reporters, func(ctx context.Context, reporter database.Reporter) ([]database.Article, error) {
		return g.GenerateArticlesForReporter(ctx, reporter.ID)
	})
}

// GenerateArticlesFromEvents drafts articles for every enabled reporter from
// the events of the last 24 hours instead of raw messages.
func (g *ArticleGenerator) GenerateArticlesFromEvents(ctx context.Context) (map[string][]database.Article, error) {
	now := g.deps.now()
	events, err := g.deps.Store.EventsInRange(ctx, now.Add(-eventWindow), now)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no events in the last %v: %w", eventWindow, ErrNoContent)
	}

	sources := make([]string, len(events))
	for i, event := range events {
		sources[i] = event.Title + ": " + event.Summary
	}

	reporters, err := g.enabledReporters(ctx)
	if err != nil {
		return nil, err
	}

	editor, err := g.deps.Store.GetEditor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load editor: %w", err)
	}
	ad := g.mostRecentAd(ctx)

	return g.fanOut(ctx, reporters, func(ctx context.Context, reporter database.Reporter) ([]database.Article, error) {
		return g.generate(ctx, &reporter, editor, sources, ad, "events")
	})
}

func (g *ArticleGenerator) generate(ctx context.Context, reporter *database.Reporter, editor *database.Editor, sources []string, ad *database.AdEntry, origin string) ([]database.Article, error) {
	if len(sources) > editor.MessageSliceCount {
		sources = sources[:editor.MessageSliceCount]
	}

	structured := g.deps.Generator.GenerateArticle(ctx, generation.ArticleRequest{
		Reporter: reporter,
		Sources:  sources,
		Ad:       ad,
		Model:    editor.ModelName,
	})

	cited := citedIndices(structured.MessageIDs, len(sources))
	if len(cited) == 0 {
		slog.Info("No sourced story, skipping article", "reporter", reporter.ID, "fallback", structured.UsedFallback)
		return []database.Article{}, nil
	}

	article := database.Article{
		ID:                 database.GenerateID("article"),
		ReporterID:         reporter.ID,
		Headline:           structured.Headline,
		Body:               joinParagraphs(structured.LeadParagraph, structured.Body),
		GenerationTime:     g.deps.now(),
		Prompt:             structured.Prompt,
		MessageIDs:         cited,
		MessageTexts:       resolveTexts(sources, structured.MessageIDs, structured.PotentialMessageIDs),
		KeyQuotes:          structured.KeyQuotes,
		Sources:            structured.Sources,
		ReporterNotes:      structured.ReporterNotes,
		SocialMediaSummary: structured.SocialMediaSummary,
		UsedFallback:       structured.UsedFallback,
	}

	if err := g.deps.Store.SaveArticle(ctx, &article); err != nil {
		return nil, fmt.Errorf("failed to save article for reporter %s: %w", reporter.ID, err)
	}
	metrics.RecordArticles(origin, 1)

	slog.Info("Article generated", "reporter", reporter.ID, "article", article.ID, "sources", len(article.MessageIDs))
	return []database.Article{article}, nil
}

func (g *ArticleGenerator) fanOut(ctx context.Context, reporters []database.Reporter, run func(context.Context, database.Reporter) ([]database.Article, error)) (map[string][]database.Article, error) {
	results := make(map[string][]database.Article, len(reporters))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)

	for _, reporter := range reporters {
		eg.Go(func() error {
			articles, err := run(egCtx, reporter)
			if err != nil {
				slog.Error("Reporter generation failed", "reporter", reporter.ID, "error", err)
				articles = []database.Article{}
			}

			mu.Lock()
			results[reporter.ID] = articles
			mu.Unlock()
			return nil
		})
	}
	eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reporter generation interrupted: %w", err)
	}
	return results, nil
}

func (g *ArticleGenerator) enabledReporters(ctx context.Context) ([]database.Reporter, error) {
	reporters, err := g.deps.Store.ListReporters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reporters: %w", err)
	}

	enabled := make([]database.Reporter, 0, len(reporters))
	for _, reporter := range reporters {
		if reporter.Enabled {
			enabled = append(enabled, reporter)
		}
	}
	return enabled, nil
}

func (g *ArticleGenerator) mostRecentAd(ctx context.Context) *database.AdEntry {
	ad, err := g.deps.Store.MostRecentAd(ctx)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			slog.Warn("Failed to load most recent ad, continuing without", "error", err)
		}
		return nil
	}
	return ad
}

func joinParagraphs(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "\n\n")
}
