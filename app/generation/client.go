package generation

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/llm"
	"github.com/lysyi3m/newsroom/app/metrics"
)

// Completer is the schema-constrained completion call.
type Completer interface {
	Complete(ctx context.Context, req llm.Request, out any) error
}

const (
	minSelectedStories = 3
	maxSelectedStories = 5
)

// Client turns newsroom inputs into model requests. None of its operations
// return errors: a failed call is replaced by fallback content and flagged
// with UsedFallback.
type Client struct {
	completer Completer
	intN      func(n int) int
	shuffle   func(n int, swap func(i, j int))
}

func NewClient(completer Completer) *Client {
	return &Client{
		completer: completer,
		intN:      rand.IntN,
		shuffle:   rand.Shuffle,
	}
}

func (c *Client) GenerateArticle(ctx context.Context, req ArticleRequest) StructuredArticle {
	system := articleSystemPrompt(req.Reporter)
	user := articleUserPrompt(req.Sources, req.Ad)
	prompt := system + "\n\n" + user

	var article StructuredArticle
	err := c.completer.Complete(ctx, llm.Request{
		Model:        req.Model,
		SystemPrompt: system,
		UserPrompt:   user,
		SchemaName:   "article",
		Schema:       articleSchema,
	}, &article)
	if err != nil {
		slog.Warn("Article generation failed, using fallback", "reporter", req.Reporter.ID, "error", err)
		metrics.RecordFallback("generate_article")
		return fallbackArticle(req.Reporter, prompt)
	}

	article.Prompt = prompt
	return article
}

// SelectNewsworthyStories asks the model for 3-5 story numbers. Invalid
// numbers are dropped; if none remain a random 3-5 are used instead.
func (c *Client) SelectNewsworthyStories(ctx context.Context, articles []database.Article, editorPrompt, model string) StorySelection {
	system := editorSystemPrompt(editorPrompt)
	user := storySelectionPrompt(articles)
	selection := StorySelection{FullPrompt: system + "\n\n" + user}

	if len(articles) == 0 {
		selection.Selected = []database.Article{}
		return selection
	}

	var answer struct {
		SelectedStoryIndices []int `json:"selectedStoryIndices"`
	}
	err := c.completer.Complete(ctx, llm.Request{
		Model:        model,
		SystemPrompt: system,
		UserPrompt:   user,
		SchemaName:   "story_selection",
		Schema:       storySelectionSchema,
	}, &answer)
	if err != nil {
		slog.Warn("Story selection failed, using random selection", "candidates", len(articles), "error", err)
	} else {
		selected := make([]database.Article, 0, len(answer.SelectedStoryIndices))
		for _, idx := range validIndices(answer.SelectedStoryIndices, len(articles)) {
			selected = append(selected, articles[idx])
		}
		if len(selected) > 0 {
			selection.Selected = selected
			return selection
		}
		slog.Warn("Story selection returned no usable indices, using random selection",
			"candidates", len(articles), "indices", answer.SelectedStoryIndices)
	}

	metrics.RecordFallback("select_stories")
	selection.Selected = c.randomStories(articles)
	selection.UsedFallback = true
	return selection
}

func (c *Client) SelectNotableEditions(ctx context.Context, editions []EditionDigest, editorPrompt, model string) DailySelection {
	system := editorSystemPrompt(editorPrompt)
	user := dailyEditionPrompt(editions)
	selection := DailySelection{FullPrompt: system + "\n\n" + user}

	var content database.DailyEditionContent
	err := c.completer.Complete(ctx, llm.Request{
		Model:        model,
		SystemPrompt: system,
		UserPrompt:   user,
		SchemaName:   "daily_edition",
		Schema:       dailyEditionSchema,
	}, &content)
	if err != nil || len(content.Topics) == 0 {
		slog.Warn("Daily edition generation failed, using fallback", "editions", len(editions), "error", err)
		metrics.RecordFallback("select_editions")
		selection.Content = fallbackDailyContent()
		selection.UsedFallback = true
		return selection
	}

	selection.Content = content
	return selection
}

// ExtractEvents falls back to no events.
func (c *Client) ExtractEvents(ctx context.Context, messages []string, editorPrompt, model string) EventExtraction {
	system := editorSystemPrompt(editorPrompt)
	user := eventsPrompt(messages)
	extraction := EventExtraction{FullPrompt: system + "\n\n" + user, Events: []ExtractedEvent{}}

	if len(messages) == 0 {
		return extraction
	}

	var answer struct {
		Events []ExtractedEvent `json:"events"`
	}
	err := c.completer.Complete(ctx, llm.Request{
		Model:        model,
		SystemPrompt: system,
		UserPrompt:   user,
		SchemaName:   "events",
		Schema:       eventsSchema,
	}, &answer)
	if err != nil {
		slog.Warn("Event extraction failed, using fallback", "messages", len(messages), "error", err)
		metrics.RecordFallback("extract_events")
		extraction.UsedFallback = true
		return extraction
	}

	if answer.Events != nil {
		extraction.Events = answer.Events
	}
	return extraction
}

func (c *Client) randomStories(articles []database.Article) []database.Article {
	count := min(len(articles), minSelectedStories+c.intN(maxSelectedStories-minSelectedStories+1))

	shuffled := make([]database.Article, len(articles))
	copy(shuffled, articles)
	c.shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[:count]
}

// validIndices converts 1-based indices to 0-based ones, dropping anything
// out of range and repeated values.
func validIndices(indices []int, n int) []int {
	seen := make(map[int]bool, len(indices))
	valid := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx < 1 || idx > n || seen[idx] {
			continue
		}
		seen[idx] = true
		valid = append(valid, idx-1)
	}
	return valid
}
