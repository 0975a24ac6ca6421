package newsroom

import (
	"context"
	"errors"
	"time"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/generation"
	"github.com/lysyi3m/newsroom/app/social"
)

// ErrNoContent means there was nothing to assemble from.
var ErrNoContent = errors.New("no content available")

type Generator interface {
	GenerateArticle(ctx context.Context, req generation.ArticleRequest) generation.StructuredArticle
	SelectNewsworthyStories(ctx context.Context, articles []database.Article, editorPrompt, model string) generation.StorySelection
	SelectNotableEditions(ctx context.Context, editions []generation.EditionDigest, editorPrompt, model string) generation.DailySelection
	ExtractEvents(ctx context.Context, messages []string, editorPrompt, model string) generation.EventExtraction
}

type MessageSource interface {
	RecentMessages(ctx context.Context, limit int) ([]social.Message, error)
}

// Deps are shared by the article generator and the edition assembler.
type Deps struct {
	Store     database.Store
	Generator Generator
	Messages  MessageSource
	Clock     func() time.Time
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}
