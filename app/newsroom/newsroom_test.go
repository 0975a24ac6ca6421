package newsroom

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/generation"
	"github.com/lysyi3m/newsroom/app/social"
)

var testNow = time.UnixMilli(1700000000000)

func newTestStore(t *testing.T) *database.RedisStore {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	return database.NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

// fakeGenerator returns canned answers and records what it was asked.
type fakeGenerator struct {
	mu sync.Mutex

	article          generation.StructuredArticle
	articleRequests  []generation.ArticleRequest
	storyCandidates  []database.Article
	selectAll        bool
	editionDigests   []generation.EditionDigest
	extraction       generation.EventExtraction
	extractedFromMsg []string
	onArticle        func()
}

func (f *fakeGenerator) GenerateArticle(ctx context.Context, req generation.ArticleRequest) generation.StructuredArticle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articleRequests = append(f.articleRequests, req)
	if f.onArticle != nil {
		f.onArticle()
	}
	article := f.article
	article.Prompt = "prompt for " + req.Reporter.ID
	return article
}

func (f *fakeGenerator) SelectNewsworthyStories(ctx context.Context, articles []database.Article, editorPrompt, model string) generation.StorySelection {
	f.storyCandidates = articles
	selected := articles
	if !f.selectAll && len(articles) > 1 {
		selected = articles[:1]
	}
	return generation.StorySelection{Selected: selected, FullPrompt: "select stories"}
}

func (f *fakeGenerator) SelectNotableEditions(ctx context.Context, editions []generation.EditionDigest, editorPrompt, model string) generation.DailySelection {
	f.editionDigests = editions
	return generation.DailySelection{
		Content:    database.DailyEditionContent{FrontPageHeadline: "Daily headline", Topics: []database.Topic{{Name: "Tech"}}},
		FullPrompt: "select editions",
	}
}

func (f *fakeGenerator) ExtractEvents(ctx context.Context, messages []string, editorPrompt, model string) generation.EventExtraction {
	f.extractedFromMsg = messages
	return f.extraction
}

type fakeMessages struct {
	messages []social.Message
	err      error
}

func (f *fakeMessages) RecentMessages(ctx context.Context, limit int) ([]social.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.messages) > limit {
		return f.messages[:limit], nil
	}
	return f.messages, nil
}

func textMessages(texts ...string) []social.Message {
	messages := make([]social.Message, len(texts))
	for i, text := range texts {
		messages[i] = social.Message{ID: text, Text: text, Time: testNow.Add(-time.Duration(i) * time.Minute)}
	}
	return messages
}

func testDeps(store database.Store, generator *fakeGenerator, messages *fakeMessages) Deps {
	return Deps{
		Store:     store,
		Generator: generator,
		Messages:  messages,
		Clock:     func() time.Time { return testNow },
	}
}

func saveReporter(t *testing.T, store database.Store, id string, enabled bool) {
	t.Helper()
	reporter := &database.Reporter{ID: id, Beats: []string{"tech"}, Prompt: "Report on " + id, Enabled: enabled, CreatedAt: testNow.Add(-time.Hour)}
	if err := store.SaveReporter(context.Background(), reporter); err != nil {
		t.Fatalf("failed to save reporter: %v", err)
	}
}

func saveArticle(t *testing.T, store database.Store, id, reporterID string, at time.Time) {
	t.Helper()
	article := &database.Article{ID: id, ReporterID: reporterID, Headline: "Headline " + id, GenerationTime: at, MessageIDs: []int{1}}
	if err := store.SaveArticle(context.Background(), article); err != nil {
		t.Fatalf("failed to save article: %v", err)
	}
}

func TestGenerateArticlesForReporterResolvesCitedMessages(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	saveReporter(t, store, "r1", true)

	generator := &fakeGenerator{article: generation.StructuredArticle{
		Headline:      "Headline",
		LeadParagraph: "Lead.",
		Body:          "Body.",
		MessageIDs:    []int{1, 2},
	}}
	articles, err := NewArticleGenerator(testDeps(store, generator, &fakeMessages{messages: textMessages("a", "b", "c")}), 1).
		GenerateArticlesForReporter(ctx, "r1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(articles) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(articles))
	}
	article := articles[0]
	if len(article.MessageTexts) != 2 || article.MessageTexts[0] != "a" || article.MessageTexts[1] != "b" {
		t.Errorf("Expected message texts [a b], got %v", article.MessageTexts)
	}
	if article.Body != "Lead.\n\nBody." {
		t.Errorf("Expected lead and body joined, got %q", article.Body)
	}
	if !article.GenerationTime.Equal(testNow) {
		t.Errorf("Expected generation time %v, got %v", testNow, article.GenerationTime)
	}
	if article.Prompt != "prompt for r1" {
		t.Errorf("Expected prompt to be stored, got %q", article.Prompt)
	}

	stored, err := store.RecentArticles(ctx, "r1", 10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(stored) != 1 || stored[0].ID != article.ID {
		t.Errorf("Expected the article to be persisted, got %v", stored)
	}
}

func TestGenerateArticlesForReporterSkipsUnsourcedArticles(t *testing.T) {
	tests := []struct {
		name       string
		messageIDs []int
	}{
		{"no ids", []int{}},
		{"only out of range ids", []int{0, 4, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t)
			saveReporter(t, store, "r1", true)

			generator := &fakeGenerator{article: generation.StructuredArticle{Headline: "Nothing", MessageIDs: tt.messageIDs, UsedFallback: true}}
			articles, err := NewArticleGenerator(testDeps(store, generator, &fakeMessages{messages: textMessages("a", "b", "c")}), 1).
				GenerateArticlesForReporter(ctx, "r1")
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if len(articles) != 0 {
				t.Errorf("Expected no articles, got %d", len(articles))
			}

			stored, _ := store.RecentArticles(ctx, "r1", 0)
			if len(stored) != 0 {
				t.Errorf("Expected nothing persisted, got %d articles", len(stored))
			}
		})
	}
}

func TestGenerateArticlesForReporterUnionOfIDs(t *testing.T) {
	store := newTestStore(t)
	saveReporter(t, store, "r1", true)

	generator := &fakeGenerator{article: generation.StructuredArticle{
		Headline:            "Headline",
		MessageIDs:          []int{2},
		PotentialMessageIDs: []int{3, 2, 9, 1},
	}}
	articles, err := NewArticleGenerator(testDeps(store, generator, &fakeMessages{messages: textMessages("a", "b", "c")}), 1).
		GenerateArticlesForReporter(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []string{"b", "c", "a"}
	got := articles[0].MessageTexts
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
			break
		}
	}
	if len(articles[0].MessageIDs) != 1 || articles[0].MessageIDs[0] != 2 {
		t.Errorf("Expected cited ids [2], got %v", articles[0].MessageIDs)
	}
}

func TestGenerateArticlesForReporterEnrichments(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	saveReporter(t, store, "r1", true)
	store.SaveAd(ctx, &database.AdEntry{ID: "ad_old", PromptContent: "old", CreatedAt: testNow.Add(-time.Hour)})
	store.SaveAd(ctx, &database.AdEntry{ID: "ad_new", PromptContent: "new", CreatedAt: testNow})

	generator := &fakeGenerator{article: generation.StructuredArticle{MessageIDs: []int{}}}
	articleGenerator := NewArticleGenerator(testDeps(store, generator, &fakeMessages{err: errors.New("feed down")}), 1)

	if _, err := articleGenerator.GenerateArticlesForReporter(ctx, "r1"); err != nil {
		t.Fatalf("Expected feed failure to be tolerated, got %v", err)
	}

	req := generator.articleRequests[0]
	if len(req.Sources) != 0 {
		t.Errorf("Expected no sources when the feed fails, got %d", len(req.Sources))
	}
	if req.Ad == nil || req.Ad.ID != "ad_new" {
		t.Errorf("Expected most recent ad 'ad_new', got %+v", req.Ad)
	}
}

func TestGenerateArticlesForReporterNotFound(t *testing.T) {
	store := newTestStore(t)
	articleGenerator := NewArticleGenerator(testDeps(store, &fakeGenerator{}, &fakeMessages{}), 1)

	_, err := articleGenerator.GenerateArticlesForReporter(context.Background(), "missing")
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// failingStore fails article saves for one reporter.
type failingStore struct {
	database.Store
	reporterID string
}

func (s *failingStore) SaveArticle(ctx context.Context, article *database.Article) error {
	if article.ReporterID == s.reporterID {
		return errors.New("write failed")
	}
	return s.Store.SaveArticle(ctx, article)
}

func TestGenerateAllReporterArticlesIsolatesFailures(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		store := newTestStore(t)
		saveReporter(t, store, "r1", true)
		saveReporter(t, store, "r2", false)
		saveReporter(t, store, "r3", true)

		generator := &fakeGenerator{article: generation.StructuredArticle{Headline: "Headline", MessageIDs: []int{1}}}
		deps := testDeps(&failingStore{Store: store, reporterID: "r3"}, generator, &fakeMessages{messages: textMessages("a")})

		results, err := NewArticleGenerator(deps, concurrency).GenerateAllReporterArticles(context.Background())
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		if _, ok := results["r2"]; ok {
			t.Error("Expected disabled reporter to be skipped")
		}
		if len(results["r1"]) != 1 {
			t.Errorf("Expected 1 article for r1, got %d", len(results["r1"]))
		}
		articles, ok := results["r3"]
		if !ok || len(articles) != 0 {
			t.Errorf("Expected empty result for failing reporter r3, got %v (present %v)", articles, ok)
		}
	}
}

func TestGenerateAllReporterArticlesFailsWhenCancelled(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		store := newTestStore(t)
		saveReporter(t, store, "r1", true)
		saveReporter(t, store, "r2", true)
		saveReporter(t, store, "r3", true)

		ctx, cancel := context.WithCancel(context.Background())
		generator := &fakeGenerator{
			article:   generation.StructuredArticle{Headline: "Headline", MessageIDs: []int{1}},
			onArticle: cancel,
		}
		deps := testDeps(store, generator, &fakeMessages{messages: textMessages("a")})

		results, err := NewArticleGenerator(deps, concurrency).GenerateAllReporterArticles(ctx)
		cancel()

		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
		if results != nil {
			t.Errorf("Expected no results for an interrupted batch, got %v", results)
		}
	}
}

func TestGenerateArticlesFromEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	saveReporter(t, store, "r1", true)
	store.SaveEvent(ctx, &database.Event{ID: "event_old", Title: "Old", Summary: "stale", GenerationTime: testNow.Add(-25 * time.Hour)})
	store.SaveEvent(ctx, &database.Event{ID: "event_new", Title: "Launch", Summary: "A rocket launched.", GenerationTime: testNow.Add(-time.Hour)})

	generator := &fakeGenerator{article: generation.StructuredArticle{Headline: "Rocket", MessageIDs: []int{1}}}
	results, err := NewArticleGenerator(testDeps(store, generator, &fakeMessages{}), 1).GenerateArticlesFromEvents(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(results["r1"]) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(results["r1"]))
	}
	if got := results["r1"][0].MessageTexts; len(got) != 1 || got[0] != "Launch: A rocket launched." {
		t.Errorf("Expected event text as source, got %v", got)
	}
}

func TestGenerateArticlesFromEventsWithoutEvents(t *testing.T) {
	store := newTestStore(t)
	saveReporter(t, store, "r1", true)

	_, err := NewArticleGenerator(testDeps(store, &fakeGenerator{}, &fakeMessages{}), 1).GenerateArticlesFromEvents(context.Background())
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("Expected ErrNoContent, got %v", err)
	}
}

func TestGenerateHourlyEditionWindow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	saveReporter(t, store, "r1", true)
	saveReporter(t, store, "r2", false)

	saveArticle(t, store, "too_old", "r1", testNow.Add(-3*time.Hour-time.Millisecond))
	saveArticle(t, store, "boundary", "r1", testNow.Add(-3*time.Hour))
	saveArticle(t, store, "recent", "r2", testNow.Add(-time.Hour))
	saveArticle(t, store, "now", "r1", testNow)

	generator := &fakeGenerator{selectAll: true}
	edition, err := NewEditionAssembler(testDeps(store, generator, &fakeMessages{})).GenerateHourlyEdition(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []string{"boundary", "recent", "now"}
	if len(generator.storyCandidates) != len(want) {
		t.Fatalf("Expected %d candidates, got %d", len(want), len(generator.storyCandidates))
	}
	for i, id := range want {
		if generator.storyCandidates[i].ID != id {
			t.Errorf("Expected candidate %d to be '%s', got '%s'", i, id, generator.storyCandidates[i].ID)
		}
	}

	if len(edition.Stories) != 3 {
		t.Errorf("Expected 3 stories, got %d", len(edition.Stories))
	}
	if edition.Prompt != "select stories" {
		t.Errorf("Expected selection prompt to be stored, got %q", edition.Prompt)
	}

	stored, err := store.GetEdition(ctx, edition.ID)
	if err != nil {
		t.Fatalf("Expected edition to be persisted, got %v", err)
	}
	if !stored.GenerationTime.Equal(testNow) {
		t.Errorf("Expected generation time %v, got %v", testNow, stored.GenerationTime)
	}
}

func TestGenerateHourlyEditionNoContent(t *testing.T) {
	ctx := context.Background()

	t.Run("no reporters", func(t *testing.T) {
		store := newTestStore(t)
		_, err := NewEditionAssembler(testDeps(store, &fakeGenerator{}, &fakeMessages{})).GenerateHourlyEdition(ctx)
		if !errors.Is(err, ErrNoContent) {
			t.Errorf("Expected ErrNoContent, got %v", err)
		}
	})

	t.Run("no recent articles", func(t *testing.T) {
		store := newTestStore(t)
		saveReporter(t, store, "r1", true)
		saveArticle(t, store, "old", "r1", testNow.Add(-4*time.Hour))

		_, err := NewEditionAssembler(testDeps(store, &fakeGenerator{}, &fakeMessages{})).GenerateHourlyEdition(ctx)
		if !errors.Is(err, ErrNoContent) {
			t.Errorf("Expected ErrNoContent, got %v", err)
		}

		editions, _ := store.RecentEditions(ctx, 0)
		if len(editions) != 0 {
			t.Errorf("Expected no edition to be created, got %d", len(editions))
		}
	})
}

func TestGenerateDailyEditionWindow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	saveReporter(t, store, "r1", true)
	saveArticle(t, store, "article_old", "r1", testNow.Add(-26*time.Hour))
	saveArticle(t, store, "article_new", "r1", testNow.Add(-2*time.Hour))

	store.SaveEdition(ctx, &database.NewspaperEdition{ID: "edition_old", Stories: []string{"article_old"}, GenerationTime: testNow.Add(-25 * time.Hour)})
	store.SaveEdition(ctx, &database.NewspaperEdition{ID: "edition_new", Stories: []string{"article_new", "article_deleted"}, GenerationTime: testNow.Add(-time.Hour)})

	generator := &fakeGenerator{}
	daily, err := NewEditionAssembler(testDeps(store, generator, &fakeMessages{})).GenerateDailyEdition(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(generator.editionDigests) != 1 {
		t.Fatalf("Expected 1 edition digest, got %d", len(generator.editionDigests))
	}
	digest := generator.editionDigests[0]
	if digest.Edition.ID != "edition_new" {
		t.Errorf("Expected 'edition_new', got '%s'", digest.Edition.ID)
	}
	if len(digest.Articles) != 1 || digest.Articles[0].ID != "article_new" {
		t.Errorf("Expected only 'article_new' to be hydrated, got %v", digest.Articles)
	}

	if len(daily.Editions) != 1 || daily.Editions[0] != "edition_new" {
		t.Errorf("Expected daily edition to reference 'edition_new', got %v", daily.Editions)
	}
	if daily.FrontPageHeadline != "Daily headline" {
		t.Errorf("Expected generated content, got headline %q", daily.FrontPageHeadline)
	}

	if _, err := store.GetDailyEdition(ctx, daily.ID); err != nil {
		t.Errorf("Expected daily edition to be persisted, got %v", err)
	}
}

func TestGenerateDailyEditionNoContent(t *testing.T) {
	store := newTestStore(t)
	store.SaveEdition(context.Background(), &database.NewspaperEdition{ID: "edition_old", GenerationTime: testNow.Add(-25 * time.Hour)})

	_, err := NewEditionAssembler(testDeps(store, &fakeGenerator{}, &fakeMessages{})).GenerateDailyEdition(context.Background())
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("Expected ErrNoContent, got %v", err)
	}
}

func TestGenerateEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	generator := &fakeGenerator{extraction: generation.EventExtraction{Events: []generation.ExtractedEvent{
		{Title: "Launch", Summary: "A rocket launched.", MessageIDs: []int{2, 2, 3}},
		{Title: "Rumour", Summary: "Unsourced.", MessageIDs: []int{7}},
	}}}
	events, err := NewEditionAssembler(testDeps(store, generator, &fakeMessages{messages: textMessages("hi", "rocket", "liftoff")})).GenerateEvents(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(generator.extractedFromMsg) != 3 {
		t.Errorf("Expected 3 messages passed to extraction, got %d", len(generator.extractedFromMsg))
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 sourced event, got %d", len(events))
	}
	if got := events[0].MessageTexts; len(got) != 2 || got[0] != "rocket" || got[1] != "liftoff" {
		t.Errorf("Expected texts [rocket liftoff], got %v", got)
	}

	stored, _ := store.RecentEvents(ctx, 0)
	if len(stored) != 1 {
		t.Errorf("Expected 1 stored event, got %d", len(stored))
	}
}

func TestGenerateEventsWithoutMessages(t *testing.T) {
	store := newTestStore(t)

	_, err := NewEditionAssembler(testDeps(store, &fakeGenerator{}, &fakeMessages{})).GenerateEvents(context.Background())
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("Expected ErrNoContent, got %v", err)
	}
}
