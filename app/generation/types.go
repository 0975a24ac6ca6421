package generation

import (
	"github.com/lysyi3m/newsroom/app/database"
)

// StructuredArticle is the model's answer for one article. MessageIDs and
// PotentialMessageIDs are 1-based positions in the numbered source list.
type StructuredArticle struct {
	Headline            string   `json:"headline"`
	LeadParagraph       string   `json:"leadParagraph"`
	Body                string   `json:"body"`
	KeyQuotes           []string `json:"keyQuotes"`
	Sources             []string `json:"sources"`
	ReporterNotes       string   `json:"reporterNotes"`
	SocialMediaSummary  string   `json:"socialMediaSummary"`
	MessageIDs          []int    `json:"messageIds"`
	PotentialMessageIDs []int    `json:"potentialMessageIds"`

	Prompt       string `json:"-"`
	UsedFallback bool   `json:"-"`
}

type ArticleRequest struct {
	Reporter *database.Reporter
	// Sources are listed in the prompt as "{n}. {text}", n starting at 1.
	Sources []string
	Ad      *database.AdEntry
	Model   string
}

type StorySelection struct {
	Selected     []database.Article
	FullPrompt   string
	UsedFallback bool
}

// EditionDigest is a newspaper edition with its surviving articles.
type EditionDigest struct {
	Edition  database.NewspaperEdition
	Articles []database.Article
}

type DailySelection struct {
	Content      database.DailyEditionContent
	FullPrompt   string
	UsedFallback bool
}

type ExtractedEvent struct {
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	MessageIDs []int  `json:"messageIds"`
}

type EventExtraction struct {
	Events       []ExtractedEvent
	FullPrompt   string
	UsedFallback bool
}
