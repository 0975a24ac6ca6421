package database

import (
	"time"
)

type Reporter struct {
	ID        string    `json:"id"`
	Beats     []string  `json:"beats"`
	Prompt    string    `json:"prompt"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

// Article is immutable once stored. MessageIDs are the 1-based indices the
// model cited in the prompt it was generated from.
type Article struct {
	ID                 string    `json:"id"`
	ReporterID         string    `json:"reporterId"`
	Headline           string    `json:"headline"`
	Body               string    `json:"body"`
	GenerationTime     time.Time `json:"generationTime"`
	Prompt             string    `json:"prompt"`
	MessageIDs         []int     `json:"messageIds"`
	MessageTexts       []string  `json:"messageTexts"`
	KeyQuotes          []string  `json:"keyQuotes,omitempty"`
	Sources            []string  `json:"sources,omitempty"`
	ReporterNotes      string    `json:"reporterNotes,omitempty"`
	SocialMediaSummary string    `json:"socialMediaSummary,omitempty"`
	UsedFallback       bool      `json:"usedFallback"`
}

type NewspaperEdition struct {
	ID             string    `json:"id"`
	Stories        []string  `json:"stories"` // article ids, may dangle
	GenerationTime time.Time `json:"generationTime"`
	Prompt         string    `json:"prompt"`
	UsedFallback   bool      `json:"usedFallback"`
}

type Topic struct {
	Name                         string `json:"name"`
	Headline                     string `json:"headline"`
	NewsStoryFirstParagraph      string `json:"newsStoryFirstParagraph"`
	NewsStorySecondParagraph     string `json:"newsStorySecondParagraph"`
	OneLineSummary               string `json:"oneLineSummary"`
	SupportingSocialMediaMessage string `json:"supportingSocialMediaMessage"`
	SkepticalComment             string `json:"skepticalComment"`
	GullibleComment              string `json:"gullibleComment"`
}

type PromptFeedback struct {
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

// DailyEditionContent is the model-produced part of a daily edition.
type DailyEditionContent struct {
	FrontPageHeadline           string         `json:"frontPageHeadline"`
	FrontPageArticle            string         `json:"frontPageArticle"`
	Topics                      []Topic        `json:"topics"`
	ModelFeedbackAboutThePrompt PromptFeedback `json:"modelFeedbackAboutThePrompt"`
	NewspaperName               string         `json:"newspaperName"`
}

type DailyEdition struct {
	ID             string    `json:"id"`
	Editions       []string  `json:"editions"`
	GenerationTime time.Time `json:"generationTime"`
	DailyEditionContent
	Prompt       string `json:"prompt"`
	UsedFallback bool   `json:"usedFallback"`
}

type Event struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	MessageIDs     []int     `json:"messageIds"`
	MessageTexts   []string  `json:"messageTexts"`
	GenerationTime time.Time `json:"generationTime"`
	UsedFallback   bool      `json:"usedFallback"`
}

type AdEntry struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Name          string    `json:"name"`
	BidPrice      float64   `json:"bidPrice"`
	PromptContent string    `json:"promptContent"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleEditor     Role = "editor"
	RoleAdvertiser Role = "advertiser"
	RoleReader     Role = "reader"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleAdvertiser, RoleReader:
		return true
	}
	return false
}

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

type JobStatus struct {
	Name        string     `json:"name"`
	Running     bool       `json:"running"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`
}

// leaseExpired reports whether a running claim taken at lastRun may be
// taken over at now.
func leaseExpired(lastRun *time.Time, now time.Time, lease time.Duration) bool {
	if lease <= 0 {
		return false
	}
	return lastRun == nil || !now.Before(lastRun.Add(lease))
}
