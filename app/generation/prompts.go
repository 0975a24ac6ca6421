package generation

import (
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/llm"
)

const (
	// An ad line follows every adInterval source lines.
	adInterval = 20
	// Characters of article body shown in selection digests.
	digestBodyLength = 300
)

var articleSchema = llm.Object(map[string]any{
	"headline":            llm.String("Concise, factual headline"),
	"leadParagraph":       llm.String("Opening paragraph summarising the story"),
	"body":                llm.String("Remaining paragraphs of the article"),
	"keyQuotes":           llm.Array(llm.String(""), "Direct quotes taken from the sources"),
	"sources":             llm.Array(llm.String(""), "Who or what the information comes from"),
	"reporterNotes":       llm.String("Notes for the editor about confidence and gaps"),
	"socialMediaSummary":  llm.String("One-line summary suitable for social media"),
	"messageIds":          llm.Array(llm.Integer(""), "Numbers of the source lines the article is based on"),
	"potentialMessageIds": llm.Array(llm.Integer(""), "Numbers of further relevant source lines"),
})

var storySelectionSchema = llm.Object(map[string]any{
	"selectedStoryIndices": llm.Array(llm.Integer(""), "Numbers of the 3 to 5 stories to publish"),
})

var dailyEditionSchema = llm.Object(map[string]any{
	"frontPageHeadline": llm.String("Headline for the front page"),
	"frontPageArticle":  llm.String("Front page article synthesising the day"),
	"topics": llm.Array(llm.Object(map[string]any{
		"name":                         llm.String("Topic name"),
		"headline":                     llm.String("Topic headline"),
		"newsStoryFirstParagraph":      llm.String(""),
		"newsStorySecondParagraph":     llm.String(""),
		"oneLineSummary":               llm.String(""),
		"supportingSocialMediaMessage": llm.String("A social post that supports the story"),
		"skepticalComment":             llm.String("A reader comment doubting the story"),
		"gullibleComment":              llm.String("A reader comment accepting the story uncritically"),
	}), "The day's main topics"),
	"modelFeedbackAboutThePrompt": llm.Object(map[string]any{
		"positive": llm.String("What worked in the editor's instructions"),
		"negative": llm.String("What could be improved in the editor's instructions"),
	}),
	"newspaperName": llm.String("Name of the newspaper"),
})

var eventsSchema = llm.Object(map[string]any{
	"events": llm.Array(llm.Object(map[string]any{
		"title":      llm.String("Short name of the event"),
		"summary":    llm.String("Two or three sentences describing what happened"),
		"messageIds": llm.Array(llm.Integer(""), "Numbers of the messages that mention the event"),
	}), "Distinct newsworthy events"),
})

func articleSystemPrompt(reporter *database.Reporter) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(reporter.Prompt))
	if len(reporter.Beats) > 0 {
		fmt.Fprintf(&b, "\n\nYour beats: %s.", strings.Join(reporter.Beats, ", "))
	}
	b.WriteString("\n\nYou write news articles strictly from the numbered source lines you are given. " +
		"Only report what the sources support and cite the numbers of the lines you used in messageIds.")
	return b.String()
}

func articleUserPrompt(sources []string, ad *database.AdEntry) string {
	var b strings.Builder
	b.WriteString("Recent source lines:\n\n")

	for i, text := range sources {
		n := i + 1
		fmt.Fprintf(&b, "%d. %s\n", n, singleLine(text))
		if ad != nil && n%adInterval == 0 {
			fmt.Fprintf(&b, "\n%s\n\n", strings.TrimSpace(ad.PromptContent))
		}
	}

	b.WriteString("\nWrite one article about the most newsworthy development in your beats. " +
		"messageIds must list the line numbers the article relies on; potentialMessageIds may list other relevant lines. " +
		"If nothing is newsworthy, return an empty messageIds list.")
	return b.String()
}

func storySelectionPrompt(articles []database.Article) string {
	var b strings.Builder
	b.WriteString("Candidate stories:\n\n")
	for i, article := range articles {
		fmt.Fprintf(&b, "%d. %s\n%s\n\n", i+1, article.Headline, truncate(article.Body, digestBodyLength))
	}
	b.WriteString("Return the numbers of the 3 to 5 stories most worth publishing in this edition.")
	return b.String()
}

func dailyEditionPrompt(editions []EditionDigest) string {
	var b strings.Builder
	b.WriteString("Newspaper editions from the last 24 hours:\n\n")
	for i, digest := range editions {
		fmt.Fprintf(&b, "Edition %d (%s):\n", i+1, digest.Edition.GenerationTime.UTC().Format(time.RFC3339))
		for _, article := range digest.Articles {
			fmt.Fprintf(&b, "- %s: %s\n", article.Headline, truncate(article.Body, digestBodyLength))
		}
		b.WriteString("\n")
	}
	b.WriteString("Compose the daily edition: a front page, the main topics with two paragraphs each, " +
		"a supporting social post, one skeptical and one gullible reader comment per topic, " +
		"and honest feedback about the editor's instructions.")
	return b.String()
}

func eventsPrompt(messages []string) string {
	var b strings.Builder
	b.WriteString("Recent social media messages:\n\n")
	for i, text := range messages {
		fmt.Fprintf(&b, "%d. %s\n", i+1, singleLine(text))
	}
	b.WriteString("\nGroup the messages into distinct newsworthy events. Cite the message numbers for each event. " +
		"Ignore chatter that is not news.")
	return b.String()
}

func editorSystemPrompt(editorPrompt string) string {
	prompt := strings.TrimSpace(editorPrompt)
	if prompt == "" {
		return "You are the editor-in-chief of a newspaper."
	}
	return prompt
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
