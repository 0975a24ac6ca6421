package generation

import (
	"github.com/lysyi3m/newsroom/app/database"
)

func fallbackArticle(reporter *database.Reporter, prompt string) StructuredArticle {
	return StructuredArticle{
		Headline:            "No story filed",
		LeadParagraph:       "The reporter could not file a story for this period.",
		Body:                "",
		KeyQuotes:           []string{},
		Sources:             []string{},
		ReporterNotes:       "Generated without model output for reporter " + reporter.ID + ".",
		SocialMediaSummary:  "",
		MessageIDs:          []int{},
		PotentialMessageIDs: []int{},
		Prompt:              prompt,
		UsedFallback:        true,
	}
}

func fallbackDailyContent() database.DailyEditionContent {
	return database.DailyEditionContent{
		FrontPageHeadline: "Today's Edition",
		FrontPageArticle:  "Today's summary is not available. The newspaper editions published over the last day remain available individually.",
		Topics: []database.Topic{
			{
				Name:                         "General",
				Headline:                     "News in brief",
				NewsStoryFirstParagraph:      "A full synthesis of today's editions could not be prepared.",
				NewsStorySecondParagraph:     "Please refer to the individual editions for the day's stories.",
				OneLineSummary:               "Summary unavailable.",
				SupportingSocialMediaMessage: "",
				SkepticalComment:             "",
				GullibleComment:              "",
			},
		},
		ModelFeedbackAboutThePrompt: database.PromptFeedback{},
		NewspaperName:               "The Daily",
	}
}
