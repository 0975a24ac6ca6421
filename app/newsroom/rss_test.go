package newsroom

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/newsroom/app/database"
)

func TestFeedGenerator(t *testing.T) {
	generator := NewFeedGenerator("https://news.example.com/", "1.2.3")

	editions := []database.DailyEdition{
		{
			ID:             "daily_2",
			GenerationTime: time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC),
			DailyEditionContent: database.DailyEditionContent{
				FrontPageHeadline: "Markets & Rockets",
				FrontPageArticle:  "A <busy> day.",
				NewspaperName:     "The Byte",
				Topics: []database.Topic{
					{Name: "Space", Headline: "Liftoff", NewsStoryFirstParagraph: "It flew ]]> high."},
				},
			},
		},
		{
			ID:             "daily_1",
			GenerationTime: time.Date(2023, 7, 2, 10, 0, 0, 0, time.UTC),
		},
	}

	output := generator.Run(editions, time.Now())

	var doc struct {
		Channel struct {
			Title string `xml:"title"`
			Items []struct {
				GUID     string   `xml:"guid"`
				Title    string   `xml:"title"`
				Link     string   `xml:"link"`
				Content  string   `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
				Category []string `xml:"category"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	if err := xml.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("Expected valid XML, got %v\n%s", err, output)
	}

	if doc.Channel.Title != "The Byte" {
		t.Errorf("Expected channel title 'The Byte', got '%s'", doc.Channel.Title)
	}
	if len(doc.Channel.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(doc.Channel.Items))
	}

	first := doc.Channel.Items[0]
	if first.Title != "Markets & Rockets" {
		t.Errorf("Expected escaped title to round-trip, got '%s'", first.Title)
	}
	if first.Link != "https://news.example.com/daily-editions/daily_2" {
		t.Errorf("Unexpected item link '%s'", first.Link)
	}
	if !strings.Contains(first.Content, "It flew ]]&gt; high.") {
		t.Errorf("Expected topic paragraph in content, got '%s'", first.Content)
	}
	if len(first.Category) != 1 || first.Category[0] != "Space" {
		t.Errorf("Expected category 'Space', got %v", first.Category)
	}

	if doc.Channel.Items[1].Title != "Daily Edition" {
		t.Errorf("Expected default title for empty headline, got '%s'", doc.Channel.Items[1].Title)
	}
	if !strings.Contains(output, "<generator>Newsroom/1.2.3</generator>") {
		t.Error("Expected generator element with version")
	}
}
