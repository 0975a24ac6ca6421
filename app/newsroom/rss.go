package newsroom

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/newsroom/app/database"
)

// FeedGenerator renders daily editions as an RSS 2.0 document.
type FeedGenerator struct {
	baseURL string
	version string
}

func NewFeedGenerator(baseURL, version string) *FeedGenerator {
	return &FeedGenerator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		version: version,
	}
}

// Run expects editions newest first.
func (g *FeedGenerator) Run(editions []database.DailyEdition, now time.Time) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	title := "Daily Editions"
	if len(editions) > 0 {
		title = cmp.Or(editions[0].NewspaperName, title)
	}
	g.writeElement(&buf, "title", title, 4)
	g.writeElement(&buf, "link", g.baseURL+"/daily-editions", 4)
	g.writeElement(&buf, "description", "Daily syntheses of the newsroom's editions", 4)

	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(g.baseURL+"/daily-editions/feed.xml")))

	lastBuildDate := now
	if len(editions) > 0 {
		lastBuildDate = editions[0].GenerationTime
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Newsroom/%s", g.version), 4)

	for _, edition := range editions {
		g.writeItem(&buf, edition)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String()
}

func (g *FeedGenerator) writeItem(buf *bytes.Buffer, edition database.DailyEdition) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(edition.ID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", cmp.Or(edition.FrontPageHeadline, "Daily Edition"), 6)
	g.writeElement(buf, "link", g.baseURL+"/daily-editions/"+edition.ID, 6)
	g.writeElement(buf, "description", cmp.Or(edition.FrontPageArticle, "No description available"), 6)

	if content := renderTopics(edition.Topics); content != "" {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(content)
		buf.WriteString("]]></content:encoded>\n")
	}

	g.writeElement(buf, "pubDate", edition.GenerationTime.Format(time.RFC1123Z), 6)

	for _, topic := range edition.Topics {
		if topic.Name != "" {
			g.writeElement(buf, "category", topic.Name, 6)
		}
	}

	buf.WriteString("    </item>\n")
}

func (g *FeedGenerator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func renderTopics(topics []database.Topic) string {
	var b strings.Builder
	for _, topic := range topics {
		fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(cmp.Or(topic.Headline, topic.Name)))
		for _, paragraph := range []string{topic.NewsStoryFirstParagraph, topic.NewsStorySecondParagraph} {
			if paragraph != "" {
				fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(paragraph))
			}
		}
		if topic.SupportingSocialMediaMessage != "" {
			fmt.Fprintf(&b, "<blockquote>%s</blockquote>", html.EscapeString(topic.SupportingSocialMediaMessage))
		}
	}
	return b.String()
}
