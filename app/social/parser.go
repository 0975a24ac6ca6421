package social

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
	extractor    *TextExtractor
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
		extractor:    NewTextExtractor(),
	}
}

// Run parses an RSS, Atom or JSON feed into messages in feed order. Items
// without any text are dropped.
func (p *Parser) Run(data []byte) ([]Message, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	messages := make([]Message, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		message, ok := p.normalizeItem(item)
		if ok {
			messages = append(messages, message)
		}
	}

	return messages, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) (Message, bool) {
	text := p.extractor.Run(cmp.Or(item.Content, item.Description, item.Title))
	if text == "" {
		return Message{}, false
	}

	message := Message{
		ID:   cmp.Or(item.GUID, item.Link),
		Text: text,
	}
	if message.ID == "" {
		message.ID = contentHash(text)
	}

	if item.PublishedParsed != nil {
		message.Time = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		message.Time = *item.UpdatedParsed
	}

	return message, true
}

func contentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:8])
}
