package social

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"
)

const maxFeedSize = 10 << 20

// Client reads the social stream from a syndication feed.
type Client struct {
	feedURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	parser     *Parser
}

func NewClient(feedURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		feedURL:    feedURL,
		userAgent:  userAgent,
		timeout:    timeout,
		httpClient: &http.Client{},
		parser:     NewParser(),
	}
}

// RecentMessages returns up to limit messages, newest first. With no feed
// configured the stream is empty.
func (c *Client) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	if c.feedURL == "" {
		return []Message{}, nil
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	messages, err := c.parser.Run(data)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(messages, func(a, b Message) int {
		return b.Time.Compare(a.Time)
	})
	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}

	slog.Debug("Social feed fetched", "url", c.feedURL, "messages", len(messages))
	return messages, nil
}

func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, */*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("social feed timed out after %v: %w", c.timeout, err)
		}
		return nil, fmt.Errorf("failed to fetch social feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("social feed returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read social feed: %w", err)
	}
	return data, nil
}
