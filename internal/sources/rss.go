package sources

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"newsbrief/internal/news"
)

const maxSummaryLength = 500

// htmlStripper removes all markup from feed descriptions, leaving
// plain text for the report.
var htmlStripper = bluemonday.StrictPolicy()

// RSSSource fetches one RSS/Atom feed. Any number of instances can be
// registered, one per configured feed URL.
type RSSSource struct {
	desc    Descriptor
	feedURL string
	parser  *gofeed.Parser
}

func NewRSSSource(name, feedURL string, enabled bool) *RSSSource {
	return &RSSSource{
		desc: Descriptor{
			Name:        name,
			Description: fmt.Sprintf("RSS feed (%s)", feedURL),
			Kind:        KindFeed,
			Enabled:     enabled,
		},
		feedURL: feedURL,
		parser:  gofeed.NewParser(),
	}
}

func (r *RSSSource) Descriptor() Descriptor {
	return r.desc
}

func (r *RSSSource) Fetch(ctx context.Context, limit int) ([]news.Item, error) {
	feed, err := r.parser.ParseURLWithContext(r.feedURL, ctx)
	if err != nil {
		return nil, news.NewAdapterError(classifyFeedError(err), fmt.Errorf("failed to parse feed: %w", err))
	}

	if limit > len(feed.Items) {
		limit = len(feed.Items)
	}

	items := make([]news.Item, 0, limit)
	for _, feedItem := range feed.Items[:limit] {
		if feedItem.Title == "" {
			continue
		}

		item := news.Item{
			Source:  r.desc.Name,
			Title:   strings.TrimSpace(feedItem.Title),
			URL:     feedItem.Link,
			Summary: cleanSummary(feedItem.Description),
		}
		if feedItem.PublishedParsed != nil {
			item.PublishedAt = feedItem.PublishedParsed
		} else if feedItem.UpdatedParsed != nil {
			item.PublishedAt = feedItem.UpdatedParsed
		}

		items = append(items, item)
	}

	return items, nil
}

// classifyFeedError separates transport failures from malformed feed
// content.
func classifyFeedError(err error) news.ErrorKind {
	var httpErr gofeed.HTTPError
	var urlErr *url.Error
	if errors.As(err, &httpErr) || errors.As(err, &urlErr) {
		return news.ErrNetwork
	}
	return news.ErrParse
}

func cleanSummary(description string) string {
	text := html.UnescapeString(htmlStripper.Sanitize(description))
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxSummaryLength {
		text = text[:maxSummaryLength]
	}
	return text
}
