package report

import (
	"fmt"

	"github.com/gorilla/feeds"

	"newsbrief/internal/news"
)

// RenderFeed exports the deduplicated item set as an RSS document, so
// the digest can also be consumed by a feed reader. This is a separate
// export, not part of the HTML-to-text fallback ladder.
func (r *Renderer) RenderFeed(items []news.Item) (*Artifact, error) {
	now := r.now()

	feed := &feeds.Feed{
		Title:       "newsbrief digest",
		Link:        &feeds.Link{Href: ""},
		Description: "Aggregated items from all configured sources",
		Created:     now,
	}

	for _, item := range items {
		created := now
		if item.PublishedAt != nil {
			created = *item.PublishedAt
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       item.Title,
			Link:        &feeds.Link{Href: item.URL},
			Description: item.Summary,
			Author:      &feeds.Author{Name: item.Source},
			Id:          item.DedupKey(),
			Created:     created,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return nil, fmt.Errorf("failed to build RSS feed: %w", err)
	}

	return &Artifact{
		Name:        fmt.Sprintf("digest_%s.xml", now.Format("20060102_150405")),
		ContentType: "application/rss+xml; charset=utf-8",
		Data:        []byte(rss),
	}, nil
}
