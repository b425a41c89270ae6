package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"newsbrief/internal/news"
)

// HackerNewsSource fetches top stories from the official Firebase API.
// No API key is required.
type HackerNewsSource struct {
	desc       Descriptor
	apiURL     string
	httpClient *http.Client
	storyType  string
}

type hnStory struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Descendants int    `json:"descendants"`
	Type        string `json:"type"`
}

func NewHackerNewsSource(enabled bool) *HackerNewsSource {
	return &HackerNewsSource{
		desc: Descriptor{
			Name:        "HackerNews",
			Description: "Hacker News top stories",
			Kind:        KindAPI,
			Enabled:     enabled,
		},
		apiURL:     "https://hacker-news.firebaseio.com/v0",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		storyType:  "topstories",
	}
}

func (h *HackerNewsSource) Descriptor() Descriptor {
	return h.desc
}

func (h *HackerNewsSource) Fetch(ctx context.Context, limit int) ([]news.Item, error) {
	storyIDs, err := h.fetchStoryIDs(ctx)
	if err != nil {
		return nil, err
	}

	if limit > len(storyIDs) {
		limit = len(storyIDs)
	}

	items := make([]news.Item, 0, limit)
	for _, id := range storyIDs[:limit] {
		select {
		case <-ctx.Done():
			return nil, news.NewAdapterError(news.ErrTimeout, ctx.Err())
		default:
		}

		story, err := h.fetchStory(ctx, id)
		if err != nil {
			// One broken story shouldn't sink the whole batch.
			slog.Warn("hackernews: skipping story", "id", id, "error", err)
			continue
		}
		if story.Title == "" {
			continue
		}

		url := story.URL
		if url == "" {
			// Ask/Show HN posts have no external link.
			url = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", story.ID)
		}

		published := time.Unix(story.Time, 0).UTC()
		items = append(items, news.Item{
			Source:      h.desc.Name,
			Title:       story.Title,
			URL:         url,
			PublishedAt: &published,
			Score:       story.Score,
		})
	}

	return items, nil
}

func (h *HackerNewsSource) fetchStoryIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := h.getJSON(ctx, fmt.Sprintf("%s/%s.json", h.apiURL, h.storyType), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (h *HackerNewsSource) fetchStory(ctx context.Context, id int64) (*hnStory, error) {
	var story hnStory
	if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.apiURL, id), &story); err != nil {
		return nil, err
	}
	return &story, nil
}

func (h *HackerNewsSource) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return news.NewAdapterError(news.ErrNetwork, fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return news.NewAdapterError(news.ErrNetwork, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return news.NewAdapterError(news.ErrNetwork, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return news.NewAdapterError(news.ErrNetwork, fmt.Errorf("failed to read response: %w", err))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return news.NewAdapterError(news.ErrParse, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	return nil
}
