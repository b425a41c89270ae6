package sources

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsbrief/internal/news"
)

// GitHubTrendingSource scrapes the github.com/trending page. GitHub
// exposes no API for trending repositories, so this adapter parses the
// HTML directly and is the one most exposed to structure changes.
type GitHubTrendingSource struct {
	desc       Descriptor
	baseURL    string
	httpClient *http.Client
}

func NewGitHubTrendingSource(enabled bool) *GitHubTrendingSource {
	return &GitHubTrendingSource{
		desc: Descriptor{
			Name:        "GitHubTrending",
			Description: "GitHub trending repositories",
			Kind:        KindScrape,
			Enabled:     enabled,
		},
		baseURL:    "https://github.com",
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

func (g *GitHubTrendingSource) Descriptor() Descriptor {
	return g.desc
}

func (g *GitHubTrendingSource) Fetch(ctx context.Context, limit int) ([]news.Item, error) {
	doc, err := g.fetchDocument(ctx, g.baseURL+"/trending")
	if err != nil {
		return nil, err
	}

	items := make([]news.Item, 0, limit)
	doc.Find("article.Box-row").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		item, ok := g.parseRow(row)
		if ok {
			items = append(items, item)
		}
		return len(items) < limit
	})

	return items, nil
}

func (g *GitHubTrendingSource) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, news.NewAdapterError(news.ErrNetwork, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, news.NewAdapterError(news.ErrNetwork, fmt.Errorf("request trending page: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, news.NewAdapterError(news.ErrNetwork, fmt.Errorf("github returned %s", resp.Status))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, news.NewAdapterError(news.ErrParse, fmt.Errorf("parse trending page: %w", err))
	}

	return doc, nil
}

func (g *GitHubTrendingSource) parseRow(row *goquery.Selection) (news.Item, bool) {
	link := row.Find("h2 a").First()
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return news.Item{}, false
	}

	// The heading text is "owner /\n  repo" with decorative whitespace.
	repo := strings.Join(strings.Fields(link.Text()), " ")
	if repo == "" {
		return news.Item{}, false
	}

	description := strings.TrimSpace(row.Find("p").First().Text())
	stars := parseStarCount(row.Find(`a[href$="/stargazers"]`).First().Text())

	return news.Item{
		Source:  g.desc.Name,
		Title:   repo,
		URL:     g.baseURL + href,
		Summary: description,
		Score:   stars,
	}, true
}

func parseStarCount(text string) int {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return n
}
