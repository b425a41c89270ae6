package sources

import (
	"fmt"

	"newsbrief/internal/config"
)

// Bootstrap builds the process-wide registry from the static adapter
// manifest. Adding a source means adding a constructor here (and, for
// feeds, a config entry); nothing in the orchestrator changes. A
// duplicate name is startup-fatal.
func Bootstrap(cfg *config.Config) (*Registry, error) {
	registry := NewRegistry()

	hn := NewHackerNewsSource(cfg.Sources.HackerNews.IsEnabled())
	if err := registry.Register(hn.Descriptor(), hn); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	gh := NewGitHubTrendingSource(cfg.Sources.GitHubTrending.IsEnabled())
	if err := registry.Register(gh.Descriptor(), gh); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	for _, feed := range cfg.Sources.RSS {
		rss := NewRSSSource(feed.Name, feed.URL, feed.IsEnabled())
		if err := registry.Register(rss.Descriptor(), rss); err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
	}

	return registry, nil
}
