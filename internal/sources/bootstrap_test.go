package sources

import (
	"testing"

	"newsbrief/internal/config"
)

func TestBootstrapRegistersConfiguredSources(t *testing.T) {
	disabled := false
	cfg := config.Default()
	cfg.Sources.GitHubTrending.Enabled = &disabled
	cfg.Sources.RSS = []config.RSSFeed{
		{Name: "FeedOne", URL: "https://one.example.com/rss"},
		{Name: "FeedTwo", URL: "https://two.example.com/rss", Enabled: &disabled},
	}

	registry, err := Bootstrap(cfg)
	if err != nil {
		t.Fatal(err)
	}

	descs := registry.List(All)
	wantOrder := []string{"HackerNews", "GitHubTrending", "FeedOne", "FeedTwo"}
	if len(descs) != len(wantOrder) {
		t.Fatalf("expected %d sources, got %d", len(wantOrder), len(descs))
	}
	for i, want := range wantOrder {
		if descs[i].Name != want {
			t.Errorf("position %d: got %s, want %s", i, descs[i].Name, want)
		}
	}

	enabled := registry.List(Enabled)
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled sources, got %d", len(enabled))
	}
	if enabled[0].Name != "HackerNews" || enabled[1].Name != "FeedOne" {
		t.Errorf("unexpected enabled set: %v, %v", enabled[0].Name, enabled[1].Name)
	}
}

func TestBootstrapRejectsDuplicateFeedNames(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.RSS = []config.RSSFeed{
		{Name: "Feed", URL: "https://one.example.com/rss"},
		{Name: "Feed", URL: "https://two.example.com/rss"},
	}

	if _, err := Bootstrap(cfg); err == nil {
		t.Fatal("duplicate feed names must fail bootstrap")
	}
}
