// Package sources defines the adapter contract for fetching items from
// one external provider, the registry that catalogs adapters, and the
// concrete adapters shipped with the tool.
package sources

import (
	"context"

	"newsbrief/internal/news"
)

// Kind describes how an adapter obtains its items. Informational only;
// orchestration treats every kind the same.
type Kind string

const (
	KindAPI    Kind = "api"
	KindScrape Kind = "scrape"
	KindFeed   Kind = "feed"
)

// Descriptor is the metadata attached to a registered adapter.
type Descriptor struct {
	Name        string
	Description string
	Kind        Kind
	Enabled     bool
}

// Source fetches items from one provider.
//
// Contract: the returned slice never exceeds limit; an empty slice is
// success, not an error; errors should be (or wrap) *news.AdapterError
// so they can be classified. Fetch must respect ctx cancellation; an
// adapter that doesn't is abandoned by the orchestrator, not notified.
// A Source must be safe to call concurrently with other sources; it is
// invoked at most once per run.
type Source interface {
	Descriptor() Descriptor
	Fetch(ctx context.Context, limit int) ([]news.Item, error)
}
