// Package news holds the normalized data contract shared by every
// stage of the pipeline: the Item model, run reports, and the error
// taxonomy. It has no behavior beyond key normalization.
package news

import (
	"net/url"
	"strings"
	"time"
)

// Item is one normalized unit of content produced by a source adapter.
type Item struct {
	Source      string     `json:"source"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Score       int        `json:"score,omitempty"`
}

// DedupKey returns the identity used to decide two items are the same:
// the normalized URL, or source+title when the item carries no URL.
func (i Item) DedupKey() string {
	if i.URL != "" {
		return NormalizeURL(i.URL)
	}
	return i.Source + "\x00" + i.Title
}

// NormalizeURL canonicalizes a URL for dedup comparison: lowercase
// scheme and host, default ports stripped, fragment dropped, trailing
// slash trimmed on non-root paths. Query strings are kept because two
// query-distinct pages are different content. Unparseable input is
// returned trimmed, so it still compares byte-wise.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	u.Host = host
	u.Fragment = ""

	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String()
}

// Failure records one adapter that did not produce items during a run.
type Failure struct {
	Source  string        `json:"source"`
	Kind    ErrorKind     `json:"kind"`
	Message string        `json:"message"`
	Elapsed time.Duration `json:"elapsed"`
}

// RunReport is the aggregate result of one orchestrator invocation.
// It is constructed fresh per run and immutable once returned; a run
// where every adapter failed is still a valid report, not an error.
type RunReport struct {
	Items     []Item    `json:"items"`
	Succeeded []string  `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}
