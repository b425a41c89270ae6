// Package report renders the fetched items and analysis into a
// deliverable artifact. HTML is the primary format; plain text is the
// guaranteed fallback, built from embedded templates with no external
// system dependency.
package report

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"newsbrief/internal/analyze"
	"newsbrief/internal/news"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Format selects the rendering.
type Format int

const (
	FormatHTML Format = iota
	FormatText
)

func (f Format) String() string {
	if f == FormatText {
		return "text"
	}
	return "html"
}

// Artifact is a rendered report: bytes plus enough metadata to save or
// send it.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Renderer holds the parsed report templates.
type Renderer struct {
	htmlTmpl *htmltemplate.Template
	textTmpl *texttemplate.Template
	now      func() time.Time
}

func NewRenderer() (*Renderer, error) {
	htmlTmpl, err := htmltemplate.ParseFS(templateFS, "templates/report.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML template: %w", err)
	}

	textTmpl, err := texttemplate.ParseFS(templateFS, "templates/report.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}

	return &Renderer{htmlTmpl: htmlTmpl, textTmpl: textTmpl, now: time.Now}, nil
}

type reportData struct {
	GeneratedAt time.Time
	TotalItems  int
	Groups      []sourceGroup
	Analysis    *analyze.Analysis
}

type sourceGroup struct {
	Source string
	Items  []news.Item
}

// Render produces the report in the requested format. Analysis may be
// nil, in which case the report carries the raw items only.
func (r *Renderer) Render(items []news.Item, analysis *analyze.Analysis, format Format) (*Artifact, error) {
	data := reportData{
		GeneratedAt: r.now(),
		TotalItems:  len(items),
		Groups:      groupBySource(items),
		Analysis:    analysis,
	}

	var buf bytes.Buffer
	stamp := data.GeneratedAt.Format("20060102_150405")

	switch format {
	case FormatHTML:
		if err := r.htmlTmpl.ExecuteTemplate(&buf, "report.html.tmpl", data); err != nil {
			return nil, fmt.Errorf("failed to render HTML report: %w", err)
		}
		return &Artifact{
			Name:        fmt.Sprintf("report_%s.html", stamp),
			ContentType: "text/html; charset=utf-8",
			Data:        buf.Bytes(),
		}, nil
	case FormatText:
		if err := r.textTmpl.ExecuteTemplate(&buf, "report.txt.tmpl", data); err != nil {
			return nil, fmt.Errorf("failed to render text report: %w", err)
		}
		return &Artifact{
			Name:        fmt.Sprintf("report_%s.txt", stamp),
			ContentType: "text/plain; charset=utf-8",
			Data:        buf.Bytes(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown report format: %d", format)
	}
}

// groupBySource partitions items by source, preserving first-seen
// source order and item order within a source.
func groupBySource(items []news.Item) []sourceGroup {
	index := make(map[string]int)
	groups := make([]sourceGroup, 0)

	for _, item := range items {
		i, ok := index[item.Source]
		if !ok {
			i = len(groups)
			index[item.Source] = i
			groups = append(groups, sourceGroup{Source: item.Source})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	return groups
}
