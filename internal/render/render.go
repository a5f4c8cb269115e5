// Package render turns the collected briefing data into the final HTML page.
package render

import (
	"embed"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"morningbrief/internal/llm"
	"morningbrief/internal/markets"
	"morningbrief/internal/news"
	"morningbrief/internal/schedule"
)

//go:embed templates/brief.html
var templates embed.FS

// BlockView is a display-ready free block or suggestion row.
type BlockView struct {
	Kind    string // empty for plain gaps
	StartHM string
	EndHM   string
	Minutes int
}

// MarketView is a display-ready watchlist row.
type MarketView struct {
	Ticker   string
	Price    float64
	PctD     float64
	Signal   string
	ChartURL string // relative to the output HTML; empty when capture failed
}

// NewsView is a display-ready article row.
type NewsView struct {
	Title       string
	URL         string
	Source      string
	PublishedAt string
	Snippet     string
}

// Data is the full template context.
type Data struct {
	GeneratedAt string
	MinBlock    int
	MaxAgeHours int

	Markets     []MarketView
	Blocks      []BlockView
	Suggestions []BlockView
	News        []NewsView

	EditorialSummary string
	EditorialMacro   string
	EditorialPicks   []string
}

// Brief executes the embedded template into outPath, creating parent
// directories as needed, and returns the absolute output path.
func Brief(data Data, outPath string) (string, error) {
	tpl, err := template.ParseFS(templates, "templates/brief.html")
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := tpl.Execute(f, data); err != nil {
		return "", err
	}

	return filepath.Abs(outPath)
}

// hm formats a naive wall-clock instant as HH:MM.
func hm(t time.Time) string {
	return t.Format("15:04")
}

// BlockViews converts engine gaps for the template.
func BlockViews(gaps []schedule.FreeGap) []BlockView {
	out := make([]BlockView, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, BlockView{StartHM: hm(g.Start), EndHM: hm(g.End), Minutes: g.Minutes})
	}
	return out
}

// SuggestionViews converts engine suggestions for the template.
func SuggestionViews(suggs []schedule.Suggestion) []BlockView {
	out := make([]BlockView, 0, len(suggs))
	for _, s := range suggs {
		out = append(out, BlockView{Kind: s.Kind, StartHM: hm(s.Start), EndHM: hm(s.End), Minutes: s.Minutes})
	}
	return out
}

// MarketViews converts quotes for the template. Chart URLs are made relative
// to the directory containing the output HTML so the page works when
// published as a static site.
func MarketViews(quotes []markets.Quote, outPath string) []MarketView {
	outDir := filepath.Dir(outPath)
	out := make([]MarketView, 0, len(quotes))
	for _, q := range quotes {
		chartURL := ""
		if q.ChartPNG != "" {
			if rel, err := filepath.Rel(outDir, q.ChartPNG); err == nil {
				chartURL = filepath.ToSlash(rel)
			} else {
				chartURL = filepath.ToSlash(q.ChartPNG)
			}
		}
		out = append(out, MarketView{
			Ticker:   q.Ticker,
			Price:    q.Price,
			PctD:     q.PctD,
			Signal:   q.Signal,
			ChartURL: chartURL,
		})
	}
	return out
}

// NewsViews converts articles for the template.
func NewsViews(articles []news.Article) []NewsView {
	out := make([]NewsView, 0, len(articles))
	for _, a := range articles {
		out = append(out, NewsView{
			Title:       a.Title,
			URL:         a.URL,
			Source:      a.Source,
			PublishedAt: a.Published.Format("2006-01-02 15:04"),
			Snippet:     a.Snippet,
		})
	}
	return out
}

// EditorialInto copies the editorial sections into the template data.
func EditorialInto(data *Data, ed llm.Editorial) {
	data.EditorialSummary = ed.Summary
	data.EditorialMacro = ed.Macro
	data.EditorialPicks = ed.Picks
}
