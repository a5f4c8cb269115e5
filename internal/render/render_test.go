package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"morningbrief/internal/llm"
	"morningbrief/internal/markets"
	"morningbrief/internal/news"
	"morningbrief/internal/schedule"
)

func TestBriefRendersAllSections(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "site", "index.html")

	data := Data{
		GeneratedAt: "2026-01-05 06:00",
		MinBlock:    60,
		MaxAgeHours: 48,
		Markets: []MarketView{
			{Ticker: "VOO", Price: 512.33, PctD: 0.42, Signal: "MA20>MA50", ChartURL: "charts/VOO.png"},
			{Ticker: "NVDA", Price: 120.1, PctD: -2.5, Signal: "Move down -2.5%"},
		},
		Blocks: []BlockView{
			{StartHM: "08:00", EndHM: "10:00", Minutes: 120},
		},
		Suggestions: []BlockView{
			{Kind: "Deep work", StartHM: "08:00", EndHM: "10:00", Minutes: 120},
		},
		News: []NewsView{
			{Title: "Nvidia beats estimates", URL: "https://example.com/a", Source: "Reuters", PublishedAt: "2026-01-05 03:00", Snippet: "Record quarter."},
		},
		EditorialSummary: "Summary text.",
		EditorialMacro:   "Macro text.",
		EditorialPicks:   []string{"Read the Nvidia piece first."},
	}

	got, err := Brief(data, outPath)
	if err != nil {
		t.Fatalf("Brief: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("returned path not absolute: %s", got)
	}

	body, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	html := string(body)

	for _, want := range []string{
		"VOO", "512.33", "charts/VOO.png",
		"08:00", "10:00", "Deep work",
		"Nvidia beats estimates", "Reuters",
		"Summary text.", "Macro text.", "Read the Nvidia piece first.",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered brief missing %q", want)
		}
	}
}

func TestBriefEmptySections(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "index.html")

	if _, err := Brief(Data{GeneratedAt: "2026-01-05 06:00"}, outPath); err != nil {
		t.Fatalf("Brief with empty data: %v", err)
	}
}

func TestBlockViews(t *testing.T) {
	gaps := []schedule.FreeGap{
		{Start: time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), Minutes: 120},
	}

	views := BlockViews(gaps)
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	if views[0].StartHM != "08:00" || views[0].EndHM != "10:00" || views[0].Minutes != 120 {
		t.Fatalf("view wrong: %+v", views[0])
	}
	if views[0].Kind != "" {
		t.Errorf("plain gap should have no kind: %+v", views[0])
	}
}

func TestSuggestionViews(t *testing.T) {
	suggs := []schedule.Suggestion{
		{Kind: schedule.KindDeepWork, Start: time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 5, 21, 0, 0, 0, time.UTC), Minutes: 600},
	}

	views := SuggestionViews(suggs)
	if len(views) != 1 || views[0].Kind != "Deep work" {
		t.Fatalf("views = %+v", views)
	}
}

func TestMarketViewsRelativeChartURL(t *testing.T) {
	quotes := []markets.Quote{
		{Ticker: "VOO", Price: 500, ChartPNG: filepath.Join("docs", "charts", "VOO.png")},
		{Ticker: "NVDA", Price: 120}, // capture failed, no chart
	}

	views := MarketViews(quotes, filepath.Join("docs", "index.html"))

	if views[0].ChartURL != "charts/VOO.png" {
		t.Errorf("chart URL = %q, want charts/VOO.png", views[0].ChartURL)
	}
	if views[1].ChartURL != "" {
		t.Errorf("missing chart should yield empty URL, got %q", views[1].ChartURL)
	}
}

func TestNewsViews(t *testing.T) {
	articles := []news.Article{
		{Title: "T", URL: "https://example.com", Source: "S", Published: time.Date(2026, 1, 5, 3, 0, 0, 0, time.UTC), Snippet: "sn"},
	}

	views := NewsViews(articles)
	if len(views) != 1 || views[0].PublishedAt != "2026-01-05 03:00" {
		t.Fatalf("views = %+v", views)
	}
}

func TestEditorialInto(t *testing.T) {
	var data Data
	EditorialInto(&data, llm.Editorial{Summary: "s", Macro: "m", Picks: []string{"p"}})

	if data.EditorialSummary != "s" || data.EditorialMacro != "m" || len(data.EditorialPicks) != 1 {
		t.Fatalf("data = %+v", data)
	}
}
