// Package news fetches recent headlines from Google News RSS search feeds.
package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	appLog "morningbrief/internal/log"
)

const (
	fetchTimeout = 10 * time.Second

	// snippetMaxLen bounds description snippets for the brief.
	snippetMaxLen = 220
)

// Article is one deduplicated news item.
type Article struct {
	Title     string
	URL       string
	Source    string
	Published time.Time
	Snippet   string
	Keyword   string
}

// Options controls the fetch.
type Options struct {
	Limit       int
	MaxAgeHours int
	Lang        string // e.g. "en-US"
	Region      string // e.g. "US"

	// Now establishes the age cutoff; zero means the current wall clock.
	Now time.Time
}

// Fetcher downloads and parses RSS search feeds.
type Fetcher struct {
	client *http.Client
	parser *gofeed.Parser
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout},
		parser: gofeed.NewParser(),
	}
}

// NewFetcherWithClient substitutes the HTTP client; used by tests.
func NewFetcherWithClient(client *http.Client) *Fetcher {
	return &Fetcher{client: client, parser: gofeed.NewParser()}
}

// FeedURL builds the Google News RSS search URL for one keyword.
func FeedURL(keyword, lang, region string) string {
	q := url.QueryEscape(keyword)
	return fmt.Sprintf("https://news.google.com/rss/search?q=%s&hl=%s&gl=%s&ceid=%s:%s",
		q, lang, region, region, lang)
}

// Fetch downloads recent items for every keyword, drops items older than the
// cutoff, sorts newest-first, de-duplicates by URL and caps at opts.Limit.
// Per-keyword failures are warnings; the result just gets thinner.
func (f *Fetcher) Fetch(ctx context.Context, keywords []string, opts Options) []Article {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := now.Add(-time.Duration(opts.MaxAgeHours) * time.Hour)

	results := make([]Article, 0)

	for _, kw := range keywords {
		feedURL := FeedURL(kw, opts.Lang, opts.Region)

		feed, err := f.fetchFeed(ctx, feedURL)
		if err != nil {
			appLog.Warn("news: feed fetch failed", "keyword", kw, "err", err.Error())
			continue
		}

		for _, item := range feed.Items {
			published := now
			if item.PublishedParsed != nil {
				published = *item.PublishedParsed
			}
			if published.Before(cutoff) {
				continue
			}

			title, source := splitTitleSource(item.Title)

			results = append(results, Article{
				Title:     title,
				URL:       item.Link,
				Source:    source,
				Published: published,
				Snippet:   sanitizeSnippet(item.Description, snippetMaxLen),
				Keyword:   kw,
			})
		}
	}

	// Newest first, then de-duplicate by URL.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Published.After(results[j].Published)
	})

	seen := make(map[string]bool)
	deduped := make([]Article, 0, opts.Limit)
	for _, a := range results {
		if a.URL == "" || seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		deduped = append(deduped, a)
		if opts.Limit > 0 && len(deduped) >= opts.Limit {
			break
		}
	}

	return deduped
}

func (f *Fetcher) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news: status %d", resp.StatusCode)
	}

	return f.parser.Parse(resp.Body)
}

// titleSourceRe matches the " - Outlet" suffix Google News appends to titles.
var titleSourceRe = regexp.MustCompile(`\s+[-–—]\s+([^-–—]+)$`)

// splitTitleSource separates "Headline - Outlet" into its parts. When no
// suffix is present the source is "Unknown".
func splitTitleSource(raw string) (title, source string) {
	title = collapseSpaces(raw)
	source = "Unknown"

	if m := titleSourceRe.FindStringSubmatchIndex(title); m != nil {
		source = strings.TrimSpace(title[m[2]:m[3]])
		title = strings.TrimSpace(title[:m[0]])
	}
	return title, source
}

// sanitizeSnippet strips HTML markup from an RSS description and trims it to
// at most maxLen bytes of collapsed text, never splitting a UTF-8 rune.
func sanitizeSnippet(raw string, maxLen int) string {
	if raw == "" {
		return ""
	}

	text := raw
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
		text = doc.Text()
	}

	clean := collapseSpaces(text)
	if len(clean) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(clean[cut]) {
			cut--
		}
		clean = clean[:cut]
	}
	return clean
}

var spacesRe = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}
