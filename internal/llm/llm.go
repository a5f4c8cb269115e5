// Package llm produces the optional AI editorial section of the brief by
// calling a local Ollama chat endpoint. Every failure path degrades to a
// deterministic headline-based editorial; the brief never blocks on the LLM.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	appLog "morningbrief/internal/log"
	"morningbrief/internal/news"
)

const (
	// topNArticles bounds how many articles feed the prompt.
	topNArticles = 6

	// snippetChars trims per-article context in the prompt.
	snippetChars = 240
)

// Config holds the summarizer settings.
type Config struct {
	Endpoint    string // Ollama base URL, e.g. "http://localhost:11434"
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Editorial is the three-section AI summary.
type Editorial struct {
	Summary string
	Macro   string
	Picks   []string

	// Fallback is true when the LLM was unreachable or returned nothing
	// and the deterministic editorial was used instead.
	Fallback bool
}

// Summarizer calls the chat endpoint.
type Summarizer struct {
	client *http.Client
	cfg    Config
}

func NewSummarizer(cfg Config) *Summarizer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 35 * time.Second
	}
	return &Summarizer{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// NewSummarizerWithClient substitutes the HTTP client; used by tests.
func NewSummarizerWithClient(cfg Config, client *http.Client) *Summarizer {
	return &Summarizer{client: client, cfg: cfg}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Summarize builds the editorial for the given articles. It never returns an
// error: LLM failures are logged and produce the fallback editorial.
func (s *Summarizer) Summarize(ctx context.Context, articles []news.Article) Editorial {
	if len(articles) == 0 {
		return fallbackEditorial(articles)
	}

	text, err := s.chat(ctx, buildMessages(articles))
	if err != nil {
		appLog.Warn("llm: chat failed, using fallback editorial", "err", err.Error())
		return fallbackEditorial(articles)
	}
	if strings.TrimSpace(text) == "" {
		appLog.Warn("llm: empty reply, using fallback editorial")
		return fallbackEditorial(articles)
	}

	return splitSections(text)
}

func (s *Summarizer) chat(ctx context.Context, messages []chatMessage) (string, error) {
	payload := chatRequest{
		Model:    s.cfg.Model,
		Messages: messages,
		Stream:   false,
		Options: map[string]any{
			"temperature":    s.cfg.Temperature,
			"num_predict":    s.cfg.MaxTokens,
			"top_p":          0.9,
			"repeat_penalty": 1.1,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(s.cfg.Endpoint, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	return strings.TrimSpace(cr.Message.Content), nil
}

func buildMessages(articles []news.Article) []chatMessage {
	var lines []string
	for i, a := range articles {
		if i >= topNArticles {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s — %s", i+1, strings.TrimSpace(a.Title), strings.TrimSpace(a.Source)))
		if sn := strings.TrimSpace(a.Snippet); sn != "" {
			if len(sn) > snippetChars {
				sn = sn[:snippetChars]
			}
			lines = append(lines, "   "+sn)
		}
	}

	system := "You are an analyst writing a crisp internal morning brief for a B2B SaaS fintech/AI company. " +
		"Be specific, avoid hype, use bullets, and keep it under 120 words per section."

	user := fmt.Sprintf(`News (titles + short snippets):
%s

Write THREE sections:
1) Summary — 3 bullets of concrete takeaways (what changed, who did what, numbers).
2) Macro — 1-2 sentences on why this matters for AI/fintech B2B (revenue, regulation, infra, GTM).
3) Picks — 2-3 lines: which 2-3 items to read first and why (one clause each).

Rules:
- No list of headlines. No generic advice. No emojis. Keep it tight.`, strings.Join(lines, "\n"))

	return []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

var (
	macroRe = regexp.MustCompile(`(?i)\bmacro\b`)
	picksRe = regexp.MustCompile(`(?i)\bpicks?\b`)
)

// splitSections performs a crude split of the reply into summary/macro/picks
// on the section keywords. A reply without recognizable sections lands whole
// in Summary.
func splitSections(text string) Editorial {
	out := Editorial{}
	t := strings.TrimSpace(text)

	macroLoc := macroRe.FindStringIndex(t)
	if macroLoc == nil {
		out.Summary = t
		return out
	}

	out.Summary = strings.TrimSpace(t[:macroLoc[0]])
	rest := t[macroLoc[1]:]

	picksLoc := picksRe.FindStringIndex(rest)
	if picksLoc == nil {
		out.Macro = strings.TrimSpace(rest)
		return out
	}

	out.Macro = strings.TrimSpace(rest[:picksLoc[0]])
	for _, ln := range strings.Split(rest[picksLoc[1]:], "\n") {
		ln = strings.Trim(ln, " -•\t:")
		if ln == "" {
			continue
		}
		out.Picks = append(out.Picks, ln)
		if len(out.Picks) >= 3 {
			break
		}
	}
	return out
}

// fallbackEditorial builds a deterministic editorial from the top headlines.
func fallbackEditorial(articles []news.Article) Editorial {
	var titles []string
	var picks []string
	for i, a := range articles {
		if i >= 3 {
			break
		}
		titles = append(titles, a.Title)
		picks = append(picks, a.Title+" — momentum/implications.")
	}

	summary := "No recent AI/fintech headlines."
	if len(titles) > 0 {
		summary = "High-level AI/fintech headlines: " + strings.Join(titles, "; ")
	}

	return Editorial{
		Summary:  summary,
		Macro:    "Context: watch adoption pace, enterprise ROI and regulatory updates across AI infrastructure and applications.",
		Picks:    picks,
		Fallback: true,
	}
}
