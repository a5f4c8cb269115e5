// Package markets fetches watchlist quotes and prepares per-ticker chart
// pages for headless capture.
package markets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "morningbrief/internal/log"
)

const (
	chartAPIBase = "https://query1.finance.yahoo.com/v8/finance/chart/"

	// chartHistory controls how much daily history backs the chart and
	// moving averages.
	chartHistory = "6mo"

	fetchTimeout = 10 * time.Second

	// chartTail is how many most-recent sessions the chart page plots.
	chartTail = 120
)

// Quote is one watchlist row for the brief.
type Quote struct {
	Ticker string
	Price  float64
	// PctD is the day-over-day change in percent.
	PctD   float64
	Signal string
	// ChartPage is the HTML page written for capture; ChartPNG is where
	// the captured screenshot should land (same basename).
	ChartPage string
	ChartPNG  string
}

// Fetcher retrieves daily close series from the Yahoo Finance chart API.
type Fetcher struct {
	client *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: fetchTimeout}}
}

// NewFetcherWithClient substitutes the HTTP client; used by tests.
func NewFetcherWithClient(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchWatchlist fetches every ticker, computes price, day change and MA
// signal, and writes one self-contained chart HTML page per ticker into
// chartsDir. Tickers that fail to fetch or have fewer than two closes are
// skipped with a warning; the brief degrades to fewer rows.
func (f *Fetcher) FetchWatchlist(ctx context.Context, tickers []string, chartsDir string) []Quote {
	if len(tickers) == 0 {
		return nil
	}
	if err := os.MkdirAll(chartsDir, 0o755); err != nil {
		appLog.Error("markets: cannot create charts dir", err, "dir", chartsDir)
		chartsDir = ""
	}

	quotes := make([]Quote, 0, len(tickers))
	for _, t := range tickers {
		closes, err := f.fetchCloses(ctx, t)
		if err != nil {
			appLog.Warn("markets: fetch failed, skipping ticker", "ticker", t, "err", err.Error())
			continue
		}
		if len(closes) < 2 {
			appLog.Warn("markets: too little data, skipping ticker", "ticker", t, "closes", len(closes))
			continue
		}

		q := buildQuote(t, closes)

		if chartsDir != "" {
			page := filepath.Join(chartsDir, t+".html")
			if err := writeChartPage(page, t, closes); err != nil {
				appLog.Error("markets: chart page write failed", err, "ticker", t)
			} else {
				q.ChartPage = page
				q.ChartPNG = filepath.Join(chartsDir, t+".png")
			}
		}

		quotes = append(quotes, q)
	}

	return quotes
}

func buildQuote(ticker string, closes []float64) Quote {
	last := closes[len(closes)-1]
	prev := closes[len(closes)-2]

	pctD := 0.0
	if prev != 0 {
		pctD = (last/prev - 1) * 100
	}

	ma20 := movingAverage(closes, 20)
	ma50 := movingAverage(closes, 50)

	// Signal: MA crossover, else a move of at least 2%.
	signal := "No signal"
	switch {
	case !math.IsNaN(ma20) && !math.IsNaN(ma50) && ma20 > ma50:
		signal = "MA20>MA50"
	case math.Abs(pctD) >= 2.0:
		dir := "up"
		if pctD < 0 {
			dir = "down"
		}
		signal = fmt.Sprintf("Move %s %.1f%%", dir, pctD)
	}

	return Quote{
		Ticker: ticker,
		Price:  round2(last),
		PctD:   round2(pctD),
		Signal: signal,
	}
}

// movingAverage returns the simple moving average of the last n values, or
// NaN when fewer than n values exist.
func movingAverage(vals []float64, n int) float64 {
	if len(vals) < n {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range vals[len(vals)-n:] {
		sum += v
	}
	return sum / float64(n)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// chartResponse mirrors the slice of the Yahoo v8 chart payload we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (f *Fetcher) fetchCloses(ctx context.Context, ticker string) ([]float64, error) {
	u := chartAPIBase + url.PathEscape(ticker) + "?range=" + chartHistory + "&interval=1d"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "morningbrief/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("markets: %s: status %d", ticker, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, err
	}
	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("markets: %s: %s", ticker, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, errors.New("markets: empty chart result")
	}

	raw := cr.Chart.Result[0].Indicators.Quote[0].Close
	closes := make([]float64, 0, len(raw))
	for _, c := range raw {
		if c == nil {
			continue
		}
		closes = append(closes, *c)
	}
	return closes, nil
}

// writeChartPage renders a self-contained chart HTML page: close series plus
// MA20/MA50 as SVG polylines. The page sets data-ready="true" so the capture
// step knows rendering is complete.
func writeChartPage(path, ticker string, closes []float64) error {
	tail := closes
	if len(tail) > chartTail {
		tail = tail[len(tail)-chartTail:]
	}

	const w, h = 600, 300

	var b strings.Builder
	fmt.Fprintf(&b, "<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%s</title></head>\n", ticker)
	fmt.Fprintf(&b, "<body style=\"margin:0;font-family:sans-serif\" data-ready=\"true\">\n")
	fmt.Fprintf(&b, "<svg width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n", w, h, w, h)
	fmt.Fprintf(&b, "<rect width=\"%d\" height=\"%d\" fill=\"white\"/>\n", w, h)
	fmt.Fprintf(&b, "<text x=\"10\" y=\"20\" font-size=\"16\">%s</text>\n", ticker)

	b.WriteString(polyline(tail, w, h, "#1f77b4", 2))
	b.WriteString(polyline(movingAverageSeries(closes, 20, len(tail)), w, h, "#ff7f0e", 1))
	b.WriteString(polyline(movingAverageSeries(closes, 50, len(tail)), w, h, "#2ca02c", 1))

	b.WriteString("</svg>\n</body></html>\n")

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// movingAverageSeries returns the trailing n-period SMA aligned to the last
// tailLen sessions. Positions without enough history are NaN and skipped by
// polyline.
func movingAverageSeries(closes []float64, n, tailLen int) []float64 {
	out := make([]float64, tailLen)
	for i := range out {
		end := len(closes) - tailLen + i + 1
		if end < n {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for _, v := range closes[end-n : end] {
			sum += v
		}
		out[i] = sum / float64(n)
	}
	return out
}

func polyline(vals []float64, w, h int, stroke string, width int) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if math.IsInf(lo, 1) || hi == lo {
		return ""
	}

	const pad = 30.0
	var pts []string
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		x := pad + (float64(w)-2*pad)*float64(i)/float64(len(vals)-1)
		y := float64(h) - pad - (float64(h)-2*pad)*(v-lo)/(hi-lo)
		pts = append(pts, fmt.Sprintf("%.1f,%.1f", x, y))
	}
	return fmt.Sprintf("<polyline points=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"%d\"/>\n",
		strings.Join(pts, " "), stroke, width)
}
