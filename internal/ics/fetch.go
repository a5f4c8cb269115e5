package ics

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	appLog "morningbrief/internal/log"
)

// fetchTimeout bounds a single remote calendar fetch so a hung source cannot
// stall the briefing run.
const fetchTimeout = 15 * time.Second

// Loader obtains a raw calendar document from a local path or a remote URL.
// It performs no caching and no retries; every briefing run reads fresh.
type Loader struct {
	client *http.Client
}

// NewLoader creates a Loader with a bounded HTTP client.
func NewLoader() *Loader {
	return &Loader{
		client: &http.Client{
			Timeout: fetchTimeout,
		},
	}
}

// NewLoaderWithClient creates a Loader using the given HTTP client.
// Used by tests to substitute a fake transport.
func NewLoaderWithClient(client *http.Client) *Loader {
	return &Loader{client: client}
}

// Load reads the calendar document identified by source.
//
//   - "http://" / "https://" sources are fetched over the network. A network
//     failure, timeout or non-2xx status yields *FetchError.
//   - Anything else is treated as a filesystem path. A missing file yields
//     *NotFoundError.
func (l *Loader) Load(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, errors.New("ics: empty calendar source")
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.fetch(ctx, source)
	}

	body, err := os.ReadFile(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: source}
		}
		return nil, err
	}
	return body, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	appLog.Info("ics fetch start", "url", redactURL(url))

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	appLog.Info("ics fetch success", "url", redactURL(url), "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

// redactURL hides sensitive parts of an ICS URL for logging purposes.
// Private calendar URLs commonly embed access tokens in the path or query.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	// Find scheme separator.
	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "ics://...(redacted)"
	}

	// Find next slash after host.
	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}

	host := u[:j]
	return host + redactedSuffix
}
