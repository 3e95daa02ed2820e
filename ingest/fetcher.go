// Package ingest pulls stories from remote RSS and Atom feeds. A Fetcher
// handles one source; a Coordinator fans out over many and merges the results
// into categories.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pevans/newsdesk/events"
)

// DefaultFetchTimeout bounds a single source fetch.
const DefaultFetchTimeout = 10 * time.Second

const userAgent = "newsdesk/1.0 (+https://github.com/pevans/newsdesk)"

// Fetcher performs one bounded HTTP fetch and feed parse per source.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	now     func() time.Time
}

// NewFetcher creates a fetcher whose requests give up after timeout. A
// non-positive timeout means DefaultFetchTimeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
		now:     time.Now,
	}
}

// FetchFeed downloads and parses the feed at url. Transport failures and
// non-2xx responses come back as *FetchError, unparseable bodies as
// *ParseError. The gofeed parser detects RSS, Atom and JSON feeds.
func (f *Fetcher) FetchFeed(ctx context.Context, source FeedSource) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, &FetchError{Source: source.Name, URL: source.URL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: source.Name, URL: source.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{
			Source: source.Name,
			URL:    source.URL,
			Err:    fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status),
		}
	}

	fp := gofeed.NewParser()
	feed, err := fp.Parse(resp.Body)
	if err != nil {
		// A body cut off by the deadline is a fetch problem, not a bad feed.
		if ctx.Err() != nil {
			return nil, &FetchError{Source: source.Name, URL: source.URL, Err: ctx.Err()}
		}
		return nil, &ParseError{Source: source.Name, Err: err}
	}

	return feed, nil
}

// Fetch pulls up to limit stories from source, in document order. A
// non-positive limit takes every entry. Per-entry problems (such as an
// unreadable date) are recorded as warnings on log and do not drop the entry.
func (f *Fetcher) Fetch(ctx context.Context, source FeedSource, limit int, log *events.Log) ([]Story, error) {
	feed, err := f.FetchFeed(ctx, source)
	if err != nil {
		return nil, err
	}

	capacity := len(feed.Items)
	if limit > 0 && limit < capacity {
		capacity = limit
	}

	stories := make([]Story, 0, capacity)
	for _, item := range feed.Items {
		if limit > 0 && len(stories) >= limit {
			break
		}
		if item == nil {
			continue
		}

		story, dateErr := ItemToStory(item, source.Name, f.now())
		if dateErr != nil {
			log.Warnf(source.Name, "could not parse date for %q: %v", story.Title, dateErr)
		}
		stories = append(stories, story)
	}

	return stories, nil
}
