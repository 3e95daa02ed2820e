package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pevans/newsdesk/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
<title>Fixture</title>
<link>http://example.com</link>
<description>fixture feed</description>
%s
</channel>
</rss>`

func rssItem(title, link, pubDate string) string {
	return fmt.Sprintf(`<item>
<title>%s</title>
<link>%s</link>
<description>About %s</description>
<pubDate>%s</pubDate>
</item>`, title, link, title, pubDate)
}

func rssFeed(items ...string) string {
	return fmt.Sprintf(rssTemplate, strings.Join(items, "\n"))
}

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func serveStatus(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

// TestFetch_RespectsLimit verifies only the first N entries are taken, in
// document order
func TestFetch_RespectsLimit(t *testing.T) {
	server := serveFeed(t, rssFeed(
		rssItem("One", "http://example.com/1", "Mon, 15 Jan 2024 10:00:00 GMT"),
		rssItem("Two", "http://example.com/2", "Mon, 15 Jan 2024 11:00:00 GMT"),
		rssItem("Three", "http://example.com/3", "Mon, 15 Jan 2024 12:00:00 GMT"),
	))

	f := NewFetcher(time.Second)
	stories, err := f.Fetch(context.Background(), FeedSource{Name: "Tech Technology", URL: server.URL}, 2, nil)
	require.NoError(t, err)
	require.Len(t, stories, 2)

	assert.Equal(t, "One", stories[0].Title)
	assert.Equal(t, "Two", stories[1].Title)
	assert.Equal(t, CategoryTechnology, stories[0].Category)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), stories[0].PublishedAt)
}

// TestFetch_MediaImage verifies media:content is picked up from a real
// document
func TestFetch_MediaImage(t *testing.T) {
	server := serveFeed(t, rssFeed(`<item>
<title>Pic</title>
<link>http://example.com/pic</link>
<media:content url="http://example.com/pic.jpg" type="image/jpeg" medium="image"/>
</item>`))

	f := NewFetcher(time.Second)
	stories, err := f.Fetch(context.Background(), FeedSource{Name: "Feed", URL: server.URL}, 0, nil)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	require.NotNil(t, stories[0].ImageURL)
	assert.Equal(t, "http://example.com/pic.jpg", *stories[0].ImageURL)
}

// TestFetch_HTTPError verifies non-2xx responses are fetch errors
func TestFetch_HTTPError(t *testing.T) {
	server := serveStatus(t, http.StatusInternalServerError)

	f := NewFetcher(time.Second)
	stories, err := f.Fetch(context.Background(), FeedSource{Name: "Broken", URL: server.URL}, 5, nil)
	assert.Nil(t, stories)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "Broken", fetchErr.Source)
	assert.ErrorIs(t, err, ErrHTTPStatus)
}

// TestFetch_MalformedFeed verifies unparseable bodies are parse errors
func TestFetch_MalformedFeed(t *testing.T) {
	server := serveFeed(t, "this is not a feed")

	f := NewFetcher(time.Second)
	_, err := f.Fetch(context.Background(), FeedSource{Name: "Garbage", URL: server.URL}, 5, nil)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "Garbage", parseErr.Source)
}

// TestFetch_Timeout verifies a slow source fails within the fetch timeout
func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	f := NewFetcher(100 * time.Millisecond)
	start := time.Now()
	_, err := f.Fetch(context.Background(), FeedSource{Name: "Slow", URL: server.URL}, 5, nil)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Less(t, time.Since(start), 3*time.Second)
}

// TestFetch_BadDateWarns verifies an unreadable date produces a warning but
// keeps the entry
func TestFetch_BadDateWarns(t *testing.T) {
	server := serveFeed(t, rssFeed(rssItem("Odd", "http://example.com/odd", "not a date at all")))

	log := events.NewLog(nil, zerolog.Nop())
	f := NewFetcher(time.Second)
	stories, err := f.Fetch(context.Background(), FeedSource{Name: "Feed", URL: server.URL}, 5, log)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, 1, log.Count(events.Warning))
}

// TestPull_IsolatesFailures verifies one good, one failing and one malformed
// source produce partial results and one event per problem
func TestPull_IsolatesFailures(t *testing.T) {
	good := serveFeed(t, rssFeed(
		rssItem("Goal", "http://example.com/goal", "Mon, 15 Jan 2024 10:00:00 GMT"),
		rssItem("Match", "http://example.com/match", "Mon, 15 Jan 2024 11:00:00 GMT"),
	))
	broken := serveStatus(t, http.StatusNotFound)
	garbage := serveFeed(t, "<html><body>nope</body></html>")

	var mu sync.Mutex
	var streamed []events.Event
	sink := func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		streamed = append(streamed, e)
	}

	c := NewCoordinator(NewFetcher(time.Second), sink, zerolog.Nop())
	result := c.Pull(context.Background(), []FeedSource{
		{Name: "ESPN - Top", URL: good.URL},
		{Name: "CNN - Politics", URL: broken.URL},
		{Name: "BBC News - World", URL: garbage.URL},
	}, 10)

	require.Len(t, result.Categories[CategorySports], 2)
	assert.Equal(t, "Goal", result.Categories[CategorySports][0].Title)
	assert.Equal(t, "Match", result.Categories[CategorySports][1].Title)
	assert.Empty(t, result.Categories[CategoryPolitics])
	assert.Empty(t, result.Categories[CategoryWorld])
	assert.Equal(t, 2, result.Total())

	require.Len(t, result.Reports, 3)
	assert.Equal(t, 2, result.Reports[0].Stories)
	assert.NoError(t, result.Reports[0].Err)

	var fetchErr *FetchError
	assert.True(t, errors.As(result.Reports[1].Err, &fetchErr))
	var parseErr *ParseError
	assert.True(t, errors.As(result.Reports[2].Err, &parseErr))

	levels := map[events.Level]int{}
	for _, e := range result.Events {
		levels[e.Level]++
	}
	assert.Equal(t, 1, levels[events.Error], "fetch failure is an error event")
	assert.Equal(t, 1, levels[events.Warning], "parse failure is a warning event")
	assert.Equal(t, 4, levels[events.Info], "three fetching notices and one finished notice")

	mu.Lock()
	assert.Equal(t, result.Events, streamed)
	mu.Unlock()
}

// TestPull_EventsOrderedPerSource verifies each source's events stay in order
func TestPull_EventsOrderedPerSource(t *testing.T) {
	a := serveFeed(t, rssFeed(rssItem("A", "http://example.com/a", "Mon, 15 Jan 2024 10:00:00 GMT")))
	b := serveFeed(t, rssFeed(rssItem("B", "http://example.com/b", "Mon, 15 Jan 2024 10:00:00 GMT")))

	c := NewCoordinator(nil, nil, zerolog.Nop())
	result := c.Pull(context.Background(), []FeedSource{
		{Name: "A", URL: a.URL},
		{Name: "B", URL: b.URL},
	}, 5)

	for _, name := range []string{"A", "B"} {
		var msgs []string
		for _, e := range result.Events {
			if e.Source == name {
				msgs = append(msgs, e.Message)
			}
		}
		require.Len(t, msgs, 2)
		assert.True(t, strings.HasPrefix(msgs[0], "fetching"))
		assert.True(t, strings.HasPrefix(msgs[1], "finished"))
	}
}

// TestPull_DeduplicatesAcrossSources verifies a link seen in an earlier
// source is dropped from later ones
func TestPull_DeduplicatesAcrossSources(t *testing.T) {
	first := serveFeed(t, rssFeed(
		rssItem("Shared", "http://example.com/shared", "Mon, 15 Jan 2024 10:00:00 GMT"),
	))
	second := serveFeed(t, rssFeed(
		rssItem("Shared again", "http://EXAMPLE.com/shared/", "Mon, 15 Jan 2024 10:00:00 GMT"),
		rssItem("Unique", "http://example.com/unique", "Mon, 15 Jan 2024 10:00:00 GMT"),
	))

	c := NewCoordinator(nil, nil, zerolog.Nop())
	result := c.Pull(context.Background(), []FeedSource{
		{Name: "Tech Technology", URL: first.URL},
		{Name: "More Technology", URL: second.URL},
	}, 5)

	stories := result.Categories[CategoryTechnology]
	require.Len(t, stories, 2)
	assert.Equal(t, "Shared", stories[0].Title)
	assert.Equal(t, "Unique", stories[1].Title)
	assert.Equal(t, 1, result.Duplicates)
}

// TestPull_KeepsLinklessStories verifies stories without a link are never
// treated as duplicates of each other
func TestPull_KeepsLinklessStories(t *testing.T) {
	first := serveFeed(t, rssFeed(rssItem("Bulletin", "", "Mon, 15 Jan 2024 10:00:00 GMT")))
	second := serveFeed(t, rssFeed(rssItem("Another bulletin", "", "Mon, 15 Jan 2024 10:00:00 GMT")))

	c := NewCoordinator(nil, nil, zerolog.Nop())
	result := c.Pull(context.Background(), []FeedSource{
		{Name: "Tech Technology", URL: first.URL},
		{Name: "More Technology", URL: second.URL},
	}, 5)

	stories := result.Categories[CategoryTechnology]
	require.Len(t, stories, 2)
	for _, story := range stories {
		assert.False(t, story.HasLink())
	}
	assert.Zero(t, result.Duplicates)
}

// TestPull_FansOut verifies slow sources are fetched concurrently rather
// than one after another
func TestPull_FansOut(t *testing.T) {
	const (
		feeds = 5
		delay = 300 * time.Millisecond
	)

	var list []FeedSource
	for i := 0; i < feeds; i++ {
		body := rssFeed(rssItem(
			fmt.Sprintf("Story %d", i),
			fmt.Sprintf("http://example.com/story-%d", i),
			"Mon, 15 Jan 2024 10:00:00 GMT",
		))
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(delay)
			w.Header().Set("Content-Type", "application/rss+xml")
			fmt.Fprint(w, body)
		}))
		t.Cleanup(server.Close)
		list = append(list, FeedSource{Name: fmt.Sprintf("Feed %d", i), URL: server.URL})
	}

	c := NewCoordinator(NewFetcher(time.Second), nil, zerolog.Nop())
	start := time.Now()
	result := c.Pull(context.Background(), list, 5)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, feeds*delay/2, "sources should be fetched in parallel")
	require.Len(t, result.Reports, feeds)
	for i, report := range result.Reports {
		assert.Equal(t, fmt.Sprintf("Feed %d", i), report.Name)
		assert.NoError(t, report.Err)
		assert.Equal(t, 1, report.Stories)
	}
	assert.Equal(t, feeds, result.Total())
}

// TestPull_SkipsDuplicateNames verifies source identity is its name
func TestPull_SkipsDuplicateNames(t *testing.T) {
	server := serveFeed(t, rssFeed(rssItem("A", "http://example.com/a", "Mon, 15 Jan 2024 10:00:00 GMT")))

	c := NewCoordinator(nil, nil, zerolog.Nop())
	result := c.Pull(context.Background(), []FeedSource{
		{Name: "Feed", URL: server.URL},
		{Name: "Feed", URL: server.URL + "/other"},
	}, 5)

	assert.Len(t, result.Reports, 1)
	assert.Equal(t, 1, result.Total())
}

// TestPull_NoSources verifies an empty source list reports and returns
func TestPull_NoSources(t *testing.T) {
	c := NewCoordinator(nil, nil, zerolog.Nop())
	result := c.Pull(context.Background(), nil, 5)

	assert.Zero(t, result.Total())
	require.Len(t, result.Events, 1)
	assert.Equal(t, "no feeds configured", result.Events[0].Message)
}

// TestResult_FilterAndNames verifies display ordering and category filtering
func TestResult_FilterAndNames(t *testing.T) {
	r := &Result{Categories: map[string][]Story{
		CategoryOther:      {{Title: "o1"}},
		CategorySports:     {{Title: "s1"}, {Title: "s2"}},
		CategoryTechnology: {{Title: "t1"}},
		CategoryBusiness:   {},
	}}

	assert.Equal(t, []string{CategoryTechnology, CategorySports, CategoryOther}, r.CategoryNames())

	all := r.Filter(CategoryAll)
	require.Len(t, all, 4)
	assert.Equal(t, "t1", all[0].Title)
	assert.Equal(t, "o1", all[3].Title)

	assert.Len(t, r.Filter(CategorySports), 2)
	assert.Empty(t, r.Filter("Weather"))
	assert.Len(t, r.Filter(""), 4)
}
