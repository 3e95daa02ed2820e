package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/pevans/newsdesk/events"
	"github.com/rs/zerolog"
)

// Coordinator fetches many sources concurrently and merges their stories into
// categories. Every source is fetched in its own goroutine and the merge runs
// only after all of them have finished, so a failing source never blocks or
// corrupts another's results.
type Coordinator struct {
	fetcher *Fetcher
	sink    events.Sink
	logger  zerolog.Logger
}

// SourceReport summarizes one source's part in a pull.
type SourceReport struct {
	Name    string
	URL     string
	Stories int
	Err     error
}

// Result is the merged output of a pull. Stories within a category keep
// arrival order: configured source order, then feed document order.
type Result struct {
	Categories map[string][]Story
	Events     []events.Event
	Reports    []SourceReport
	// Duplicates counts stories dropped because an earlier source already
	// supplied the same link.
	Duplicates int
}

// slot is written by exactly one fetch goroutine.
type slot struct {
	stories []Story
	err     error
}

// NewCoordinator creates a coordinator. sink, if not nil, receives each event
// as it happens; the full log is also returned on the Result.
func NewCoordinator(fetcher *Fetcher, sink events.Sink, logger zerolog.Logger) *Coordinator {
	if fetcher == nil {
		fetcher = NewFetcher(DefaultFetchTimeout)
	}
	return &Coordinator{
		fetcher: fetcher,
		sink:    sink,
		logger:  logger.With().Str("component", "ingest").Logger(),
	}
}

// Pull fetches every source, taking at most limit stories from each, and
// returns once all fetches have completed or timed out. There is no retry and
// no early exit on failure.
func (c *Coordinator) Pull(ctx context.Context, sources []FeedSource, limit int) *Result {
	log := events.NewLog(c.sink, c.logger)
	result := &Result{Categories: make(map[string][]Story)}

	sources = uniqueSources(sources, log)
	if len(sources) == 0 {
		log.Infof("", "no feeds configured")
		result.Events = log.Events()
		return result
	}

	slots := make([]slot, len(sources))

	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		go func(i int, s FeedSource) {
			defer wg.Done()
			slots[i] = c.pullOne(ctx, s, limit, log)
		}(i, source)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, s := range slots {
		report := SourceReport{Name: sources[i].Name, URL: sources[i].URL, Err: s.err}
		for _, story := range s.stories {
			if story.HasLink() {
				key := NormalizeLink(story.Link)
				if seen[key] {
					result.Duplicates++
					continue
				}
				seen[key] = true
			}
			result.Categories[story.Category] = append(result.Categories[story.Category], story)
			report.Stories++
		}
		result.Reports = append(result.Reports, report)
	}

	result.Events = log.Events()
	return result
}

func (c *Coordinator) pullOne(ctx context.Context, source FeedSource, limit int, log *events.Log) slot {
	log.Infof(source.Name, "fetching %s from %s", source.Name, source.URL)

	stories, err := c.fetcher.Fetch(ctx, source, limit, log)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			log.Warnf(source.Name, "error parsing %s: %v", source.Name, parseErr.Err)
		} else {
			log.Errorf(source.Name, "%v", err)
		}
		return slot{err: err}
	}

	log.Infof(source.Name, "finished fetching %s (%d stories)", source.Name, len(stories))
	return slot{stories: stories}
}

// uniqueSources drops sources that repeat an earlier name or have no URL.
func uniqueSources(sources []FeedSource, log *events.Log) []FeedSource {
	seen := make(map[string]bool, len(sources))
	out := make([]FeedSource, 0, len(sources))
	for _, s := range sources {
		if s.URL == "" {
			log.Warnf(s.Name, "skipping source with no URL")
			continue
		}
		if seen[s.Name] {
			log.Warnf(s.Name, "skipping duplicate source name")
			continue
		}
		seen[s.Name] = true
		out = append(out, s)
	}
	return out
}

// CategoryNames lists the non-empty categories in display order.
func (r *Result) CategoryNames() []string {
	names := make([]string, 0, len(r.Categories))
	for name, stories := range r.Categories {
		if len(stories) > 0 {
			names = append(names, name)
		}
	}
	return SortCategories(names)
}

// Filter returns the stories in one category. "All" or an empty category
// returns every story, grouped by category in display order.
func (r *Result) Filter(category string) []Story {
	if category != "" && category != CategoryAll {
		return append([]Story(nil), r.Categories[category]...)
	}

	var out []Story
	for _, name := range r.CategoryNames() {
		out = append(out, r.Categories[name]...)
	}
	return out
}

// Total counts every story in the result.
func (r *Result) Total() int {
	n := 0
	for _, stories := range r.Categories {
		n += len(stories)
	}
	return n
}
