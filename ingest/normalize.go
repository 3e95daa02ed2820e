package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

const (
	defaultTitle   = "No Title"
	defaultSummary = "No Summary"
)

// ItemToStory converts a parsed feed entry into a Story. The gofeed library
// normalizes RSS and Atom into one item shape, so both formats go through
// here. now is used when the entry has no usable date; the returned error is
// non-nil only when a date was present but unreadable, and the story is still
// complete in that case.
func ItemToStory(item *gofeed.Item, feedName string, now time.Time) (Story, error) {
	// Title: <title>, falling back to Dublin Core dc:title
	title := collapse(item.Title)
	if title == "" && item.DublinCoreExt != nil {
		for _, t := range item.DublinCoreExt.Title {
			if title = collapse(t); title != "" {
				break
			}
		}
	}
	if title == "" {
		title = defaultTitle
	}

	// Link: <link> (RSS) or <link rel="alternate"> (Atom)
	link := strings.TrimSpace(item.Link)
	if link == "" {
		for _, l := range item.Links {
			if l = strings.TrimSpace(l); l != "" {
				link = l
				break
			}
		}
	}
	if link == "" {
		link = NoLink
	}

	// Summary: <description> (RSS) or <summary> (Atom), then full content
	summary := collapse(item.Description)
	if summary == "" {
		summary = collapse(item.Content)
	}
	if summary == "" {
		summary = defaultSummary
	}

	publishedAt, dateErr := resolvePublished(item, now)

	category := Categorize(feedName)

	return Story{
		Title:           title,
		Link:            link,
		Summary:         summary,
		Source:          feedName,
		PublishedAt:     publishedAt,
		Category:        category,
		ImageURL:        FindImage(item),
		Rewritten:       false,
		OriginalSummary: summary,
	}, dateErr
}

// resolvePublished prefers the dates gofeed already parsed, then tries the
// raw published/updated text. Dates without a zone are read as UTC. The
// result is always in UTC.
func resolvePublished(item *gofeed.Item, now time.Time) (time.Time, error) {
	if item.PublishedParsed != nil && !item.PublishedParsed.IsZero() {
		return item.PublishedParsed.UTC(), nil
	}
	if item.UpdatedParsed != nil && !item.UpdatedParsed.IsZero() {
		return item.UpdatedParsed.UTC(), nil
	}

	raw := strings.TrimSpace(item.Published)
	if raw == "" {
		raw = strings.TrimSpace(item.Updated)
	}
	if raw == "" {
		return now.UTC(), nil
	}

	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return now.UTC(), fmt.Errorf("unrecognized date %q: %w", raw, err)
	}
	return t.UTC(), nil
}

// collapse replaces line breaks with spaces and trims the result.
func collapse(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}
