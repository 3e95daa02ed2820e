package ingest

import (
	"net/url"
	"strings"
	"time"
)

// NoLink is the link given to entries that carry none.
const NoLink = "#"

// FeedSource is a named syndication feed. Name identifies the source within a
// configured set.
type FeedSource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Story is one normalized feed entry.
type Story struct {
	Title           string    `json:"title"`
	Link            string    `json:"link"`
	Summary         string    `json:"summary"`
	Source          string    `json:"source"`
	PublishedAt     time.Time `json:"pub_date"`
	Category        string    `json:"category"`
	ImageURL        *string   `json:"image_url"`
	Rewritten       bool      `json:"rewritten"`
	OriginalSummary string    `json:"original_summary"`
}

// HasLink reports whether the story points somewhere navigable.
func (s Story) HasLink() bool {
	return NormalizeLink(s.Link) != ""
}

// NormalizeLink returns the comparison form of a story link: scheme and host
// lowercased, fragment and trailing slash dropped. Empty and "#" links
// normalize to "".
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" || link == NoLink {
		return ""
	}

	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String()
}
