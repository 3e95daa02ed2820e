package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pevans/newsdesk/ingest"
)

// DefaultFeeds is the list Seed installs into an empty store.
var DefaultFeeds = []ingest.FeedSource{
	{Name: "BBC News - World", URL: "http://feeds.bbci.co.uk/news/world/rss.xml"},
	{Name: "Reuters - Top News", URL: "http://feeds.reuters.com/reuters/topNews"},
	{Name: "The New York Times - Technology", URL: "https://rss.nytimes.com/services/xml/rss/nyt/Technology.xml"},
	{Name: "CNN - Politics", URL: "http://rss.cnn.com/rss/cnn_politics.rss"},
	{Name: "ESPN - Top", URL: "https://www.espn.com/espn/rss/news"},
}

// ImportResult reports what an import did.
type ImportResult struct {
	Imported int
	Skipped  []string // names already present
	Errors   []error
}

// ImportJSON reads a JSON array of {"name", "url"} objects and adds each
// feed, enabled, after the existing ones. Feeds whose name is already
// stored are skipped; invalid entries are collected in Errors.
func (s *Store) ImportJSON(r io.Reader) (*ImportResult, error) {
	var entries []ingest.FeedSource
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode feed list: %w", err)
	}

	return s.importSources(entries), nil
}

func (s *Store) importSources(entries []ingest.FeedSource) *ImportResult {
	result := &ImportResult{}
	for _, entry := range entries {
		now := s.now()
		_, err := s.Create(entry.Name, entry.URL, &now)
		switch {
		case err == nil:
			result.Imported++
		case errors.Is(err, ErrDuplicateName):
			result.Skipped = append(result.Skipped, entry.Name)
		default:
			result.Errors = append(result.Errors, fmt.Errorf("feed %q: %w", entry.Name, err))
		}
	}
	return result
}

// ExportJSON writes every feed, in list order, as a JSON array of
// {"name", "url"} objects, the same shape ImportJSON reads.
func (s *Store) ExportJSON(w io.Writer) error {
	feeds, err := s.List(FeedFilter{})
	if err != nil {
		return err
	}

	out := make([]ingest.FeedSource, 0, len(feeds))
	for i := range feeds {
		out = append(out, feeds[i].Source())
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode feed list: %w", err)
	}
	return nil
}

// Seed installs DefaultFeeds when the store is empty and returns how many
// feeds were added. A store that already has feeds is left alone.
func (s *Store) Seed() (int, error) {
	feeds, err := s.List(FeedFilter{})
	if err != nil {
		return 0, err
	}
	if len(feeds) > 0 {
		return 0, nil
	}

	result := s.importSources(DefaultFeeds)
	if len(result.Errors) > 0 {
		return result.Imported, errors.Join(result.Errors...)
	}
	return result.Imported, nil
}
