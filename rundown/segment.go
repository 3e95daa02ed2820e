package rundown

import (
	"github.com/google/uuid"
	"github.com/pevans/newsdesk/ingest"
	"github.com/pevans/newsdesk/timecode"
)

// Segment is a story placed in the rundown. Backtime is the clock time the
// segment goes to air; only the Scheduler writes it.
type Segment struct {
	ingest.Story

	ID               string `json:"id"`
	Order            int    `json:"order"`
	Duration         string `json:"duration"`
	Active           bool   `json:"active"`
	Backtime         string `json:"backtime"`
	TeleprompterText string `json:"teleprompter_text"`
	Profile          string `json:"profile"`
	Style            string `json:"style"`
	Tone             string `json:"tone"`
	Length           string `json:"length"`
}

// SegmentDefaults are applied to every newly added segment. Profile, style,
// tone and length are keys into catalogs the host owns; they are stored but
// not checked.
type SegmentDefaults struct {
	Duration string
	Profile  string
	Style    string
	Tone     string
	Length   string
}

// DefaultSegmentDefaults returns the stock values for new segments.
func DefaultSegmentDefaults() SegmentDefaults {
	return SegmentDefaults{
		Duration: "00:30",
		Profile:  "Default Narrator",
		Style:    "Standard",
		Tone:     "Objective",
		Length:   "Standard",
	}
}

// SegmentID derives a stable id from a story's link and title, so adding the
// same story twice yields the same id.
func SegmentID(link, title string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(link+"\n"+title)).String()
}

// NewSegment promotes a story to a segment.
func NewSegment(story ingest.Story, defaults SegmentDefaults, order int) Segment {
	return Segment{
		Story:            story,
		ID:               SegmentID(story.Link, story.Title),
		Order:            order,
		Duration:         defaults.Duration,
		Active:           true,
		Backtime:         "",
		TeleprompterText: story.Summary,
		Profile:          defaults.Profile,
		Style:            defaults.Style,
		Tone:             defaults.Tone,
		Length:           defaults.Length,
	}
}

// DurationSeconds parses the segment's duration text.
func (s Segment) DurationSeconds() (int, error) {
	return timecode.ParseDuration(s.Duration)
}

// linkKey is the duplicate-detection key for the segment, or "" if its link
// is not navigable.
func (s Segment) linkKey() string {
	return ingest.NormalizeLink(s.Link)
}
