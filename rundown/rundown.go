// Package rundown keeps an ordered list of timed broadcast segments and
// works out when each one goes to air, counting back from the end of the
// show.
//
// A Rundown is not safe for concurrent mutation; a single owner is expected
// to serialize calls.
package rundown

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pevans/newsdesk/ingest"
	"github.com/pevans/newsdesk/timecode"
)

var (
	ErrIndexOutOfRange = errors.New("segment index out of range")
	ErrUnknownField    = errors.New("unknown segment field")
	ErrInvalidValue    = errors.New("invalid field value")
)

// Field names a user-editable segment attribute.
type Field string

const (
	FieldTitle        Field = "title"
	FieldDuration     Field = "duration"
	FieldActive       Field = "active"
	FieldProfile      Field = "profile"
	FieldStyle        Field = "style"
	FieldTone         Field = "tone"
	FieldLength       Field = "length"
	FieldTeleprompter Field = "teleprompter_text"
)

// Fields lists every editable field.
var Fields = []Field{
	FieldTitle, FieldDuration, FieldActive, FieldProfile,
	FieldStyle, FieldTone, FieldLength, FieldTeleprompter,
}

// affectsSchedule reports whether editing the field changes backtimes.
func (f Field) affectsSchedule() bool {
	return f == FieldDuration || f == FieldActive
}

// Rundown is an ordered list of segments. Position is broadcast order.
type Rundown struct {
	segments []Segment
	defaults SegmentDefaults

	// anchor is the show-end instant backtimes count down to. Zero means
	// none has been chosen yet.
	anchor time.Time
}

// New creates an empty rundown.
func New(defaults SegmentDefaults) *Rundown {
	return &Rundown{defaults: defaults}
}

// Len returns the number of segments.
func (r *Rundown) Len() int {
	return len(r.segments)
}

// Segments returns a copy of the segments in broadcast order.
func (r *Rundown) Segments() []Segment {
	return append([]Segment(nil), r.segments...)
}

// At returns the segment at index.
func (r *Rundown) At(index int) (Segment, error) {
	if index < 0 || index >= len(r.segments) {
		return Segment{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return r.segments[index], nil
}

// Contains reports whether a story is already in the rundown, by segment id
// or by link.
func (r *Rundown) Contains(story ingest.Story) bool {
	return r.indexOf(SegmentID(story.Link, story.Title), ingest.NormalizeLink(story.Link)) >= 0
}

func (r *Rundown) indexOf(id, linkKey string) int {
	for i, s := range r.segments {
		if s.ID == id {
			return i
		}
		if linkKey != "" && s.linkKey() == linkKey {
			return i
		}
	}
	return -1
}

// Append adds story to the end of the rundown as a new segment with default
// settings. It returns false, leaving the rundown unchanged, when a segment
// with the same id or link already exists.
func (r *Rundown) Append(story ingest.Story) bool {
	seg := NewSegment(story, r.defaults, r.nextOrder())
	if r.indexOf(seg.ID, seg.linkKey()) >= 0 {
		return false
	}
	r.segments = append(r.segments, seg)
	return true
}

// AppendAll appends each story in turn and returns how many were new.
func (r *Rundown) AppendAll(stories []ingest.Story) int {
	added := 0
	for _, s := range stories {
		if r.Append(s) {
			added++
		}
	}
	return added
}

func (r *Rundown) nextOrder() int {
	next := 0
	for _, s := range r.segments {
		if s.Order >= next {
			next = s.Order + 1
		}
	}
	return next
}

// Move shifts the segment at index one place up (direction -1) or down
// (direction +1). The segment's fields are carried over untouched. It
// returns false when either position is out of range.
func (r *Rundown) Move(index, direction int) bool {
	if direction != -1 && direction != 1 {
		return false
	}
	target := index + direction
	if index < 0 || index >= len(r.segments) || target < 0 || target >= len(r.segments) {
		return false
	}
	r.segments[index], r.segments[target] = r.segments[target], r.segments[index]
	return true
}

// Delete removes the segment at index.
func (r *Rundown) Delete(index int) error {
	if index < 0 || index >= len(r.segments) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	r.segments = append(r.segments[:index], r.segments[index+1:]...)
	return nil
}

// UpdateField sets one editable attribute of the segment at index from its
// text form. Durations must parse with timecode.ParseDuration and "active"
// must be a boolean; on error the segment is left unchanged.
func (r *Rundown) UpdateField(index int, field Field, value string) error {
	if index < 0 || index >= len(r.segments) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	seg := &r.segments[index]

	switch field {
	case FieldTitle:
		seg.Title = value
	case FieldDuration:
		if _, err := timecode.ParseDuration(value); err != nil {
			return err
		}
		seg.Duration = value
	case FieldActive:
		active, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: active must be true or false, got %q", ErrInvalidValue, value)
		}
		seg.Active = active
	case FieldProfile:
		seg.Profile = value
	case FieldStyle:
		seg.Style = value
	case FieldTone:
		seg.Tone = value
	case FieldLength:
		seg.Length = value
	case FieldTeleprompter:
		seg.TeleprompterText = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// MarkRewritten replaces the segment's teleprompter text with rewritten copy
// and flags it. The original summary is kept as ingested.
func (r *Rundown) MarkRewritten(index int, text string) error {
	if index < 0 || index >= len(r.segments) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	seg := &r.segments[index]
	seg.TeleprompterText = text
	seg.Rewritten = true
	return nil
}

// Anchor returns the show-end instant, if one has been set.
func (r *Rundown) Anchor() (time.Time, bool) {
	return r.anchor, !r.anchor.IsZero()
}

// SetAnchor fixes the show-end instant. This is the manual override: it wins
// over anything derived from segment backtimes.
func (r *Rundown) SetAnchor(t time.Time) {
	r.anchor = t
}

// SetAnchorText parses a clock time such as "6:00 PM" and anchors the show
// to its next occurrence relative to now. Blank text clears the anchor.
func (r *Rundown) SetAnchorText(s string, now time.Time) error {
	tod, ok, err := timecode.ParseClockTime(s)
	if err != nil {
		return err
	}
	if !ok {
		r.ClearAnchor()
		return nil
	}
	r.anchor = timecode.ResolveClockTime(tod, now)
	return nil
}

// ClearAnchor forgets the show-end instant; the next schedule pass derives a
// new one.
func (r *Rundown) ClearAnchor() {
	r.anchor = time.Time{}
}

// Reset removes every segment and the anchor.
func (r *Rundown) Reset() {
	r.segments = nil
	r.anchor = time.Time{}
}
