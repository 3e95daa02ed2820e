package rundown

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pevans/newsdesk/events"
	"github.com/pevans/newsdesk/timecode"
)

// NoSchedule is the headline shown for an empty rundown.
const NoSchedule = "no schedule"

// DefaultLead is how far ahead the show ends when nothing else fixes it.
const DefaultLead = 30 * time.Minute

type guardState int32

const (
	stateIdle guardState = iota
	stateRunning
)

// Scheduler computes segment backtimes. A pass started while another is in
// progress (including one triggered from the scheduler's own event sink) is
// dropped, not queued.
type Scheduler struct {
	state    atomic.Int32
	now      func() time.Time
	location *time.Location
	log      *events.Log
}

// Result describes one schedule pass.
type Result struct {
	// Skipped is set when the pass was dropped because another was running.
	Skipped bool
	// Anchor is the show-end instant the pass counted back from.
	Anchor time.Time
	// Start is when the first segment goes to air.
	Start time.Time
	// Starts holds each segment's air time at full precision.
	Starts []time.Time
	// Headline is Start with seconds, or NoSchedule.
	Headline string
	Warnings []events.Event
}

// NewScheduler creates a scheduler that reads the clock from now and formats
// backtimes in loc. A nil now uses time.Now; a nil loc uses time.Local. log
// may be nil.
func NewScheduler(now func() time.Time, loc *time.Location, log *events.Log) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{now: now, location: loc, log: log}
}

// Now returns the scheduler's current time in its location.
func (s *Scheduler) Now() time.Time {
	return s.now().In(s.location)
}

// Schedule recomputes every segment's backtime. It walks the rundown from
// the last segment to the first, starting at the anchor and subtracting each
// active segment's duration; inactive segments and segments whose duration
// does not parse take no time. The anchor chosen is remembered on the
// rundown, so running Schedule again without changes gives the same
// backtimes.
func (s *Scheduler) Schedule(r *Rundown) Result {
	if !s.state.CompareAndSwap(int32(stateIdle), int32(stateRunning)) {
		// Nothing may be logged here: the caller can be our own sink,
		// running under the event log's lock.
		return Result{Skipped: true}
	}
	defer s.state.Store(int32(stateIdle))

	var result Result
	warn := func(source, format string, args ...any) {
		s.log.Warnf(source, format, args...)
		result.Warnings = append(result.Warnings, events.Event{
			Level:   events.Warning,
			Source:  source,
			Message: fmt.Sprintf(format, args...),
			Time:    s.now().UTC(),
		})
	}

	if len(r.segments) == 0 {
		result.Headline = NoSchedule
		return result
	}

	now := s.Now()
	anchor := s.resolveAnchor(r, now, warn)
	r.anchor = anchor

	clock := anchor
	result.Starts = make([]time.Time, len(r.segments))
	for i := len(r.segments) - 1; i >= 0; i-- {
		seg := &r.segments[i]
		if seg.Active {
			secs, err := seg.DurationSeconds()
			if err != nil {
				warn(seg.Title, "invalid duration format %q, counting it as zero", seg.Duration)
			} else {
				clock = clock.Add(-time.Duration(secs) * time.Second)
			}
		}
		seg.Backtime = timecode.FormatClockTime(clock)
		result.Starts[i] = clock
	}

	result.Anchor = anchor
	result.Start = clock
	result.Headline = timecode.FormatClockTimeSeconds(clock)
	return result
}

// resolveAnchor picks the show-end instant: the rundown's own anchor if it
// has one, else the last segment's backtime text, else DefaultLead from now
// truncated to the minute.
func (s *Scheduler) resolveAnchor(r *Rundown, now time.Time, warn func(string, string, ...any)) time.Time {
	if !r.anchor.IsZero() {
		return r.anchor.In(s.location)
	}

	last := r.segments[len(r.segments)-1]
	tod, ok, err := timecode.ParseClockTime(last.Backtime)
	if err != nil {
		warn(last.Title, "invalid backtime format for last item: %q", last.Backtime)
	}
	if ok {
		return timecode.ResolveClockTime(tod, now)
	}

	return now.Add(DefaultLead).Truncate(time.Minute)
}
