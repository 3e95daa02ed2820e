package rundown

import (
	"time"

	"github.com/pevans/newsdesk/ingest"
)

// Desk pairs a rundown with its scheduler and reschedules after every change
// that can move a backtime.
type Desk struct {
	rundown   *Rundown
	scheduler *Scheduler
	last      Result
}

// NewDesk wraps r and s and runs an initial schedule pass.
func NewDesk(r *Rundown, s *Scheduler) *Desk {
	d := &Desk{rundown: r, scheduler: s}
	d.Reschedule()
	return d
}

// Rundown returns the underlying rundown.
func (d *Desk) Rundown() *Rundown {
	return d.rundown
}

// Last returns the most recent schedule pass.
func (d *Desk) Last() Result {
	return d.last
}

// Reschedule runs a schedule pass now.
func (d *Desk) Reschedule() Result {
	if res := d.scheduler.Schedule(d.rundown); !res.Skipped {
		d.last = res
	}
	return d.last
}

// Add appends stories as segments and returns how many were new. Stories
// already in the rundown are skipped.
func (d *Desk) Add(stories ...ingest.Story) int {
	added := d.rundown.AppendAll(stories)
	if added > 0 {
		d.Reschedule()
	}
	return added
}

// Move shifts a segment up (-1) or down (+1).
func (d *Desk) Move(index, direction int) bool {
	if !d.rundown.Move(index, direction) {
		return false
	}
	d.Reschedule()
	return true
}

// Delete removes a segment.
func (d *Desk) Delete(index int) error {
	if err := d.rundown.Delete(index); err != nil {
		return err
	}
	d.Reschedule()
	return nil
}

// Update edits one field of a segment, rescheduling when the field is a
// duration or the active flag.
func (d *Desk) Update(index int, field Field, value string) error {
	if err := d.rundown.UpdateField(index, field, value); err != nil {
		return err
	}
	if field.affectsSchedule() {
		d.Reschedule()
	}
	return nil
}

// SetAnchor fixes the show end and reschedules.
func (d *Desk) SetAnchor(t time.Time) Result {
	d.rundown.SetAnchor(t)
	return d.Reschedule()
}

// SetAnchorText parses a clock time for the show end and reschedules.
func (d *Desk) SetAnchorText(s string) error {
	if err := d.rundown.SetAnchorText(s, d.scheduler.Now()); err != nil {
		return err
	}
	d.Reschedule()
	return nil
}

// Reset empties the rundown.
func (d *Desk) Reset() {
	d.rundown.Reset()
	d.Reschedule()
}

// Countdown reads the time left until the first segment airs.
func (d *Desk) Countdown() Clock {
	return Countdown(d.rundown, d.scheduler.Now())
}
