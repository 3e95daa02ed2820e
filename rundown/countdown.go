package rundown

import (
	"time"

	"github.com/pevans/newsdesk/timecode"
)

// ClockState is the phase of the countdown to air.
type ClockState int

const (
	// NoCountdown means there is nothing to count down to.
	NoCountdown ClockState = iota
	// Pending means the first segment is still ahead.
	Pending
	// ShowOver means the first segment's air time has passed.
	ShowOver
)

func (s ClockState) String() string {
	switch s {
	case Pending:
		return "pending"
	case ShowOver:
		return "show over"
	default:
		return "none"
	}
}

// Clock is a countdown reading. Remaining is signed: negative once the show
// has started.
type Clock struct {
	State     ClockState
	Target    time.Time
	Remaining time.Duration
	Text      string
}

// Countdown reports the time left until the first segment airs, reading its
// backtime as the scheduler last wrote it. The rundown is not modified.
func Countdown(r *Rundown, now time.Time) Clock {
	if r.Len() == 0 {
		return Clock{State: NoCountdown, Text: "--:--:--"}
	}

	tod, ok, err := timecode.ParseClockTime(r.segments[0].Backtime)
	if err != nil || !ok {
		return Clock{State: NoCountdown, Text: "--:--:--"}
	}

	target := timecode.ResolveClockTime(tod, now)
	remaining := target.Sub(now)
	if remaining < 0 {
		return Clock{State: ShowOver, Target: target, Remaining: remaining, Text: "Show Over"}
	}

	return Clock{
		State:     Pending,
		Target:    target,
		Remaining: remaining,
		Text:      timecode.FormatCountdown(remaining),
	}
}
