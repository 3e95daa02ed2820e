// Package timecode parses and formats the clock strings used by a rundown:
// segment durations ("MM:SS", "HH:MM:SS") and wall-clock backtimes
// ("hh:mm AM").
package timecode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidTime     = errors.New("invalid time")
)

// Layouts tried by ParseClockTime, in order.
var clockLayouts = []string{
	"3:04:05 PM",
	"3:04 PM",
	"15:04:05",
	"15:04",
}

// TimeOfDay is a wall-clock time with no date attached.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// On places the time of day on the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, t.Second, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// MaxDurationSeconds is the longest duration ParseDuration accepts, 99:59:59.
const MaxDurationSeconds = 99*3600 + 59*60 + 59

// ParseDuration converts "M:SS", "MM:SS", "H:MM:SS" or "HH:MM:SS" into a
// number of seconds. Seconds (and minutes, in the three-part form) must be
// below 60, and the total must not exceed MaxDurationSeconds.
func ParseDuration(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, ok := unsigned(p)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		nums[i] = n
	}

	var hours, minutes, seconds int
	if len(nums) == 2 {
		minutes, seconds = nums[0], nums[1]
		if seconds >= 60 {
			return 0, fmt.Errorf("%w: seconds out of range in %q", ErrInvalidDuration, s)
		}
	} else {
		hours, minutes, seconds = nums[0], nums[1], nums[2]
		if minutes >= 60 || seconds >= 60 {
			return 0, fmt.Errorf("%w: minutes or seconds out of range in %q", ErrInvalidDuration, s)
		}
	}

	// Check each field before multiplying so huge values cannot wrap.
	if hours > MaxDurationSeconds/3600 || minutes > MaxDurationSeconds/60 {
		return 0, fmt.Errorf("%w: %q is longer than 99:59:59", ErrInvalidDuration, s)
	}
	total := hours*3600 + minutes*60 + seconds
	if total > MaxDurationSeconds {
		return 0, fmt.Errorf("%w: %q is longer than 99:59:59", ErrInvalidDuration, s)
	}
	return total, nil
}

// unsigned parses a run of ASCII digits. Signs and blanks are rejected.
func unsigned(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatDuration renders seconds as "MM:SS", or "H:MM:SS" once it reaches an
// hour. The output always parses back with ParseDuration.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, rem := seconds/3600, seconds%3600
	m, s := rem/60, rem%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// ParseClockTime parses a wall-clock time in 12-hour (with or without
// seconds) or 24-hour (with or without seconds) form. Blank input is not an
// error: it reports ok=false so callers can tell "no time given" apart from a
// malformed one.
func ParseClockTime(s string) (tod TimeOfDay, ok bool, err error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return TimeOfDay{}, false, nil
	}

	for _, layout := range clockLayouts {
		t, perr := time.Parse(layout, trimmed)
		if perr == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, true, nil
		}
	}

	return TimeOfDay{}, false, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}

// FormatClockTime renders t with minute precision, e.g. "05:59 PM".
func FormatClockTime(t time.Time) string {
	return t.Format("03:04 PM")
}

// FormatClockTimeSeconds renders t with second precision, e.g. "05:59:15 PM".
func FormatClockTimeSeconds(t time.Time) string {
	return t.Format("03:04:05 PM")
}

// ResolveClockTime anchors tod to now's calendar day. A result more than an
// hour behind now is taken to mean tomorrow, which keeps schedules that
// cross midnight pointing forward.
func ResolveClockTime(tod TimeOfDay, now time.Time) time.Time {
	t := tod.On(now)
	if now.Sub(t) > time.Hour {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// FormatCountdown renders a non-negative duration as "HH:MM:SS". Hours are
// not wrapped at 24.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	total := int(d / time.Second)
	h, rem := total/3600, total%3600
	return fmt.Sprintf("%02d:%02d:%02d", h, rem/60, rem%60)
}
