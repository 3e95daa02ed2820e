// Package events carries the diagnostic stream produced while pulling feeds
// and scheduling a rundown.
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is the severity of an Event.
type Level string

const (
	Info    Level = "info"
	Warning Level = "warning"
	Error   Level = "error"
)

// Event is one diagnostic record. Source names the feed (or segment) the
// event is about.
type Event struct {
	Level   Level     `json:"level"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

func (e Event) String() string {
	if e.Source == "" {
		return fmt.Sprintf("[%s] %s", e.Level, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Level, e.Source, e.Message)
}

// Sink receives events as they are recorded.
type Sink func(Event)

// Log is an append-only, chronological event log that is safe for use by
// concurrent producers. Events from one producer keep their order; events
// from different producers interleave in arrival order.
type Log struct {
	mu     sync.Mutex
	events []Event
	sink   Sink
	logger zerolog.Logger
	now    func() time.Time
}

// NewLog creates an event log. The sink (which may be nil) is called for
// every event, serialized under the log's lock.
func NewLog(sink Sink, logger zerolog.Logger) *Log {
	return &Log{
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// Add records an event. A nil Log discards it.
func (l *Log) Add(level Level, source, format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	evt := Event{
		Level:   level,
		Source:  source,
		Message: fmt.Sprintf(format, args...),
		Time:    l.now().UTC(),
	}
	l.events = append(l.events, evt)
	l.write(evt)

	if l.sink != nil {
		l.sink(evt)
	}
}

func (l *Log) write(evt Event) {
	var e *zerolog.Event
	switch evt.Level {
	case Error:
		e = l.logger.Error()
	case Warning:
		e = l.logger.Warn()
	default:
		e = l.logger.Info()
	}
	if evt.Source != "" {
		e = e.Str("source", evt.Source)
	}
	e.Msg(evt.Message)
}

// Infof records an info event.
func (l *Log) Infof(source, format string, args ...any) { l.Add(Info, source, format, args...) }

// Warnf records a warning event.
func (l *Log) Warnf(source, format string, args ...any) { l.Add(Warning, source, format, args...) }

// Errorf records an error event.
func (l *Log) Errorf(source, format string, args ...any) { l.Add(Error, source, format, args...) }

// Events returns a copy of everything recorded so far.
func (l *Log) Events() []Event {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Count returns how many events of the given level have been recorded.
func (l *Log) Count(level Level) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, e := range l.events {
		if e.Level == level {
			n++
		}
	}
	return n
}
