// Package notify delivers user-facing messages about graph mutations.
package notify

import (
	"time"
)

// Level is the severity of a notification.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one message as it is shown or published.
type Notification struct {
	ID        string        `json:"id" yaml:"id"`
	Title     string        `json:"title" yaml:"title"`
	Message   string        `json:"message" yaml:"message"`
	Level     Level         `json:"level" yaml:"level"`
	CreatedAt time.Time     `json:"createdAt" yaml:"created_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Sink receives notifications. Implementations must not block on slow
// consumers for long; callers invoke Add outside their own locks.
type Sink interface {
	Add(title, message string, level Level)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(title, message string, level Level)

func (f SinkFunc) Add(title, message string, level Level) { f(title, message, level) }

type multiSink []Sink

// Multi fans a notification out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Add(title, message string, level Level) {
	for _, s := range m {
		s.Add(title, message, level)
	}
}

// Discard drops every notification.
var Discard Sink = SinkFunc(func(string, string, Level) {})
