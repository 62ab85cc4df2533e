// Package voice turns one spoken utterance into a search query.
package voice

import "context"

// EventType is the kind of event a recognizer emits.
type EventType int

const (
	// EventResult carries the recognised alternatives.
	EventResult EventType = iota
	// EventError reports a capture failure; Reason names it.
	EventError
	// EventEnd marks the end of the session. It is always the last event.
	EventEnd
)

func (t EventType) String() string {
	switch t {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Alternative is one candidate transcript, best first.
type Alternative struct {
	Transcript string
	Confidence float64
}

// Event is emitted by a Recognizer during a session.
type Event struct {
	Type         EventType
	Alternatives []Alternative
	Reason       string
}

// Options configures one capture session.
type Options struct {
	Locale          string
	InterimResults  bool
	MaxAlternatives int
}

// DefaultOptions returns en-US, final results only, one alternative.
func DefaultOptions() Options {
	return Options{Locale: "en-US", InterimResults: false, MaxAlternatives: 1}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Locale == "" {
		o.Locale = d.Locale
	}
	if o.MaxAlternatives <= 0 {
		o.MaxAlternatives = d.MaxAlternatives
	}
	return o
}

// Recognizer is a platform speech-to-text capability.
type Recognizer interface {
	// Available reports whether the platform can capture speech at all.
	Available() bool
	// Start begins one session. The returned channel yields zero or more
	// result or error events, then EventEnd, and is then closed.
	Start(ctx context.Context, opts Options) (<-chan Event, error)
}
