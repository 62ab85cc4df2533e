package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-widget/internal/observability"
)

const (
	IdleLabel      = "🎤"
	ListeningLabel = "🔴 Listening..."

	UnsupportedMessage = "Sorry, your platform does not support speech recognition."
)

var (
	// ErrUnsupported is returned when the platform has no speech recognizer.
	ErrUnsupported = errors.New("speech recognition is not supported on this platform")
	// ErrBusy is returned when a capture session is already in progress.
	ErrBusy = errors.New("speech recognition is already listening")
)

// CaptureError is a failure reported by the recognizer during a session.
type CaptureError struct {
	Reason string
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("Speech recognition error: %s. Please ensure your microphone is connected and permission is granted.", e.Reason)
}

// Controls are the UI elements the adapter drives.
type Controls interface {
	SetVoiceLabel(label string)
	SetQuery(query string)
	Notify(message string)
}

// SearchFunc runs a lookup for the transcript just written to the query field.
type SearchFunc func(ctx context.Context, query string)

// Adapter runs capture sessions. Its state machine is idle → listening → idle;
// only one session runs at a time.
type Adapter struct {
	recognizer Recognizer
	controls   Controls
	search     SearchFunc
	opts       Options
	logger     *zap.Logger

	listening atomic.Bool
}

// NewAdapter creates an Adapter. Zero option fields take DefaultOptions values.
func NewAdapter(r Recognizer, controls Controls, search SearchFunc, opts Options, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		recognizer: r,
		controls:   controls,
		search:     search,
		opts:       opts.withDefaults(),
		logger:     logger,
	}
}

// Listening reports whether a session is in progress.
func (a *Adapter) Listening() bool {
	return a.listening.Load()
}

// Listen runs one capture session and blocks until it ends. On a result the
// best transcript is written to the query field and searched. Capture
// failures are both notified and returned as *CaptureError.
func (a *Adapter) Listen(ctx context.Context) error {
	if a.recognizer == nil || !a.recognizer.Available() {
		observability.VoiceSessionsTotal.WithLabelValues("unsupported").Inc()
		a.controls.Notify(UnsupportedMessage)
		return ErrUnsupported
	}
	if !a.listening.CompareAndSwap(false, true) {
		observability.VoiceSessionsTotal.WithLabelValues("busy").Inc()
		return ErrBusy
	}
	defer a.listening.Store(false)

	events, err := a.recognizer.Start(ctx, a.opts)
	if err != nil {
		observability.VoiceSessionsTotal.WithLabelValues("error").Inc()
		return a.fail(&CaptureError{Reason: err.Error()})
	}
	a.controls.SetVoiceLabel(ListeningLabel)
	defer a.controls.SetVoiceLabel(IdleLabel)

	var (
		handled bool
		result  = "no_speech"
		capErr  error
	)
	for {
		select {
		case <-ctx.Done():
			observability.VoiceSessionsTotal.WithLabelValues("cancelled").Inc()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok || ev.Type == EventEnd {
				observability.VoiceSessionsTotal.WithLabelValues(result).Inc()
				return capErr
			}
			switch ev.Type {
			case EventResult:
				if handled {
					continue
				}
				// A blank transcript is still searched; the workflow renders it as empty input.
				transcript := best(ev.Alternatives)
				handled = true
				result = "result"
				a.controls.SetQuery(transcript)
				a.controls.SetVoiceLabel(IdleLabel)
				a.logger.Debug("voice transcript captured", zap.Int("length", len(transcript)))
				if a.search != nil {
					a.search(ctx, transcript)
				}
			case EventError:
				result = "error"
				capErr = a.fail(&CaptureError{Reason: ev.Reason})
			}
		}
	}
}

func (a *Adapter) fail(err *CaptureError) error {
	a.logger.Warn("voice capture failed", zap.String("reason", err.Reason))
	a.controls.SetVoiceLabel(IdleLabel)
	a.controls.Notify(err.Error())
	return err
}

func best(alts []Alternative) string {
	for _, alt := range alts {
		if t := strings.TrimSpace(alt.Transcript); t != "" {
			return t
		}
	}
	return ""
}
