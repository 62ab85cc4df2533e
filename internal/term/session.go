// Package term runs the widget as an interactive terminal session.
package term

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-widget/internal/lookup"
	"github.com/kjstillabower/weather-lookup-widget/internal/render"
	"github.com/kjstillabower/weather-lookup-widget/internal/voice"
)

const (
	cmdQuit  = ":quit"
	cmdVoice = ":voice"
	cmdHelp  = ":help"
)

const helpText = `Type a city name and press Enter to look up its weather.
  :voice  speak a city name
  :help   show this help
  :quit   exit
`

// Session is one terminal widget. Typed and spoken queries share a single page.
type Session struct {
	workflow *lookup.Workflow
	page     *lookup.Page
	adapter  *voice.Adapter
	in       io.Reader
	logger   *zap.Logger

	mu         sync.Mutex
	out        io.Writer
	voiceLabel string
}

// NewSession creates a session reading commands from in and writing to out.
// A nil recognizer leaves voice input unsupported.
func NewSession(workflow *lookup.Workflow, recognizer voice.Recognizer, opts voice.Options, in io.Reader, out io.Writer, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		workflow:   workflow,
		page:       &lookup.Page{},
		in:         in,
		out:        out,
		logger:     logger,
		voiceLabel: voice.IdleLabel,
	}
	s.adapter = voice.NewAdapter(recognizer, s, s.search, opts, logger)
	return s
}

// Page returns the session's page state.
func (s *Session) Page() *lookup.Page {
	return s.page
}

// Run processes input lines until :quit, end of input or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	s.printf("%s", helpText)
	for {
		s.prompt()
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			if quit := s.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

func (s *Session) handle(ctx context.Context, line string) (quit bool) {
	switch strings.TrimSpace(line) {
	case cmdQuit:
		return true
	case cmdHelp:
		s.printf("%s", helpText)
	case cmdVoice:
		err := s.adapter.Listen(ctx)
		var capErr *voice.CaptureError
		switch {
		case errors.Is(err, voice.ErrBusy):
			s.Notify("Already listening.")
		case err != nil && !errors.Is(err, voice.ErrUnsupported) && !errors.As(err, &capErr) && !errors.Is(err, context.Canceled):
			s.logger.Warn("voice capture", zap.Error(err))
		}
	default:
		s.search(ctx, line)
	}
	return false
}

// search runs a lookup for query and prints the resulting view and background.
func (s *Session) search(ctx context.Context, query string) {
	s.page.SetQuery(query)
	s.workflow.Submit(ctx, s.page)
	state := s.page.State()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := render.Text(s.out, state.View); err != nil {
		s.logger.Error("render view", zap.Error(err))
	}
	fmt.Fprintf(s.out, "  [background: %s]\n", state.Theme.CSSClass())
}

// SetVoiceLabel implements voice.Controls.
func (s *Session) SetVoiceLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if label == s.voiceLabel {
		return
	}
	s.voiceLabel = label
	fmt.Fprintf(s.out, "%s\n", label)
}

// SetQuery implements voice.Controls.
func (s *Session) SetQuery(query string) {
	s.page.SetQuery(query)
	s.printf("> %s\n", query)
}

// Notify implements voice.Controls.
func (s *Session) Notify(message string) {
	s.printf("! %s\n", message)
}

func (s *Session) prompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s city> ", s.voiceLabel)
}

func (s *Session) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}
