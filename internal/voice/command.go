package voice

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Environment variables passed to the speech-to-text command.
const (
	EnvLocale          = "VOICE_LOCALE"
	EnvInterimResults  = "VOICE_INTERIM_RESULTS"
	EnvMaxAlternatives = "VOICE_MAX_ALTERNATIVES"
)

// CommandRecognizer captures speech by running an external speech-to-text
// program. Each non-empty stdout line is one alternative, best first. A
// non-zero exit is a capture error whose reason is the last stderr line.
type CommandRecognizer struct {
	Command string
	Args    []string
	Logger  *zap.Logger
}

// NewCommandRecognizer splits command on whitespace into program and arguments.
func NewCommandRecognizer(command string, logger *zap.Logger) *CommandRecognizer {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return &CommandRecognizer{Logger: logger}
	}
	return &CommandRecognizer{Command: fields[0], Args: fields[1:], Logger: logger}
}

// Available reports whether the command is configured and on PATH.
func (r *CommandRecognizer) Available() bool {
	if r == nil || r.Command == "" {
		return false
	}
	_, err := exec.LookPath(r.Command)
	return err == nil
}

// Start launches the command. The session ends when it exits or ctx is cancelled.
func (r *CommandRecognizer) Start(ctx context.Context, opts Options) (<-chan Event, error) {
	if !r.Available() {
		return nil, ErrUnsupported
	}
	opts = opts.withDefaults()

	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Env = append(os.Environ(),
		EnvLocale+"="+opts.Locale,
		EnvInterimResults+"="+strconv.FormatBool(opts.InterimResults),
		EnvMaxAlternatives+"="+strconv.Itoa(opts.MaxAlternatives),
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("voice command stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start voice command: %w", err)
	}

	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// At most one result or error, then end.
	events := make(chan Event, 2)
	go func() {
		defer close(events)

		var alts []Alternative
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || len(alts) >= opts.MaxAlternatives {
				continue
			}
			alts = append(alts, Alternative{Transcript: line})
		}
		scanErr := scanner.Err()
		_, _ = io.Copy(io.Discard, stdout)
		waitErr := cmd.Wait()

		switch {
		case waitErr != nil:
			reason := failureReason(ctx, waitErr, stderr.String())
			logger.Debug("voice command failed", zap.String("command", r.Command), zap.String("reason", reason))
			events <- Event{Type: EventError, Reason: reason}
		case scanErr != nil:
			logger.Debug("voice command output unreadable", zap.String("command", r.Command), zap.Error(scanErr))
			events <- Event{Type: EventError, Reason: "unreadable transcript: " + scanErr.Error()}
		case len(alts) > 0:
			events <- Event{Type: EventResult, Alternatives: alts}
		}
		events <- Event{Type: EventEnd}
	}()
	return events, nil
}

func failureReason(ctx context.Context, waitErr error, stderr string) string {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "aborted"
	}
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		return last
	}
	return waitErr.Error()
}
