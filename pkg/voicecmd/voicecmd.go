// Package voicecmd turns recognized speech into spoken responses.
//
// Recognition runs against an external streaming service, so a single
// command can take seconds; the task runs on its own goroutine and
// hands responses to the announcer's direct path, which waits for any
// utterance in progress rather than interrupting it.
package voicecmd

import (
	"context"
	"errors"
	"strings"

	"github.com/visionaid/go-visionaid/internal/log"
)

// ErrNoTranscript is returned when recognition yields nothing usable.
var ErrNoTranscript = errors.New("voicecmd: no transcript")

// Recognizer produces one final transcript per call. Recognize blocks
// until speech is recognized or the context is cancelled.
type Recognizer interface {
	Recognize(ctx context.Context) (string, error)
	Close() error
}

// Speaker is the announcer's direct speech path.
type Speaker interface {
	SayNow(ctx context.Context, text string) error
}

// CommandLog persists commands and their responses.
type CommandLog interface {
	LogVoiceCommand(ctx context.Context, command, response string) error
}

// Handler maps a transcript to a spoken response.
type Handler struct {
	// DescribeScene returns a description of what the camera
	// currently sees.
	DescribeScene func() string

	// SystemStatus returns a short spoken status line.
	SystemStatus func() string
}

// Handle returns the response for a transcript. Unrecognized commands
// get a short hint rather than silence.
func (h *Handler) Handle(transcript string) string {
	cmd := strings.ToLower(strings.TrimSpace(transcript))
	switch {
	case cmd == "":
		return ""
	case strings.Contains(cmd, "around me") ||
		strings.Contains(cmd, "describe") ||
		strings.Contains(cmd, "what do you see"):
		if h.DescribeScene != nil {
			return h.DescribeScene()
		}
		return "I can't see anything right now"
	case strings.Contains(cmd, "status") || strings.Contains(cmd, "how are you"):
		if h.SystemStatus != nil {
			return h.SystemStatus()
		}
		return "all systems running"
	case strings.Contains(cmd, "help"):
		return "you can ask: what's around me, or system status"
	default:
		return "sorry, I didn't catch that. say help for commands"
	}
}

// Task runs the recognize-respond-log loop.
type Task struct {
	rec     Recognizer
	handler *Handler
	speaker Speaker
	cmdlog  CommandLog
}

// NewTask wires a recognizer to a handler, speaker and command log.
func NewTask(rec Recognizer, handler *Handler, speaker Speaker, cmdlog CommandLog) *Task {
	return &Task{rec: rec, handler: handler, speaker: speaker, cmdlog: cmdlog}
}

// Run processes commands until the context is cancelled. Recognition
// and logging failures are logged and skipped; the loop keeps going.
func (t *Task) Run(ctx context.Context) {
	for ctx.Err() == nil {
		transcript, err := t.rec.Recognize(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("speech recognition failed", "error", err)
			continue
		}

		response := t.handler.Handle(transcript)
		if response == "" {
			continue
		}

		if err := t.speaker.SayNow(ctx, response); err != nil {
			log.Error("failed to speak command response", "error", err)
		}
		if t.cmdlog != nil {
			if err := t.cmdlog.LogVoiceCommand(ctx, transcript, response); err != nil {
				log.Warn("failed to record voice command", "error", err)
			}
		}
	}
}
