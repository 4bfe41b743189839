package presentation

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrVoiceUnavailable is returned when no speech input is configured.
var ErrVoiceUnavailable = errors.New("voice input unavailable")

// Voice is an optional speech plugin. Nothing in the forecast path needs one.
type Voice interface {
	// CaptureText listens for one utterance and returns its transcript.
	CaptureText(ctx context.Context) (string, error)
	Speak(ctx context.Context, text string) error
}

// NoopVoice has no microphone and stays silent.
type NoopVoice struct{}

func (NoopVoice) CaptureText(context.Context) (string, error) { return "", ErrVoiceUnavailable }
func (NoopVoice) Speak(context.Context, string) error          { return nil }

// LogVoice speaks into the log. Capture is unavailable.
type LogVoice struct {
	Log logrus.FieldLogger
}

func (v LogVoice) CaptureText(context.Context) (string, error) { return "", ErrVoiceUnavailable }

func (v LogVoice) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := v.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithField("component", "voice").Info(text)
	return nil
}

// NewVoice returns LogVoice when enabled and NoopVoice otherwise.
func NewVoice(enabled bool, log logrus.FieldLogger) Voice {
	if enabled {
		return LogVoice{Log: log}
	}
	return NoopVoice{}
}
