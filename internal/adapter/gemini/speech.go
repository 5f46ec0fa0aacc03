package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var errNoAudio = errors.New("response contains no audio")

// Speaker renders briefing text to audio with a Gemini TTS model.
type Speaker struct {
	client *client
	model  string
	voice  string
	logger *slog.Logger
}

// NewSpeaker creates a Speaker using the named prebuilt voice.
func NewSpeaker(apiKey, model, voice string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Speaker {
	return &Speaker{
		client: newClient(apiKey, timeout, opts),
		model:  model,
		voice:  voice,
		logger: logger,
	}
}

// Speak synthesizes text. It succeeds only when the model returns a non-empty
// audio part.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	req := generateRequest{
		Contents: []content{{
			Parts: []part{{Text: "Read this emergency bulletin in a calm, clear voice: " + text}},
		}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: s.voice},
				},
			},
		},
	}

	resp, err := s.client.generate(ctx, s.model, req)
	if err != nil {
		return fmt.Errorf("speech synthesis: %w", err)
	}

	for _, p := range resp.firstParts() {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			s.logger.Debug("briefing audio synthesized",
				"bytes", len(p.InlineData.Data),
				"mime_type", p.InlineData.MimeType,
			)
			return nil
		}
	}
	return errNoAudio
}

// LogSpeaker stands in for speech synthesis when no API key is configured.
// Every briefing is written to the log and reported as spoken.
type LogSpeaker struct {
	logger *slog.Logger
}

// NewLogSpeaker creates a LogSpeaker.
func NewLogSpeaker(logger *slog.Logger) *LogSpeaker {
	return &LogSpeaker{logger: logger}
}

// Speak logs the briefing text.
func (s *LogSpeaker) Speak(_ context.Context, text string) error {
	s.logger.Info("voice briefing", "text", text)
	return nil
}
