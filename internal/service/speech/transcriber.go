// Package speech adapts raw audio payloads into text.
package speech

import (
	"bytes"
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// TranscriptionError marks a failed speech-to-text call. Callers must
// degrade to a canned response rather than abort the turn.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Transcriber converts a raw audio payload into best-effort text. An
// empty string is a valid result, not an error.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// WhisperTranscriber calls the OpenAI audio transcription API with a
// fixed deployment language.
type WhisperTranscriber struct {
	client   openai.Client
	model    string
	language string
}

// NewWhisperTranscriber builds the transcription adapter.
func NewWhisperTranscriber(apiKey, model, language string) *WhisperTranscriber {
	return &WhisperTranscriber{
		client:   openai.NewClient(option.WithAPIKey(apiKey)),
		model:    model,
		language: language,
	}
}

// Transcribe sends the audio buffer as a WAV container and returns the
// recognized text.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", &TranscriptionError{Err: fmt.Errorf("empty audio payload")}
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.File(bytes.NewReader(audio), "audio.wav", "audio/wav"),
		Model:    openai.AudioModel(t.model),
		Language: openai.String(t.language),
	})
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}

	return resp.Text, nil
}
