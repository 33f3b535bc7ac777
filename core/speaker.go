package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/voxloop/voxloop-core/core/events"
	"github.com/voxloop/voxloop-core/core/texttospeech"
	"go.opentelemetry.io/otel/codes"
)

// speaker runs the synthesis/playback stage. It owns the playback device for
// exactly the duration of one response's playback.
type speaker struct {
	textToSpeech TextToSpeech
	audioOutput  AudioOutput
	emit         eventEmitter
}

// speak synthesizes text and plays it to completion. Whitespace-only text is
// a no-op: no device is acquired and no backend session is opened. Audio that
// reached the device before a failure stands; the device is released on every
// path.
func (s *speaker) speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "speak response")
	defer span.End()

	if err := s.audioOutput.Open(ctx); err != nil {
		err = fmt.Errorf("failed to open audio output: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &SynthesisError{Err: err}
	}
	defer func() {
		if err := s.audioOutput.Close(); err != nil {
			logger.WarnContext(ctx, "Failed to close audio output", "error", err)
		}
	}()

	audioChunks := make(chan []byte, 32)
	errs := make(chan error, 1)
	done := make(chan struct{})
	var endOnce sync.Once
	end := func(err error) {
		endOnce.Do(func() {
			if err != nil {
				errs <- err
			}
			close(done)
		})
	}

	if err := s.textToSpeech.Synthesize(ctx, text,
		texttospeech.WithEncodingInfo(s.audioOutput.EncodingInfo()),
		texttospeech.WithSpeechAudioCallback(func(audio []byte) {
			// Audio arriving after the stream ended is dropped rather than
			// blocking the backend forever.
			select {
			case audioChunks <- audio:
			case <-done:
			}
		}),
		texttospeech.WithSpeechEndedCallback(func() { end(nil) }),
		texttospeech.WithErrorCallback(func(err error) { end(err) }),
	); err != nil {
		err = fmt.Errorf("failed to start synthesis: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &SynthesisError{Err: err}
	}
	// Unblock backend callbacks if playback bails out before the stream ends.
	defer end(nil)

	writeChunk := func(chunk []byte) error {
		s.emit(events.NewTTSChunk(chunk))
		if err := s.audioOutput.Write(chunk); err != nil {
			err = fmt.Errorf("failed to write audio to output: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return &SynthesisError{Err: err}
		}
		return nil
	}

	ended := false
	for !ended {
		select {
		case chunk := <-audioChunks:
			if err := writeChunk(chunk); err != nil {
				return err
			}
		case <-done:
			ended = true
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Flush audio handed off before the stream ended.
	for {
		select {
		case chunk := <-audioChunks:
			if err := writeChunk(chunk); err != nil {
				return err
			}
		default:
			select {
			case err := <-errs:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return &SynthesisError{Err: err}
			default:
			}

			if err := s.audioOutput.Drain(); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return &SynthesisError{Err: err}
			}
			return nil
		}
	}
}
