package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/voxloop/voxloop-core/core/events"
	"github.com/voxloop/voxloop-core/core/speechtotext"
	"go.opentelemetry.io/otel/codes"
)

// transcriber runs the capture/transcribe stage. It owns the capture device
// and the transcription session for exactly the duration of one turn's
// capture.
type transcriber struct {
	speechToText SpeechToText
	audioInput   AudioInput
	emit         eventEmitter
}

// transcribeOnce captures audio until the backend finalizes one utterance and
// returns its transcript. The capture device and the transcription session
// are released before returning, on every path. An empty transcript means the
// utterance ended without usable speech.
func (t *transcriber) transcribeOnce(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe turn")
	defer span.End()

	type result struct {
		transcript string
		err        error
	}
	results := make(chan result, 1)
	report := func(transcript string, err error) {
		select {
		case results <- result{transcript: transcript, err: err}:
		default:
		}
	}

	if err := t.speechToText.Transcribe(ctx,
		speechtotext.WithEncodingInfo(t.audioInput.EncodingInfo()),
		speechtotext.WithInterimTranscriptionCallback(func(transcript string) {
			t.emit(events.NewSTTChunk(transcript))
		}),
		speechtotext.WithTranscriptionCallback(func(transcript string) {
			report(transcript, nil)
		}),
		speechtotext.WithErrorCallback(func(err error) {
			report("", err)
		}),
	); err != nil {
		err = fmt.Errorf("failed to open transcription session: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", &TranscriptionError{Err: err}
	}
	defer func() {
		if err := t.speechToText.Close(ctx); err != nil {
			logger.WarnContext(ctx, "Failed to close transcription session", "error", err)
		}
	}()

	if err := t.audioInput.Start(ctx, func(audio []byte) {
		t.emit(events.NewUserInput(audio))
		if err := t.speechToText.SendAudio(audio); err != nil {
			logger.WarnContext(ctx, "Failed to forward captured audio", "error", err)
		}
	}); err != nil {
		err = fmt.Errorf("failed to start audio capture: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", &TranscriptionError{Err: err}
	}
	defer func() {
		if err := t.audioInput.Stop(); err != nil {
			logger.WarnContext(ctx, "Failed to stop audio capture", "error", err)
		}
	}()

	select {
	case res := <-results:
		if res.err != nil {
			span.RecordError(res.err)
			span.SetStatus(codes.Error, res.err.Error())
			return "", &TranscriptionError{Err: res.err}
		}

		transcript := strings.TrimSpace(res.transcript)
		t.emit(events.NewSTTOutput(transcript))
		return transcript, nil

	case <-ctx.Done():
		return "", ctx.Err()
	}
}
