package deepgram

import (
	"context"
	"fmt"
	"slices"
)

// TextToSpeechClient synthesizes one utterance per websocket session. Each
// Synthesize call opens its own session and closes it before the ended or
// error callback fires, so sessions never outlive a turn.
type TextToSpeechClient struct {
	voice deepgramVoice
}

func NewTextToSpeechClient(_ context.Context, voice deepgramVoice) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{voice: defaultVoice}

	if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice")
	}

	client.voice = voice

	return client, nil
}

func (c *TextToSpeechClient) SetVoice(voice deepgramVoice) {
	c.voice = voice
}
