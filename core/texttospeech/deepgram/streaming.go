package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/voxloop/voxloop-core/core/audio"
	"github.com/voxloop/voxloop-core/core/texttospeech"
)

// Synthesize streams speech for text through a dedicated websocket session.
// Audio chunks arrive on the audio callback in production order; the ended
// callback fires after the backend flushed everything; a transport failure
// before that fires the error callback instead. The session is closed before
// either terminal callback returns.
func (c *TextToSpeechClient) Synthesize(ctx context.Context, text string, opts ...texttospeech.SynthesisOption) error {
	options := texttospeech.SynthesisOptions{
		SpeechAudioCallback: func([]byte) {},
		SpeechEndedCallback: func() {},
		ErrorCallback:       func(error) {},
		EncodingInfo:        audio.PlaybackEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	conn, err := connectWebsocket(c.voice, options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("failed to open websocket: %w", err)
	}

	session := &speakSession{ws: conn, options: options}

	if err := session.send(speakMsg(text)); err != nil {
		session.close()
		return fmt.Errorf("failed to send text to deepgram: %w", err)
	}
	if err := session.send(flushMsg); err != nil {
		session.close()
		return fmt.Errorf("failed to flush deepgram buffer: %w", err)
	}

	go session.processIncomingMessages(ctx)

	return nil
}

func connectWebsocket(voice deepgramVoice, encodingInfo audio.EncodingInfo) (*websocket.Conn, error) {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	urlValues := url.Values{}
	urlValues.Set("encoding", encodingInfo.Encoding.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", string(voice))
	urlValues.Set("container", "none")

	conn, _, err := websocket.DefaultDialer.Dial(
		(&url.URL{
			Scheme: "wss",
			Host:   "api.deepgram.com", Path: "/v1/speak",
			RawQuery: urlValues.Encode(),
		}).String(),
		http.Header{"Authorization": {"token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

type speakSession struct {
	ws *websocket.Conn
	mu sync.Mutex

	closed  bool
	options texttospeech.SynthesisOptions
}

func (r *speakSession) processIncomingMessages(_ context.Context) {
	for {
		msgType, msg, err := r.ws.ReadMessage()
		if err != nil {
			wasClosed := r.close()
			if !wasClosed && err.Error() != "websocket: close 1000 (normal)" {
				r.options.ErrorCallback(fmt.Errorf("websocket read error: %w", err))
				return
			}
			// The backend closed normally before we saw "Flushed"; treat it
			// as end of speech so the caller is not left waiting.
			if !wasClosed {
				r.options.SpeechEndedCallback()
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) > 0 {
				r.options.SpeechAudioCallback(msg)
			}
		case websocket.TextMessage:
			var parsedMsg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				log.Printf("Failed to unmarshal deepgram message: %v", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				r.close()
				r.options.SpeechEndedCallback()
				return
			case "Warning":
				log.Printf("Deepgram warning: %s", msg)
			}
		}
	}
}

// close is idempotent; it reports whether the session was already closed.
func (r *speakSession) close() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return true
	}
	r.closed = true

	if err := r.ws.WriteJSON(closeMsg); err != nil {
		_ = r.ws.Close()
		return false
	}
	_ = r.ws.Close()
	return false
}

type websocketMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var (
	speakMsg = func(text string) speakMessage {
		return speakMessage{Type: "Speak", Text: text}
	}
	flushMsg = websocketMessage{Type: "Flush"}
	closeMsg = websocketMessage{Type: "Close"}
)

func (r *speakSession) send(msg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("websocket connection closed")
	} else if r.ws == nil {
		return fmt.Errorf("websocket connection closed")
	}

	if err := r.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}
