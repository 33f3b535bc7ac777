package deepgram

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TranscriptionClient drives one Deepgram listen websocket session at a
// time. A session is opened by Transcribe and torn down by Close; audio is
// streamed in through SendAudio while the read loop surfaces transcripts
// through the configured callbacks.
type TranscriptionClient struct {
	connMu sync.Mutex
	conn   *websocket.Conn

	lastMsgTs             time.Time
	accumulatedTranscript string
	unendedSegment        bool
}

func NewTranscriptionClient() *TranscriptionClient {
	return &TranscriptionClient{}
}
