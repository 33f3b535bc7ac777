package deepgram

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/voxloop/voxloop-core/core/audio"
)

// The silence generator polls the session's activity clock while SendAudio
// advances it; both sides must go through connMu.
func TestSilenceGeneratorSharesActivityClock(t *testing.T) {
	client := NewTranscriptionClient()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		client.generateSilence(ctx, audio.CaptureEncodingInfo())
	}()

	for range 50 {
		client.connMu.Lock()
		client.lastMsgTs = time.Now()
		client.connMu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}

	cancel()
	wg.Wait()
}

func TestSinceLastMsgTracksActivity(t *testing.T) {
	client := NewTranscriptionClient()

	client.connMu.Lock()
	client.lastMsgTs = time.Now().Add(-time.Second)
	client.connMu.Unlock()

	if idle := client.sinceLastMsg(); idle < time.Second {
		t.Fatalf("expected at least a second of idle time, got %v", idle)
	}

	client.connMu.Lock()
	client.lastMsgTs = time.Now()
	client.connMu.Unlock()

	if idle := client.sinceLastMsg(); idle > 500*time.Millisecond {
		t.Fatalf("expected the clock to reset on activity, got %v", idle)
	}
}
