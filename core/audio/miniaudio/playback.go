package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/voxloop/voxloop-core/core/audio"
)

// PlaybackClient plays PCM through miniaudio. The playback device exists
// only between Open and Close; Write blocks while the device-side buffer is
// full so callers see backpressure instead of an unbounded queue.
type PlaybackClient struct {
	audioContext *malgo.AllocatedContext

	mu     sync.Mutex
	cond   *sync.Cond
	device *malgo.Device

	pending     []byte
	maxBuffered int
}

func NewPlaybackClient() (*PlaybackClient, error) {
	audioCtx, err := newAudioContext()
	if err != nil {
		return nil, err
	}

	client := &PlaybackClient{audioContext: audioCtx}
	client.cond = sync.NewCond(&client.mu)
	return client, nil
}

func (c *PlaybackClient) Open(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		return fmt.Errorf("playback already open")
	}

	format := malgo.FormatS16
	channels := 1
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(audio.PlaybackSampleRate)
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(audio.PlaybackSampleRate / 10) // ~100ms of audio
	config.Periods = 4

	// Hold at most the device-equivalent of the configured periods; Write
	// blocks past this point.
	c.maxBuffered = int(config.PeriodSizeInFrames) * int(config.Periods) * bytesPerFrame

	device, err := malgo.InitDevice(
		c.audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	c.pending = nil
	c.device = device
	return nil
}

func (c *PlaybackClient) Write(audioBytes []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return fmt.Errorf("playback not open")
	}

	for len(c.pending) >= c.maxBuffered {
		c.cond.Wait()
		if c.device == nil {
			return fmt.Errorf("playback closed during write")
		}
	}

	c.pending = append(c.pending, audioBytes...)
	return nil
}

// Drain blocks until the device has consumed everything written so far.
func (c *PlaybackClient) Drain() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return fmt.Errorf("playback not open")
	}

	for len(c.pending) > 0 {
		c.cond.Wait()
		if c.device == nil {
			return nil
		}
	}
	return nil
}

func (c *PlaybackClient) Close() error {
	c.mu.Lock()
	device := c.device
	c.device = nil
	c.pending = nil
	c.cond.Broadcast()
	c.mu.Unlock()

	if device == nil {
		return nil
	}

	if err := device.Stop(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to stop playback device: %w", err)
	}
	device.Uninit()
	return nil
}

func (c *PlaybackClient) Free() {
	_ = c.Close()
	freeAudioContext(c.audioContext)
	c.audioContext = nil
}

func (c *PlaybackClient) EncodingInfo() audio.EncodingInfo {
	return audio.PlaybackEncodingInfo()
}

func (c *PlaybackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		c.mu.Lock()
		defer c.mu.Unlock()

		n := copy(pOutput, c.pending)
		if n < need {
			for i := n; i < need && i < len(pOutput); i++ {
				pOutput[i] = 0
			}
		}
		c.pending = c.pending[n:]
		c.cond.Broadcast()
	}
}
