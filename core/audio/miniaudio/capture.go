package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/voxloop/voxloop-core/core/audio"
)

// CaptureClient streams microphone frames through miniaudio. The capture
// device exists only between Start and Stop.
type CaptureClient struct {
	audioContext *malgo.AllocatedContext

	mu     sync.Mutex
	device *malgo.Device
}

func NewCaptureClient() (*CaptureClient, error) {
	audioCtx, err := newAudioContext()
	if err != nil {
		return nil, err
	}

	return &CaptureClient{audioContext: audioCtx}, nil
}

func (c *CaptureClient) Start(_ context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		return fmt.Errorf("capture already started")
	}

	format := malgo.FormatS16
	channels := 1
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(audio.CaptureSampleRate)
	config.Capture.Format = format
	config.Capture.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = 480
	config.Periods = 3

	device, err := malgo.InitDevice(c.audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			// miniaudio reuses the input buffer between callbacks.
			onAudio(append([]byte(nil), pInput[:n]...))
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	c.device = device
	return nil
}

func (c *CaptureClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil
	}

	if err := c.device.Stop(); err != nil {
		c.device.Uninit()
		c.device = nil
		return fmt.Errorf("failed to stop capture device: %w", err)
	}

	c.device.Uninit()
	c.device = nil
	return nil
}

func (c *CaptureClient) Close() {
	_ = c.Stop()
	freeAudioContext(c.audioContext)
	c.audioContext = nil
}

func (c *CaptureClient) EncodingInfo() audio.EncodingInfo {
	return audio.CaptureEncodingInfo()
}
