package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/voxloop/voxloop-core/core/audio"
)

// CaptureClient owns the default input device while capture is running.
// Frames are 16-bit mono at the capture sample rate.
type CaptureClient struct {
	bufferSize int

	mu     sync.Mutex
	stream *portaudio.Stream
	stop   context.CancelFunc
	done   chan struct{}

	in []int16
}

func NewCaptureClient(bufferSize int) (*CaptureClient, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	return &CaptureClient{
		bufferSize: bufferSize,
		in:         make([]int16, bufferSize),
	}, nil
}

// Start opens the input stream and feeds frames to onAudio until Stop is
// called or ctx is cancelled. The device is owned exclusively between Start
// and Stop.
func (c *CaptureClient) Start(ctx context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return fmt.Errorf("capture already started")
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, audio.CaptureSampleRate, c.bufferSize, c.in)
	if err != nil {
		return fmt.Errorf("failed to open PortAudio capture stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start PortAudio capture stream: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.stream = stream
	c.stop = cancel
	c.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if err := stream.Read(); err != nil {
					// Read fails once the stream is aborted by Stop; the
					// device is released there.
					return
				}

				audioBuffer := bytes.Buffer{}
				binary.Write(&audioBuffer, binary.LittleEndian, c.in)
				onAudio(audioBuffer.Bytes())
			}
		}
	}(c.done)

	return nil
}

// Stop releases the input stream. Safe to call when capture is not running.
func (c *CaptureClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil
	}

	c.stop()
	_ = c.stream.Abort()
	<-c.done

	err := c.stream.Close()
	c.stream = nil
	c.stop = nil
	c.done = nil
	if err != nil {
		return fmt.Errorf("failed to close PortAudio capture stream: %w", err)
	}
	return nil
}

func (c *CaptureClient) Close() {
	_ = c.Stop()
	portaudio.Terminate()
}

func (c *CaptureClient) EncodingInfo() audio.EncodingInfo {
	return audio.CaptureEncodingInfo()
}

// PlaybackClient owns the default output device between Open and Close.
// Write blocks on the device, so device buffering is the only buffering.
type PlaybackClient struct {
	bufferSize int

	mu            sync.Mutex
	stream        *portaudio.Stream
	leftoverAudio []byte

	out []int16
}

func NewPlaybackClient(bufferSize int) (*PlaybackClient, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	return &PlaybackClient{
		bufferSize: bufferSize,
		out:        make([]int16, bufferSize),
	}, nil
}

// Open acquires the output device for one playback session.
func (c *PlaybackClient) Open(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return fmt.Errorf("playback already open")
	}

	stream, err := portaudio.OpenDefaultStream(0, 1, audio.PlaybackSampleRate, c.bufferSize, c.out)
	if err != nil {
		return fmt.Errorf("failed to open PortAudio playback stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start PortAudio playback stream: %w", err)
	}

	c.stream = stream
	c.leftoverAudio = nil
	return nil
}

// Write pushes PCM bytes to the device, blocking on each full device buffer.
// A trailing partial buffer is held until the next Write or Drain.
func (c *PlaybackClient) Write(audioBytes []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return fmt.Errorf("playback not open")
	}

	bufferSize := c.bufferSize * 2

	data := append(c.leftoverAudio, audioBytes...)
	for len(data) >= bufferSize {
		binary.Read(bytes.NewBuffer(data[:bufferSize]), binary.LittleEndian, c.out)
		if err := c.stream.Write(); err != nil {
			c.leftoverAudio = data
			return fmt.Errorf("failed to write to PortAudio playback stream: %w", err)
		}
		data = data[bufferSize:]
	}

	c.leftoverAudio = append([]byte(nil), data...)
	return nil
}

// Drain plays out any held partial buffer, padded with silence, and returns
// once the device has accepted it.
func (c *PlaybackClient) Drain() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return fmt.Errorf("playback not open")
	}
	if len(c.leftoverAudio) == 0 {
		return nil
	}

	bufferSize := c.bufferSize * 2
	padded := make([]byte, bufferSize)
	copy(padded, c.leftoverAudio)
	c.leftoverAudio = nil

	binary.Read(bytes.NewBuffer(padded), binary.LittleEndian, c.out)
	if err := c.stream.Write(); err != nil {
		return fmt.Errorf("failed to drain PortAudio playback stream: %w", err)
	}
	return nil
}

// Close releases the output device. Safe to call when playback is not open.
func (c *PlaybackClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil
	}

	err := c.stream.Close()
	c.stream = nil
	c.leftoverAudio = nil
	if err != nil {
		return fmt.Errorf("failed to close PortAudio playback stream: %w", err)
	}
	return nil
}

// Terminate releases the PortAudio host API once all clients are done.
func Terminate() {
	portaudio.Terminate()
}

func (c *PlaybackClient) EncodingInfo() audio.EncodingInfo {
	return audio.PlaybackEncodingInfo()
}
