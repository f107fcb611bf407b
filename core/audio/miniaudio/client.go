// Package miniaudio records and plays raw PCM on the default audio devices.
package miniaudio

import (
	"fmt"
	"log/slog"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/vocalis/core/audio"
)

const (
	DefaultCaptureSampleRate  = audio.DefaultSampleRate
	DefaultPlaybackSampleRate = 24000
)

// Client owns one capture and one playback device. Capture records whole
// utterances, playback drains a queue of synthesized speech.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient

	captureEncoding  audio.EncodingInfo
	playbackEncoding audio.EncodingInfo
	logger           *slog.Logger
}

type ClientOption func(*Client)

func WithCaptureEncoding(info audio.EncodingInfo) ClientOption {
	return func(c *Client) { c.captureEncoding = info }
}

func WithPlaybackEncoding(info audio.EncodingInfo) ClientOption {
	return func(c *Client) { c.playbackEncoding = info }
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		captureEncoding:  audio.EncodingInfo{SampleRate: DefaultCaptureSampleRate, Format: audio.EncodingLinear16},
		playbackEncoding: audio.EncodingInfo{SampleRate: DefaultPlaybackSampleRate, Format: audio.EncodingLinear16},
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}

	captureFormat, err := deviceFormat(client.captureEncoding)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	playbackFormat, err := deviceFormat(client.playbackEncoding)
	if err != nil {
		return nil, fmt.Errorf("playback: %w", err)
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		client.logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	client.audioContext = audioCtx

	if err := client.playbackClient.Init(audioCtx, playbackFormat, uint32(client.playbackEncoding.SampleRate)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}
	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	if err := client.captureClient.Init(audioCtx, captureFormat, uint32(client.captureEncoding.SampleRate)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	return client, nil
}

// deviceFormat maps an encoding to a device sample format. Devices only
// deal in linear PCM.
func deviceFormat(info audio.EncodingInfo) (malgo.FormatType, error) {
	if info.IsZero() {
		return malgo.FormatUnknown, fmt.Errorf("encoding info is required")
	}
	if info.Format != audio.EncodingLinear16 {
		return malgo.FormatUnknown, fmt.Errorf("unsupported device encoding %q", info.Format)
	}
	return malgo.FormatS16, nil
}

// StartCapture starts recording a new utterance, discarding any previous one.
func (c *Client) StartCapture() error {
	return c.captureClient.Start()
}

// StopCapture stops recording and returns the recorded audio.
func (c *Client) StopCapture() ([]byte, error) {
	return c.captureClient.Stop()
}

func (c *Client) CaptureEncodingInfo() audio.EncodingInfo {
	return c.captureEncoding
}

func (c *Client) PlaybackEncodingInfo() audio.EncodingInfo {
	return c.playbackEncoding
}

// Play queues audio behind whatever is still playing.
func (c *Client) Play(audio []byte) error {
	return c.playbackClient.SendAudio(audio)
}

// ClearPlayback drops all queued audio.
func (c *Client) ClearPlayback() {
	c.playbackClient.ClearBuffer()
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	if c.audioContext != nil {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
		c.audioContext = nil
	}
}
