package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type captureClient struct {
	device *malgo.Device
	config malgo.DeviceConfig

	recording []byte
	active    bool

	mu sync.Mutex
}

func (c *captureClient) Init(audioContext *malgo.AllocatedContext, format malgo.FormatType, sampleRate uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	channels := 1
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Capture)
	c.config.SampleRate = sampleRate
	c.config.Capture.Format = format
	c.config.Capture.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PerformanceProfile = malgo.LowLatency
	c.config.PeriodSizeInFrames = sampleRate / 100 * 3
	c.config.Periods = 3

	var err error
	c.device, err = malgo.InitDevice(audioContext.Context, c.config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			c.mu.Lock()
			if c.active {
				c.recording = append(c.recording, pInput[:n]...)
			}
			c.mu.Unlock()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return nil
}

func (c *captureClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	c.recording = c.recording[:0]
	c.active = true
	if c.device.IsStarted() {
		return nil
	}
	if err := c.device.Start(); err != nil {
		c.active = false
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *captureClient) Stop() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return nil, fmt.Errorf("device not initialized")
	}

	c.active = false
	recording := c.recording
	c.recording = nil
	if !c.device.IsStarted() {
		return recording, nil
	}

	// Stop waits for the data callback, which takes mu.
	c.mu.Unlock()
	err := c.device.Stop()
	c.mu.Lock()
	if err != nil {
		return recording, fmt.Errorf("failed to stop capture device: %w", err)
	}
	return recording, nil
}

func (c *captureClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}

	c.recording = nil
	c.active = false
	return nil
}
