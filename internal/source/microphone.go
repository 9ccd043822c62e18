// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"sync"

	"audiovis/internal/buffer"
	"audiovis/internal/config"
	"audiovis/internal/log"

	"github.com/gordonklaus/portaudio"
)

// MicrophoneInput captures live audio from an input device. The portaudio
// callback mixes the delivered chunk down to mono, applies the input gain
// and copies it into the bound ring. Nothing else happens in the callback.
type MicrophoneInput struct {
	mu         sync.Mutex
	deviceID   int
	channels   int
	gain       float32
	deviceName string

	ring   *buffer.Ring
	stream *portaudio.Stream
	mono   []float32 // Pre-allocated mono scratch for the callback.
	active bool
}

var _ Source = (*MicrophoneInput)(nil)

// NewMicrophoneInput creates a microphone source for the given device ID
// (config.MinDeviceID selects the system default input device).
func NewMicrophoneInput(deviceID, channels int, gain float64) *MicrophoneInput {
	if channels < 1 {
		channels = 1
	}
	return &MicrophoneInput{
		deviceID: deviceID,
		channels: channels,
		gain:     float32(gain),
		mono:     make([]float32, config.ChunkSize),
	}
}

// Bind attaches the ring buffer written from the capture callback.
func (m *MicrophoneInput) Bind(ring *buffer.Ring) {
	m.mu.Lock()
	m.ring = ring
	m.mu.Unlock()
}

// Start opens and starts the capture stream. Device problems (missing, busy,
// permission denied) wrap ErrSourceUnavailable.
func (m *MicrophoneInput) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return nil
	}
	if m.ring == nil {
		return fmt.Errorf("%w: no buffer bound", ErrSourceUnavailable)
	}

	device, err := inputDevice(m.deviceID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: m.channels,
			Latency:  device.DefaultLowInputLatency,
		},
		FramesPerBuffer: config.ChunkSize,
		SampleRate:      config.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, m.captureCallback)
	if err != nil {
		return fmt.Errorf("%w: opening capture stream on %q: %v", ErrSourceUnavailable, device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("%w: starting capture stream on %q: %v", ErrSourceUnavailable, device.Name, err)
	}

	m.stream = stream
	m.deviceName = device.Name
	m.active = true
	log.Infof("Source: microphone started (%s)", device.Name)
	return nil
}

// captureCallback runs in the portaudio callback context. It is a narrow
// boundary: mix to mono, apply gain, copy into the ring.
func (m *MicrophoneInput) captureCallback(in []float32) {
	ring := m.ring
	if ring == nil {
		return
	}

	frames := len(in) / m.channels
	if frames > len(m.mono) {
		frames = len(m.mono)
	}
	if m.channels == 1 {
		for i := 0; i < frames; i++ {
			m.mono[i] = in[i] * m.gain
		}
	} else {
		inv := 1 / float32(m.channels)
		for i := 0; i < frames; i++ {
			var sum float32
			for c := 0; c < m.channels; c++ {
				sum += in[i*m.channels+c]
			}
			m.mono[i] = sum * inv * m.gain
		}
	}
	ring.Write(m.mono[:frames])
}

// Stop closes the capture stream. portaudio's Stop blocks until the pending
// callback has drained, so no write can land after Stop returns.
func (m *MicrophoneInput) Stop() error {
	m.mu.Lock()
	stream := m.stream
	m.stream = nil
	m.active = false
	m.mu.Unlock()

	if stream == nil {
		return nil
	}
	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("stopping capture stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("closing capture stream: %w", err)
	}
	log.Infof("Source: microphone stopped")
	return nil
}

// IsActive reports whether capture is running.
func (m *MicrophoneInput) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Name returns the active device description.
func (m *MicrophoneInput) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deviceName != "" {
		return "Mic: " + m.deviceName
	}
	return "Microphone"
}

// inputDevice resolves a portaudio input device by index, or the system
// default for config.MinDeviceID.
func inputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.MinDeviceID {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if devices[deviceID].MaxInputChannels < 1 {
		return nil, fmt.Errorf("device %d (%s) has no input channels", deviceID, devices[deviceID].Name)
	}
	return devices[deviceID], nil
}
