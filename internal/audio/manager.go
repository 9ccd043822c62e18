// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"sync"
	"sync/atomic"

	"audiovis/internal/buffer"
	"audiovis/internal/config"
	"audiovis/internal/decode"
	"audiovis/internal/log"
	"audiovis/internal/source"
)

// ErrNoSource is reported when Pull is called with no active source.
var ErrNoSource = errors.New("no active audio source")

// Manager owns the active audio source and is the single surface the rest of
// the application talks to each frame. Switching sources stops the previous
// one fully (quiesced) before the next one starts, and every switch attaches
// a fresh ring buffer so no stale samples bleed across sources.
type Manager struct {
	mu      sync.Mutex
	session *Session
	cfg     *config.Config
	src     source.Source
	ring    *buffer.Ring

	underruns atomic.Uint64

	// resetFn is invoked after every successful switch (and on Stop) so
	// analysis state tied to the previous source is discarded.
	resetFn func()
}

// NewManager creates a manager bound to a live portaudio session.
func NewManager(session *Session, cfg *config.Config) *Manager {
	return &Manager{session: session, cfg: cfg}
}

// OnSwitch registers a callback run after every source change.
func (m *Manager) OnSwitch(fn func()) {
	m.mu.Lock()
	m.resetFn = fn
	m.mu.Unlock()
}

// SwitchTo stops the current source, binds a fresh ring buffer to src and
// starts it. If the new source fails to start the manager reverts to the
// no-source state; it never keeps a stopped source registered as active.
func (m *Manager) SwitchTo(src source.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.switchLocked(src)
}

func (m *Manager) switchLocked(src source.Source) error {
	if m.src != nil {
		if err := m.src.Stop(); err != nil {
			log.Errorf("Manager: stopping previous source: %v", err)
		}
		m.src = nil
		m.ring = nil
	}

	ring := buffer.New(config.BufferCapacity())
	src.Bind(ring)
	if err := src.Start(); err != nil {
		m.notifyReset()
		return err
	}

	m.src = src
	m.ring = ring
	m.notifyReset()
	log.Infof("Manager: switched to %s", src.Name())
	return nil
}

// StartMicrophone switches to live capture from the given device
// (config.MinDeviceID for the system default).
func (m *Manager) StartMicrophone(deviceID int) error {
	mic := source.NewMicrophoneInput(deviceID, m.cfg.Audio.Channels, m.cfg.Audio.MicGain)
	return m.SwitchTo(mic)
}

// LoadFile decodes the file at path and switches playback to it. Decode
// failures leave the currently active source untouched.
func (m *Manager) LoadFile(path string) error {
	clip, err := decode.Load(path, config.SampleRate)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	player := source.NewFilePlayer(clip, m.cfg.Audio.Loop)
	return m.switchLocked(player)
}

// Pull copies one analysis window into dst, consuming hop samples. It
// returns false when no source is active or fewer than len(dst) samples are
// buffered; the frame is then skipped and the underrun counter advances.
func (m *Manager) Pull(dst []float32) bool {
	m.mu.Lock()
	ring := m.ring
	m.mu.Unlock()

	if ring == nil {
		m.underruns.Add(1)
		return false
	}
	if !ring.ReadWindow(dst, config.ChunkSize) {
		m.underruns.Add(1)
		return false
	}
	return true
}

// Stop halts the active source, if any, and detaches its buffer.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.src == nil {
		return nil
	}
	err := m.src.Stop()
	m.src = nil
	m.ring = nil
	m.notifyReset()
	return err
}

// Active reports whether a source is currently running.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src != nil && m.src.IsActive()
}

// SourceName returns the active source description for UI display.
func (m *Manager) SourceName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.src == nil {
		return "None"
	}
	return m.src.Name()
}

// FilePlayer returns the active file player, or nil when the active source
// is not a file.
func (m *Manager) FilePlayer() *source.FilePlayer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fp, ok := m.src.(*source.FilePlayer); ok {
		return fp
	}
	return nil
}

// Underruns returns how many frames found insufficient samples. Diagnostic
// only.
func (m *Manager) Underruns() uint64 {
	return m.underruns.Load()
}

// Dropped returns the dropped-sample count of the current ring.
func (m *Manager) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ring == nil {
		return 0
	}
	return m.ring.Dropped()
}

func (m *Manager) notifyReset() {
	if m.resetFn != nil {
		m.resetFn()
	}
}
