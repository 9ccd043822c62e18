// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"sync"
	"time"

	"audiovis/internal/buffer"
	"audiovis/internal/config"
	"audiovis/internal/decode"
	"audiovis/internal/log"

	"github.com/gordonklaus/portaudio"
)

// FilePlayer plays a decoded clip on the default output device while
// mirroring each played chunk into the bound ring for analysis. Playback
// position, pause state and looping are guarded by a single mutex that is
// held only for the duration of one chunk copy.
type FilePlayer struct {
	mu     sync.Mutex
	clip   *decode.Clip
	loop   bool
	paused bool
	done   bool // Reached end of stream with looping off.
	pos    int

	ring   *buffer.Ring
	stream *portaudio.Stream
	active bool
}

var _ Source = (*FilePlayer)(nil)

// NewFilePlayer creates a player for an already decoded clip. With loop set,
// playback restarts at the beginning at end of stream; otherwise the
// position pins at the end and silence plays.
func NewFilePlayer(clip *decode.Clip, loop bool) *FilePlayer {
	return &FilePlayer{clip: clip, loop: loop}
}

// Bind attaches the ring buffer mirrored from the playback callback.
func (p *FilePlayer) Bind(ring *buffer.Ring) {
	p.mu.Lock()
	p.ring = ring
	p.mu.Unlock()
}

// Start opens the default output stream and begins playback.
func (p *FilePlayer) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return nil
	}
	if p.ring == nil {
		return fmt.Errorf("%w: no buffer bound", ErrSourceUnavailable)
	}

	stream, err := portaudio.OpenDefaultStream(
		0, 1, float64(p.clip.SampleRate), config.ChunkSize, p.playbackCallback)
	if err != nil {
		return fmt.Errorf("%w: opening playback stream: %v", ErrSourceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("%w: starting playback stream: %v", ErrSourceUnavailable, err)
	}

	p.stream = stream
	p.active = true
	log.Infof("Source: playing %s (%.1fs)", p.clip.Name, p.clip.Duration().Seconds())
	return nil
}

// playbackCallback fills the output device buffer from the clip and mirrors
// the same chunk into the analysis ring. Runs in the portaudio callback
// context.
func (p *FilePlayer) playbackCallback(out []float32) {
	p.mu.Lock()

	if p.paused || p.done {
		for i := range out {
			out[i] = 0
		}
		ring := p.ring
		p.mu.Unlock()
		if ring != nil {
			ring.Write(out)
		}
		return
	}

	filled := 0
	for filled < len(out) {
		n := copy(out[filled:], p.clip.Samples[p.pos:])
		filled += n
		p.pos += n
		if p.pos >= len(p.clip.Samples) {
			if p.loop {
				p.pos = 0
				continue
			}
			p.done = true
			for i := filled; i < len(out); i++ {
				out[i] = 0
			}
			break
		}
	}

	ring := p.ring
	p.mu.Unlock()
	if ring != nil {
		ring.Write(out)
	}
}

// Stop halts playback and closes the stream. Blocks until the pending
// callback has drained.
func (p *FilePlayer) Stop() error {
	p.mu.Lock()
	stream := p.stream
	p.stream = nil
	p.active = false
	p.mu.Unlock()

	if stream == nil {
		return nil
	}
	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("stopping playback stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("closing playback stream: %w", err)
	}
	log.Infof("Source: playback stopped (%s)", p.clip.Name)
	return nil
}

// IsActive reports whether the playback stream is running.
func (p *FilePlayer) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Name returns the clip description.
func (p *FilePlayer) Name() string {
	return "File: " + p.clip.Name
}

// Pause silences playback without stopping the stream.
func (p *FilePlayer) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Resume continues playback after a pause.
func (p *FilePlayer) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

// TogglePause flips the pause state and returns the new state.
func (p *FilePlayer) TogglePause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = !p.paused
	return p.paused
}

// IsPaused reports the pause state.
func (p *FilePlayer) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Seek jumps to an absolute position in the clip, clamped to its bounds.
func (p *FilePlayer) Seek(position time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos := int(position.Seconds() * float64(p.clip.SampleRate))
	if pos < 0 {
		pos = 0
	}
	if pos > len(p.clip.Samples) {
		pos = len(p.clip.Samples)
	}
	p.pos = pos
	p.done = false
}

// SeekRelative jumps by offset from the current position.
func (p *FilePlayer) SeekRelative(offset time.Duration) {
	p.mu.Lock()
	current := time.Duration(float64(p.pos) / float64(p.clip.SampleRate) * float64(time.Second))
	p.mu.Unlock()
	p.Seek(current + offset)
}

// Position returns the current playback position.
func (p *FilePlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(float64(p.pos) / float64(p.clip.SampleRate) * float64(time.Second))
}

// Progress returns the playback progress in [0,1].
func (p *FilePlayer) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.clip.Samples) == 0 {
		return 0
	}
	return float64(p.pos) / float64(len(p.clip.Samples))
}

// Clip exposes the underlying decoded clip (read-only use).
func (p *FilePlayer) Clip() *decode.Clip {
	return p.clip
}
