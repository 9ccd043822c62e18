// SPDX-License-Identifier: MIT
/*
Package source provides the audio sources feeding the analysis pipeline:
live microphone capture and decoded file playback.

Both variants push samples into a bound buffer.Ring from the portaudio
callback context and satisfy the same capability interface, so the manager
never cares which one is active. A source is fully quiesced when Stop
returns: no callback fires afterwards and no further ring writes occur.
*/
package source

import (
	"errors"

	"audiovis/internal/buffer"
)

// ErrSourceUnavailable indicates that a source could not be started, e.g.
// the capture device is busy, missing or permission was denied.
var ErrSourceUnavailable = errors.New("audio source unavailable")

// Source is the capability interface shared by all audio sources.
type Source interface {
	// Bind attaches the ring buffer the source writes into. Must be called
	// before Start; the source references the ring but does not own it.
	Bind(ring *buffer.Ring)

	// Start begins capture or playback. Failures wrap ErrSourceUnavailable.
	Start() error

	// Stop halts the source. By the time Stop returns the source is fully
	// quiesced: no callback will fire and no further ring writes occur.
	// Stop is idempotent.
	Stop() error

	// IsActive reports whether the source is currently running.
	IsActive() bool

	// Name returns a human-readable description for UI display.
	Name() string
}
