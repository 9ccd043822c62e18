// SPDX-License-Identifier: MIT
/*
Package audio owns the portaudio session and the manager that mediates
between audio sources and the analysis pipeline.

The session is a process-scoped handle created once at startup and closed at
exit; it is passed explicitly into the manager rather than living as an
implicit singleton.
*/
package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Session is the process-scoped portaudio handle. All stream operations
// require a live session.
type Session struct {
	closed bool
}

// Init sets up the portaudio subsystem. Must be paired with Close at
// application exit.
func Init() (*Session, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	return &Session{}, nil
}

// Close shuts down the portaudio subsystem. Idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate portaudio: %w", err)
	}
	return nil
}
