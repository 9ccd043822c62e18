// SPDX-License-Identifier: MIT
package transport

import (
	"time"

	"audiovis/internal/analysis"
	"audiovis/internal/log"
)

// LoggingTransport periodically logs a one-line summary of the feature
// stream. Useful when running headless without any connected client.
type LoggingTransport struct {
	interval time.Duration
	lastLog  time.Time
}

// NewLoggingTransport creates a transport that logs a summary at most once
// per interval.
func NewLoggingTransport(interval time.Duration) *LoggingTransport {
	return &LoggingTransport{interval: interval}
}

// Send logs the snapshot if the interval has elapsed. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	feat, ok := data.(analysis.AudioFeatures)
	if !ok {
		return nil
	}

	now := time.Now()
	if now.Sub(lt.lastLog) < lt.interval {
		return nil
	}
	lt.lastLog = now

	log.Debugf("features: rms=%.3f bass=%.2f mid=%.2f treble=%.2f tempo=%.1fbpm",
		feat.RMS, feat.Bass, feat.Mid, feat.Treble, feat.TempoBPM)
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
