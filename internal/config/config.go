// SPDX-License-Identifier: MIT
package config

import "time"

// Fixed operating parameters of the analysis pipeline. These are compile-time
// constants on purpose: the FFT layout, band mapping and detector timing are
// sized for each other and are not runtime-negotiable.
const (
	// SampleRate is the pipeline sample rate in Hz. File sources are
	// resampled to this rate at load time.
	SampleRate = 44100

	// ChunkSize is the hop size: the number of new samples consumed per
	// analysis step (~46ms of audio at 44100Hz).
	ChunkSize = 2048

	// WindowSize is the FFT window length. Twice the hop, so successive
	// analysis windows overlap by 50%.
	WindowSize = 4096

	// BufferWindows sizes the ring buffer in analysis windows.
	BufferWindows = 4

	// NumBands is the number of logarithmically spaced output bands.
	NumBands = 64

	// FreqMin and FreqMax bound the analyzed frequency range in Hz.
	FreqMin = 20
	FreqMax = 20000

	// SmoothingFactor is the exponential smoothing applied to the band
	// spectrum between frames (higher = slower decay).
	SmoothingFactor = 0.85

	// PeakDecay is the per-frame linear fall rate of the peak-hold spectrum.
	PeakDecay = 0.03

	// DBRangeMin and DBRangeMax define the dB window mapped onto [0,1].
	DBRangeMin = -80.0
	DBRangeMax = 0.0

	// DefaultMicGain is the amplitude boost applied to microphone input.
	DefaultMicGain = 3.0

	// MinBeatInterval is the minimum time between reported onsets.
	MinBeatInterval = 100 * time.Millisecond

	// BeatThreshold is the margin factor over the local mean flux.
	BeatThreshold = 1.5

	// BeatHistoryLength is the flux history window (~1s at 60fps).
	BeatHistoryLength = 43

	// TargetFPS is the cadence of the analysis frame loop.
	TargetFPS = 60

	// MinDeviceID selects the system default input device.
	MinDeviceID = -1
)

// BufferCapacity returns the ring buffer capacity in samples.
func BufferCapacity() int {
	return WindowSize * BufferWindows
}
