// SPDX-License-Identifier: MIT
/*
Package analysis turns raw sample windows into per-frame feature snapshots:
a 64-band log-spaced spectrum, aggregate band energies, and beat/tempo state
derived from spectral flux.
*/
package analysis

import (
	"time"

	"audiovis/internal/config"
)

// NumBands is the fixed number of spectrum bands in a snapshot.
const NumBands = config.NumBands

// AudioFeatures is the immutable per-frame snapshot handed to consumers
// (renderers, synthesizer display, effects). It is a value type: copying it
// copies the spectra, so a consumer can never mutate the pipeline's state.
type AudioFeatures struct {
	// Spectrum holds the smoothed, normalized band magnitudes in [0,1].
	Spectrum [NumBands]float64 `json:"spectrum"`

	// SpectrumPeaks holds the peak-hold values with linear decay.
	SpectrumPeaks [NumBands]float64 `json:"spectrum_peaks"`

	// Aggregate band energies (bass 20-250Hz, mid 250-4000Hz, treble above).
	Bass   float64 `json:"bass"`
	Mid    float64 `json:"mid"`
	Treble float64 `json:"treble"`

	// Overall amplitude of the analyzed window.
	RMS  float64 `json:"rms"`
	Peak float64 `json:"peak"`

	// SpectralCentroid is the brightness of the frame, normalized to [0,1]
	// over the analyzed frequency range.
	SpectralCentroid float64 `json:"spectral_centroid"`

	// Beat state for this frame.
	Beat         bool    `json:"beat"`
	BeatStrength float64 `json:"beat_strength"`
	TempoBPM     float64 `json:"tempo_bpm"`

	Timestamp time.Time `json:"timestamp"`
}

// Energy returns the overall energy as the mean of the three aggregates.
func (f *AudioFeatures) Energy() float64 {
	return (f.Bass + f.Mid + f.Treble) / 3.0
}
