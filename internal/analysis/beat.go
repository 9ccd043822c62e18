// SPDX-License-Identifier: MIT
package analysis

import (
	"time"

	"audiovis/internal/config"
)

const (
	// maxOnsets bounds the onset history used for tempo estimation.
	maxOnsets = 20

	// Autocorrelation timeline parameters: onsets over the last
	// tempoWindow are binned at tempoBin resolution.
	tempoWindow = 6 * time.Second
	tempoBin    = 10 * time.Millisecond

	// Candidate tempo lags cover 60-180 BPM.
	minTempoLag = int(time.Second/3/tempoBin) + 1 // >333ms (180 BPM)
	maxTempoLag = int(time.Second / tempoBin)     // 1s (60 BPM)

	// minTempoOnsets is how many onsets are needed before a tempo
	// estimate is attempted.
	minTempoOnsets = 4
)

// BeatDetector finds onsets in the band spectrum via spectral flux against
// an adaptive threshold, and estimates tempo by autocorrelating the onset
// timeline. Not safe for concurrent use; it belongs to the analysis loop.
//
// The detector warms up silently: no onset is reported until half the flux
// history is filled, so a fresh source cannot trigger on its first frames.
type BeatDetector struct {
	prev     []float64
	havePrev bool

	flux     []float64 // Rolling flux history.
	fluxIdx  int
	fluxLen  int
	fluxSum  float64

	lastOnset time.Time
	haveOnset bool
	onsets    []time.Time

	tempoBPM float64
	timeline []float64 // Autocorrelation scratch.
}

// NewBeatDetector creates a detector with the fixed pipeline parameters:
// history 43 frames, margin 1.5, minimum inter-onset interval 100ms.
func NewBeatDetector() *BeatDetector {
	return &BeatDetector{
		prev:     make([]float64, config.NumBands),
		flux:     make([]float64, config.BeatHistoryLength),
		onsets:   make([]time.Time, 0, maxOnsets),
		timeline: make([]float64, int(tempoWindow/tempoBin)+maxTempoLag+2),
	}
}

// Process consumes one spectrum frame and reports whether it contains an
// onset, the onset strength in [0,1], and the current tempo estimate in BPM
// (0 until enough onsets have been observed).
func (d *BeatDetector) Process(spectrum []float64, now time.Time) (beat bool, strength float64, bpm float64) {
	if !d.havePrev {
		copy(d.prev, spectrum)
		d.havePrev = true
		return false, 0, d.tempoBPM
	}

	// Spectral flux: positive-only magnitude increases.
	var flux float64
	for i, v := range spectrum {
		if diff := v - d.prev[i]; diff > 0 {
			flux += diff
		}
	}
	copy(d.prev, spectrum)

	// Rolling history and adaptive threshold.
	if d.fluxLen < len(d.flux) {
		d.fluxLen++
	} else {
		d.fluxSum -= d.flux[d.fluxIdx]
	}
	d.flux[d.fluxIdx] = flux
	d.fluxSum += flux
	d.fluxIdx = (d.fluxIdx + 1) % len(d.flux)

	if d.fluxLen < len(d.flux)/2 {
		return false, 0, d.tempoBPM // Still warming up.
	}

	meanFlux := d.fluxSum / float64(d.fluxLen)
	threshold := meanFlux * config.BeatThreshold

	if flux <= threshold {
		return false, 0, d.tempoBPM
	}
	if d.haveOnset && now.Sub(d.lastOnset) < config.MinBeatInterval {
		return false, 0, d.tempoBPM
	}

	strength = (flux - meanFlux) / (meanFlux + 0.01)
	if strength > 1 {
		strength = 1
	}
	d.lastOnset = now
	d.haveOnset = true

	if len(d.onsets) == maxOnsets {
		copy(d.onsets, d.onsets[1:])
		d.onsets = d.onsets[:maxOnsets-1]
	}
	d.onsets = append(d.onsets, now)
	d.estimateTempo(now)

	return true, strength, d.tempoBPM
}

// smearWeights spreads each onset over +/-3 timeline bins. Onset timestamps
// are quantized to the ~46ms analysis hop, so single beat intervals jitter by
// up to half a hop; the smear has to be at least that wide for neighboring
// lags to correlate.
var smearWeights = [7]float64{0.25, 0.5, 0.75, 1, 0.75, 0.5, 0.25}

// estimateTempo autocorrelates the recent onset timeline and picks the lag
// with the strongest correlation, preferring the fundamental over its double.
func (d *BeatDetector) estimateTempo(now time.Time) {
	start := now.Add(-tempoWindow)
	inWindow := 0
	for i := range d.timeline {
		d.timeline[i] = 0
	}
	for _, t := range d.onsets {
		if t.Before(start) {
			continue
		}
		inWindow++
		bin := int(t.Sub(start) / tempoBin)
		for off := -3; off <= 3; off++ {
			if b := bin + off; b >= 0 && b < len(d.timeline) {
				d.timeline[b] += smearWeights[off+3]
			}
		}
	}
	if inWindow < minTempoOnsets {
		return
	}

	bestLag := 0
	bestScore := 0.0
	for lag := minTempoLag; lag <= maxTempoLag; lag++ {
		if score := d.correlate(lag); score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	if bestLag == 0 || bestScore == 0 {
		return
	}

	// Hop quantization makes single beat intervals jitter while two-beat
	// spans stay near-exact, so the raw peak often lands on the double
	// interval. When the half lag carries comparable energy, the
	// fundamental wins.
	if halfLag, halfScore := d.bestNear(bestLag / 2); halfLag != 0 && halfScore >= 0.5*bestScore {
		bestLag = halfLag
	}

	d.tempoBPM = float64(time.Minute) / float64(time.Duration(bestLag)*tempoBin)
}

// correlate scores one candidate lag against the onset timeline.
func (d *BeatDetector) correlate(lag int) float64 {
	var score float64
	for t := lag; t < len(d.timeline); t++ {
		score += d.timeline[t] * d.timeline[t-lag]
	}
	return score
}

// bestNear returns the strongest lag within +/-2 bins of center, considering
// only lags inside the valid tempo range.
func (d *BeatDetector) bestNear(center int) (int, float64) {
	bestLag := 0
	bestScore := 0.0
	for lag := center - 2; lag <= center+2; lag++ {
		if lag < minTempoLag || lag > maxTempoLag {
			continue
		}
		if score := d.correlate(lag); score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	return bestLag, bestScore
}

// TempoBPM returns the current tempo estimate (0 when unknown).
func (d *BeatDetector) TempoBPM() float64 {
	return d.tempoBPM
}

// Reset discards all detector state. Called on source switches so flux and
// tempo history never bleed from one source into another.
func (d *BeatDetector) Reset() {
	for i := range d.prev {
		d.prev[i] = 0
	}
	d.havePrev = false
	for i := range d.flux {
		d.flux[i] = 0
	}
	d.fluxIdx = 0
	d.fluxLen = 0
	d.fluxSum = 0
	d.haveOnset = false
	d.lastOnset = time.Time{}
	d.onsets = d.onsets[:0]
	d.tempoBPM = 0
}
