// SPDX-License-Identifier: MIT
package analysis

import (
	"sync"
	"sync/atomic"
	"time"
)

// SampleSource supplies analysis windows. Pull fills dst with the next
// window and reports whether enough samples were available.
type SampleSource interface {
	Pull(dst []float32) bool
}

// Pipeline drives one analysis step per frame: pull a window, run the FFT
// analyzer, run the beat detector, publish the snapshot. Step must be called
// from a single goroutine; Latest may be called from any.
type Pipeline struct {
	src      SampleSource
	analyzer *FFTAnalyzer
	detector *BeatDetector
	window   []float32

	mu     sync.RWMutex
	latest AudioFeatures

	underruns atomic.Uint64
}

// NewPipeline builds a pipeline reading windows of size n from src.
func NewPipeline(src SampleSource, n int) *Pipeline {
	return &Pipeline{
		src:      src,
		analyzer: NewFFTAnalyzer(),
		detector: NewBeatDetector(),
		window:   make([]float32, n),
	}
}

// Step runs one analysis frame at time now and returns the resulting
// snapshot. When the source cannot supply a full window the previous
// snapshot is returned unchanged and the underrun counter advances, so
// consumers always have a coherent frame to render.
func (p *Pipeline) Step(now time.Time) AudioFeatures {
	if !p.src.Pull(p.window) {
		p.underruns.Add(1)
		return p.Latest()
	}

	var feat AudioFeatures
	feat.Timestamp = now
	p.analyzer.Analyze(p.window, &feat)
	feat.Beat, feat.BeatStrength, feat.TempoBPM = p.detector.Process(feat.Spectrum[:], now)

	p.mu.Lock()
	p.latest = feat
	p.mu.Unlock()
	return feat
}

// Latest returns the most recent snapshot (zero value before the first
// successful Step).
func (p *Pipeline) Latest() AudioFeatures {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Reset discards all analysis state. Wired to the manager's source-switch
// callback so smoothing, peaks and beat history never carry across sources.
func (p *Pipeline) Reset() {
	p.analyzer.Reset()
	p.detector.Reset()
	p.mu.Lock()
	p.latest = AudioFeatures{}
	p.mu.Unlock()
}

// Underruns returns how many frames were skipped for lack of samples.
func (p *Pipeline) Underruns() uint64 {
	return p.underruns.Load()
}
