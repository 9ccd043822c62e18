// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"audiovis/internal/config"
	"audiovis/pkg/dsptest"
)

// analyzeSteady runs the analyzer over the same window repeatedly so the
// exponential smoothing converges before assertions.
func analyzeSteady(a *FFTAnalyzer, samples []float32, frames int) AudioFeatures {
	var out AudioFeatures
	for i := 0; i < frames; i++ {
		a.Analyze(samples, &out)
	}
	return out
}

func TestAnalyzeSineWavePeakBand(t *testing.T) {
	t.Parallel()
	a := NewFFTAnalyzer()
	sine := dsptest.SineWave(config.WindowSize, config.SampleRate, 440.0)
	out := analyzeSteady(a, sine, 30)

	peak := dsptest.FindPeakBand(out.Spectrum[:], 0, NumBands-1)

	// The peak band (or an immediate neighbor, given spectral leakage) must
	// cover 440Hz.
	found := false
	for _, band := range []int{peak - 1, peak, peak + 1} {
		if band < 0 || band >= NumBands {
			continue
		}
		low, high := a.BandFrequencyRange(band)
		if low <= 440.0 && 440.0 <= high {
			found = true
		}
	}
	if !found {
		low, high := a.BandFrequencyRange(peak)
		t.Errorf("peak band %d covers %.1f-%.1fHz, expected a band containing 440Hz", peak, low, high)
	}
}

func TestAnalyzeBounds(t *testing.T) {
	t.Parallel()
	a := NewFFTAnalyzer()
	wave := dsptest.ComplexWave(config.WindowSize, config.SampleRate)
	out := analyzeSteady(a, wave, 10)

	for i := 0; i < NumBands; i++ {
		if v := out.Spectrum[i]; math.IsNaN(v) || v < 0 || v > 1 {
			t.Errorf("Spectrum[%d] = %f, want value in [0,1]", i, v)
		}
		if v := out.SpectrumPeaks[i]; math.IsNaN(v) || v < 0 || v > 1 {
			t.Errorf("SpectrumPeaks[%d] = %f, want value in [0,1]", i, v)
		}
		if out.SpectrumPeaks[i] < out.Spectrum[i] {
			t.Errorf("band %d: peak %f below smoothed value %f", i, out.SpectrumPeaks[i], out.Spectrum[i])
		}
	}
	for name, v := range map[string]float64{
		"Bass": out.Bass, "Mid": out.Mid, "Treble": out.Treble,
		"RMS": out.RMS, "Peak": out.Peak, "SpectralCentroid": out.SpectralCentroid,
	} {
		if math.IsNaN(v) || v < 0 {
			t.Errorf("%s = %f, want finite non-negative value", name, v)
		}
	}
}

func TestAnalyzeZeroInput(t *testing.T) {
	t.Parallel()
	a := NewFFTAnalyzer()
	silence := make([]float32, config.WindowSize)
	out := analyzeSteady(a, silence, 5)

	for i := 0; i < NumBands; i++ {
		if out.Spectrum[i] != 0 {
			t.Errorf("Spectrum[%d] = %f for silence, want 0", i, out.Spectrum[i])
		}
	}
	if out.RMS != 0 || out.Peak != 0 {
		t.Errorf("RMS = %f, Peak = %f for silence, want 0", out.RMS, out.Peak)
	}
}

func TestAnalyzeRMS(t *testing.T) {
	t.Parallel()
	a := NewFFTAnalyzer()
	sine := dsptest.SineWave(config.WindowSize, config.SampleRate, 440.0)

	var out AudioFeatures
	a.Analyze(sine, &out)

	// Amplitude-0.9 sine: RMS = 0.9/sqrt(2).
	want := 0.9 / math.Sqrt2
	if math.Abs(out.RMS-want) > 0.01 {
		t.Errorf("RMS = %f, want %f", out.RMS, want)
	}
	if math.Abs(out.Peak-0.9) > 0.01 {
		t.Errorf("Peak = %f, want 0.9", out.Peak)
	}
}

func TestBassTrebleSplit(t *testing.T) {
	t.Parallel()

	bass := analyzeSteady(NewFFTAnalyzer(),
		dsptest.SineWave(config.WindowSize, config.SampleRate, 100.0), 30)
	if bass.Bass <= bass.Treble {
		t.Errorf("100Hz tone: Bass = %f not above Treble = %f", bass.Bass, bass.Treble)
	}

	treble := analyzeSteady(NewFFTAnalyzer(),
		dsptest.SineWave(config.WindowSize, config.SampleRate, 8000.0), 30)
	if treble.Treble <= treble.Bass {
		t.Errorf("8kHz tone: Treble = %f not above Bass = %f", treble.Treble, treble.Bass)
	}
}

func TestCentroidTracksBrightness(t *testing.T) {
	t.Parallel()

	low := analyzeSteady(NewFFTAnalyzer(),
		dsptest.SineWave(config.WindowSize, config.SampleRate, 100.0), 5)
	high := analyzeSteady(NewFFTAnalyzer(),
		dsptest.SineWave(config.WindowSize, config.SampleRate, 8000.0), 5)

	if high.SpectralCentroid <= low.SpectralCentroid {
		t.Errorf("centroid for 8kHz (%f) not above centroid for 100Hz (%f)",
			high.SpectralCentroid, low.SpectralCentroid)
	}
}

func TestPeakHoldDecay(t *testing.T) {
	t.Parallel()
	a := NewFFTAnalyzer()
	sine := dsptest.SineWave(config.WindowSize, config.SampleRate, 440.0)
	loud := analyzeSteady(a, sine, 30)
	peakBand := dsptest.FindPeakBand(loud.Spectrum[:], 0, NumBands-1)

	// Feed silence: the smoothed value drops fast, the peak decays linearly.
	silence := make([]float32, config.WindowSize)
	var out AudioFeatures
	a.Analyze(silence, &out)
	first := out.SpectrumPeaks[peakBand]
	a.Analyze(silence, &out)
	second := out.SpectrumPeaks[peakBand]

	wantDrop := config.PeakDecay
	if math.Abs((first-second)-wantDrop) > 1e-9 {
		t.Errorf("peak decayed by %f per frame, want %f", first-second, wantDrop)
	}
	if out.SpectrumPeaks[peakBand] < out.Spectrum[peakBand] {
		t.Error("peak fell below smoothed value")
	}
}

func TestAnalyzerReset(t *testing.T) {
	t.Parallel()
	a := NewFFTAnalyzer()
	sine := dsptest.SineWave(config.WindowSize, config.SampleRate, 440.0)
	analyzeSteady(a, sine, 10)

	a.Reset()

	silence := make([]float32, config.WindowSize)
	var out AudioFeatures
	a.Analyze(silence, &out)
	for i := 0; i < NumBands; i++ {
		if out.SpectrumPeaks[i] != 0 {
			t.Fatalf("SpectrumPeaks[%d] = %f after Reset, want 0", i, out.SpectrumPeaks[i])
		}
	}
}

func TestBandFrequencyRange(t *testing.T) {
	t.Parallel()
	a := NewFFTAnalyzer()

	low, _ := a.BandFrequencyRange(0)
	_, high := a.BandFrequencyRange(NumBands - 1)
	if math.Abs(low-config.FreqMin) > 0.01 {
		t.Errorf("band 0 starts at %f, want %f", low, float64(config.FreqMin))
	}
	if math.Abs(high-config.FreqMax) > 0.01 {
		t.Errorf("last band ends at %f, want %f", high, float64(config.FreqMax))
	}

	// Bands tile the range contiguously: each band starts where the
	// previous one ends.
	prev := float64(config.FreqMin)
	for i := 0; i < NumBands; i++ {
		l, h := a.BandFrequencyRange(i)
		if math.Abs(l-prev) > 0.01 {
			t.Errorf("band %d starts at %f, want %f", i, l, prev)
		}
		if h <= l {
			t.Errorf("band %d: high %f not above low %f", i, h, l)
		}
		prev = h
	}
}

func TestAnalyzeHotPath(t *testing.T) {
	a := NewFFTAnalyzer()
	sine := dsptest.SineWave(config.WindowSize, config.SampleRate, 440.0)
	var out AudioFeatures

	allocs := testing.AllocsPerRun(50, func() {
		a.Analyze(sine, &out)
	})
	if allocs != 0 {
		t.Errorf("Analyze allocations = %.1f, want 0", allocs)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	a := NewFFTAnalyzer()
	sine := dsptest.SineWave(config.WindowSize, config.SampleRate, 440.0)
	var out AudioFeatures

	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		a.Analyze(sine, &out)
	}
}
