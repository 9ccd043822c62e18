// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"math/cmplx"
	"sort"

	"audiovis/internal/config"
	"audiovis/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// fftWorkspace holds the pre-allocated buffers for one analysis step. All
// sizing happens at construction so Analyze stays allocation-free.
type fftWorkspace struct {
	input     []float64    // Windowed input signal.
	coeffs    []complex128 // FFT complex output.
	magnitude []float64    // Raw linear-bin magnitudes.
	norm      []float64    // dB-normalized linear-bin magnitudes in [0,1].
	window    []float64    // Hann coefficients.
}

// FFTAnalyzer converts a fixed-size sample window into a 64-band
// logarithmically spaced spectrum with exponential smoothing and peak hold.
// Not safe for concurrent use; it belongs to the single analysis loop.
type FFTAnalyzer struct {
	fft   *fourier.FFT
	freqs []float64 // Center frequency per linear bin.

	bandStart []int // First linear bin of each band.
	bandEnd   []int // One past the last linear bin of each band.
	bassEnd   int   // First band at or above 250Hz.
	midEnd    int   // First band at or above 4000Hz.

	smoothed []float64
	peaks    []float64

	workspace fftWorkspace
}

// NewFFTAnalyzer builds the analyzer for the fixed pipeline parameters:
// window 4096, 64 bands, 20Hz-20kHz, smoothing 0.85.
func NewFFTAnalyzer() *FFTAnalyzer {
	if !bitint.IsPowerOfTwo(config.WindowSize) {
		panic("analysis: FFT window size must be a power of 2")
	}

	bins := config.WindowSize/2 + 1
	coeffs := make([]float64, config.WindowSize)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	window.Hann(coeffs)

	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * config.SampleRate / config.WindowSize
	}

	// Logarithmically spaced band edges, NumBands+1 of them.
	edges := make([]float64, config.NumBands+1)
	logMin := math.Log10(config.FreqMin)
	logMax := math.Log10(config.FreqMax)
	for i := range edges {
		edges[i] = math.Pow(10, logMin+(logMax-logMin)*float64(i)/float64(config.NumBands))
	}

	bandStart := make([]int, config.NumBands)
	bandEnd := make([]int, config.NumBands)
	for i := 0; i < config.NumBands; i++ {
		start := sort.SearchFloat64s(freqs, edges[i])
		end := sort.SearchFloat64s(freqs, edges[i+1])
		if start > bins-1 {
			start = bins - 1
		}
		if end > bins-1 {
			end = bins - 1
		}
		bandStart[i] = start
		bandEnd[i] = end
	}

	bassEnd := sort.SearchFloat64s(edges, 250)
	midEnd := sort.SearchFloat64s(edges, 4000)

	return &FFTAnalyzer{
		fft:       fourier.NewFFT(config.WindowSize),
		freqs:     freqs,
		bandStart: bandStart,
		bandEnd:   bandEnd,
		bassEnd:   bassEnd,
		midEnd:    midEnd,
		smoothed:  make([]float64, config.NumBands),
		peaks:     make([]float64, config.NumBands),
		workspace: fftWorkspace{
			input:     make([]float64, config.WindowSize),
			coeffs:    make([]complex128, bins),
			magnitude: make([]float64, bins),
			norm:      make([]float64, bins),
			window:    coeffs,
		},
	}
}

// Analyze runs one analysis step over samples (expected length WindowSize;
// shorter input is zero-padded) and fills the spectral fields of out. The
// beat fields are left untouched for the detector.
func (a *FFTAnalyzer) Analyze(samples []float32, out *AudioFeatures) {
	ws := &a.workspace

	// Window the input; track RMS and peak on the raw signal.
	var sumSquare, peak float64
	n := len(samples)
	if n > config.WindowSize {
		samples = samples[n-config.WindowSize:]
		n = config.WindowSize
	}
	for i := 0; i < config.WindowSize; i++ {
		if i < n {
			s := float64(samples[i])
			sumSquare += s * s
			if abs := math.Abs(s); abs > peak {
				peak = abs
			}
			ws.input[i] = s * ws.window[i]
		} else {
			ws.input[i] = 0
		}
	}
	out.RMS = math.Sqrt(sumSquare / config.WindowSize)
	out.Peak = peak

	// FFT, magnitudes, dB normalization onto [0,1].
	a.fft.Coefficients(ws.coeffs, ws.input)
	const dbRange = config.DBRangeMax - config.DBRangeMin
	var magSum, weightedSum float64
	for i, c := range ws.coeffs {
		mag := cmplx.Abs(c)
		ws.magnitude[i] = mag
		magSum += mag
		weightedSum += a.freqs[i] * mag

		db := 20 * math.Log10(mag+1e-10)
		v := (db - config.DBRangeMin) / dbRange
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		ws.norm[i] = v
	}

	// Spectral centroid, normalized over the analyzed range.
	if magSum > 0 {
		centroid := weightedSum / magSum
		centroid = (centroid - config.FreqMin) / (config.FreqMax - config.FreqMin)
		if centroid < 0 {
			centroid = 0
		} else if centroid > 1 {
			centroid = 1
		}
		out.SpectralCentroid = centroid
	} else {
		out.SpectralCentroid = 0
	}

	// Aggregate linear bins into log bands and smooth against the previous
	// frame. Bands too narrow to own a bin borrow the nearest one.
	for i := 0; i < config.NumBands; i++ {
		start, end := a.bandStart[i], a.bandEnd[i]
		var band float64
		if start < end {
			var sum float64
			for k := start; k < end; k++ {
				sum += ws.norm[k]
			}
			band = sum / float64(end-start)
		} else {
			band = ws.norm[start]
		}

		a.smoothed[i] = config.SmoothingFactor*a.smoothed[i] + (1-config.SmoothingFactor)*band

		if decayed := a.peaks[i] - config.PeakDecay; decayed > a.smoothed[i] {
			a.peaks[i] = decayed
		} else {
			a.peaks[i] = a.smoothed[i]
		}

		out.Spectrum[i] = a.smoothed[i]
		out.SpectrumPeaks[i] = a.peaks[i]
	}

	out.Bass = mean(a.smoothed[:a.bassEnd])
	out.Mid = mean(a.smoothed[a.bassEnd:a.midEnd])
	out.Treble = mean(a.smoothed[a.midEnd:])
}

// Reset clears the smoothing and peak-hold state, e.g. on a source switch.
func (a *FFTAnalyzer) Reset() {
	for i := range a.smoothed {
		a.smoothed[i] = 0
		a.peaks[i] = 0
	}
}

// BandFrequencyRange returns the frequency bounds of band i in Hz.
func (a *FFTAnalyzer) BandFrequencyRange(i int) (low, high float64) {
	if i < 0 || i >= config.NumBands {
		return 0, 0
	}
	logMin := math.Log10(config.FreqMin)
	logMax := math.Log10(config.FreqMax)
	low = math.Pow(10, logMin+(logMax-logMin)*float64(i)/float64(config.NumBands))
	high = math.Pow(10, logMin+(logMax-logMin)*float64(i+1)/float64(config.NumBands))
	return low, high
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
