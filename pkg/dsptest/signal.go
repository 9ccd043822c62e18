// SPDX-License-Identifier: MIT
/*
Package dsptest provides deterministic signal generators and helpers for
testing the analysis pipeline without audio hardware.
*/
package dsptest

import "math"

// SineWave generates a pure tone at the given frequency with amplitude 0.9.
func SineWave(size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buffer
}

// ComplexWave generates a 440Hz fundamental with two harmonics.
func ComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// ClickTrack generates silence punctuated by short bursts at the given
// tempo. Each click is a clickLen-sample burst of a 1kHz tone, which gives
// the spectral flux detector a sharp broadband onset to latch on to.
func ClickTrack(size int, sampleRate, bpm float64, clickLen int) []float32 {
	buffer := make([]float32, size)
	interval := int(sampleRate * 60 / bpm)
	for start := 0; start < size; start += interval {
		for i := 0; i < clickLen && start+i < size; i++ {
			t := float64(i) / sampleRate
			buffer[start+i] = float32(math.Sin(2*math.Pi*1000*t) * 0.9)
		}
	}
	return buffer
}

// FindPeakBand returns the index of the largest value in values[start..end].
func FindPeakBand(values []float64, start, end int) int {
	if len(values) == 0 {
		return 0
	}
	if start < 0 {
		start = 0
	}
	if end >= len(values) {
		end = len(values) - 1
	}

	peak := start
	peakValue := values[start]
	for i := start + 1; i <= end; i++ {
		if values[i] > peakValue {
			peakValue = values[i]
			peak = i
		}
	}
	return peak
}
