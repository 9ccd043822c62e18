// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
	"time"

	"audiovis/internal/config"
	"audiovis/pkg/dsptest"
)

// The frame period of the real pipeline: one hop at the configured rate.
const framePeriod = time.Second * config.ChunkSize / config.SampleRate

func quietFrame() []float64 {
	s := make([]float64, config.NumBands)
	for i := range s {
		s[i] = 0.05
	}
	return s
}

func loudFrame() []float64 {
	s := make([]float64, config.NumBands)
	for i := range s {
		s[i] = 0.6
	}
	return s
}

// warmUp feeds quiet frames until the flux history is half filled and the
// detector starts reporting. Returns the time of the next frame.
func warmUp(d *BeatDetector, start time.Time) time.Time {
	now := start
	for i := 0; i < config.BeatHistoryLength; i++ {
		d.Process(quietFrame(), now)
		now = now.Add(framePeriod)
	}
	return now
}

func TestNoBeatDuringWarmUp(t *testing.T) {
	t.Parallel()
	d := NewBeatDetector()
	now := time.Unix(0, 0)

	// Alternate quiet and loud frames: large flux every other frame, but
	// nothing may fire before the history is half filled.
	for i := 0; i < config.BeatHistoryLength/2-1; i++ {
		frame := quietFrame()
		if i%2 == 1 {
			frame = loudFrame()
		}
		beat, _, _ := d.Process(frame, now)
		if beat {
			t.Fatalf("beat reported at frame %d, before warm-up completed", i)
		}
		now = now.Add(framePeriod)
	}
}

func TestOnsetDetection(t *testing.T) {
	t.Parallel()
	d := NewBeatDetector()
	now := warmUp(d, time.Unix(0, 0))

	beat, strength, _ := d.Process(loudFrame(), now)
	if !beat {
		t.Fatal("no beat on a loud frame after quiet warm-up")
	}
	if strength <= 0 || strength > 1 {
		t.Errorf("strength = %f, want value in (0,1]", strength)
	}

	// The level holding steady is not an onset.
	now = now.Add(framePeriod)
	if beat, _, _ := d.Process(loudFrame(), now); beat {
		t.Error("beat reported while the level held steady")
	}
}

func TestMinimumInterOnsetInterval(t *testing.T) {
	t.Parallel()
	d := NewBeatDetector()
	now := warmUp(d, time.Unix(0, 0))

	beat, _, _ := d.Process(loudFrame(), now)
	if !beat {
		t.Fatal("no beat on first onset")
	}

	// A second rise inside the minimum interval must be suppressed.
	now = now.Add(framePeriod)
	d.Process(quietFrame(), now)
	now = now.Add(framePeriod)
	if 2*framePeriod >= config.MinBeatInterval {
		t.Fatalf("frame period %v too long to exercise the interval gate", framePeriod)
	}
	if beat, _, _ := d.Process(loudFrame(), now); beat {
		t.Error("beat reported inside the minimum inter-onset interval")
	}

	// Well past the interval it fires again.
	now = now.Add(framePeriod)
	d.Process(quietFrame(), now)
	now = now.Add(config.MinBeatInterval)
	if beat, _, _ := d.Process(loudFrame(), now); !beat {
		t.Error("no beat after the minimum interval elapsed")
	}
}

func TestTempoEstimate(t *testing.T) {
	t.Parallel()
	d := NewBeatDetector()
	now := warmUp(d, time.Unix(0, 0))

	// Onsets exactly 400ms apart: 150 BPM.
	const beatInterval = 400 * time.Millisecond
	var bpm float64
	for beatIdx := 0; beatIdx < 10; beatIdx++ {
		beat, _, b := d.Process(loudFrame(), now)
		if beatIdx > 0 && !beat {
			t.Fatalf("onset %d not detected", beatIdx)
		}
		bpm = b

		// Quiet frames fill the gap until the next beat.
		for off := framePeriod; off < beatInterval; off += framePeriod {
			d.Process(quietFrame(), now.Add(off))
		}
		now = now.Add(beatInterval)
	}

	if math.Abs(bpm-150) > 5 {
		t.Errorf("tempo = %.1f BPM, want 150±5", bpm)
	}
	if got := d.TempoBPM(); got != bpm {
		t.Errorf("TempoBPM() = %f, want %f", got, bpm)
	}
}

func TestTempoPrefersHigherBPMOnTie(t *testing.T) {
	t.Parallel()
	d := NewBeatDetector()
	now := warmUp(d, time.Unix(0, 0))

	// A strictly periodic 500ms pulse correlates at 500ms, 1000ms, ... The
	// estimate must settle on the fundamental 120 BPM, not a subharmonic.
	const beatInterval = 500 * time.Millisecond
	for beatIdx := 0; beatIdx < 10; beatIdx++ {
		d.Process(loudFrame(), now)
		for off := framePeriod; off < beatInterval; off += framePeriod {
			d.Process(quietFrame(), now.Add(off))
		}
		now = now.Add(beatInterval)
	}

	if got := d.TempoBPM(); math.Abs(got-120) > 5 {
		t.Errorf("tempo = %.1f BPM, want 120±5 (not a subharmonic)", got)
	}
}

func TestNoTempoWithoutEnoughOnsets(t *testing.T) {
	t.Parallel()
	d := NewBeatDetector()
	now := warmUp(d, time.Unix(0, 0))

	d.Process(loudFrame(), now)
	if got := d.TempoBPM(); got != 0 {
		t.Errorf("tempo = %f after a single onset, want 0", got)
	}
}

func TestDetectorReset(t *testing.T) {
	t.Parallel()
	d := NewBeatDetector()
	now := warmUp(d, time.Unix(0, 0))

	// Build up tempo state.
	const beatInterval = 400 * time.Millisecond
	for beatIdx := 0; beatIdx < 6; beatIdx++ {
		d.Process(loudFrame(), now)
		for off := framePeriod; off < beatInterval; off += framePeriod {
			d.Process(quietFrame(), now.Add(off))
		}
		now = now.Add(beatInterval)
	}
	if d.TempoBPM() == 0 {
		t.Fatal("no tempo before reset; test setup broken")
	}

	d.Reset()

	if got := d.TempoBPM(); got != 0 {
		t.Errorf("tempo = %f after Reset, want 0", got)
	}

	// Warm-up starts over: a loud frame right after reset stays silent.
	if beat, _, _ := d.Process(loudFrame(), now); beat {
		t.Error("beat reported immediately after Reset")
	}
}

func TestTempoQuantizedOnsets(t *testing.T) {
	t.Parallel()
	d := NewBeatDetector()
	base := warmUp(d, time.Unix(0, 0))

	// Onset times snap to the frame grid, so single beat-to-beat intervals
	// jitter between 8 and 9 frames while two-beat spans stay near-exact.
	// The estimate must still land on the 400ms fundamental, not its double.
	const beatInterval = 400 * time.Millisecond
	frame := 0
	for beatIdx := 1; beatIdx <= 12; beatIdx++ {
		target := time.Duration(beatIdx) * beatInterval
		beatFrame := int(math.Round(float64(target) / float64(framePeriod)))
		for ; frame < beatFrame; frame++ {
			d.Process(quietFrame(), base.Add(time.Duration(frame)*framePeriod))
		}
		beat, _, _ := d.Process(loudFrame(), base.Add(time.Duration(frame)*framePeriod))
		if !beat {
			t.Fatalf("onset %d not detected", beatIdx)
		}
		frame++
	}

	if got := d.TempoBPM(); math.Abs(got-150) > 5 {
		t.Errorf("tempo = %.1f BPM, want 150±5 despite frame-grid jitter", got)
	}
}

func TestClickTrackTempo(t *testing.T) {
	t.Parallel()
	a := NewFFTAnalyzer()
	d := NewBeatDetector()

	// 10s of a 150 BPM click track, analyzed at the real hop cadence with
	// overlapping windows, exactly as the pipeline does.
	track := dsptest.ClickTrack(10*config.SampleRate, config.SampleRate, 150, 256)
	base := time.Unix(0, 0)

	var onsets []time.Time
	var bpm float64
	var out AudioFeatures
	for frame := 0; (frame+2)*config.ChunkSize <= len(track); frame++ {
		start := frame * config.ChunkSize
		now := base.Add(time.Duration(frame+2) * framePeriod)
		a.Analyze(track[start:start+config.WindowSize], &out)
		beat, _, b := d.Process(out.Spectrum[:], now)
		if beat {
			onsets = append(onsets, now)
		}
		bpm = b
	}

	// ~25 clicks in 10s; the warm-up eats the first second's worth.
	if len(onsets) < 15 || len(onsets) > 30 {
		t.Fatalf("detected %d onsets, want roughly one per click (15-30)", len(onsets))
	}

	// Every onset sits just after a click: windowing can delay detection by
	// a hop or two, but never pull it ahead or let it drift mid-beat.
	beatInterval := time.Minute / 150
	for _, onset := range onsets {
		phase := onset.Sub(base) % beatInterval
		if phase > beatInterval/2 {
			phase -= beatInterval
		}
		if phase < -20*time.Millisecond || phase > 120*time.Millisecond {
			t.Errorf("onset at %v is %v from the nearest click", onset.Sub(base), phase)
		}
	}

	if math.Abs(bpm-150) > 5 {
		t.Errorf("tempo = %.1f BPM, want 150±5", bpm)
	}
}

func TestProcessHotPath(t *testing.T) {
	d := NewBeatDetector()
	now := warmUp(d, time.Unix(0, 0))
	frame := quietFrame()

	allocs := testing.AllocsPerRun(100, func() {
		now = now.Add(framePeriod)
		d.Process(frame, now)
	})
	if allocs != 0 {
		t.Errorf("Process allocations = %.1f, want 0", allocs)
	}
}

func BenchmarkProcess(b *testing.B) {
	d := NewBeatDetector()
	now := warmUp(d, time.Unix(0, 0))
	quiet := quietFrame()
	loud := loudFrame()

	b.ReportAllocs()
	b.ResetTimer()

	i := 0
	for b.Loop() {
		frame := quiet
		if i%8 == 0 {
			frame = loud
		}
		d.Process(frame, now)
		now = now.Add(framePeriod)
		i++
	}
}
