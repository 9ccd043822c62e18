// SPDX-License-Identifier: MIT
/*
Package decode loads audio files (WAV, MP3, OGG Vorbis, FLAC) into memory as
a mono float32 sample stream at the pipeline sample rate.

Each format is handled by a dedicated decoder keyed by file extension. The
whole file is decoded up front: file playback needs random access for seeking
and looping, and the clips involved are songs, not archives.
*/
package decode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"audiovis/internal/log"
)

// ErrDecode indicates an unsupported or corrupt audio file. All decoder
// failures wrap it so callers can preserve the previous source on failure.
var ErrDecode = errors.New("unsupported or corrupt audio file")

// Clip is a fully decoded audio file: mono samples in [-1,1] at SampleRate.
type Clip struct {
	Name       string
	SampleRate int
	Samples    []float32
}

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// decoderFunc decodes an open file into interleaved samples.
type decoderFunc func(f *os.File) (samples []float32, channels, rate int, err error)

var decoders = map[string]decoderFunc{
	".wav":  decodeWAV,
	".mp3":  decodeMP3,
	".ogg":  decodeOGG,
	".flac": decodeFLAC,
}

// Load decodes the file at path, mixes it down to mono and resamples to
// targetRate. Decoder failures wrap ErrDecode; the caller's current source
// is expected to stay untouched in that case.
func Load(path string, targetRate int) (*Clip, error) {
	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: unknown extension %q", ErrDecode, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	samples, channels, rate, err := dec(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, filepath.Base(path), err)
	}
	if channels < 1 || rate <= 0 || len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s: empty or malformed stream", ErrDecode, filepath.Base(path))
	}

	mono := mixToMono(samples, channels)
	if rate != targetRate {
		mono = resampleLinear(mono, rate, targetRate)
	}

	clip := &Clip{
		Name:       filepath.Base(path),
		SampleRate: targetRate,
		Samples:    mono,
	}
	log.Infof("Decode: loaded %s (%.1fs, %dHz source)", clip.Name, clip.Duration().Seconds(), rate)
	return clip, nil
}

// mixToMono averages interleaved channels into a single channel.
func mixToMono(samples []float32, channels int) []float32 {
	if channels == 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// resampleLinear converts src from one sample rate to another by linear
// interpolation. Good enough for analysis input; anything fancier belongs in
// a dedicated resampler.
func resampleLinear(src []float32, from, to int) []float32 {
	if from == to || len(src) == 0 {
		return src
	}
	ratio := float64(from) / float64(to)
	outLen := int(float64(len(src)) / ratio)
	if outLen == 0 {
		outLen = 1
	}
	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(src)-1 {
			out[i] = src[len(src)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = src[idx]*(1-frac) + src[idx+1]*frac
	}
	return out
}
