// SPDX-License-Identifier: MIT
package decode

import (
	"fmt"
	"io"
	"os"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

func decodeMP3(f *os.File) ([]float32, int, int, error) {
	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("opening MP3 stream: %v", err)
	}

	// go-mp3 always emits 16-bit little-endian stereo PCM.
	const channels = 2
	samples := make([]float32, 0, dec.Length()/2)
	raw := make([]byte, 8192)
	rem := 0

	for {
		n, err := dec.Read(raw[rem:])
		n += rem

		var used int
		samples, used = appendPCM16(samples, raw[:n])
		// Carry a trailing half-sample into the next read so an odd-length
		// read cannot shift the 16-bit alignment of everything after it.
		rem = copy(raw, raw[used:n])

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("reading MP3 frames: %v", err)
		}
	}

	return samples, channels, dec.SampleRate(), nil
}

// appendPCM16 converts 16-bit little-endian PCM bytes to float32 samples in
// [-1,1) and reports how many bytes were consumed. A trailing odd byte is
// left unconsumed for the caller to carry over.
func appendPCM16(dst []float32, raw []byte) ([]float32, int) {
	i := 0
	for ; i+1 < len(raw); i += 2 {
		v := int16(uint16(raw[i]) | uint16(raw[i+1])<<8)
		dst = append(dst, float32(v)/32768.0)
	}
	return dst, i
}
