// SPDX-License-Identifier: MIT
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

func decodeFLAC(f *os.File) ([]float32, int, int, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("opening FLAC stream: %v", err)
	}

	info := stream.Info
	if info == nil {
		return nil, 0, 0, errors.New("missing FLAC stream info")
	}
	channels := int(info.NChannels)
	scale := float32(int64(1) << (info.BitsPerSample - 1))

	samples := make([]float32, 0, int(info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("parsing FLAC frame: %v", err)
		}
		if len(frame.Subframes) == 0 {
			continue
		}
		// Subframes are per-channel; interleave them.
		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for _, sub := range frame.Subframes {
				if i < len(sub.Samples) {
					samples = append(samples, float32(sub.Samples[i])/scale)
				}
			}
		}
	}

	return samples, channels, int(info.SampleRate), nil
}
