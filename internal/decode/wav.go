// SPDX-License-Identifier: MIT
package decode

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

func decodeWAV(f *os.File) ([]float32, int, int, error) {
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, 0, errors.New("not a valid WAV file")
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("reading PCM data: %v", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, 0, errors.New("no PCM data")
	}

	fbuf := buf.AsFloat32Buffer()
	return fbuf.Data, buf.Format.NumChannels, buf.Format.SampleRate, nil
}
