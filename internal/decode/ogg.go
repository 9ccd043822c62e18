// SPDX-License-Identifier: MIT
package decode

import (
	"fmt"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

func decodeOGG(f *os.File) ([]float32, int, int, error) {
	data, format, err := oggvorbis.ReadAll(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("reading Vorbis stream: %v", err)
	}
	return data, format.Channels, format.SampleRate, nil
}
