// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/iamf/formats/internal/pcm"
)

// Writer writes channel-major, left-justified frames as integer PCM. The
// header sizes are patched on Close, so the destination must seek.
type Writer struct {
	enc      *wav.Encoder
	channels int
	shift    uint
	buf      *goaudio.IntBuffer
}

func NewWriter(w io.WriteSeeker, sampleRate, bitDepth, channels int) (*Writer, error) {
	if !pcm.Supported(bitDepth) {
		return nil, fmt.Errorf("%w: got %d bits", ErrUnsupportedBitDepth, bitDepth)
	}
	if channels < 1 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedWavLayout, channels, sampleRate)
	}
	return &Writer{
		enc:      wav.NewEncoder(w, sampleRate, bitDepth, channels, formatPCM),
		channels: channels,
		shift:    uint(32 - bitDepth),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// WriteFrame interleaves samples, one slice per channel, and appends them.
func (w *Writer) WriteFrame(samples [][]int32) error {
	if len(samples) != w.channels {
		return fmt.Errorf("%w: got %d channels, want %d", ErrUnsupportedWavLayout, len(samples), w.channels)
	}
	n := len(samples[0])
	for c, s := range samples {
		if len(s) != n {
			return fmt.Errorf("%w: channel %d has %d samples, want %d", ErrUnsupportedWavLayout, c, len(s), n)
		}
	}
	if n == 0 {
		return nil
	}

	if cap(w.buf.Data) < n*w.channels {
		w.buf.Data = make([]int, n*w.channels)
	}
	w.buf.Data = w.buf.Data[:n*w.channels]
	for c, s := range samples {
		for i, v := range s {
			w.buf.Data[i*w.channels+c] = int(v >> w.shift)
		}
	}

	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("writing wav: %w", err)
	}
	return nil
}

// Close finishes the header. It does not close the underlying writer.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("closing wav: %w", err)
	}
	return nil
}
