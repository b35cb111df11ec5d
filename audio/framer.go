// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

// Conform adapts src to the given rate and channel count. Sources are
// resampled when their rate differs and downmixed when mono is requested;
// any other channel mismatch is an error.
func Conform(src Source, sampleRate, channels int) (Source, error) {
	out := src
	if src.SampleRate() != sampleRate {
		out = NewResampler(out, sampleRate)
	}
	switch {
	case out.Channels() == channels:
	case channels == 1:
		out = NewMonoMixer(out)
	default:
		return nil, fmt.Errorf("%w: have %d, want %d", ErrChannelMismatch, src.Channels(), channels)
	}
	return out, nil
}

// Framer splits an interleaved source into channel-major frames.
type Framer struct {
	src       Source
	frameSize int
	buf       []int32
	eof       bool
}

func NewFramer(src Source, frameSize int) (*Framer, error) {
	if frameSize <= 0 {
		return nil, ErrInvalidFrameSize
	}
	return &Framer{
		src:       src,
		frameSize: frameSize,
		buf:       make([]int32, frameSize*src.Channels()),
	}, nil
}

func (f *Framer) Channels() int { return f.src.Channels() }

func (f *Framer) Close() error {
	if err := f.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// Next returns the next frame, one slice per channel. Only the last frame
// may be shorter than the frame size. It returns io.EOF once the source is
// exhausted.
func (f *Framer) Next() ([][]int32, error) {
	if f.eof {
		return nil, io.EOF
	}

	channels := f.src.Channels()
	filled := 0
	for filled < len(f.buf) {
		n, err := f.src.ReadSamples(f.buf[filled:])
		filled += n
		if errors.Is(err, io.EOF) {
			f.eof = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading samples: %w", err)
		}
		if n == 0 {
			break
		}
	}

	frames := filled / channels
	if frames == 0 {
		f.eof = true
		return nil, io.EOF
	}

	out := make([][]int32, channels)
	for c := range out {
		out[c] = make([]int32, frames)
		for i := range frames {
			out[c][i] = f.buf[i*channels+c]
		}
	}
	return out, nil
}
