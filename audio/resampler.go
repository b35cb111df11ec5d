// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/iamf/utils"
)

// Resampler streams from src to target sample rate using cubic interpolation.
// Works on interleaved samples; preserves channel count.
// Includes basic anti-aliasing filtering when downsampling.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source samples per output sample
	channels int

	// frames[0] = t-1, frames[1] = t0, frames[2] = t+1, frames[3] = t+2.
	// Past either end of the source a slot repeats its neighbour and its
	// hasFrame entry is false.
	frames   [4][]int32
	hasFrame [4]bool
	primed   bool

	// Position between frames[1] and frames[2], in source samples
	pos float64

	srcBuf []int32
	eof    bool

	// One-pole low-pass filter state, used when downsampling
	filterState []float64
	filterReady bool
	useFilter   bool
	filterAlpha float64
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	ratio := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:         src,
		dstRate:     dstRate,
		ratio:       ratio,
		channels:    channels,
		srcBuf:      make([]int32, channels),
		useFilter:   ratio > 1.0,
		filterAlpha: 0.5,
		filterState: make([]float64, channels),
	}
	for i := range r.frames {
		r.frames[i] = make([]int32, channels)
	}
	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }

func (r *Resampler) Close() error {
	err := r.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// load fills slot i with the next source frame, or with a copy of slot i-1
// once the source is drained.
func (r *Resampler) load(i int) error {
	r.hasFrame[i] = false
	if !r.eof {
		n, err := r.src.ReadSamples(r.srcBuf)
		if errors.Is(err, io.EOF) {
			r.eof = true
		} else if err != nil {
			return fmt.Errorf("%w", err)
		}
		if n == r.channels {
			copy(r.frames[i], r.srcBuf)
			r.hasFrame[i] = true
		}
	}

	if !r.hasFrame[i] {
		if i > 0 {
			copy(r.frames[i], r.frames[i-1])
		}
		return nil
	}
	if r.useFilter && r.filterReady {
		for c, v := range r.frames[i] {
			r.filterState[c] = r.filterAlpha*float64(v) + (1-r.filterAlpha)*r.filterState[c]
			r.frames[i][c] = utils.ClampToInt32(r.filterState[c])
		}
	}
	return nil
}

func (r *Resampler) prime() error {
	r.primed = true
	if err := r.load(1); err != nil {
		return err
	}
	if !r.hasFrame[1] {
		return nil
	}
	// Start the filter settled on the first frame.
	for c, v := range r.frames[1] {
		r.filterState[c] = float64(v)
	}
	r.filterReady = true
	copy(r.frames[0], r.frames[1])
	for i := 2; i < len(r.frames); i++ {
		if err := r.load(i); err != nil {
			return err
		}
	}
	return nil
}

// fetchNextFrame shifts the frame window by one source frame.
func (r *Resampler) fetchNextFrame() error {
	for i := range len(r.frames) - 1 {
		copy(r.frames[i], r.frames[i+1])
		r.hasFrame[i] = r.hasFrame[i+1]
	}
	return r.load(len(r.frames) - 1)
}

// ReadSamples produces samples at the target rate. len(dst) must be a
// multiple of the channel count. Output continues until the position passes
// the last source frame.
func (r *Resampler) ReadSamples(dst []int32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	written := 0
	framesNeeded := len(dst) / r.channels
	for written < framesNeeded {
		for r.pos >= 1.0 && r.hasFrame[1] {
			r.pos -= 1.0
			if err := r.fetchNextFrame(); err != nil {
				return written * r.channels, err
			}
		}
		if !r.hasFrame[1] {
			return written * r.channels, io.EOF
		}

		for c := range r.channels {
			dst[written*r.channels+c] = utils.CubicInterpolate(
				r.frames[0][c], r.frames[1][c], r.frames[2][c], r.frames[3][c], r.pos)
		}

		written++
		r.pos += r.ratio
	}
	return written * r.channels, nil
}
