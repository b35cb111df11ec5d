// SPDX-License-Identifier: EPL-2.0

// Package pcm adapts the integer buffers of the go-audio decoders to
// left-justified audio sources.
package pcm

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
)

var ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32-bit PCM is supported")

// Reader is the part of the go-audio wav and aiff decoders used here.
type Reader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Source reads right-justified integers from a Reader and returns them
// left-justified to 32 bits. Partial frames are held back until the rest
// of the frame arrives.
type Source struct {
	r          Reader
	sampleRate int
	channels   int
	shift      uint

	buf   *goaudio.IntBuffer
	carry []int32
	eof   bool
}

// Supported reports whether bitDepth can be decoded.
func Supported(bitDepth int) bool {
	return bitDepth == 16 || bitDepth == 24 || bitDepth == 32
}

func NewSource(r Reader, format *goaudio.Format, bitDepth int) (*Source, error) {
	if !Supported(bitDepth) {
		return nil, fmt.Errorf("%w: got %d bits", ErrUnsupportedBitDepth, bitDepth)
	}
	if format == nil || format.NumChannels < 1 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid pcm format %+v", format)
	}
	return &Source{
		r:          r,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		shift:      uint(32 - bitDepth),
		buf:        &goaudio.IntBuffer{Format: format, SourceBitDepth: bitDepth},
	}, nil
}

func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) Close() error    { return nil }

func (s *Source) ReadSamples(dst []int32) (int, error) {
	want := len(dst) - len(dst)%s.channels
	if want == 0 {
		return 0, nil
	}

	n := copy(dst[:want], s.carry)
	s.carry = s.carry[:0]

	for n < want && !s.eof {
		if cap(s.buf.Data) < want-n {
			s.buf.Data = make([]int, want-n)
		}
		s.buf.Data = s.buf.Data[:want-n]

		m, err := s.r.PCMBuffer(s.buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("reading pcm: %w", err)
		}
		if m == 0 || err != nil {
			s.eof = true
		}
		for _, v := range s.buf.Data[:m] {
			dst[n] = int32(v) << s.shift
			n++
		}
	}

	// A trailing partial frame waits for the rest of its samples; at the
	// end of the stream it is dropped.
	if rem := n % s.channels; rem != 0 {
		if !s.eof {
			s.carry = append(s.carry, dst[n-rem:n]...)
		}
		n -= rem
	}

	if n == 0 && s.eof {
		return 0, io.EOF
	}
	return n, nil
}
