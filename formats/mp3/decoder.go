// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/iamf/audio"
	"github.com/ik5/iamf/utils"
)

// go-mp3 always decodes to 16-bit little-endian stereo.
const (
	channels       = 2
	bytesPerSample = 2
)

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
	// Bytes of an incomplete frame held for the next read.
	pending int
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }

func (s *source) ReadSamples(dst []int32) (int, error) {
	frames := len(dst) / channels
	if frames == 0 {
		return 0, nil
	}

	bytesNeeded := frames * channels * bytesPerSample
	if cap(s.buf) < bytesNeeded {
		buf := make([]byte, bytesNeeded)
		copy(buf, s.buf[:s.pending])
		s.buf = buf
	}
	s.buf = s.buf[:bytesNeeded]

	n, err := s.dec.Read(s.buf[s.pending:])
	n += s.pending
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("decoding mp3: %w", err)
	}

	whole := n - n%(channels*bytesPerSample)
	for i := 0; i < whole; i += bytesPerSample {
		dst[i/bytesPerSample] = utils.Int16ToInt32(int16(binary.LittleEndian.Uint16(s.buf[i:])))
	}
	s.pending = copy(s.buf, s.buf[whole:n])

	if err == io.EOF {
		s.pending = 0
		if whole == 0 {
			return 0, io.EOF
		}
	}
	return whole / bytesPerSample, nil
}

type Decoder struct{}

var _ audio.Decoder = Decoder{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}, nil
}
