// SPDX-License-Identifier: EPL-2.0

// Package codec defines the boundary between the encoding pipeline and the
// substream codecs. Samples cross it channel-major and left-justified: one
// []int32 per channel, full scale at 32 bits.
package codec

import (
	"fmt"
	"sync"

	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/obu"
)

// Encoder codes frames of one substream. Every call to EncodeFrame gets
// exactly NumSamplesPerFrame samples per channel and returns one payload.
type Encoder interface {
	// SamplesToDelayAtStart is the number of leading decoded samples that
	// precede the first input sample.
	SamplesToDelayAtStart() int
	EncodeFrame(samples [][]int32) ([]byte, error)
	Close() error
}

// Decoder decodes the payloads of one substream.
type Decoder interface {
	DecodeFrame(payload []byte) ([][]int32, error)
	Close() error
}

// Codec builds encoders and decoders for substreams of numChannels
// channels coded with cc.
type Codec interface {
	NewEncoder(cc *obu.CodecConfig, numChannels int) (Encoder, error)
	NewDecoder(cc *obu.CodecConfig, numChannels int) (Decoder, error)
}

// Registry holds codecs by codec ID.
type Registry struct {
	codecs map[obu.CodecID]Codec

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[obu.CodecID]Codec),
		mtx:    &sync.Mutex{},
	}
}

func (r *Registry) Register(id obu.CodecID, c Codec) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[id] = c
}

func (r *Registry) Get(id obu.CodecID) (Codec, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	c, ok := r.codecs[id]
	return c, ok
}

// Lookup returns the codec for cc's decoder config.
func (r *Registry) Lookup(cc *obu.CodecConfig) (Codec, error) {
	if cc == nil || cc.DecoderConfig == nil {
		return nil, errs.InvalidArgumentf("codec config has no decoder config")
	}
	c, ok := r.Get(cc.DecoderConfig.CodecID())
	if !ok {
		return nil, fmt.Errorf("codec %s: %w", cc.DecoderConfig.CodecID(), errs.ErrUnimplemented)
	}
	return c, nil
}

// CheckFrame verifies that samples holds numChannels channels of n samples.
func CheckFrame(samples [][]int32, numChannels, n int) error {
	if len(samples) != numChannels {
		return errs.InvalidArgumentf("got %d channels, want %d", len(samples), numChannels)
	}
	for i, ch := range samples {
		if len(ch) != n {
			return errs.InvalidArgumentf("channel %d has %d samples, want %d", i, len(ch), n)
		}
	}
	return nil
}
