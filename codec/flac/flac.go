// SPDX-License-Identifier: EPL-2.0

// Package flac codes substreams as FLAC frames using github.com/mewkiz/flac.
// Each payload is one frame without the stream header; the STREAMINFO block
// travels in the codec config instead.
package flac

import (
	"bytes"
	"fmt"

	goflac "github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	"github.com/ik5/iamf/codec"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/obu"
)

// Codec is the FLAC codec.
type Codec struct{}

var _ codec.Codec = Codec{}

func config(cc *obu.CodecConfig) (*obu.FLACDecoderConfig, error) {
	dc, ok := cc.DecoderConfig.(*obu.FLACDecoderConfig)
	if !ok {
		return nil, errs.InvalidArgumentf("codec config %d is not FLAC", cc.ID)
	}
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	return dc, nil
}

func (Codec) NewEncoder(cc *obu.CodecConfig, numChannels int) (codec.Encoder, error) {
	dc, err := config(cc)
	if err != nil {
		return nil, err
	}
	if numChannels < 1 || numChannels > 2 {
		return nil, errs.InvalidArgumentf("flac substreams carry 1 or 2 channels, got %d", numChannels)
	}

	blockSize := uint16(cc.NumSamplesPerFrame)
	info := &meta.StreamInfo{
		BlockSizeMin:  blockSize,
		BlockSizeMax:  blockSize,
		SampleRate:    dc.SampleRate,
		NChannels:     uint8(numChannels),
		BitsPerSample: dc.BitsPerSample,
	}

	e := &Encoder{
		cfg:       dc,
		channels:  numChannels,
		blockSize: blockSize,
		buf:       &bytes.Buffer{},
	}
	e.encoder, err = goflac.NewEncoder(e.buf, info)
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}
	// Drop the stream header; only frames go into audio frame OBUs.
	e.buf.Reset()
	return e, nil
}

func (Codec) NewDecoder(cc *obu.CodecConfig, numChannels int) (codec.Decoder, error) {
	dc, err := config(cc)
	if err != nil {
		return nil, err
	}
	return &Decoder{cfg: dc, channels: numChannels}, nil
}

// Encoder writes verbatim FLAC frames.
type Encoder struct {
	cfg       *obu.FLACDecoderConfig
	channels  int
	blockSize uint16
	num       uint64

	encoder *goflac.Encoder
	buf     *bytes.Buffer
}

func (*Encoder) SamplesToDelayAtStart() int { return 0 }

func (e *Encoder) Close() error {
	if err := e.encoder.Close(); err != nil {
		return fmt.Errorf("closing encoder: %w", err)
	}
	return nil
}

// EncodeFrame returns the bytes of one FLAC frame.
func (e *Encoder) EncodeFrame(samples [][]int32) ([]byte, error) {
	if err := codec.CheckFrame(samples, e.channels, int(e.blockSize)); err != nil {
		return nil, err
	}

	shift := 32 - int(e.cfg.BitsPerSample)
	subframes := make([]*frame.Subframe, e.channels)
	for c := range subframes {
		s := make([]int32, e.blockSize)
		for i, v := range samples[c] {
			s[i] = v >> shift
		}
		subframes[c] = &frame.Subframe{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   s,
			NSamples:  int(e.blockSize),
		}
	}

	f := &frame.Frame{
		Header: frame.Header{
			HasFixedBlockSize: true,
			BlockSize:         e.blockSize,
			SampleRate:        e.cfg.SampleRate,
			Channels:          frame.Channels(e.channels - 1),
			BitsPerSample:     e.cfg.BitsPerSample,
			Num:               e.num,
		},
		Subframes: subframes,
	}
	if err := e.encoder.WriteFrame(f); err != nil {
		return nil, fmt.Errorf("writing frame: %w", err)
	}
	e.num++

	out := bytes.Clone(e.buf.Bytes())
	e.buf.Reset()
	return out, nil
}

// Decoder parses one FLAC frame per payload.
type Decoder struct {
	cfg      *obu.FLACDecoderConfig
	channels int
}

func (*Decoder) Close() error { return nil }

// DecodeFrame returns left-justified samples, one slice per channel.
func (d *Decoder) DecodeFrame(payload []byte) ([][]int32, error) {
	f, err := frame.Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("parsing flac frame: %w", err)
	}
	if len(f.Subframes) != d.channels {
		return nil, errs.InvalidArgumentf("flac frame has %d channels, want %d", len(f.Subframes), d.channels)
	}

	shift := 32 - int(f.BitsPerSample)
	out := make([][]int32, d.channels)
	for c, sf := range f.Subframes {
		out[c] = make([]int32, len(sf.Samples))
		for i, v := range sf.Samples {
			out[c][i] = v << shift
		}
	}
	return out, nil
}
