// SPDX-License-Identifier: EPL-2.0

// Package opus codes substreams with libopus through gopkg.in/hraban/opus.v2.
// Mono substreams are coded as mono Opus streams and coupled substreams as
// stereo streams, always at 48 kHz.
package opus

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/ik5/iamf/codec"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/obu"
	"github.com/ik5/iamf/utils"
)

const (
	sampleRate = 48000

	// Lookahead is the encoder delay of libopus at 48 kHz, and the pre-skip
	// every Opus codec config must declare.
	Lookahead = 312

	maxPacketSize = 4000
	maxFrameSize  = 5760
)

// Codec is the Opus codec.
type Codec struct {
	// Bitrate in bits per second per substream; zero keeps the libopus
	// default.
	Bitrate int
}

var _ codec.Codec = Codec{}

func config(cc *obu.CodecConfig, numChannels int) (*obu.OpusDecoderConfig, error) {
	dc, ok := cc.DecoderConfig.(*obu.OpusDecoderConfig)
	if !ok {
		return nil, errs.InvalidArgumentf("codec config %d is not Opus", cc.ID)
	}
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	if numChannels != 1 && numChannels != 2 {
		return nil, errs.InvalidArgumentf("opus substreams carry 1 or 2 channels, got %d", numChannels)
	}
	return dc, nil
}

func (c Codec) NewEncoder(cc *obu.CodecConfig, numChannels int) (codec.Encoder, error) {
	dc, err := config(cc, numChannels)
	if err != nil {
		return nil, err
	}
	if dc.PreSkip != Lookahead {
		return nil, errs.InvalidArgumentf("opus pre_skip %d does not match the encoder delay %d", dc.PreSkip, Lookahead)
	}

	enc, err := opus.NewEncoder(sampleRate, numChannels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	if c.Bitrate > 0 {
		if err := enc.SetBitrate(c.Bitrate * numChannels); err != nil {
			return nil, fmt.Errorf("failed to set opus bitrate: %w", err)
		}
	}

	return &Encoder{
		encoder:   enc,
		channels:  numChannels,
		frameSize: int(cc.NumSamplesPerFrame),
		pcm:       make([]int16, numChannels*int(cc.NumSamplesPerFrame)),
	}, nil
}

func (Codec) NewDecoder(cc *obu.CodecConfig, numChannels int) (codec.Decoder, error) {
	if _, err := config(cc, numChannels); err != nil {
		return nil, err
	}
	dec, err := opus.NewDecoder(sampleRate, numChannels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}
	return &Decoder{
		decoder:  dec,
		channels: numChannels,
		pcm:      make([]int16, maxFrameSize*numChannels),
	}, nil
}

// Encoder wraps one libopus encoder.
type Encoder struct {
	encoder   *opus.Encoder
	channels  int
	frameSize int
	pcm       []int16
}

func (*Encoder) SamplesToDelayAtStart() int { return Lookahead }
func (*Encoder) Close() error               { return nil }

// EncodeFrame keeps the top 16 bits of every sample and returns one Opus
// packet.
func (e *Encoder) EncodeFrame(samples [][]int32) ([]byte, error) {
	if err := codec.CheckFrame(samples, e.channels, e.frameSize); err != nil {
		return nil, err
	}

	for t := range e.frameSize {
		for c := range e.channels {
			e.pcm[t*e.channels+c] = utils.Int32ToInt16(samples[c][t])
		}
	}

	data := make([]byte, maxPacketSize)
	n, err := e.encoder.Encode(e.pcm, data)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}
	return data[:n], nil
}

// Decoder wraps one libopus decoder.
type Decoder struct {
	decoder  *opus.Decoder
	channels int
	pcm      []int16
}

func (*Decoder) Close() error { return nil }

// DecodeFrame decodes one packet to left-justified samples.
func (d *Decoder) DecodeFrame(payload []byte) ([][]int32, error) {
	n, err := d.decoder.Decode(payload, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	out := make([][]int32, d.channels)
	for c := range out {
		out[c] = make([]int32, n)
		for t := range n {
			out[c][t] = utils.Int16ToInt32(d.pcm[t*d.channels+c])
		}
	}
	return out, nil
}
