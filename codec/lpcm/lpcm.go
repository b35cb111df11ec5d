// SPDX-License-Identifier: EPL-2.0

// Package lpcm codes substreams as interleaved linear PCM.
package lpcm

import (
	"encoding/binary"

	"github.com/go-audio/audio"

	"github.com/ik5/iamf/codec"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/obu"
)

// Codec is the LPCM codec.
type Codec struct{}

var _ codec.Codec = Codec{}

func config(cc *obu.CodecConfig) (*obu.LPCMDecoderConfig, error) {
	dc, ok := cc.DecoderConfig.(*obu.LPCMDecoderConfig)
	if !ok {
		return nil, errs.InvalidArgumentf("codec config %d is not LPCM", cc.ID)
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
	return &Encoder{
		cfg:       dc,
		channels:  numChannels,
		frameSize: int(cc.NumSamplesPerFrame),
	}, nil
}

func (Codec) NewDecoder(cc *obu.CodecConfig, numChannels int) (codec.Decoder, error) {
	dc, err := config(cc)
	if err != nil {
		return nil, err
	}
	return &Decoder{cfg: dc, channels: numChannels}, nil
}

// Encoder packs frames without delay.
type Encoder struct {
	cfg       *obu.LPCMDecoderConfig
	channels  int
	frameSize int
}

func (*Encoder) SamplesToDelayAtStart() int { return 0 }
func (*Encoder) Close() error               { return nil }

// EncodeFrame interleaves samples and truncates them to the sample size.
func (e *Encoder) EncodeFrame(samples [][]int32) ([]byte, error) {
	if err := codec.CheckFrame(samples, e.channels, e.frameSize); err != nil {
		return nil, err
	}

	shift := 32 - int(e.cfg.SampleSize)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: e.channels, SampleRate: int(e.cfg.SampleRate)},
		Data:           make([]int, 0, e.channels*e.frameSize),
		SourceBitDepth: int(e.cfg.SampleSize),
	}
	for t := range e.frameSize {
		for c := range e.channels {
			buf.Data = append(buf.Data, int(samples[c][t]>>shift))
		}
	}
	return pack(buf, e.cfg.LittleEndian), nil
}

func pack(buf *audio.IntBuffer, littleEndian bool) []byte {
	bytesPerSample := buf.SourceBitDepth / 8
	out := make([]byte, 0, len(buf.Data)*bytesPerSample)

	var order binary.AppendByteOrder = binary.BigEndian
	if littleEndian {
		order = binary.LittleEndian
	}
	for _, v := range buf.Data {
		switch buf.SourceBitDepth {
		case 16:
			out = order.AppendUint16(out, uint16(v))
		case 24:
			if littleEndian {
				out = append(out, audio.Int32toInt24LEBytes(int32(v))...)
			} else {
				out = append(out, audio.Int32toInt24BEBytes(int32(v))...)
			}
		case 32:
			out = order.AppendUint32(out, uint32(v))
		}
	}
	return out
}

// Decoder unpacks frames back to left-justified samples.
type Decoder struct {
	cfg      *obu.LPCMDecoderConfig
	channels int
}

func (*Decoder) Close() error { return nil }

// DecodeFrame returns one slice per channel.
func (d *Decoder) DecodeFrame(payload []byte) ([][]int32, error) {
	buf, err := unpack(payload, d.cfg, d.channels)
	if err != nil {
		return nil, err
	}

	n := buf.NumFrames()
	shift := 32 - buf.SourceBitDepth
	out := make([][]int32, d.channels)
	for c := range out {
		out[c] = make([]int32, n)
		for t := range n {
			out[c][t] = int32(buf.Data[t*d.channels+c]) << shift
		}
	}
	return out, nil
}

func unpack(payload []byte, cfg *obu.LPCMDecoderConfig, channels int) (*audio.IntBuffer, error) {
	bytesPerSample := int(cfg.SampleSize) / 8
	if len(payload)%(bytesPerSample*channels) != 0 {
		return nil, errs.InvalidArgumentf("LPCM payload of %d bytes is not a whole number of %d-channel %d-bit frames",
			len(payload), channels, cfg.SampleSize)
	}

	var order binary.ByteOrder = binary.BigEndian
	if cfg.LittleEndian {
		order = binary.LittleEndian
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: int(cfg.SampleRate)},
		Data:           make([]int, 0, len(payload)/bytesPerSample),
		SourceBitDepth: int(cfg.SampleSize),
	}
	for i := 0; i < len(payload); i += bytesPerSample {
		b := payload[i : i+bytesPerSample]
		var v int32
		switch cfg.SampleSize {
		case 16:
			v = int32(int16(order.Uint16(b)))
		case 24:
			if cfg.LittleEndian {
				v = audio.Int24LETo32(b)
			} else {
				v = audio.Int24BETo32(b)
			}
		case 32:
			v = int32(order.Uint32(b))
		}
		buf.Data = append(buf.Data, int(v))
	}
	return buf, nil
}
