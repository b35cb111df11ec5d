// SPDX-License-Identifier: EPL-2.0

package obu

import (
	"github.com/ik5/iamf/bitbuffer"
	"github.com/ik5/iamf/errs"
)

// CodecID is the four-character code identifying a substream codec.
type CodecID uint32

const (
	CodecOpus CodecID = 0x4f707573 // "Opus"
	CodecFLAC CodecID = 0x664c6143 // "fLaC"
	CodecLPCM CodecID = 0x6970636d // "ipcm"
	CodecAAC  CodecID = 0x6d703461 // "mp4a"
)

func (c CodecID) String() string {
	b := []byte{byte(c >> 24), byte(c >> 16), byte(c >> 8), byte(c)}
	return string(b)
}

// DecoderConfig is the codec specific part of a codec config OBU.
type DecoderConfig interface {
	CodecID() CodecID
	// OutputSampleRate is the rate of decoded samples.
	OutputSampleRate() uint32
	// OutputBitDepth is the bit depth used when rendering decoded samples.
	OutputBitDepth() uint8
	Validate(numSamplesPerFrame uint32) error
	write(wb *bitbuffer.WriteBitBuffer, numSamplesPerFrame uint32) error
}

// CodecConfig is the codec config OBU.
type CodecConfig struct {
	Header             Header
	ID                 uint32
	NumSamplesPerFrame uint32
	AudioRollDistance  int16
	DecoderConfig      DecoderConfig
}

func (c *CodecConfig) ObuHeader() Header { return c.Header }

// Validate checks the frame size and the decoder config.
func (c *CodecConfig) Validate() error {
	if c.NumSamplesPerFrame == 0 {
		return errs.InvalidArgumentf("codec config %d: num_samples_per_frame must be positive", c.ID)
	}
	if c.DecoderConfig == nil {
		return errs.InvalidArgumentf("codec config %d has no decoder config", c.ID)
	}
	return c.DecoderConfig.Validate(c.NumSamplesPerFrame)
}

func (c *CodecConfig) writePayload(wb *bitbuffer.WriteBitBuffer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := wb.WriteULeb128(c.ID); err != nil {
		return err
	}
	if err := wb.WriteUnsignedLiteral(uint64(c.DecoderConfig.CodecID()), 32); err != nil {
		return err
	}
	if err := wb.WriteULeb128(c.NumSamplesPerFrame); err != nil {
		return err
	}
	if err := wb.WriteSigned16(c.AudioRollDistance); err != nil {
		return err
	}
	return c.DecoderConfig.write(wb, c.NumSamplesPerFrame)
}

// OpusDecoderConfig mirrors the Opus ID header fields carried by IAMF.
type OpusDecoderConfig struct {
	Version         uint8
	PreSkip         uint16
	InputSampleRate uint32
}

const (
	opusOutputChannelCount = 2
	opusOutputSampleRate   = 48000
)

func (*OpusDecoderConfig) CodecID() CodecID         { return CodecOpus }
func (*OpusDecoderConfig) OutputSampleRate() uint32 { return opusOutputSampleRate }
func (*OpusDecoderConfig) OutputBitDepth() uint8    { return 16 }

func (o *OpusDecoderConfig) Validate(numSamplesPerFrame uint32) error {
	if o.Version == 0 || o.Version > 15 {
		return errs.InvalidArgumentf("opus version %d must be in [1, 15]", o.Version)
	}
	switch numSamplesPerFrame {
	case 120, 240, 480, 960, 1920, 2880:
	default:
		return errs.InvalidArgumentf("opus cannot code %d samples per frame at 48 kHz", numSamplesPerFrame)
	}
	return nil
}

func (o *OpusDecoderConfig) write(wb *bitbuffer.WriteBitBuffer, _ uint32) error {
	fields := []struct {
		v uint64
		n int
	}{
		{uint64(o.Version), 8},
		{opusOutputChannelCount, 8},
		{uint64(o.PreSkip), 16},
		{uint64(o.InputSampleRate), 32},
		{0, 16}, // output_gain
		{0, 8},  // mapping_family
	}
	for _, f := range fields {
		if err := wb.WriteUnsignedLiteral(f.v, f.n); err != nil {
			return err
		}
	}
	return nil
}

// LPCMDecoderConfig describes raw PCM substreams.
type LPCMDecoderConfig struct {
	LittleEndian bool
	SampleSize   uint8
	SampleRate   uint32
}

func (*LPCMDecoderConfig) CodecID() CodecID           { return CodecLPCM }
func (l *LPCMDecoderConfig) OutputSampleRate() uint32 { return l.SampleRate }
func (l *LPCMDecoderConfig) OutputBitDepth() uint8    { return l.SampleSize }

func (l *LPCMDecoderConfig) Validate(uint32) error {
	switch l.SampleSize {
	case 16, 24, 32:
	default:
		return errs.InvalidArgumentf("lpcm sample_size %d must be 16, 24 or 32", l.SampleSize)
	}
	switch l.SampleRate {
	case 16000, 32000, 44100, 48000, 96000:
	default:
		return errs.InvalidArgumentf("lpcm sample_rate %d is not allowed", l.SampleRate)
	}
	return nil
}

func (l *LPCMDecoderConfig) write(wb *bitbuffer.WriteBitBuffer, _ uint32) error {
	var flags uint64
	if l.LittleEndian {
		flags = 1
	}
	if err := wb.WriteUnsignedLiteral(flags, 8); err != nil {
		return err
	}
	if err := wb.WriteUnsignedLiteral(uint64(l.SampleSize), 8); err != nil {
		return err
	}
	return wb.WriteUnsignedLiteral(uint64(l.SampleRate), 32)
}

// FLACDecoderConfig carries the single STREAMINFO metadata block IAMF
// allows.
type FLACDecoderConfig struct {
	MinFrameSize  uint32
	MaxFrameSize  uint32
	SampleRate    uint32
	BitsPerSample uint8
	TotalSamples  uint64
	MD5           [16]byte
}

const (
	flacStreamInfoType   = 0
	flacStreamInfoLength = 34
)

func (*FLACDecoderConfig) CodecID() CodecID           { return CodecFLAC }
func (f *FLACDecoderConfig) OutputSampleRate() uint32 { return f.SampleRate }
func (f *FLACDecoderConfig) OutputBitDepth() uint8    { return f.BitsPerSample }

func (f *FLACDecoderConfig) Validate(numSamplesPerFrame uint32) error {
	if numSamplesPerFrame < 16 || numSamplesPerFrame > 65535 {
		return errs.InvalidArgumentf("flac block size %d must be in [16, 65535]", numSamplesPerFrame)
	}
	if f.SampleRate == 0 || f.SampleRate >= 1<<20 {
		return errs.InvalidArgumentf("flac sample rate %d does not fit in 20 bits", f.SampleRate)
	}
	switch f.BitsPerSample {
	case 16, 24, 32:
	default:
		return errs.InvalidArgumentf("flac bits per sample %d must be 16, 24 or 32", f.BitsPerSample)
	}
	if f.TotalSamples >= 1<<36 {
		return errs.InvalidArgumentf("flac total samples %d does not fit in 36 bits", f.TotalSamples)
	}
	if f.MinFrameSize >= 1<<24 || f.MaxFrameSize >= 1<<24 {
		return errs.InvalidArgumentf("flac frame sizes %d and %d must fit in 24 bits", f.MinFrameSize, f.MaxFrameSize)
	}
	return nil
}

func (f *FLACDecoderConfig) write(wb *bitbuffer.WriteBitBuffer, blockSize uint32) error {
	fields := []struct {
		v uint64
		n int
	}{
		{1, 1}, // last_metadata_block_flag
		{flacStreamInfoType, 7},
		{flacStreamInfoLength, 24},
		{uint64(blockSize), 16},
		{uint64(blockSize), 16},
		{uint64(f.MinFrameSize), 24},
		{uint64(f.MaxFrameSize), 24},
		{uint64(f.SampleRate), 20},
		{1, 3}, // number of channels - 1; IAMF substreams are coded as stereo
		{uint64(f.BitsPerSample - 1), 5},
		{f.TotalSamples, 36},
	}
	for _, field := range fields {
		if err := wb.WriteUnsignedLiteral(field.v, field.n); err != nil {
			return err
		}
	}
	return wb.WriteUint8Span(f.MD5[:])
}
