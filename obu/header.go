// SPDX-License-Identifier: EPL-2.0

package obu

import (
	"fmt"

	"github.com/ik5/iamf/bitbuffer"
	"github.com/ik5/iamf/errs"
)

// Type is the 5-bit obu_type field.
type Type uint8

const (
	TypeCodecConfig       Type = 0
	TypeAudioElement      Type = 1
	TypeMixPresentation   Type = 2
	TypeParameterBlock    Type = 3
	TypeTemporalDelimiter Type = 4
	TypeAudioFrame        Type = 5
	TypeAudioFrameID0     Type = 6
	TypeAudioFrameID17    Type = 23
	TypeSequenceHeader    Type = 31
)

// IsAudioFrame reports whether t carries an audio frame payload.
func (t Type) IsAudioFrame() bool {
	return t >= TypeAudioFrame && t <= TypeAudioFrameID17
}

func (t Type) String() string {
	switch {
	case t == TypeCodecConfig:
		return "CodecConfig"
	case t == TypeAudioElement:
		return "AudioElement"
	case t == TypeMixPresentation:
		return "MixPresentation"
	case t == TypeParameterBlock:
		return "ParameterBlock"
	case t == TypeTemporalDelimiter:
		return "TemporalDelimiter"
	case t == TypeAudioFrame:
		return "AudioFrame"
	case t.IsAudioFrame():
		return fmt.Sprintf("AudioFrameID%d", t-TypeAudioFrameID0)
	case t == TypeSequenceHeader:
		return "SequenceHeader"
	default:
		return fmt.Sprintf("Reserved(%d)", uint8(t))
	}
}

// Header is the common header in front of every OBU.
type Header struct {
	Type          Type
	RedundantCopy bool

	// TrimmingStatus signals the two trim fields; only audio frames carry it.
	TrimmingStatus          bool
	NumSamplesToTrimAtEnd   uint32
	NumSamplesToTrimAtStart uint32

	// ExtensionBytes is written when non-nil, even if empty.
	ExtensionBytes []byte
}

// Validate checks the flag combinations allowed for h.Type.
func (h Header) Validate() error {
	if h.Type > TypeSequenceHeader {
		return errs.InvalidArgumentf("obu_type %d does not fit in 5 bits", h.Type)
	}
	if h.TrimmingStatus && !h.Type.IsAudioFrame() {
		return errs.InvalidArgumentf("obu_trimming_status_flag is only allowed on audio frames, got %s", h.Type)
	}
	if h.RedundantCopy && (h.Type.IsAudioFrame() || h.Type == TypeTemporalDelimiter) {
		return errs.InvalidArgumentf("obu_redundant_copy is not allowed on %s", h.Type)
	}
	return nil
}

// write emits the header followed by payload. obu_size covers the optional
// header fields and the payload.
func (h Header) write(wb *bitbuffer.WriteBitBuffer, payload []byte) error {
	if err := h.Validate(); err != nil {
		return err
	}

	leb := wb.Leb()
	var optional []byte
	if h.TrimmingStatus {
		end, err := leb.Encode(h.NumSamplesToTrimAtEnd)
		if err != nil {
			return err
		}
		start, err := leb.Encode(h.NumSamplesToTrimAtStart)
		if err != nil {
			return err
		}
		optional = append(optional, end...)
		optional = append(optional, start...)
	}
	if h.ExtensionBytes != nil {
		size, err := leb.Encode(uint32(len(h.ExtensionBytes)))
		if err != nil {
			return err
		}
		optional = append(optional, size...)
		optional = append(optional, h.ExtensionBytes...)
	}

	obuSize := uint64(len(optional)) + uint64(len(payload))
	if obuSize > maxObuSize {
		return errs.InvalidArgumentf("obu_size %d does not fit in 32 bits", obuSize)
	}

	if err := wb.WriteUnsignedLiteral(uint64(h.Type), 5); err != nil {
		return err
	}
	for _, flag := range []bool{h.RedundantCopy, h.TrimmingStatus, h.ExtensionBytes != nil} {
		if err := wb.WriteBoolean(flag); err != nil {
			return err
		}
	}
	if err := wb.WriteULeb128(uint32(obuSize)); err != nil {
		return err
	}
	if err := wb.WriteUint8Span(optional); err != nil {
		return err
	}
	return wb.WriteUint8Span(payload)
}

const maxObuSize = 1<<32 - 1

// ReadHeader parses an OBU header and returns it together with the size of
// the payload that follows.
func ReadHeader(rb *bitbuffer.ReadBitBuffer) (Header, uint32, error) {
	var h Header

	t, err := rb.ReadUint8(5)
	if err != nil {
		return h, 0, err
	}
	h.Type = Type(t)

	if h.RedundantCopy, err = rb.ReadBoolean(); err != nil {
		return h, 0, err
	}
	if h.TrimmingStatus, err = rb.ReadBoolean(); err != nil {
		return h, 0, err
	}
	extension, err := rb.ReadBoolean()
	if err != nil {
		return h, 0, err
	}

	obuSize, err := rb.ReadULeb128()
	if err != nil {
		return h, 0, err
	}

	remaining := int64(obuSize)
	consume := func(n int64) error {
		remaining -= n
		if remaining < 0 {
			return errs.InvalidArgumentf("obu_size %d is too small for the %s header fields", obuSize, h.Type)
		}
		return nil
	}

	if h.TrimmingStatus {
		var size int
		if h.NumSamplesToTrimAtEnd, size, err = rb.ReadULeb128WithSize(); err != nil {
			return h, 0, err
		}
		if err := consume(int64(size)); err != nil {
			return h, 0, err
		}
		if h.NumSamplesToTrimAtStart, size, err = rb.ReadULeb128WithSize(); err != nil {
			return h, 0, err
		}
		if err := consume(int64(size)); err != nil {
			return h, 0, err
		}
	}

	if extension {
		extSize, size, err := rb.ReadULeb128WithSize()
		if err != nil {
			return h, 0, err
		}
		if err := consume(int64(size) + int64(extSize)); err != nil {
			return h, 0, err
		}
		h.ExtensionBytes = make([]byte, extSize)
		if err := rb.ReadUint8Span(h.ExtensionBytes); err != nil {
			return h, 0, err
		}
	}

	if err := h.Validate(); err != nil {
		return h, 0, err
	}
	return h, uint32(remaining), nil
}
