// SPDX-License-Identifier: EPL-2.0

package obu

import (
	"github.com/ik5/iamf/bitbuffer"
)

// maxImplicitSubstreamID is the largest substream ID that fits in the
// obu_type of an audio frame.
const maxImplicitSubstreamID = uint32(TypeAudioFrameID17 - TypeAudioFrameID0)

// AudioFrame is the audio frame OBU carrying one encoded substream frame.
type AudioFrame struct {
	Header      Header
	SubstreamID uint32
	Data        []byte
}

// NewAudioFrame builds an audio frame, using the compact obu_type for
// substream IDs up to 17 and signalling trims only when present.
func NewAudioFrame(substreamID, trimStart, trimEnd uint32, data []byte) *AudioFrame {
	t := TypeAudioFrame
	if substreamID <= maxImplicitSubstreamID {
		t = TypeAudioFrameID0 + Type(substreamID)
	}
	return &AudioFrame{
		Header: Header{
			Type:                    t,
			TrimmingStatus:          trimStart != 0 || trimEnd != 0,
			NumSamplesToTrimAtStart: trimStart,
			NumSamplesToTrimAtEnd:   trimEnd,
		},
		SubstreamID: substreamID,
		Data:        data,
	}
}

func (f *AudioFrame) ObuHeader() Header { return f.Header }

func (f *AudioFrame) writePayload(wb *bitbuffer.WriteBitBuffer) error {
	if f.Header.Type == TypeAudioFrame {
		if err := wb.WriteULeb128(f.SubstreamID); err != nil {
			return err
		}
	}
	return wb.WriteUint8Span(f.Data)
}

// TemporalDelimiter marks the start of a temporal unit.
type TemporalDelimiter struct{}

func (TemporalDelimiter) ObuHeader() Header { return Header{Type: TypeTemporalDelimiter} }

func (TemporalDelimiter) writePayload(*bitbuffer.WriteBitBuffer) error { return nil }
