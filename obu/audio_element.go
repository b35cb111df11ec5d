// SPDX-License-Identifier: EPL-2.0

package obu

import (
	"github.com/ik5/iamf/bitbuffer"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/label"
)

// AudioElementType is the 3-bit audio_element_type field.
type AudioElementType uint8

const (
	ChannelBased AudioElementType = 0
	SceneBased   AudioElementType = 1
)

// AudioElementParam is a param definition attached to an audio element.
type AudioElementParam struct {
	Type       ParamDefinitionType
	Definition *ParamDefinition
}

// ChannelAudioLayer is one layer of a scalable channel layout.
type ChannelAudioLayer struct {
	LoudspeakerLayout     label.Layout
	ReconGainIsPresent    bool
	SubstreamCount        uint8
	CoupledSubstreamCount uint8

	// OutputGain is written when non-nil.
	OutputGain *OutputGain
}

// OutputGain scales the listed channels of a layer.
type OutputGain struct {
	Flags uint8 // 6 bits
	Gain  int16
}

// ScalableChannelLayout is the config of a channel-based audio element.
type ScalableChannelLayout struct {
	Layers []ChannelAudioLayer
}

// AmbisonicsMono is the config of a scene-based audio element whose
// channels are each coded in their own mono substream or dropped.
type AmbisonicsMono struct {
	OutputChannelCount uint8
	SubstreamCount     uint8
	// ChannelMapping maps each ambisonics channel to a substream index, or
	// to DroppedAmbisonicsChannel.
	ChannelMapping []uint8
}

// DroppedAmbisonicsChannel marks an ambisonics channel with no substream.
const DroppedAmbisonicsChannel = 255

// AudioElement is the audio element OBU.
type AudioElement struct {
	Header        Header
	ID            uint32
	Type          AudioElementType
	CodecConfigID uint32
	SubstreamIDs  []uint32
	Params        []AudioElementParam

	// Exactly one of ChannelLayout and Ambisonics is set, matching Type.
	ChannelLayout *ScalableChannelLayout
	Ambisonics    *AmbisonicsMono
}

func (a *AudioElement) ObuHeader() Header { return a.Header }

const maxChannelLayers = 6

// Validate checks the layout config against the substream list.
func (a *AudioElement) Validate() error {
	switch a.Type {
	case ChannelBased:
		if a.ChannelLayout == nil || a.Ambisonics != nil {
			return errs.InvalidArgumentf("audio element %d: channel-based elements need only a scalable channel layout", a.ID)
		}
		return a.validateChannelLayout()
	case SceneBased:
		if a.Ambisonics == nil || a.ChannelLayout != nil {
			return errs.InvalidArgumentf("audio element %d: scene-based elements need only an ambisonics config", a.ID)
		}
		return a.validateAmbisonics()
	default:
		return errs.InvalidArgumentf("audio element %d has reserved type %d", a.ID, a.Type)
	}
}

func (a *AudioElement) validateChannelLayout() error {
	layers := a.ChannelLayout.Layers
	if len(layers) == 0 || len(layers) > maxChannelLayers {
		return errs.InvalidArgumentf("audio element %d: num_layers %d must be in [1, %d]", a.ID, len(layers), maxChannelLayers)
	}

	total := 0
	for i, l := range layers {
		if l.CoupledSubstreamCount > l.SubstreamCount {
			return errs.InvalidArgumentf("audio element %d layer %d: more coupled substreams than substreams", a.ID, i)
		}
		if l.OutputGain != nil && l.OutputGain.Flags >= 1<<6 {
			return errs.InvalidArgumentf("audio element %d layer %d: output_gain_flag does not fit in 6 bits", a.ID, i)
		}
		if i == 0 && l.ReconGainIsPresent {
			return errs.InvalidArgumentf("audio element %d: the first layer cannot carry recon gain", a.ID)
		}
		total += int(l.SubstreamCount)
	}
	if total != len(a.SubstreamIDs) {
		return errs.InvalidArgumentf("audio element %d: layers declare %d substreams, have %d", a.ID, total, len(a.SubstreamIDs))
	}
	return nil
}

func (a *AudioElement) validateAmbisonics() error {
	amb := a.Ambisonics
	order := 0
	for (order+1)*(order+1) < int(amb.OutputChannelCount) {
		order++
	}
	if (order+1)*(order+1) != int(amb.OutputChannelCount) || order > 4 {
		return errs.InvalidArgumentf("audio element %d: %d is not a valid ambisonics channel count", a.ID, amb.OutputChannelCount)
	}
	if len(amb.ChannelMapping) != int(amb.OutputChannelCount) {
		return errs.InvalidArgumentf("audio element %d: channel_mapping has %d entries, want %d",
			a.ID, len(amb.ChannelMapping), amb.OutputChannelCount)
	}
	if int(amb.SubstreamCount) != len(a.SubstreamIDs) {
		return errs.InvalidArgumentf("audio element %d: substream_count %d does not match %d substreams",
			a.ID, amb.SubstreamCount, len(a.SubstreamIDs))
	}

	used := make([]bool, amb.SubstreamCount)
	for acn, idx := range amb.ChannelMapping {
		if idx == DroppedAmbisonicsChannel {
			continue
		}
		if int(idx) >= int(amb.SubstreamCount) {
			return errs.InvalidArgumentf("audio element %d: channel %d maps to substream %d of %d", a.ID, acn, idx, amb.SubstreamCount)
		}
		used[idx] = true
	}
	for i, ok := range used {
		if !ok {
			return errs.InvalidArgumentf("audio element %d: substream index %d carries no channel", a.ID, i)
		}
	}
	return nil
}

func (a *AudioElement) writePayload(wb *bitbuffer.WriteBitBuffer) error {
	if err := a.Validate(); err != nil {
		return err
	}

	if err := wb.WriteULeb128(a.ID); err != nil {
		return err
	}
	if err := wb.WriteUnsignedLiteral(uint64(a.Type), 3); err != nil {
		return err
	}
	if err := wb.WriteUnsignedLiteral(0, 5); err != nil {
		return err
	}
	if err := wb.WriteULeb128(a.CodecConfigID); err != nil {
		return err
	}

	if err := wb.WriteULeb128(uint32(len(a.SubstreamIDs))); err != nil {
		return err
	}
	for _, id := range a.SubstreamIDs {
		if err := wb.WriteULeb128(id); err != nil {
			return err
		}
	}

	if err := wb.WriteULeb128(uint32(len(a.Params))); err != nil {
		return err
	}
	for _, p := range a.Params {
		if p.Type == ParamMixGain {
			return errs.InvalidArgumentf("audio element %d carries a mix gain param definition", a.ID)
		}
		if err := wb.WriteULeb128(uint32(p.Type)); err != nil {
			return err
		}
		if err := p.Definition.Write(wb); err != nil {
			return err
		}
	}

	if a.Type == ChannelBased {
		return a.writeChannelLayout(wb)
	}
	return a.writeAmbisonics(wb)
}

func (a *AudioElement) writeChannelLayout(wb *bitbuffer.WriteBitBuffer) error {
	layers := a.ChannelLayout.Layers
	if err := wb.WriteUnsignedLiteral(uint64(len(layers)), 3); err != nil {
		return err
	}
	if err := wb.WriteUnsignedLiteral(0, 5); err != nil {
		return err
	}

	for _, l := range layers {
		fields := []struct {
			v uint64
			n int
		}{
			{uint64(l.LoudspeakerLayout), 4},
			{boolBit(l.OutputGain != nil), 1},
			{boolBit(l.ReconGainIsPresent), 1},
			{0, 2},
			{uint64(l.SubstreamCount), 8},
			{uint64(l.CoupledSubstreamCount), 8},
		}
		for _, f := range fields {
			if err := wb.WriteUnsignedLiteral(f.v, f.n); err != nil {
				return err
			}
		}
		if l.OutputGain != nil {
			if err := wb.WriteUnsignedLiteral(uint64(l.OutputGain.Flags), 6); err != nil {
				return err
			}
			if err := wb.WriteUnsignedLiteral(0, 2); err != nil {
				return err
			}
			if err := wb.WriteSigned16(l.OutputGain.Gain); err != nil {
				return err
			}
		}
	}
	return nil
}

const ambisonicsModeMono = 0

func (a *AudioElement) writeAmbisonics(wb *bitbuffer.WriteBitBuffer) error {
	amb := a.Ambisonics
	if err := wb.WriteULeb128(ambisonicsModeMono); err != nil {
		return err
	}
	if err := wb.WriteUnsignedLiteral(uint64(amb.OutputChannelCount), 8); err != nil {
		return err
	}
	if err := wb.WriteUnsignedLiteral(uint64(amb.SubstreamCount), 8); err != nil {
		return err
	}
	return wb.WriteUint8Span(amb.ChannelMapping)
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
