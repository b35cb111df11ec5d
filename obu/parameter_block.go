// SPDX-License-Identifier: EPL-2.0

package obu

import (
	"math/bits"

	"github.com/ik5/iamf/bitbuffer"
	"github.com/ik5/iamf/errs"
)

// AnimationType selects how a mix gain moves across a subblock.
type AnimationType uint32

const (
	AnimateStep AnimationType = iota
	AnimateLinear
	AnimateBezier
)

// ParameterData is the payload of one parameter subblock.
type ParameterData interface {
	Type() ParamDefinitionType
}

// MixGainParameterData animates a mix gain, in Q7.8 dB.
type MixGainParameterData struct {
	Animation           AnimationType
	Start               int16
	End                 int16 // linear and bezier
	Control             int16 // bezier
	ControlRelativeTime uint8 // bezier, Q0.8
}

func (*MixGainParameterData) Type() ParamDefinitionType { return ParamMixGain }

// DemixingParameterData selects the demixing mode of one frame.
type DemixingParameterData struct {
	DmixpMode DMixPMode
}

func (*DemixingParameterData) Type() ParamDefinitionType { return ParamDemixing }

// ReconGainLayer holds the recon gains of one layer. Gains lists one value
// per bit set in Flags, from the least significant bit up.
type ReconGainLayer struct {
	Flags uint32
	Gains []uint8
}

// ReconGainParameterData has one entry per layer of the audio element.
type ReconGainParameterData struct {
	Layers []ReconGainLayer
}

func (*ReconGainParameterData) Type() ParamDefinitionType { return ParamReconGain }

// ExtensionParameterData is an opaque payload of a reserved type.
type ExtensionParameterData struct {
	ParamType ParamDefinitionType
	Bytes     []byte
}

func (e *ExtensionParameterData) Type() ParamDefinitionType { return e.ParamType }

// ParameterSubblock is one timed slice of a parameter block.
type ParameterSubblock struct {
	Duration uint32
	Data     ParameterData
}

// ParameterBlock is the parameter block OBU.
//
// Mode and ReconGainIsPresent are copied from the param definition and the
// audio element; they are not part of the payload.
type ParameterBlock struct {
	Header                   Header
	ParameterID              uint32
	Mode                     bool
	Duration                 uint32
	ConstantSubblockDuration uint32
	Subblocks                []ParameterSubblock
	ReconGainIsPresent       []bool
}

func (p *ParameterBlock) ObuHeader() Header { return p.Header }

// Validate checks the subblock layout and payload types.
func (p *ParameterBlock) Validate() error {
	if len(p.Subblocks) == 0 {
		return errs.InvalidArgumentf("parameter block %d has no subblocks", p.ParameterID)
	}

	durations := make([]uint32, len(p.Subblocks))
	for i, sb := range p.Subblocks {
		durations[i] = sb.Duration
		if sb.Data == nil {
			return errs.InvalidArgumentf("parameter block %d subblock %d has no data", p.ParameterID, i)
		}
		if sb.Data.Type() != p.Subblocks[0].Data.Type() {
			return errs.InvalidArgumentf("parameter block %d mixes %s and %s data",
				p.ParameterID, p.Subblocks[0].Data.Type(), sb.Data.Type())
		}
	}

	if p.ConstantSubblockDuration != 0 {
		want := (p.Duration + p.ConstantSubblockDuration - 1) / p.ConstantSubblockDuration
		if uint32(len(p.Subblocks)) != want {
			return errs.InvalidArgumentf("parameter block %d has %d subblocks, want %d", p.ParameterID, len(p.Subblocks), want)
		}
		return nil
	}
	if p.Duration == 0 {
		return errs.InvalidArgumentf("parameter block %d has zero duration", p.ParameterID)
	}
	return validateSubblocks(p.Duration, 0, durations)
}

func (p *ParameterBlock) writePayload(wb *bitbuffer.WriteBitBuffer) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if err := wb.WriteULeb128(p.ParameterID); err != nil {
		return err
	}
	if p.Mode {
		if err := wb.WriteULeb128(p.Duration); err != nil {
			return err
		}
		if err := wb.WriteULeb128(p.ConstantSubblockDuration); err != nil {
			return err
		}
		if p.ConstantSubblockDuration == 0 {
			if err := wb.WriteULeb128(uint32(len(p.Subblocks))); err != nil {
				return err
			}
		}
	}

	for _, sb := range p.Subblocks {
		if p.Mode && p.ConstantSubblockDuration == 0 {
			if err := wb.WriteULeb128(sb.Duration); err != nil {
				return err
			}
		}
		if err := p.writeData(wb, sb.Data); err != nil {
			return err
		}
	}
	return nil
}

func (p *ParameterBlock) writeData(wb *bitbuffer.WriteBitBuffer, data ParameterData) error {
	switch d := data.(type) {
	case *MixGainParameterData:
		return writeMixGain(wb, d)
	case *DemixingParameterData:
		if err := d.DmixpMode.Validate(); err != nil {
			return err
		}
		if err := wb.WriteUnsignedLiteral(uint64(d.DmixpMode), 3); err != nil {
			return err
		}
		return wb.WriteUnsignedLiteral(0, 5)
	case *ReconGainParameterData:
		return p.writeReconGain(wb, d)
	case *ExtensionParameterData:
		if err := wb.WriteULeb128(uint32(len(d.Bytes))); err != nil {
			return err
		}
		return wb.WriteUint8Span(d.Bytes)
	default:
		return errs.Internalf("unknown parameter data %T", data)
	}
}

func writeMixGain(wb *bitbuffer.WriteBitBuffer, d *MixGainParameterData) error {
	if err := wb.WriteULeb128(uint32(d.Animation)); err != nil {
		return err
	}
	switch d.Animation {
	case AnimateStep:
		return wb.WriteSigned16(d.Start)
	case AnimateLinear:
		if err := wb.WriteSigned16(d.Start); err != nil {
			return err
		}
		return wb.WriteSigned16(d.End)
	case AnimateBezier:
		for _, v := range []int16{d.Start, d.End, d.Control} {
			if err := wb.WriteSigned16(v); err != nil {
				return err
			}
		}
		return wb.WriteUnsignedLiteral(uint64(d.ControlRelativeTime), 8)
	default:
		return errs.InvalidArgumentf("mix gain animation type %d is reserved", d.Animation)
	}
}

// maxReconGainFlags is the number of channels a recon gain layer can flag.
const maxReconGainFlags = 12

func (p *ParameterBlock) writeReconGain(wb *bitbuffer.WriteBitBuffer, d *ReconGainParameterData) error {
	if len(d.Layers) != len(p.ReconGainIsPresent) {
		return errs.InvalidArgumentf("parameter block %d has recon gain for %d layers, audio element has %d",
			p.ParameterID, len(d.Layers), len(p.ReconGainIsPresent))
	}

	for i, layer := range d.Layers {
		if !p.ReconGainIsPresent[i] {
			continue
		}
		if layer.Flags >= 1<<maxReconGainFlags {
			return errs.InvalidArgumentf("recon_gain_flags %#x use reserved bits", layer.Flags)
		}
		if bits.OnesCount32(layer.Flags) != len(layer.Gains) {
			return errs.InvalidArgumentf("layer %d has %d recon gains for flags %#x", i, len(layer.Gains), layer.Flags)
		}
		if err := wb.WriteULeb128(layer.Flags); err != nil {
			return err
		}
		if err := wb.WriteUint8Span(layer.Gains); err != nil {
			return err
		}
	}
	return nil
}
