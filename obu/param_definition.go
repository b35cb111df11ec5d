// SPDX-License-Identifier: EPL-2.0

package obu

import (
	"bytes"
	"slices"

	"github.com/ik5/iamf/bitbuffer"
	"github.com/ik5/iamf/errs"
)

// ParamDefinitionType tags the variant of a ParamDefinition.
type ParamDefinitionType uint32

const (
	ParamMixGain       ParamDefinitionType = 0
	ParamDemixing      ParamDefinitionType = 1
	ParamReconGain     ParamDefinitionType = 2
	ParamReservedStart ParamDefinitionType = 3
)

func (t ParamDefinitionType) String() string {
	switch t {
	case ParamMixGain:
		return "mix gain"
	case ParamDemixing:
		return "demixing"
	case ParamReconGain:
		return "recon gain"
	default:
		return "extension"
	}
}

// DMixPMode is the 3-bit down-mixing mode of demixing info.
type DMixPMode uint8

const (
	DMixPMode1    DMixPMode = 0
	DMixPMode2    DMixPMode = 1
	DMixPMode3    DMixPMode = 2
	DMixPModeRes1 DMixPMode = 3
	DMixPMode1N   DMixPMode = 4
	DMixPMode2N   DMixPMode = 5
	DMixPMode3N   DMixPMode = 6
	DMixPModeRes2 DMixPMode = 7
)

// Validate rejects reserved and out-of-range modes.
func (m DMixPMode) Validate() error {
	if m > DMixPModeRes2 || m == DMixPModeRes1 || m == DMixPModeRes2 {
		return errs.InvalidArgumentf("dmixp_mode %d is reserved", m)
	}
	return nil
}

// MaxWIdx is the largest index into the w table.
const MaxWIdx = 10

// ParamVariant holds the type specific fields of a ParamDefinition.
type ParamVariant interface {
	Type() ParamDefinitionType
	equal(other ParamVariant) bool
	clone() ParamVariant
	write(wb *bitbuffer.WriteBitBuffer) error
}

// MixGainParams is the default of a mix gain definition, in Q7.8 dB.
type MixGainParams struct {
	DefaultMixGain int16
}

func (*MixGainParams) Type() ParamDefinitionType { return ParamMixGain }

func (p *MixGainParams) equal(o ParamVariant) bool {
	other, ok := o.(*MixGainParams)
	return ok && *p == *other
}

func (p *MixGainParams) clone() ParamVariant { c := *p; return &c }

func (p *MixGainParams) write(wb *bitbuffer.WriteBitBuffer) error {
	return wb.WriteSigned16(p.DefaultMixGain)
}

// DemixingParams is the default demixing info of an audio element.
type DemixingParams struct {
	DmixpMode DMixPMode
	DefaultW  uint8
}

func (*DemixingParams) Type() ParamDefinitionType { return ParamDemixing }

func (p *DemixingParams) equal(o ParamVariant) bool {
	other, ok := o.(*DemixingParams)
	return ok && *p == *other
}

func (p *DemixingParams) clone() ParamVariant { c := *p; return &c }

func (p *DemixingParams) write(wb *bitbuffer.WriteBitBuffer) error {
	if err := wb.WriteUnsignedLiteral(uint64(p.DmixpMode), 3); err != nil {
		return err
	}
	if err := wb.WriteUnsignedLiteral(0, 5); err != nil {
		return err
	}
	if err := wb.WriteUnsignedLiteral(uint64(p.DefaultW), 4); err != nil {
		return err
	}
	return wb.WriteUnsignedLiteral(0, 4)
}

// ReconGainParams links a recon gain definition to its audio element. The
// ID is implied by placement and is not encoded.
type ReconGainParams struct {
	AudioElementID uint32
}

func (*ReconGainParams) Type() ParamDefinitionType { return ParamReconGain }

func (p *ReconGainParams) equal(o ParamVariant) bool {
	_, ok := o.(*ReconGainParams)
	return ok
}

func (p *ReconGainParams) clone() ParamVariant { c := *p; return &c }

func (*ReconGainParams) write(*bitbuffer.WriteBitBuffer) error { return nil }

// ExtensionParams is an opaque definition of a reserved type.
type ExtensionParams struct {
	ParamType ParamDefinitionType
	Bytes     []byte
}

func (p *ExtensionParams) Type() ParamDefinitionType { return p.ParamType }

func (p *ExtensionParams) equal(o ParamVariant) bool {
	other, ok := o.(*ExtensionParams)
	return ok && p.ParamType == other.ParamType && bytes.Equal(p.Bytes, other.Bytes)
}

func (p *ExtensionParams) clone() ParamVariant {
	return &ExtensionParams{ParamType: p.ParamType, Bytes: slices.Clone(p.Bytes)}
}

func (p *ExtensionParams) write(wb *bitbuffer.WriteBitBuffer) error {
	if err := wb.WriteULeb128(uint32(len(p.Bytes))); err != nil {
		return err
	}
	return wb.WriteUint8Span(p.Bytes)
}

// ParamDefinition describes a stream of parameter blocks.
//
// When Mode is set the timing fields live in each parameter block instead.
type ParamDefinition struct {
	ParameterID              uint32
	ParameterRate            uint32
	Mode                     bool
	Duration                 uint32
	ConstantSubblockDuration uint32
	SubblockDurations        []uint32

	Params ParamVariant
}

// Type returns the variant tag.
func (d *ParamDefinition) Type() ParamDefinitionType {
	if d.Params == nil {
		return ParamReservedStart
	}
	return d.Params.Type()
}

// Equivalent reports whether d and o encode to the same fields.
func (d *ParamDefinition) Equivalent(o *ParamDefinition) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Type() != o.Type() {
		return false
	}
	if (d.Params == nil) != (o.Params == nil) {
		return false
	}
	if d.Params != nil && !d.Params.equal(o.Params) {
		return false
	}
	if d.Type() >= ParamReservedStart {
		return true
	}
	return d.ParameterID == o.ParameterID &&
		d.ParameterRate == o.ParameterRate &&
		d.Mode == o.Mode &&
		d.Duration == o.Duration &&
		d.ConstantSubblockDuration == o.ConstantSubblockDuration &&
		slices.Equal(d.SubblockDurations, o.SubblockDurations)
}

// Clone returns a deep copy of d.
func (d *ParamDefinition) Clone() *ParamDefinition {
	c := *d
	c.SubblockDurations = slices.Clone(d.SubblockDurations)
	if d.Params != nil {
		c.Params = d.Params.clone()
	}
	return &c
}

// NumSubblocks returns the number of subblocks of each parameter block.
func (d *ParamDefinition) NumSubblocks() int {
	if d.ConstantSubblockDuration == 0 {
		return len(d.SubblockDurations)
	}
	return int((d.Duration + d.ConstantSubblockDuration - 1) / d.ConstantSubblockDuration)
}

// SubblockDuration returns the duration of subblock i. The last constant
// subblock may be shorter.
func (d *ParamDefinition) SubblockDuration(i int) (uint32, error) {
	if i < 0 || i >= d.NumSubblocks() {
		return 0, errs.InvalidArgumentf("subblock %d is out of [0, %d)", i, d.NumSubblocks())
	}
	if d.ConstantSubblockDuration == 0 {
		return d.SubblockDurations[i], nil
	}
	start := uint32(i) * d.ConstantSubblockDuration
	return min(d.ConstantSubblockDuration, d.Duration-start), nil
}

// Validate checks the timing layout and the variant fields.
func (d *ParamDefinition) Validate() error {
	if d.Params == nil {
		return errs.InvalidArgumentf("param definition %d has no type specific fields", d.ParameterID)
	}
	if d.Type() >= ParamReservedStart {
		return nil
	}
	if d.ParameterRate == 0 {
		return errs.InvalidArgumentf("param definition %d: parameter_rate must be positive", d.ParameterID)
	}

	if !d.Mode {
		if d.Duration == 0 {
			return errs.InvalidArgumentf("param definition %d: duration must be positive", d.ParameterID)
		}
		if err := validateSubblocks(d.Duration, d.ConstantSubblockDuration, d.SubblockDurations); err != nil {
			return err
		}
	}

	switch p := d.Params.(type) {
	case *DemixingParams:
		if err := p.DmixpMode.Validate(); err != nil {
			return err
		}
		if p.DefaultW > MaxWIdx {
			return errs.InvalidArgumentf("default_w %d is above %d", p.DefaultW, MaxWIdx)
		}
		return d.validateSingleSubblock()
	case *ReconGainParams:
		return d.validateSingleSubblock()
	}
	return nil
}

func (d *ParamDefinition) validateSingleSubblock() error {
	if d.Mode || d.ConstantSubblockDuration != d.Duration {
		return errs.InvalidArgumentf("%s param definition %d must use mode 0 with one constant subblock",
			d.Type(), d.ParameterID)
	}
	return nil
}

func validateSubblocks(duration, constant uint32, durations []uint32) error {
	if constant != 0 {
		if len(durations) != 0 {
			return errs.InvalidArgumentf("explicit subblock durations with constant_subblock_duration= %d", constant)
		}
		return nil
	}
	if len(durations) == 0 {
		return errs.InvalidArgumentf("num_subblocks must be positive when constant_subblock_duration is 0")
	}

	var total uint64
	for i, sd := range durations {
		if sd == 0 {
			return errs.InvalidArgumentf("subblock %d has zero duration", i)
		}
		total += uint64(sd)
	}
	if total != uint64(duration) {
		return errs.InvalidArgumentf("subblock durations sum to %d, want duration %d", total, duration)
	}
	return nil
}

func writeSubblockLayout(wb *bitbuffer.WriteBitBuffer, duration, constant uint32, durations []uint32) error {
	if err := wb.WriteULeb128(duration); err != nil {
		return err
	}
	if err := wb.WriteULeb128(constant); err != nil {
		return err
	}
	if constant != 0 {
		return nil
	}
	if err := wb.WriteULeb128(uint32(len(durations))); err != nil {
		return err
	}
	for _, sd := range durations {
		if err := wb.WriteULeb128(sd); err != nil {
			return err
		}
	}
	return nil
}

// Write validates d and writes it without the type tag.
func (d *ParamDefinition) Write(wb *bitbuffer.WriteBitBuffer) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.Type() >= ParamReservedStart {
		return d.Params.write(wb)
	}

	if err := wb.WriteULeb128(d.ParameterID); err != nil {
		return err
	}
	if err := wb.WriteULeb128(d.ParameterRate); err != nil {
		return err
	}
	if err := wb.WriteBoolean(d.Mode); err != nil {
		return err
	}
	if err := wb.WriteUnsignedLiteral(0, 7); err != nil {
		return err
	}
	if !d.Mode {
		if err := writeSubblockLayout(wb, d.Duration, d.ConstantSubblockDuration, d.SubblockDurations); err != nil {
			return err
		}
	}
	return d.Params.write(wb)
}

// ReadParamDefinition parses a definition of type t written by Write.
func ReadParamDefinition(rb *bitbuffer.ReadBitBuffer, t ParamDefinitionType) (*ParamDefinition, error) {
	d := &ParamDefinition{}
	if t >= ParamReservedStart {
		size, err := rb.ReadULeb128()
		if err != nil {
			return nil, err
		}
		p := &ExtensionParams{ParamType: t, Bytes: make([]byte, size)}
		if err := rb.ReadUint8Span(p.Bytes); err != nil {
			return nil, err
		}
		d.Params = p
		return d, nil
	}

	var err error
	if d.ParameterID, err = rb.ReadULeb128(); err != nil {
		return nil, err
	}
	if d.ParameterRate, err = rb.ReadULeb128(); err != nil {
		return nil, err
	}
	if d.Mode, err = rb.ReadBoolean(); err != nil {
		return nil, err
	}
	if _, err = rb.ReadUint8(7); err != nil {
		return nil, err
	}

	if !d.Mode {
		if d.Duration, err = rb.ReadULeb128(); err != nil {
			return nil, err
		}
		if d.ConstantSubblockDuration, err = rb.ReadULeb128(); err != nil {
			return nil, err
		}
		if d.ConstantSubblockDuration == 0 {
			n, err := rb.ReadULeb128()
			if err != nil {
				return nil, err
			}
			for range n {
				sd, err := rb.ReadULeb128()
				if err != nil {
					return nil, err
				}
				d.SubblockDurations = append(d.SubblockDurations, sd)
			}
		}
	}

	switch t {
	case ParamMixGain:
		gain, err := rb.ReadSigned16()
		if err != nil {
			return nil, err
		}
		d.Params = &MixGainParams{DefaultMixGain: gain}
	case ParamDemixing:
		p := &DemixingParams{}
		mode, err := rb.ReadUint8(3)
		if err != nil {
			return nil, err
		}
		p.DmixpMode = DMixPMode(mode)
		if _, err := rb.ReadUint8(5); err != nil {
			return nil, err
		}
		if p.DefaultW, err = rb.ReadUint8(4); err != nil {
			return nil, err
		}
		if _, err := rb.ReadUint8(4); err != nil {
			return nil, err
		}
		d.Params = p
	case ParamReconGain:
		d.Params = &ReconGainParams{}
	}

	return d, d.Validate()
}
