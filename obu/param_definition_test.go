// SPDX-License-Identifier: EPL-2.0

package obu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ik5/iamf/bitbuffer"
	"github.com/ik5/iamf/errs"
)

func mixGainDefinition(id uint32, gain int16) *ParamDefinition {
	return &ParamDefinition{
		ParameterID:              id,
		ParameterRate:            48000,
		Duration:                 960,
		ConstantSubblockDuration: 960,
		Params:                   &MixGainParams{DefaultMixGain: gain},
	}
}

func demixingDefinition(id uint32) *ParamDefinition {
	return &ParamDefinition{
		ParameterID:              id,
		ParameterRate:            48000,
		Duration:                 960,
		ConstantSubblockDuration: 960,
		Params:                   &DemixingParams{DmixpMode: DMixPMode2, DefaultW: 10},
	}
}

func writeDefinition(t *testing.T, d *ParamDefinition) []byte {
	t.Helper()

	wb := bitbuffer.NewWriteBitBuffer(bitbuffer.NewLebGenerator())
	if err := d.Write(wb); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, err := wb.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	return data
}

func TestParamDefinition_Write(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		def  *ParamDefinition
		want []byte
	}{
		{
			"mix gain",
			mixGainDefinition(100, -256),
			[]byte{0x64, 0x80, 0xf7, 0x02, 0x00, 0xc0, 0x07, 0xc0, 0x07, 0xff, 0x00},
		},
		{
			"demixing",
			demixingDefinition(100),
			[]byte{0x64, 0x80, 0xf7, 0x02, 0x00, 0xc0, 0x07, 0xc0, 0x07, 0x20, 0xa0},
		},
		{
			"mode 1 carries no durations",
			&ParamDefinition{ParameterID: 1, ParameterRate: 1, Mode: true, Params: &MixGainParams{}},
			[]byte{0x01, 0x01, 0x80, 0x00, 0x00},
		},
		{
			"extension",
			&ParamDefinition{Params: &ExtensionParams{ParamType: 5, Bytes: []byte{0xde, 0xad}}},
			[]byte{0x02, 0xde, 0xad},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := writeDefinition(t, tt.def); !bytes.Equal(got, tt.want) {
				t.Errorf("Write() = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestParamDefinition_ReadBack(t *testing.T) {
	t.Parallel()

	defs := []*ParamDefinition{
		mixGainDefinition(100, -256),
		demixingDefinition(7),
		{
			ParameterID:       3,
			ParameterRate:     16000,
			Duration:          960,
			SubblockDurations: []uint32{480, 240, 240},
			Params:            &MixGainParams{DefaultMixGain: 12},
		},
		{
			ParameterID:              9,
			ParameterRate:            48000,
			Duration:                 960,
			ConstantSubblockDuration: 960,
			Params:                   &ReconGainParams{AudioElementID: 4},
		},
		{Params: &ExtensionParams{ParamType: 3, Bytes: []byte{1, 2, 3}}},
	}

	for _, want := range defs {
		data := writeDefinition(t, want)

		rb := bitbuffer.NewReadBitBuffer(1024, data)
		got, err := ReadParamDefinition(rb, want.Type())
		if err != nil {
			t.Fatalf("ReadParamDefinition(%v) error = %v", want.Type(), err)
		}
		if !got.Equivalent(want) {
			t.Errorf("ReadParamDefinition(%v) = %+v, want equivalent to %+v", want.Type(), got, want)
		}
		if rb.IsDataAvailable() {
			t.Errorf("ReadParamDefinition(%v) left unread data", want.Type())
		}
	}
}

func TestParamDefinition_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		def  *ParamDefinition
	}{
		{"no variant", &ParamDefinition{ParameterRate: 1, Duration: 1, ConstantSubblockDuration: 1}},
		{"zero rate", &ParamDefinition{Duration: 1, ConstantSubblockDuration: 1, Params: &MixGainParams{}}},
		{"zero duration", &ParamDefinition{ParameterRate: 1, Params: &MixGainParams{}}},
		{"no subblocks", &ParamDefinition{ParameterRate: 1, Duration: 8, Params: &MixGainParams{}}},
		{"subblock sum mismatch", &ParamDefinition{
			ParameterRate: 1, Duration: 8, SubblockDurations: []uint32{4, 3}, Params: &MixGainParams{},
		}},
		{"zero subblock", &ParamDefinition{
			ParameterRate: 1, Duration: 8, SubblockDurations: []uint32{8, 0}, Params: &MixGainParams{},
		}},
		{"reserved dmixp mode", &ParamDefinition{
			ParameterRate: 1, Duration: 8, ConstantSubblockDuration: 8, Params: &DemixingParams{DmixpMode: DMixPModeRes1},
		}},
		{"default w too large", &ParamDefinition{
			ParameterRate: 1, Duration: 8, ConstantSubblockDuration: 8, Params: &DemixingParams{DefaultW: 11},
		}},
		{"demixing in mode 1", &ParamDefinition{ParameterRate: 1, Mode: true, Params: &DemixingParams{}}},
		{"recon gain with several subblocks", &ParamDefinition{
			ParameterRate: 1, Duration: 8, ConstantSubblockDuration: 4, Params: &ReconGainParams{},
		}},
	}

	for _, tt := range tests {
		if err := tt.def.Validate(); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Errorf("%s: Validate() error = %v, want ErrInvalidArgument", tt.name, err)
		}
	}
}

func TestParamDefinition_Equivalent(t *testing.T) {
	t.Parallel()

	base := mixGainDefinition(100, 0)

	tests := []struct {
		name  string
		other *ParamDefinition
		want  bool
	}{
		{"identical", mixGainDefinition(100, 0), true},
		{"different default", mixGainDefinition(100, 1), false},
		{"different id", mixGainDefinition(101, 0), false},
		{"different type", demixingDefinition(100), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		if got := base.Equivalent(tt.other); got != tt.want {
			t.Errorf("%s: Equivalent() = %v, want %v", tt.name, got, tt.want)
		}
	}

	a := &ParamDefinition{ParameterID: 1, ParameterRate: 1, Duration: 8, ConstantSubblockDuration: 8, Params: &ReconGainParams{AudioElementID: 1}}
	b := a.Clone()
	b.Params.(*ReconGainParams).AudioElementID = 2
	if !a.Equivalent(b) {
		t.Error("recon gain definitions differing only in audio element are not equivalent")
	}
}

func TestParamDefinition_EquivalentSymmetric(t *testing.T) {
	t.Parallel()

	bare := &ParamDefinition{ParameterID: 7}
	tests := []struct {
		name string
		a, b *ParamDefinition
		want bool
	}{
		{"both without params", bare, &ParamDefinition{ParameterID: 7}, true},
		{"extension of the bare type", bare, &ParamDefinition{
			ParameterID: 7,
			Params:      &ExtensionParams{ParamType: ParamReservedStart, Bytes: []byte{1}},
		}, false},
		{"equal extensions", &ParamDefinition{
			Params: &ExtensionParams{ParamType: ParamReservedStart, Bytes: []byte{1, 2}},
		}, &ParamDefinition{
			Params: &ExtensionParams{ParamType: ParamReservedStart, Bytes: []byte{1, 2}},
		}, true},
		{"mix gain against bare", mixGainDefinition(7, 0), bare, false},
	}

	for _, tt := range tests {
		if got := tt.a.Equivalent(tt.b); got != tt.want {
			t.Errorf("%s: a.Equivalent(b) = %v, want %v", tt.name, got, tt.want)
		}
		if got := tt.b.Equivalent(tt.a); got != tt.want {
			t.Errorf("%s: b.Equivalent(a) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParamDefinition_Clone(t *testing.T) {
	t.Parallel()

	orig := &ParamDefinition{
		ParameterID:       1,
		ParameterRate:     1,
		Duration:          8,
		SubblockDurations: []uint32{4, 4},
		Params:            &MixGainParams{DefaultMixGain: 3},
	}
	c := orig.Clone()
	c.SubblockDurations[0] = 5
	c.Params.(*MixGainParams).DefaultMixGain = 4

	if orig.SubblockDurations[0] != 4 {
		t.Errorf("orig.SubblockDurations[0] = %d after clone mutation, want 4", orig.SubblockDurations[0])
	}
	if orig.Params.(*MixGainParams).DefaultMixGain != 3 {
		t.Error("clone shares its variant with the original")
	}
}

func TestParamDefinition_SubblockDuration(t *testing.T) {
	t.Parallel()

	d := &ParamDefinition{Duration: 10, ConstantSubblockDuration: 4}
	if d.NumSubblocks() != 3 {
		t.Fatalf("NumSubblocks() = %d, want 3", d.NumSubblocks())
	}
	for i, want := range []uint32{4, 4, 2} {
		got, err := d.SubblockDuration(i)
		if err != nil || got != want {
			t.Errorf("SubblockDuration(%d) = %d, %v, want %d, nil", i, got, err, want)
		}
	}
	if _, err := d.SubblockDuration(3); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("SubblockDuration(3) error = %v, want ErrInvalidArgument", err)
	}
}
