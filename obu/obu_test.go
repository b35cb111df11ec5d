// SPDX-License-Identifier: EPL-2.0

package obu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ik5/iamf/bitbuffer"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/label"
)

func serialize(t *testing.T, o OBU) []byte {
	t.Helper()

	data, err := Serialize(bitbuffer.NewLebGenerator(), o)
	if err != nil {
		t.Fatalf("Serialize(%T) error = %v", o, err)
	}
	return data
}

func TestSerialize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		obu  OBU
		want []byte
	}{
		{"temporal delimiter", TemporalDelimiter{}, []byte{0x20, 0x00}},
		{
			"sequence header",
			NewSequenceHeader(ProfileBase, ProfileBase),
			[]byte{0xf8, 0x06, 0x69, 0x61, 0x6d, 0x66, 0x01, 0x01},
		},
		{
			"audio frame with trim",
			NewAudioFrame(0, 2, 1, []byte{0xaa}),
			[]byte{0x32, 0x03, 0x01, 0x02, 0xaa},
		},
		{
			"audio frame with explicit id",
			NewAudioFrame(18, 0, 0, []byte{0xbb}),
			[]byte{0x28, 0x02, 0x12, 0xbb},
		},
		{
			"lpcm codec config",
			&CodecConfig{
				Header:             Header{Type: TypeCodecConfig},
				NumSamplesPerFrame: 64,
				DecoderConfig:      &LPCMDecoderConfig{LittleEndian: true, SampleSize: 16, SampleRate: 48000},
			},
			[]byte{
				0x00, 0x0e,
				0x00, 0x69, 0x70, 0x63, 0x6d, 0x40, 0x00, 0x00,
				0x01, 0x10, 0x00, 0x00, 0xbb, 0x80,
			},
		},
		{
			"opus codec config",
			&CodecConfig{
				Header:             Header{Type: TypeCodecConfig},
				ID:                 1,
				NumSamplesPerFrame: 960,
				AudioRollDistance:  -4,
				DecoderConfig:      &OpusDecoderConfig{Version: 1, PreSkip: 312, InputSampleRate: 48000},
			},
			[]byte{
				0x00, 0x14,
				0x01, 0x4f, 0x70, 0x75, 0x73, 0xc0, 0x07, 0xff, 0xfc,
				0x01, 0x02, 0x01, 0x38, 0x00, 0x00, 0xbb, 0x80, 0x00, 0x00, 0x00,
			},
		},
		{
			"stereo audio element",
			&AudioElement{
				Header:       Header{Type: TypeAudioElement},
				ID:           300,
				Type:         ChannelBased,
				SubstreamIDs: []uint32{0},
				ChannelLayout: &ScalableChannelLayout{Layers: []ChannelAudioLayer{{
					LoudspeakerLayout:     label.LayoutStereo,
					SubstreamCount:        1,
					CoupledSubstreamCount: 1,
				}}},
			},
			[]byte{0x08, 0x0b, 0xac, 0x02, 0x00, 0x00, 0x01, 0x00, 0x00, 0x20, 0x10, 0x01, 0x01},
		},
		{
			"demixing parameter block",
			&ParameterBlock{
				Header:                   Header{Type: TypeParameterBlock},
				ParameterID:              5,
				Duration:                 8,
				ConstantSubblockDuration: 8,
				Subblocks:                []ParameterSubblock{{Duration: 8, Data: &DemixingParameterData{DmixpMode: DMixPMode2}}},
			},
			[]byte{0x18, 0x02, 0x05, 0x20},
		},
		{
			"mix gain parameter block with explicit subblocks",
			&ParameterBlock{
				Header:      Header{Type: TypeParameterBlock},
				ParameterID: 1,
				Mode:        true,
				Duration:    8,
				Subblocks: []ParameterSubblock{
					{Duration: 3, Data: &MixGainParameterData{}},
					{Duration: 5, Data: &MixGainParameterData{}},
				},
			},
			[]byte{0x18, 0x0c, 0x01, 0x08, 0x00, 0x02, 0x03, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00},
		},
		{
			"recon gain parameter block",
			&ParameterBlock{
				Header:                   Header{Type: TypeParameterBlock},
				ParameterID:              7,
				Duration:                 8,
				ConstantSubblockDuration: 8,
				ReconGainIsPresent:       []bool{false, true},
				Subblocks: []ParameterSubblock{{Duration: 8, Data: &ReconGainParameterData{
					Layers: []ReconGainLayer{{}, {Flags: 0b101, Gains: []uint8{255, 128}}},
				}}},
			},
			[]byte{0x18, 0x04, 0x07, 0x05, 0xff, 0x80},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := serialize(t, tt.obu); !bytes.Equal(got, tt.want) {
				t.Errorf("Serialize() = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestSerialize_FixedSizeLeb(t *testing.T) {
	t.Parallel()

	leb, err := bitbuffer.NewFixedSizeLebGenerator(2)
	if err != nil {
		t.Fatalf("NewFixedSizeLebGenerator() error = %v", err)
	}
	got, err := Serialize(leb, TemporalDelimiter{})
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if want := []byte{0x20, 0x80, 0x00}; !bytes.Equal(got, want) {
		t.Errorf("Serialize() = % x, want % x", got, want)
	}
}

func TestReadHeader(t *testing.T) {
	t.Parallel()

	frame := NewAudioFrame(3, 2, 1, []byte{0xaa, 0xbb})
	frame.Header.ExtensionBytes = []byte{0x01, 0x02}
	data := serialize(t, frame)

	rb := bitbuffer.NewReadBitBuffer(1024, data)
	h, payloadSize, err := ReadHeader(rb)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}

	if h.Type != TypeAudioFrameID0+3 {
		t.Errorf("Type = %v, want AudioFrameID3", h.Type)
	}
	if !h.TrimmingStatus || h.NumSamplesToTrimAtStart != 2 || h.NumSamplesToTrimAtEnd != 1 {
		t.Errorf("trims = %v, %d, %d, want true, 2, 1", h.TrimmingStatus, h.NumSamplesToTrimAtStart, h.NumSamplesToTrimAtEnd)
	}
	if !bytes.Equal(h.ExtensionBytes, []byte{0x01, 0x02}) {
		t.Errorf("ExtensionBytes = % x, want 01 02", h.ExtensionBytes)
	}
	if payloadSize != 2 {
		t.Errorf("payload size = %d, want 2", payloadSize)
	}

	payload := make([]byte, payloadSize)
	if err := rb.ReadUint8Span(payload); err != nil {
		t.Fatalf("ReadUint8Span() error = %v", err)
	}
	if !bytes.Equal(payload, []byte{0xaa, 0xbb}) {
		t.Errorf("payload = % x, want aa bb", payload)
	}
}

func TestReadHeader_SizeTooSmall(t *testing.T) {
	t.Parallel()

	// Audio frame with trimming status and obu_size 1: only one trim fits.
	rb := bitbuffer.NewReadBitBuffer(1024, []byte{0x32, 0x01, 0x01, 0x02})
	if _, _, err := ReadHeader(rb); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("ReadHeader() error = %v, want ErrInvalidArgument", err)
	}
}

func TestReadSequenceHeader(t *testing.T) {
	t.Parallel()

	data := serialize(t, NewSequenceHeader(ProfileSimple, ProfileBase))
	rb := bitbuffer.NewReadBitBuffer(1024, data)
	h, _, err := ReadHeader(rb)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	sh, err := ReadSequenceHeader(h, rb)
	if err != nil {
		t.Fatalf("ReadSequenceHeader() error = %v", err)
	}
	if sh.PrimaryProfile != ProfileSimple || sh.AdditionalProfile != ProfileBase {
		t.Errorf("profiles = %v, %v, want simple, base", sh.PrimaryProfile, sh.AdditionalProfile)
	}

	bad := bitbuffer.NewReadBitBuffer(1024, []byte{0x69, 0x61, 0x6d, 0x67, 0x00, 0x00})
	if _, err := ReadSequenceHeader(h, bad); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("ReadSequenceHeader(bad code) error = %v, want ErrInvalidArgument", err)
	}
}

func TestHeader_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header Header
	}{
		{"trim on codec config", Header{Type: TypeCodecConfig, TrimmingStatus: true}},
		{"redundant temporal delimiter", Header{Type: TypeTemporalDelimiter, RedundantCopy: true}},
		{"redundant audio frame", Header{Type: TypeAudioFrameID0, RedundantCopy: true}},
		{"type too wide", Header{Type: 32}},
	}
	for _, tt := range tests {
		if err := tt.header.Validate(); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Errorf("%s: Validate() error = %v, want ErrInvalidArgument", tt.name, err)
		}
	}

	if err := (Header{Type: TypeMixPresentation, RedundantCopy: true}).Validate(); err != nil {
		t.Errorf("redundant mix presentation: Validate() error = %v", err)
	}
}

func TestType_String(t *testing.T) {
	t.Parallel()

	tests := map[Type]string{
		TypeCodecConfig:    "CodecConfig",
		TypeAudioFrame:     "AudioFrame",
		TypeAudioFrameID0:  "AudioFrameID0",
		TypeAudioFrameID17: "AudioFrameID17",
		TypeSequenceHeader: "SequenceHeader",
		24:                 "Reserved(24)",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("Type(%d).String() = %q, want %q", uint8(typ), got, want)
		}
	}
}

func TestAudioElement_Validate(t *testing.T) {
	t.Parallel()

	stereo := func() *AudioElement {
		return &AudioElement{
			ID:           1,
			Type:         ChannelBased,
			SubstreamIDs: []uint32{0},
			ChannelLayout: &ScalableChannelLayout{Layers: []ChannelAudioLayer{{
				LoudspeakerLayout: label.LayoutStereo, SubstreamCount: 1, CoupledSubstreamCount: 1,
			}}},
		}
	}

	if err := stereo().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(a *AudioElement)
	}{
		{"substream count mismatch", func(a *AudioElement) { a.SubstreamIDs = []uint32{0, 1} }},
		{"coupled above total", func(a *AudioElement) { a.ChannelLayout.Layers[0].CoupledSubstreamCount = 2 }},
		{"recon gain on first layer", func(a *AudioElement) { a.ChannelLayout.Layers[0].ReconGainIsPresent = true }},
		{"missing layout", func(a *AudioElement) { a.ChannelLayout = nil }},
		{"reserved type", func(a *AudioElement) { a.Type = 2 }},
	}
	for _, tt := range tests {
		a := stereo()
		tt.mutate(a)
		if err := a.Validate(); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Errorf("%s: Validate() error = %v, want ErrInvalidArgument", tt.name, err)
		}
	}
}

func TestAudioElement_ValidateAmbisonics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		amb     AmbisonicsMono
		ids     []uint32
		wantErr bool
	}{
		{"first order", AmbisonicsMono{4, 4, []uint8{0, 1, 2, 3}}, []uint32{0, 1, 2, 3}, false},
		{"dropped channel", AmbisonicsMono{4, 3, []uint8{0, 1, DroppedAmbisonicsChannel, 2}}, []uint32{0, 1, 2}, false},
		{"bad channel count", AmbisonicsMono{3, 3, []uint8{0, 1, 2}}, []uint32{0, 1, 2}, true},
		{"mapping out of range", AmbisonicsMono{4, 4, []uint8{0, 1, 2, 4}}, []uint32{0, 1, 2, 3}, true},
		{"unused substream", AmbisonicsMono{4, 4, []uint8{0, 1, 2, 2}}, []uint32{0, 1, 2, 3}, true},
	}

	for _, tt := range tests {
		a := &AudioElement{ID: 1, Type: SceneBased, SubstreamIDs: tt.ids, Ambisonics: &tt.amb}
		err := a.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestAudioElement_RejectsMixGainParam(t *testing.T) {
	t.Parallel()

	a := &AudioElement{
		Header:       Header{Type: TypeAudioElement},
		ID:           1,
		Type:         SceneBased,
		SubstreamIDs: []uint32{0},
		Ambisonics:   &AmbisonicsMono{1, 1, []uint8{0}},
		Params: []AudioElementParam{{
			Type:       ParamMixGain,
			Definition: mixGainDefinition(1, 0),
		}},
	}
	if _, err := Serialize(bitbuffer.NewLebGenerator(), a); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("Serialize() error = %v, want ErrInvalidArgument", err)
	}
}

func validMixPresentation() *MixPresentation {
	return &MixPresentation{
		Header: Header{Type: TypeMixPresentation},
		ID:     42,
		SubMixes: []SubMix{{
			AudioElements: []SubMixAudioElement{{
				AudioElementID: 1,
				ElementMixGain: *mixGainDefinition(100, 0),
			}},
			OutputMixGain: *mixGainDefinition(100, 0),
			Layouts: []MixLayout{{
				Layout:   PlaybackLayout{Type: LayoutTypeLoudspeakersSSConvention, SoundSystem: SoundSystemA_0_2_0},
				Loudness: LoudnessInfo{InfoType: LoudnessTruePeak | LoudnessAnchored, Anchored: []AnchoredLoudness{{1, -2}}},
			}},
		}},
	}
}

func TestMixPresentation_Serialize(t *testing.T) {
	t.Parallel()

	data := serialize(t, validMixPresentation())
	if data[0] != 0x10 {
		t.Errorf("first byte = %#x, want 0x10", data[0])
	}

	rb := bitbuffer.NewReadBitBuffer(4096, data)
	h, size, err := ReadHeader(rb)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if h.Type != TypeMixPresentation || int(size) != len(data)-2 {
		t.Errorf("ReadHeader() = %v, %d, want MixPresentation, %d", h.Type, size, len(data)-2)
	}
}

func TestMixPresentation_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(m *MixPresentation)
	}{
		{"no stereo layout", func(m *MixPresentation) {
			m.SubMixes[0].Layouts[0].Layout.SoundSystem = SoundSystemB_0_5_0
		}},
		{"annotation mismatch", func(m *MixPresentation) { m.AnnotationsLanguage = []string{"en-us"} }},
		{"no sub mixes", func(m *MixPresentation) { m.SubMixes = nil }},
		{"element gain of wrong type", func(m *MixPresentation) {
			m.SubMixes[0].AudioElements[0].ElementMixGain.Params = &DemixingParams{}
		}},
	}
	for _, tt := range tests {
		m := validMixPresentation()
		tt.mutate(m)
		if err := m.Validate(); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Errorf("%s: Validate() error = %v, want ErrInvalidArgument", tt.name, err)
		}
	}

	if got := len(validMixPresentation().MixGainDefinitions()); got != 2 {
		t.Errorf("MixGainDefinitions() returned %d definitions, want 2", got)
	}
}

func TestParameterBlock_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		block *ParameterBlock
	}{
		{"no subblocks", &ParameterBlock{Duration: 8, ConstantSubblockDuration: 8}},
		{"wrong constant count", &ParameterBlock{
			Duration: 8, ConstantSubblockDuration: 4,
			Subblocks: []ParameterSubblock{{Duration: 4, Data: &MixGainParameterData{}}},
		}},
		{"explicit sum mismatch", &ParameterBlock{
			Duration:  8,
			Subblocks: []ParameterSubblock{{Duration: 4, Data: &MixGainParameterData{}}},
		}},
		{"mixed data types", &ParameterBlock{
			Duration: 8, ConstantSubblockDuration: 4,
			Subblocks: []ParameterSubblock{
				{Duration: 4, Data: &MixGainParameterData{}},
				{Duration: 4, Data: &DemixingParameterData{}},
			},
		}},
	}
	for _, tt := range tests {
		if err := tt.block.Validate(); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Errorf("%s: Validate() error = %v, want ErrInvalidArgument", tt.name, err)
		}
	}
}

func TestParameterBlock_ReconGainCountMismatch(t *testing.T) {
	t.Parallel()

	block := &ParameterBlock{
		Header:                   Header{Type: TypeParameterBlock},
		ParameterID:              7,
		Duration:                 8,
		ConstantSubblockDuration: 8,
		ReconGainIsPresent:       []bool{false, true},
		Subblocks: []ParameterSubblock{{Duration: 8, Data: &ReconGainParameterData{
			Layers: []ReconGainLayer{{}, {Flags: 0b111, Gains: []uint8{1}}},
		}}},
	}
	if _, err := Serialize(bitbuffer.NewLebGenerator(), block); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("Serialize() error = %v, want ErrInvalidArgument", err)
	}
}
