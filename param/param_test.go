// SPDX-License-Identifier: EPL-2.0

package param

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ik5/iamf/demix"
	"github.com/ik5/iamf/element"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/label"
	"github.com/ik5/iamf/obu"
	"github.com/ik5/iamf/timing"
)

const (
	audioElementID = 300
	parameterID    = 99999
	parameterRate  = 48000
)

func mixGainDefinition(id uint32, defaultGain int16) *obu.ParamDefinition {
	return &obu.ParamDefinition{
		ParameterID:   id,
		ParameterRate: parameterRate,
		Mode:          true,
		Params:        &obu.MixGainParams{DefaultMixGain: defaultGain},
	}
}

func demixingDefinition(id uint32) *obu.ParamDefinition {
	return &obu.ParamDefinition{
		ParameterID:              id,
		ParameterRate:            parameterRate,
		Duration:                 8,
		ConstantSubblockDuration: 8,
		Params:                   &obu.DemixingParams{DmixpMode: obu.DMixPMode1, DefaultW: 3},
	}
}

func reconGainDefinition(id, aeID uint32) *obu.ParamDefinition {
	return &obu.ParamDefinition{
		ParameterID:              id,
		ParameterRate:            parameterRate,
		Duration:                 8,
		ConstantSubblockDuration: 8,
		Params:                   &obu.ReconGainParams{AudioElementID: aeID},
	}
}

func mixPresentation(elementGain, outputGain *obu.ParamDefinition) *obu.MixPresentation {
	return &obu.MixPresentation{
		ID: 42,
		SubMixes: []obu.SubMix{{
			AudioElements: []obu.SubMixAudioElement{{
				AudioElementID: audioElementID,
				ElementMixGain: *elementGain,
			}},
			OutputMixGain: *outputGain,
		}},
	}
}

// monoStereoElement has a mono base layer and a stereo layer with recon
// gain.
func monoStereoElement(t *testing.T, params ...obu.AudioElementParam) map[uint32]*element.WithData {
	t.Helper()

	ae := &obu.AudioElement{
		ID:            audioElementID,
		Type:          obu.ChannelBased,
		CodecConfigID: 1,
		SubstreamIDs:  []uint32{31, 32},
		Params:        params,
		ChannelLayout: &obu.ScalableChannelLayout{Layers: []obu.ChannelAudioLayer{
			{LoudspeakerLayout: label.LayoutMono, SubstreamCount: 1},
			{LoudspeakerLayout: label.LayoutStereo, SubstreamCount: 1, ReconGainIsPresent: true},
		}},
	}
	cc := &obu.CodecConfig{
		ID:                 1,
		NumSamplesPerFrame: 8,
		DecoderConfig:      &obu.LPCMDecoderConfig{SampleSize: 16, SampleRate: 48000},
	}
	w, err := element.New(ae, cc)
	if err != nil {
		t.Fatalf("element.New() error = %v", err)
	}
	return map[uint32]*element.WithData{audioElementID: w}
}

func TestCollectAndValidateParamDefinitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  []obu.AudioElementParam
		mixes   []*obu.MixPresentation
		wantIDs []uint32
		wantErr error
	}{
		{
			name:    "identical shared mix gains",
			mixes:   []*obu.MixPresentation{mixPresentation(mixGainDefinition(parameterID, 0), mixGainDefinition(parameterID, 0))},
			wantIDs: []uint32{parameterID},
		},
		{
			name:    "different shared mix gains",
			mixes:   []*obu.MixPresentation{mixPresentation(mixGainDefinition(parameterID, 0), mixGainDefinition(parameterID, 1))},
			wantErr: errs.ErrInvalidArgument,
		},
		{
			name:    "mix gain in audio element",
			params:  []obu.AudioElementParam{{Type: obu.ParamMixGain, Definition: mixGainDefinition(parameterID, 0)}},
			wantErr: errs.ErrInvalidArgument,
		},
		{
			name: "extension definitions are skipped",
			params: []obu.AudioElementParam{{
				Type:       obu.ParamReservedStart,
				Definition: &obu.ParamDefinition{Params: &obu.ExtensionParams{ParamType: obu.ParamReservedStart}},
			}},
			wantIDs: []uint32{},
		},
		{
			name: "audio element and mix presentation",
			params: []obu.AudioElementParam{
				{Type: obu.ParamDemixing, Definition: demixingDefinition(1)},
				{Type: obu.ParamReconGain, Definition: reconGainDefinition(2, audioElementID)},
			},
			mixes:   []*obu.MixPresentation{mixPresentation(mixGainDefinition(3, 0), mixGainDefinition(4, 0))},
			wantIDs: []uint32{1, 2, 3, 4},
		},
		{
			name:    "recon gain of another audio element",
			params:  []obu.AudioElementParam{{Type: obu.ParamReconGain, Definition: reconGainDefinition(2, 7)}},
			wantErr: errs.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := CollectAndValidateParamDefinitions(monoStereoElement(t, tt.params...), tt.mixes)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CollectAndValidateParamDefinitions() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(got) != len(tt.wantIDs) {
				t.Errorf("CollectAndValidateParamDefinitions() returned %d definitions, want %d", len(got), len(tt.wantIDs))
			}
			for _, id := range tt.wantIDs {
				if _, ok := got[id]; !ok {
					t.Errorf("parameter %d is missing", id)
				}
			}
		})
	}
}

func TestGenerateParamIDToMetadataMap(t *testing.T) {
	t.Parallel()

	elements := monoStereoElement(t)

	mixGain := mixGainDefinition(parameterID, 0)
	got, err := GenerateParamIDToMetadataMap(map[uint32]*obu.ParamDefinition{parameterID: mixGain}, nil)
	if err != nil {
		t.Fatalf("GenerateParamIDToMetadataMap(mix gain) error = %v", err)
	}
	if len(got) != 1 || got[parameterID].Definition != mixGain {
		t.Errorf("GenerateParamIDToMetadataMap(mix gain) = %v, want one entry holding the definition", got)
	}

	reconGain := reconGainDefinition(parameterID, audioElementID)
	got, err = GenerateParamIDToMetadataMap(map[uint32]*obu.ParamDefinition{parameterID: reconGain}, elements)
	if err != nil {
		t.Fatalf("GenerateParamIDToMetadataMap(recon gain) error = %v", err)
	}
	want := &Metadata{
		Definition:              reconGain,
		AudioElementID:          audioElementID,
		NumLayers:               2,
		ReconGainIsPresent:      []bool{false, true},
		ChannelNumbersForLayers: []label.ChannelNumbers{{Surround: 1}, {Surround: 2}},
	}
	if !reflect.DeepEqual(got[parameterID], want) {
		t.Errorf("GenerateParamIDToMetadataMap(recon gain) = %+v, want %+v", got[parameterID], want)
	}

	orphan := reconGainDefinition(parameterID, audioElementID+1)
	if _, err := GenerateParamIDToMetadataMap(map[uint32]*obu.ParamDefinition{parameterID: orphan}, elements); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("GenerateParamIDToMetadataMap(unknown audio element) error = %v, want ErrNotFound", err)
	}
}

func blockGenerator(t *testing.T) *BlockGenerator {
	t.Helper()

	elements := monoStereoElement(t)
	defs := map[uint32]*obu.ParamDefinition{
		1: demixingDefinition(1),
		2: reconGainDefinition(2, audioElementID),
		3: mixGainDefinition(3, 0),
	}
	dir, err := GenerateParamIDToMetadataMap(defs, elements)
	if err != nil {
		t.Fatalf("GenerateParamIDToMetadataMap() error = %v", err)
	}
	g, err := NewBlockGenerator(dir, timing.New())
	if err != nil {
		t.Fatalf("NewBlockGenerator() error = %v", err)
	}
	return g
}

func demixing(mode obu.DMixPMode) []obu.ParameterSubblock {
	return []obu.ParameterSubblock{{Data: &obu.DemixingParameterData{DmixpMode: mode}}}
}

func TestBlockGenerator_Generate(t *testing.T) {
	t.Parallel()

	g := blockGenerator(t)

	b, err := g.Generate(BlockMetadata{ParameterID: 1, Subblocks: demixing(obu.DMixPMode2)})
	if err != nil {
		t.Fatalf("Generate(demixing) error = %v", err)
	}
	if b.StartTimestamp != 0 || b.EndTimestamp != 8 || b.Obu.Duration != 8 || b.Obu.Subblocks[0].Duration != 8 {
		t.Errorf("Generate(demixing) = [%d, %d) duration %d, want [0, 8) duration 8", b.StartTimestamp, b.EndTimestamp, b.Obu.Duration)
	}
	if b.Type() != obu.ParamDemixing {
		t.Errorf("Type() = %s, want demixing", b.Type())
	}

	mg, err := g.Generate(BlockMetadata{
		ParameterID:              3,
		Duration:                 10,
		ConstantSubblockDuration: 4,
		Subblocks: []obu.ParameterSubblock{
			{Data: &obu.MixGainParameterData{Start: 1}},
			{Data: &obu.MixGainParameterData{Start: 2}},
			{Data: &obu.MixGainParameterData{Start: 3}},
		},
	})
	if err != nil {
		t.Fatalf("Generate(mix gain) error = %v", err)
	}
	var durations []uint32
	for _, sb := range mg.Obu.Subblocks {
		durations = append(durations, sb.Duration)
	}
	if !reflect.DeepEqual(durations, []uint32{4, 4, 2}) {
		t.Errorf("mix gain subblock durations = %v, want [4 4 2]", durations)
	}

	rg, err := g.Generate(BlockMetadata{
		ParameterID: 2,
		Subblocks: []obu.ParameterSubblock{{Data: &obu.ReconGainParameterData{
			Layers: []obu.ReconGainLayer{{}, {Flags: 1, Gains: []uint8{255}}},
		}}},
	})
	if err != nil {
		t.Fatalf("Generate(recon gain) error = %v", err)
	}
	if !reflect.DeepEqual(rg.Obu.ReconGainIsPresent, []bool{false, true}) {
		t.Errorf("ReconGainIsPresent = %v, want [false true]", rg.Obu.ReconGainIsPresent)
	}
}

func TestBlockGenerator_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		md      BlockMetadata
		wantErr error
	}{
		{"unknown parameter", BlockMetadata{ParameterID: 77, Subblocks: demixing(obu.DMixPMode1)}, errs.ErrNotFound},
		{"wrong data type", BlockMetadata{
			ParameterID: 1,
			Subblocks:   []obu.ParameterSubblock{{Data: &obu.MixGainParameterData{}}},
		}, errs.ErrInvalidArgument},
		{"reserved mode", BlockMetadata{ParameterID: 1, Subblocks: demixing(obu.DMixPModeRes1)}, errs.ErrInvalidArgument},
		{"too many subblocks", BlockMetadata{
			ParameterID: 1,
			Subblocks:   append(demixing(obu.DMixPMode1), demixing(obu.DMixPMode1)...),
		}, errs.ErrInvalidArgument},
		{"duration differs from definition", BlockMetadata{ParameterID: 1, Duration: 4, Subblocks: demixing(obu.DMixPMode1)}, errs.ErrInvalidArgument},
		{"recon gain layer count", BlockMetadata{
			ParameterID: 2,
			Subblocks:   []obu.ParameterSubblock{{Data: &obu.ReconGainParameterData{Layers: []obu.ReconGainLayer{{}}}}},
		}, errs.ErrInvalidArgument},
		{"not contiguous", BlockMetadata{ParameterID: 1, StartTimestamp: 8, Subblocks: demixing(obu.DMixPMode1)}, errs.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := blockGenerator(t).Generate(tt.md); !errors.Is(err, tt.wantErr) {
				t.Errorf("Generate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func coefficients(t *testing.T, mode obu.DMixPMode, w int) demix.Coefficients {
	t.Helper()

	c, err := demix.NewCoefficients(mode, w)
	if err != nil {
		t.Fatalf("NewCoefficients() error = %v", err)
	}
	return c
}

func TestManager(t *testing.T) {
	t.Parallel()

	elements := monoStereoElement(t, obu.AudioElementParam{Type: obu.ParamDemixing, Definition: demixingDefinition(1)})
	m, err := NewManager(elements)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	block := &BlockWithData{
		Obu: &obu.ParameterBlock{
			ParameterID: 1,
			Subblocks: []obu.ParameterSubblock{
				{Duration: 8, Data: &obu.DemixingParameterData{DmixpMode: obu.DMixPMode1N}},
			},
		},
		StartTimestamp: 0,
		EndTimestamp:   8,
	}
	if err := m.AddDemixingBlock(block); err != nil {
		t.Fatalf("AddDemixingBlock() error = %v", err)
	}

	steps := []struct {
		timestamp int64
		want      demix.Coefficients
	}{
		{0, coefficients(t, obu.DMixPMode1N, 1)},
		{4, coefficients(t, obu.DMixPMode1N, 2)},
		{8, coefficients(t, obu.DMixPMode1, 3)},
		{12, coefficients(t, obu.DMixPMode1, 3)},
	}
	for _, s := range steps {
		got, err := m.DemixingCoefficients(audioElementID, s.timestamp)
		if err != nil {
			t.Fatalf("DemixingCoefficients(%d) error = %v", s.timestamp, err)
		}
		if got != s.want {
			t.Errorf("DemixingCoefficients(%d) = %+v, want %+v", s.timestamp, got, s.want)
		}
		if err := m.UpdateDemixingState(audioElementID, s.timestamp); err != nil {
			t.Fatalf("UpdateDemixingState(%d) error = %v", s.timestamp, err)
		}
	}

	if got, _ := m.DemixingCoefficients(5, 0); got != coefficients(t, obu.DMixPMode1, 0) {
		t.Errorf("DemixingCoefficients(no definition) = %+v, want the first mode", got)
	}

	block.Obu.ParameterID = 2
	if err := m.AddDemixingBlock(block); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("AddDemixingBlock(unknown parameter) error = %v, want ErrNotFound", err)
	}
}
