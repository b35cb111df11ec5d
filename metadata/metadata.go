// SPDX-License-Identifier: EPL-2.0

// Package metadata loads the YAML document describing an IA sequence: its
// descriptors, the trims of every audio element, where to read their
// samples from and the parameter blocks to interleave with the audio.
package metadata

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/ik5/iamf/errs"
)

// UserMetadata is the root of the document.
type UserMetadata struct {
	SequenceHeader   SequenceHeader    `yaml:"ia_sequence_header"`
	CodecConfigs     []CodecConfig     `yaml:"codec_configs"`
	AudioElements    []AudioElement    `yaml:"audio_elements"`
	MixPresentations []MixPresentation `yaml:"mix_presentations"`
	ParameterBlocks  []ParameterBlock  `yaml:"parameter_blocks"`
}

// SequenceHeader names the profiles of the sequence: "simple", "base" or
// "base-enhanced".
type SequenceHeader struct {
	PrimaryProfile    string `yaml:"primary_profile"`
	AdditionalProfile string `yaml:"additional_profile"`
}

// CodecConfig describes one codec config. Codec selects which of Opus,
// LPCM and FLAC is read.
type CodecConfig struct {
	ID                 uint32      `yaml:"codec_config_id"`
	Codec              string      `yaml:"codec"`
	NumSamplesPerFrame uint32      `yaml:"num_samples_per_frame"`
	AudioRollDistance  int16       `yaml:"audio_roll_distance"`
	Opus               *OpusConfig `yaml:"opus"`
	LPCM               *LPCMConfig `yaml:"lpcm"`
	FLAC               *FLACConfig `yaml:"flac"`
}

type OpusConfig struct {
	Version         uint8  `yaml:"version"`
	PreSkip         uint16 `yaml:"pre_skip"`
	InputSampleRate uint32 `yaml:"input_sample_rate"`
	// Bitrate of each substream in bits per second; not part of the
	// bitstream.
	Bitrate int `yaml:"bitrate"`
}

type LPCMConfig struct {
	SampleSize   uint8  `yaml:"sample_size"`
	SampleRate   uint32 `yaml:"sample_rate"`
	LittleEndian bool   `yaml:"little_endian"`
}

type FLACConfig struct {
	SampleRate    uint32 `yaml:"sample_rate"`
	BitsPerSample uint8  `yaml:"bits_per_sample"`
	TotalSamples  uint64 `yaml:"total_samples"`
}

// AudioElement describes one audio element and its input. Type is
// "channel_based" or "scene_based".
type AudioElement struct {
	ID            uint32   `yaml:"audio_element_id"`
	Type          string   `yaml:"type"`
	CodecConfigID uint32   `yaml:"codec_config_id"`
	SubstreamIDs  []uint32 `yaml:"substream_ids"`

	SamplesToTrimAtStart uint32 `yaml:"samples_to_trim_at_start"`
	SamplesToTrimAtEnd   uint32 `yaml:"samples_to_trim_at_end"`

	// InputFile holds the samples of the element's input labels, one
	// channel per label.
	InputFile string `yaml:"input_file"`

	Layers     []ChannelLayer           `yaml:"layers"`
	Ambisonics *Ambisonics              `yaml:"ambisonics"`
	Demixing   *DemixingParamDefinition `yaml:"demixing"`
	ReconGain  *ParamDefinition         `yaml:"recon_gain"`
}

// ChannelLayer is one scalable layer. Its substream counts follow from the
// layouts of the layer and the one below it.
type ChannelLayer struct {
	LoudspeakerLayout  string      `yaml:"loudspeaker_layout"`
	ReconGainIsPresent bool        `yaml:"recon_gain_is_present"`
	OutputGain         *OutputGain `yaml:"output_gain"`
}

type OutputGain struct {
	Flags uint8 `yaml:"flags"`
	Gain  int16 `yaml:"gain"`
}

// Ambisonics maps each ambisonics channel to a substream index, or to 255
// when the channel is dropped.
type Ambisonics struct {
	OutputChannelCount uint8   `yaml:"output_channel_count"`
	ChannelMapping     []uint8 `yaml:"channel_mapping"`
}

// ParamDefinition holds the fields common to every param definition.
type ParamDefinition struct {
	ParameterID              uint32   `yaml:"parameter_id"`
	ParameterRate            uint32   `yaml:"parameter_rate"`
	Mode                     bool     `yaml:"param_definition_mode"`
	Duration                 uint32   `yaml:"duration"`
	ConstantSubblockDuration uint32   `yaml:"constant_subblock_duration"`
	SubblockDurations        []uint32 `yaml:"subblock_durations"`
}

type DemixingParamDefinition struct {
	ParamDefinition `yaml:",inline"`
	DmixpMode       uint8 `yaml:"dmixp_mode"`
	DefaultW        uint8 `yaml:"default_w"`
}

type MixGainParamDefinition struct {
	ParamDefinition `yaml:",inline"`
	DefaultMixGain  int16 `yaml:"default_mix_gain"`
}

type MixPresentation struct {
	ID                               uint32   `yaml:"mix_presentation_id"`
	AnnotationsLanguage              []string `yaml:"annotations_language"`
	LocalizedPresentationAnnotations []string `yaml:"localized_presentation_annotations"`
	SubMixes                         []SubMix `yaml:"sub_mixes"`
}

type SubMix struct {
	AudioElements []SubMixAudioElement   `yaml:"audio_elements"`
	OutputMixGain MixGainParamDefinition `yaml:"output_mix_gain"`
	Layouts       []Layout               `yaml:"layouts"`
}

type SubMixAudioElement struct {
	AudioElementID              uint32                 `yaml:"audio_element_id"`
	LocalizedElementAnnotations []string               `yaml:"localized_element_annotations"`
	HeadphonesRenderingMode     uint8                  `yaml:"headphones_rendering_mode"`
	ElementMixGain              MixGainParamDefinition `yaml:"element_mix_gain"`
}

// Layout is a playback layout: binaural, or a loudspeaker sound system
// named like "0+2+0" or "7.1.2".
type Layout struct {
	SoundSystem string   `yaml:"sound_system"`
	Binaural    bool     `yaml:"binaural"`
	Loudness    Loudness `yaml:"loudness"`
}

// Loudness values are Q7.8 LKFS and dBTP.
type Loudness struct {
	IntegratedLoudness int16  `yaml:"integrated_loudness"`
	DigitalPeak        int16  `yaml:"digital_peak"`
	TruePeak           *int16 `yaml:"true_peak"`
}

// ParameterBlock describes one parameter block. The timing fields are only
// read when its definition sets param_definition_mode.
type ParameterBlock struct {
	ParameterID              uint32     `yaml:"parameter_id"`
	StartTimestamp           int64      `yaml:"start_timestamp"`
	Duration                 uint32     `yaml:"duration"`
	ConstantSubblockDuration uint32     `yaml:"constant_subblock_duration"`
	Subblocks                []Subblock `yaml:"subblocks"`
}

// Subblock carries exactly one of its data fields.
type Subblock struct {
	Duration  uint32     `yaml:"duration"`
	MixGain   *MixGain   `yaml:"mix_gain"`
	Demixing  *Demixing  `yaml:"demixing"`
	ReconGain *ReconGain `yaml:"recon_gain"`
}

// MixGain animates a gain; Animation is "step", "linear" or "bezier".
type MixGain struct {
	Animation           string `yaml:"animation"`
	Start               int16  `yaml:"start"`
	End                 int16  `yaml:"end"`
	Control             int16  `yaml:"control"`
	ControlRelativeTime uint8  `yaml:"control_relative_time"`
}

type Demixing struct {
	DmixpMode uint8 `yaml:"dmixp_mode"`
}

type ReconGain struct {
	Layers []ReconGainLayer `yaml:"layers"`
}

type ReconGainLayer struct {
	Flags uint32  `yaml:"flags"`
	Gains []uint8 `yaml:"gains"`
}

// Load decodes and validates a document. Unknown fields are rejected.
func Load(r io.Reader) (*UserMetadata, error) {
	var u UserMetadata
	if err := yaml.NewDecoder(r, yaml.DisallowUnknownField()).Decode(&u); err != nil {
		return nil, fmt.Errorf("%w: decoding metadata: %s", errs.ErrInvalidArgument, yaml.FormatError(err, false, true))
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return &u, nil
}

// LoadFile is Load on the file at path.
func LoadFile(path string) (*UserMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Load(f)
}

// Validate checks the references between the parts of the document.
func (u *UserMetadata) Validate() error {
	if len(u.CodecConfigs) == 0 {
		return errs.InvalidArgumentf("at least one codec config is required")
	}
	if len(u.AudioElements) == 0 {
		return errs.InvalidArgumentf("at least one audio element is required")
	}
	if len(u.MixPresentations) == 0 {
		return errs.InvalidArgumentf("at least one mix presentation is required")
	}

	codecConfigs := make(map[uint32]bool, len(u.CodecConfigs))
	for _, cc := range u.CodecConfigs {
		if codecConfigs[cc.ID] {
			return errs.InvalidArgumentf("codec_config_id %d is used twice", cc.ID)
		}
		codecConfigs[cc.ID] = true
	}

	elements := make(map[uint32]bool, len(u.AudioElements))
	substreams := make(map[uint32]bool)
	for _, ae := range u.AudioElements {
		if elements[ae.ID] {
			return errs.InvalidArgumentf("audio_element_id %d is used twice", ae.ID)
		}
		elements[ae.ID] = true
		if !codecConfigs[ae.CodecConfigID] {
			return errs.InvalidArgumentf("audio element %d refers to unknown codec config %d", ae.ID, ae.CodecConfigID)
		}
		for _, id := range ae.SubstreamIDs {
			if substreams[id] {
				return errs.InvalidArgumentf("substream_id %d is used twice", id)
			}
			substreams[id] = true
		}
	}

	mixes := make(map[uint32]bool, len(u.MixPresentations))
	for _, mp := range u.MixPresentations {
		if mixes[mp.ID] {
			return errs.InvalidArgumentf("mix_presentation_id %d is used twice", mp.ID)
		}
		mixes[mp.ID] = true
		for _, sm := range mp.SubMixes {
			for _, e := range sm.AudioElements {
				if !elements[e.AudioElementID] {
					return errs.InvalidArgumentf("mix presentation %d refers to unknown audio element %d", mp.ID, e.AudioElementID)
				}
			}
		}
	}

	type blockStart struct {
		id    uint32
		start int64
	}
	starts := make(map[blockStart]int, len(u.ParameterBlocks))
	for i, pb := range u.ParameterBlocks {
		key := blockStart{pb.ParameterID, pb.StartTimestamp}
		if j, ok := starts[key]; ok {
			return errs.InvalidArgumentf("parameter blocks %d and %d of parameter %d both start at %d", j, i, pb.ParameterID, pb.StartTimestamp)
		}
		starts[key] = i
		for j, sb := range pb.Subblocks {
			n := 0
			for _, set := range []bool{sb.MixGain != nil, sb.Demixing != nil, sb.ReconGain != nil} {
				if set {
					n++
				}
			}
			if n != 1 {
				return errs.InvalidArgumentf("parameter block %d subblock %d sets %d data fields, want 1", i, j, n)
			}
		}
	}
	return nil
}
