// SPDX-License-Identifier: EPL-2.0

package metadata

import (
	"fmt"
	"slices"

	"github.com/ik5/iamf/audioframe"
	"github.com/ik5/iamf/element"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/label"
	"github.com/ik5/iamf/obu"
	"github.com/ik5/iamf/param"
	"github.com/ik5/iamf/render"
)

var profiles = map[string]obu.Profile{
	"simple":        obu.ProfileSimple,
	"base":          obu.ProfileBase,
	"base-enhanced": obu.ProfileBaseEnhanced,
}

func parseProfile(s string, fallback obu.Profile) (obu.Profile, error) {
	if s == "" {
		return fallback, nil
	}
	return errs.LookupInMap(profiles, s, "Profile for name")
}

// SequenceHeaderOBU returns the IA sequence header. The primary profile
// defaults to simple and the additional profile to base.
func (u *UserMetadata) SequenceHeaderOBU() (*obu.SequenceHeader, error) {
	primary, err := parseProfile(u.SequenceHeader.PrimaryProfile, obu.ProfileSimple)
	if err != nil {
		return nil, err
	}
	additional, err := parseProfile(u.SequenceHeader.AdditionalProfile, max(primary, obu.ProfileBase))
	if err != nil {
		return nil, err
	}

	sh := obu.NewSequenceHeader(primary, additional)
	if err := sh.Validate(); err != nil {
		return nil, err
	}
	return sh, nil
}

// OBU converts c to a codec config OBU.
func (c CodecConfig) OBU() (*obu.CodecConfig, error) {
	cc := &obu.CodecConfig{
		Header:             obu.Header{Type: obu.TypeCodecConfig},
		ID:                 c.ID,
		NumSamplesPerFrame: c.NumSamplesPerFrame,
		AudioRollDistance:  c.AudioRollDistance,
	}

	switch c.Codec {
	case "opus":
		if c.Opus == nil {
			return nil, errs.InvalidArgumentf("codec config %d: codec opus needs an opus section", c.ID)
		}
		cc.DecoderConfig = &obu.OpusDecoderConfig{
			Version:         c.Opus.Version,
			PreSkip:         c.Opus.PreSkip,
			InputSampleRate: c.Opus.InputSampleRate,
		}
	case "lpcm":
		if c.LPCM == nil {
			return nil, errs.InvalidArgumentf("codec config %d: codec lpcm needs an lpcm section", c.ID)
		}
		cc.DecoderConfig = &obu.LPCMDecoderConfig{
			LittleEndian: c.LPCM.LittleEndian,
			SampleSize:   c.LPCM.SampleSize,
			SampleRate:   c.LPCM.SampleRate,
		}
	case "flac":
		if c.FLAC == nil {
			return nil, errs.InvalidArgumentf("codec config %d: codec flac needs a flac section", c.ID)
		}
		cc.DecoderConfig = &obu.FLACDecoderConfig{
			SampleRate:    c.FLAC.SampleRate,
			BitsPerSample: c.FLAC.BitsPerSample,
			TotalSamples:  c.FLAC.TotalSamples,
		}
	default:
		return nil, errs.Unimplementedf("codec config %d: codec %q is not supported", c.ID, c.Codec)
	}

	if err := cc.Validate(); err != nil {
		return nil, err
	}
	return cc, nil
}

// CodecConfigOBUs converts every codec config, keyed by ID.
func (u *UserMetadata) CodecConfigOBUs() (map[uint32]*obu.CodecConfig, error) {
	out := make(map[uint32]*obu.CodecConfig, len(u.CodecConfigs))
	for _, c := range u.CodecConfigs {
		cc, err := c.OBU()
		if err != nil {
			return nil, err
		}
		out[c.ID] = cc
	}
	return out, nil
}

// OpusBitrate returns the first bitrate set by an opus codec config.
func (u *UserMetadata) OpusBitrate() int {
	for _, c := range u.CodecConfigs {
		if c.Opus != nil && c.Opus.Bitrate > 0 {
			return c.Opus.Bitrate
		}
	}
	return 0
}

func (p ParamDefinition) definition(v obu.ParamVariant) *obu.ParamDefinition {
	return &obu.ParamDefinition{
		ParameterID:              p.ParameterID,
		ParameterRate:            p.ParameterRate,
		Mode:                     p.Mode,
		Duration:                 p.Duration,
		ConstantSubblockDuration: p.ConstantSubblockDuration,
		SubblockDurations:        slices.Clone(p.SubblockDurations),
		Params:                   v,
	}
}

// OBU converts a to an audio element OBU. Substream counts of each layer
// are derived from its layout and the layout below it.
func (a AudioElement) OBU() (*obu.AudioElement, error) {
	ae := &obu.AudioElement{
		Header:        obu.Header{Type: obu.TypeAudioElement},
		ID:            a.ID,
		CodecConfigID: a.CodecConfigID,
		SubstreamIDs:  slices.Clone(a.SubstreamIDs),
	}

	switch a.Type {
	case "channel_based", "":
		ae.Type = obu.ChannelBased
		layers, err := a.channelLayers()
		if err != nil {
			return nil, err
		}
		ae.ChannelLayout = &obu.ScalableChannelLayout{Layers: layers}
	case "scene_based":
		ae.Type = obu.SceneBased
		if a.Ambisonics == nil {
			return nil, errs.InvalidArgumentf("audio element %d: scene_based needs an ambisonics section", a.ID)
		}
		ae.Ambisonics = &obu.AmbisonicsMono{
			OutputChannelCount: a.Ambisonics.OutputChannelCount,
			SubstreamCount:     uint8(len(a.SubstreamIDs)),
			ChannelMapping:     slices.Clone(a.Ambisonics.ChannelMapping),
		}
	default:
		return nil, errs.InvalidArgumentf("audio element %d: unknown type %q", a.ID, a.Type)
	}

	if a.Demixing != nil {
		ae.Params = append(ae.Params, obu.AudioElementParam{
			Type: obu.ParamDemixing,
			Definition: a.Demixing.definition(&obu.DemixingParams{
				DmixpMode: obu.DMixPMode(a.Demixing.DmixpMode),
				DefaultW:  a.Demixing.DefaultW,
			}),
		})
	}
	if a.ReconGain != nil {
		ae.Params = append(ae.Params, obu.AudioElementParam{
			Type:       obu.ParamReconGain,
			Definition: a.ReconGain.definition(&obu.ReconGainParams{AudioElementID: a.ID}),
		})
	}
	for _, p := range ae.Params {
		if err := p.Definition.Validate(); err != nil {
			return nil, fmt.Errorf("audio element %d: %w", a.ID, err)
		}
	}

	if err := ae.Validate(); err != nil {
		return nil, err
	}
	return ae, nil
}

func (a AudioElement) channelLayers() ([]obu.ChannelAudioLayer, error) {
	if len(a.Layers) == 0 {
		return nil, errs.InvalidArgumentf("audio element %d: channel_based needs layers", a.ID)
	}

	layers := make([]obu.ChannelAudioLayer, 0, len(a.Layers))
	var prev *label.Layout
	for i, l := range a.Layers {
		layout, err := label.ParseLayout(l.LoudspeakerLayout)
		if err != nil {
			return nil, fmt.Errorf("audio element %d layer %d: %w", a.ID, i, err)
		}
		coupled, single, err := label.LayerSubstreams(prev, layout)
		if err != nil {
			return nil, fmt.Errorf("audio element %d layer %d: %w", a.ID, i, err)
		}

		layer := obu.ChannelAudioLayer{
			LoudspeakerLayout:     layout,
			ReconGainIsPresent:    l.ReconGainIsPresent,
			SubstreamCount:        uint8(len(coupled) + len(single)),
			CoupledSubstreamCount: uint8(len(coupled)),
		}
		if l.OutputGain != nil {
			layer.OutputGain = &obu.OutputGain{Flags: l.OutputGain.Flags, Gain: l.OutputGain.Gain}
		}
		layers = append(layers, layer)
		prev = &layout
	}
	return layers, nil
}

// AudioElementsWithData converts every audio element and derives its
// substream labels. codecConfigs must hold every referenced codec config.
func (u *UserMetadata) AudioElementsWithData(codecConfigs map[uint32]*obu.CodecConfig) (map[uint32]*element.WithData, error) {
	out := make(map[uint32]*element.WithData, len(u.AudioElements))
	for _, a := range u.AudioElements {
		ae, err := a.OBU()
		if err != nil {
			return nil, err
		}
		cc, err := errs.LookupInMap(codecConfigs, a.CodecConfigID, "Codec config for audio element")
		if err != nil {
			return nil, err
		}
		w, err := element.New(ae, cc)
		if err != nil {
			return nil, err
		}
		out[a.ID] = w
	}
	return out, nil
}

// Trims returns the user trims of every audio element.
func (u *UserMetadata) Trims() map[uint32]audioframe.Trim {
	out := make(map[uint32]audioframe.Trim, len(u.AudioElements))
	for _, a := range u.AudioElements {
		out[a.ID] = audioframe.Trim{Start: a.SamplesToTrimAtStart, End: a.SamplesToTrimAtEnd}
	}
	return out
}

// InputFiles maps audio element IDs to their input files.
func (u *UserMetadata) InputFiles() map[uint32]string {
	out := make(map[uint32]string, len(u.AudioElements))
	for _, a := range u.AudioElements {
		if a.InputFile != "" {
			out[a.ID] = a.InputFile
		}
	}
	return out
}

func (m MixGainParamDefinition) definition() obu.ParamDefinition {
	return *m.ParamDefinition.definition(&obu.MixGainParams{DefaultMixGain: m.DefaultMixGain})
}

func (l Layout) mixLayout() (obu.MixLayout, error) {
	var ml obu.MixLayout
	switch {
	case l.Binaural && l.SoundSystem != "":
		return ml, errs.InvalidArgumentf("layout sets both binaural and sound_system %q", l.SoundSystem)
	case l.Binaural:
		ml.Layout = obu.PlaybackLayout{Type: obu.LayoutTypeBinaural}
	default:
		pl, err := render.ParsePlaybackLayout(l.SoundSystem)
		if err != nil {
			return ml, err
		}
		ml.Layout = pl
	}

	ml.Loudness = obu.LoudnessInfo{
		IntegratedLoudness: l.Loudness.IntegratedLoudness,
		DigitalPeak:        l.Loudness.DigitalPeak,
	}
	if l.Loudness.TruePeak != nil {
		ml.Loudness.InfoType |= obu.LoudnessTruePeak
		ml.Loudness.TruePeak = *l.Loudness.TruePeak
	}
	return ml, nil
}

// OBU converts m to a mix presentation OBU.
func (m MixPresentation) OBU() (*obu.MixPresentation, error) {
	mp := &obu.MixPresentation{
		Header:                           obu.Header{Type: obu.TypeMixPresentation},
		ID:                               m.ID,
		AnnotationsLanguage:              slices.Clone(m.AnnotationsLanguage),
		LocalizedPresentationAnnotations: slices.Clone(m.LocalizedPresentationAnnotations),
	}

	for _, sm := range m.SubMixes {
		sub := obu.SubMix{OutputMixGain: sm.OutputMixGain.definition()}
		for _, e := range sm.AudioElements {
			sub.AudioElements = append(sub.AudioElements, obu.SubMixAudioElement{
				AudioElementID:              e.AudioElementID,
				LocalizedElementAnnotations: slices.Clone(e.LocalizedElementAnnotations),
				RenderingConfig:             obu.RenderingConfig{HeadphonesRenderingMode: e.HeadphonesRenderingMode},
				ElementMixGain:              e.ElementMixGain.definition(),
			})
		}
		for _, l := range sm.Layouts {
			ml, err := l.mixLayout()
			if err != nil {
				return nil, fmt.Errorf("mix presentation %d: %w", m.ID, err)
			}
			sub.Layouts = append(sub.Layouts, ml)
		}
		mp.SubMixes = append(mp.SubMixes, sub)
	}

	if err := mp.Validate(); err != nil {
		return nil, err
	}
	for _, d := range mp.MixGainDefinitions() {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("mix presentation %d: %w", m.ID, err)
		}
	}
	return mp, nil
}

// MixPresentationOBUs converts every mix presentation, in document order.
func (u *UserMetadata) MixPresentationOBUs() ([]*obu.MixPresentation, error) {
	out := make([]*obu.MixPresentation, 0, len(u.MixPresentations))
	for _, m := range u.MixPresentations {
		mp, err := m.OBU()
		if err != nil {
			return nil, err
		}
		out = append(out, mp)
	}
	return out, nil
}

var animations = map[string]obu.AnimationType{
	"step":   obu.AnimateStep,
	"linear": obu.AnimateLinear,
	"bezier": obu.AnimateBezier,
}

func (s Subblock) data() (obu.ParameterData, error) {
	switch {
	case s.MixGain != nil:
		name := s.MixGain.Animation
		if name == "" {
			name = "step"
		}
		a, err := errs.LookupInMap(animations, name, "Animation type for name")
		if err != nil {
			return nil, err
		}
		return &obu.MixGainParameterData{
			Animation:           a,
			Start:               s.MixGain.Start,
			End:                 s.MixGain.End,
			Control:             s.MixGain.Control,
			ControlRelativeTime: s.MixGain.ControlRelativeTime,
		}, nil
	case s.Demixing != nil:
		return &obu.DemixingParameterData{DmixpMode: obu.DMixPMode(s.Demixing.DmixpMode)}, nil
	case s.ReconGain != nil:
		d := &obu.ReconGainParameterData{}
		for _, l := range s.ReconGain.Layers {
			d.Layers = append(d.Layers, obu.ReconGainLayer{Flags: l.Flags, Gains: slices.Clone(l.Gains)})
		}
		return d, nil
	default:
		return nil, errs.InvalidArgumentf("subblock has no data")
	}
}

// BlockMetadata converts b to the input of a param.BlockGenerator.
func (b ParameterBlock) BlockMetadata() (param.BlockMetadata, error) {
	md := param.BlockMetadata{
		ParameterID:              b.ParameterID,
		StartTimestamp:           b.StartTimestamp,
		Duration:                 b.Duration,
		ConstantSubblockDuration: b.ConstantSubblockDuration,
	}
	for i, s := range b.Subblocks {
		d, err := s.data()
		if err != nil {
			return md, fmt.Errorf("parameter block %d subblock %d: %w", b.ParameterID, i, err)
		}
		md.Subblocks = append(md.Subblocks, obu.ParameterSubblock{Duration: s.Duration, Data: d})
	}
	return md, nil
}
