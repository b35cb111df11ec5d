// SPDX-License-Identifier: EPL-2.0

package obu

import (
	"github.com/ik5/iamf/bitbuffer"
	"github.com/ik5/iamf/errs"
)

// LayoutType is the 2-bit layout_type of a mix presentation layout.
type LayoutType uint8

const (
	LayoutTypeReserved0                LayoutType = 0
	LayoutTypeReserved1                LayoutType = 1
	LayoutTypeLoudspeakersSSConvention LayoutType = 2
	LayoutTypeBinaural                 LayoutType = 3
)

// SoundSystem is a loudspeaker arrangement named by ITU-R BS.2051.
type SoundSystem uint8

const (
	SoundSystemA_0_2_0 SoundSystem = iota
	SoundSystemB_0_5_0
	SoundSystemC_2_5_0
	SoundSystemD_4_5_0
	SoundSystemE_4_5_1
	SoundSystemF_3_7_0
	SoundSystemG_4_9_0
	SoundSystemH_9_10_3
	SoundSystemI_0_7_0
	SoundSystemJ_4_7_0
	SoundSystem10_2_7_0
	SoundSystem11_2_3_0
	SoundSystem12_0_1_0
	SoundSystem13_6_9_0
)

// PlaybackLayout is the layout a sub mix is measured and rendered for.
type PlaybackLayout struct {
	Type        LayoutType
	SoundSystem SoundSystem // only for LayoutTypeLoudspeakersSSConvention
}

// Loudness info_type bits.
const (
	LoudnessTruePeak = 1 << 0
	LoudnessAnchored = 1 << 1
)

// AnchoredLoudness is one anchored loudness measurement.
type AnchoredLoudness struct {
	AnchorElement uint8
	Loudness      int16
}

// LoudnessInfo holds the loudness of a rendered layout in Q7.8 LKFS/dBTP.
type LoudnessInfo struct {
	InfoType           uint8
	IntegratedLoudness int16
	DigitalPeak        int16
	TruePeak           int16
	Anchored           []AnchoredLoudness
}

// MixLayout pairs a playback layout with its loudness.
type MixLayout struct {
	Layout   PlaybackLayout
	Loudness LoudnessInfo
}

// RenderingConfig controls how an element is rendered to headphones.
type RenderingConfig struct {
	HeadphonesRenderingMode uint8 // 2 bits
	ExtensionBytes          []byte
}

// SubMixAudioElement is one audio element of a sub mix.
type SubMixAudioElement struct {
	AudioElementID              uint32
	LocalizedElementAnnotations []string
	RenderingConfig             RenderingConfig
	ElementMixGain              ParamDefinition
}

// SubMix mixes several audio elements.
type SubMix struct {
	AudioElements []SubMixAudioElement
	OutputMixGain ParamDefinition
	Layouts       []MixLayout
}

// MixPresentation is the mix presentation OBU.
type MixPresentation struct {
	Header                           Header
	ID                               uint32
	AnnotationsLanguage              []string
	LocalizedPresentationAnnotations []string
	SubMixes                         []SubMix
}

func (m *MixPresentation) ObuHeader() Header { return m.Header }

// Validate checks annotation counts, sub mix contents and mix gains.
func (m *MixPresentation) Validate() error {
	count := len(m.AnnotationsLanguage)
	if len(m.LocalizedPresentationAnnotations) != count {
		return errs.InvalidArgumentf("mix presentation %d: %d presentation annotations for %d languages",
			m.ID, len(m.LocalizedPresentationAnnotations), count)
	}
	if len(m.SubMixes) == 0 {
		return errs.InvalidArgumentf("mix presentation %d has no sub mixes", m.ID)
	}

	for i := range m.SubMixes {
		sm := &m.SubMixes[i]
		if len(sm.AudioElements) == 0 {
			return errs.InvalidArgumentf("mix presentation %d sub mix %d has no audio elements", m.ID, i)
		}
		for j := range sm.AudioElements {
			e := &sm.AudioElements[j]
			if len(e.LocalizedElementAnnotations) != count {
				return errs.InvalidArgumentf("mix presentation %d: element %d has %d annotations for %d languages",
					m.ID, e.AudioElementID, len(e.LocalizedElementAnnotations), count)
			}
			if e.RenderingConfig.HeadphonesRenderingMode >= 4 {
				return errs.InvalidArgumentf("headphones_rendering_mode %d does not fit in 2 bits", e.RenderingConfig.HeadphonesRenderingMode)
			}
			if e.ElementMixGain.Type() != ParamMixGain {
				return errs.InvalidArgumentf("element_mix_gain of element %d is a %s definition", e.AudioElementID, e.ElementMixGain.Type())
			}
		}
		if sm.OutputMixGain.Type() != ParamMixGain {
			return errs.InvalidArgumentf("output_mix_gain of sub mix %d is a %s definition", i, sm.OutputMixGain.Type())
		}

		hasStereo := false
		for _, l := range sm.Layouts {
			if l.Layout.Type == LayoutTypeLoudspeakersSSConvention && l.Layout.SoundSystem == SoundSystemA_0_2_0 {
				hasStereo = true
			}
			if l.Layout.SoundSystem > SoundSystem13_6_9_0 {
				return errs.InvalidArgumentf("sound system %d is reserved", l.Layout.SoundSystem)
			}
		}
		if !hasStereo {
			return errs.InvalidArgumentf("mix presentation %d sub mix %d must include a stereo (0+2+0) layout", m.ID, i)
		}
	}
	return nil
}

// MixGainDefinitions returns every mix gain definition of m.
func (m *MixPresentation) MixGainDefinitions() []*ParamDefinition {
	var defs []*ParamDefinition
	for i := range m.SubMixes {
		sm := &m.SubMixes[i]
		for j := range sm.AudioElements {
			defs = append(defs, &sm.AudioElements[j].ElementMixGain)
		}
		defs = append(defs, &sm.OutputMixGain)
	}
	return defs
}

func (m *MixPresentation) writePayload(wb *bitbuffer.WriteBitBuffer) error {
	if err := m.Validate(); err != nil {
		return err
	}

	if err := wb.WriteULeb128(m.ID); err != nil {
		return err
	}
	if err := wb.WriteULeb128(uint32(len(m.AnnotationsLanguage))); err != nil {
		return err
	}
	if err := writeStrings(wb, m.AnnotationsLanguage); err != nil {
		return err
	}
	if err := writeStrings(wb, m.LocalizedPresentationAnnotations); err != nil {
		return err
	}

	if err := wb.WriteULeb128(uint32(len(m.SubMixes))); err != nil {
		return err
	}
	for i := range m.SubMixes {
		if err := writeSubMix(wb, &m.SubMixes[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeSubMix(wb *bitbuffer.WriteBitBuffer, sm *SubMix) error {
	if err := wb.WriteULeb128(uint32(len(sm.AudioElements))); err != nil {
		return err
	}
	for j := range sm.AudioElements {
		e := &sm.AudioElements[j]
		if err := wb.WriteULeb128(e.AudioElementID); err != nil {
			return err
		}
		if err := writeStrings(wb, e.LocalizedElementAnnotations); err != nil {
			return err
		}
		if err := wb.WriteUnsignedLiteral(uint64(e.RenderingConfig.HeadphonesRenderingMode), 2); err != nil {
			return err
		}
		if err := wb.WriteUnsignedLiteral(0, 6); err != nil {
			return err
		}
		if err := wb.WriteULeb128(uint32(len(e.RenderingConfig.ExtensionBytes))); err != nil {
			return err
		}
		if err := wb.WriteUint8Span(e.RenderingConfig.ExtensionBytes); err != nil {
			return err
		}
		if err := e.ElementMixGain.Write(wb); err != nil {
			return err
		}
	}

	if err := sm.OutputMixGain.Write(wb); err != nil {
		return err
	}

	if err := wb.WriteULeb128(uint32(len(sm.Layouts))); err != nil {
		return err
	}
	for _, l := range sm.Layouts {
		if err := writePlaybackLayout(wb, l.Layout); err != nil {
			return err
		}
		if err := writeLoudness(wb, l.Loudness); err != nil {
			return err
		}
	}
	return nil
}

func writePlaybackLayout(wb *bitbuffer.WriteBitBuffer, l PlaybackLayout) error {
	if err := wb.WriteUnsignedLiteral(uint64(l.Type), 2); err != nil {
		return err
	}
	if l.Type == LayoutTypeLoudspeakersSSConvention {
		if err := wb.WriteUnsignedLiteral(uint64(l.SoundSystem), 4); err != nil {
			return err
		}
		return wb.WriteUnsignedLiteral(0, 2)
	}
	return wb.WriteUnsignedLiteral(0, 6)
}

func writeLoudness(wb *bitbuffer.WriteBitBuffer, l LoudnessInfo) error {
	if err := wb.WriteUnsignedLiteral(uint64(l.InfoType), 8); err != nil {
		return err
	}
	if err := wb.WriteSigned16(l.IntegratedLoudness); err != nil {
		return err
	}
	if err := wb.WriteSigned16(l.DigitalPeak); err != nil {
		return err
	}
	if l.InfoType&LoudnessTruePeak != 0 {
		if err := wb.WriteSigned16(l.TruePeak); err != nil {
			return err
		}
	}
	if l.InfoType&LoudnessAnchored != 0 {
		if len(l.Anchored) > 255 {
			return errs.InvalidArgumentf("%d anchored loudness entries do not fit in 8 bits", len(l.Anchored))
		}
		if err := wb.WriteUnsignedLiteral(uint64(len(l.Anchored)), 8); err != nil {
			return err
		}
		for _, a := range l.Anchored {
			if err := wb.WriteUnsignedLiteral(uint64(a.AnchorElement), 8); err != nil {
				return err
			}
			if err := wb.WriteSigned16(a.Loudness); err != nil {
				return err
			}
		}
	}
	return nil
}
