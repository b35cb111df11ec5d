// SPDX-License-Identifier: EPL-2.0

// Package render prepares labeled frames for a renderer.
package render

import (
	"fmt"

	"github.com/ik5/iamf/demix"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/label"
	"github.com/ik5/iamf/obu"
)

// ArrangeSamplesToRender returns the trimmed samples of every label in
// orderedLabels, taking demixed samples when a label was not coded.
// label.Omitted channels point into emptyChannel, which must be at least
// as long as the other channels. The returned slices alias the frame.
func ArrangeSamplesToRender(frame demix.LabeledFrame, orderedLabels []label.Label, emptyChannel []int32) ([][]int32, error) {
	if len(orderedLabels) == 0 {
		return nil, nil
	}

	channels := make([][]int32, len(orderedLabels))
	numTicks := -1
	for i, l := range orderedLabels {
		if l == label.Omitted {
			continue
		}
		samples, err := demix.FindSamplesOrDemixedSamples(l, frame.Samples)
		if err != nil {
			return nil, err
		}
		if numTicks >= 0 && len(samples) != numTicks {
			return nil, errs.InvalidArgumentf("all labels must have the same number of samples: %s has %d, want %d",
				l, len(samples), numTicks)
		}
		numTicks = len(samples)
		channels[i] = samples
	}
	if numTicks < 0 {
		numTicks = len(emptyChannel)
	}
	if len(emptyChannel) < numTicks {
		return nil, errs.InvalidArgumentf("empty channel has %d samples, want at least %d", len(emptyChannel), numTicks)
	}

	trimmed := int(frame.SamplesToTrimAtStart) + int(frame.SamplesToTrimAtEnd)
	if numTicks < trimmed {
		return nil, errs.InvalidArgumentf("%d samples cannot be trimmed by %d at start and %d at end",
			numTicks, frame.SamplesToTrimAtStart, frame.SamplesToTrimAtEnd)
	}

	start, end := int(frame.SamplesToTrimAtStart), numTicks-int(frame.SamplesToTrimAtEnd)
	for i := range channels {
		if orderedLabels[i] == label.Omitted {
			channels[i] = emptyChannel
		}
		channels[i] = channels[i][start:end:end]
	}
	return channels, nil
}

var soundSystemToOutputKey = map[obu.SoundSystem]string{
	obu.SoundSystemA_0_2_0:  "0+2+0",
	obu.SoundSystemB_0_5_0:  "0+5+0",
	obu.SoundSystemC_2_5_0:  "2+5+0",
	obu.SoundSystemD_4_5_0:  "4+5+0",
	obu.SoundSystemE_4_5_1:  "4+5+1",
	obu.SoundSystemF_3_7_0:  "3+7+0",
	obu.SoundSystemG_4_9_0:  "4+9+0",
	obu.SoundSystemH_9_10_3: "9+10+3",
	obu.SoundSystemI_0_7_0:  "0+7+0",
	obu.SoundSystemJ_4_7_0:  "4+7+0",
	obu.SoundSystem10_2_7_0: "7.1.2",
	obu.SoundSystem11_2_3_0: "3.1.2",
	obu.SoundSystem12_0_1_0: "0+1+0",
	obu.SoundSystem13_6_9_0: "9.1.6",
}

// LookupOutputKeyFromPlaybackLayout returns the name a renderer knows a
// loudspeaker playback layout by.
func LookupOutputKeyFromPlaybackLayout(l obu.PlaybackLayout) (string, error) {
	switch l.Type {
	case obu.LayoutTypeLoudspeakersSSConvention:
		return errs.LookupInMap(soundSystemToOutputKey, l.SoundSystem, "Output key for SoundSystem")
	case obu.LayoutTypeBinaural:
		return "", errs.Unimplementedf("loudness layout key for binaural is not supported")
	default:
		return "", fmt.Errorf("layout_type %d: %w", l.Type, errs.ErrUnimplemented)
	}
}

// ParsePlaybackLayout is the inverse of LookupOutputKeyFromPlaybackLayout
// for loudspeaker layouts.
func ParsePlaybackLayout(key string) (obu.PlaybackLayout, error) {
	for ss, k := range soundSystemToOutputKey {
		if k == key {
			return obu.PlaybackLayout{Type: obu.LayoutTypeLoudspeakersSSConvention, SoundSystem: ss}, nil
		}
	}
	return obu.PlaybackLayout{}, errs.NotFoundf("no sound system is named %q", key)
}
