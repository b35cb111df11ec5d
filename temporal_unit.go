// SPDX-License-Identifier: EPL-2.0

package iamf

import (
	"github.com/ik5/iamf/audioframe"
	"github.com/ik5/iamf/demix"
	"github.com/ik5/iamf/obu"
	"github.com/ik5/iamf/param"
)

// TemporalUnit is the output of one OutputTemporalUnit call: the audio
// frames of every substream covering [OutputTimestamp, EndTimestamp), the
// parameter blocks starting before EndTimestamp, and the decoded samples
// of every audio element, labeled and ready to render.
type TemporalUnit struct {
	OutputTimestamp int64
	EndTimestamp    int64

	SamplesToTrimAtStart uint32
	SamplesToTrimAtEnd   uint32

	AudioFrames     []audioframe.WithData
	MixGainBlocks   []*param.BlockWithData
	DemixingBlocks  []*param.BlockWithData
	ReconGainBlocks []*param.BlockWithData

	// LabeledFrames is keyed by audio element ID.
	LabeledFrames map[uint32]demix.LabeledFrame
}

// Empty reports whether the unit carries no OBU.
func (tu *TemporalUnit) Empty() bool {
	return len(tu.AudioFrames) == 0 && tu.NumParameterBlocks() == 0
}

func (tu *TemporalUnit) NumParameterBlocks() int {
	return len(tu.MixGainBlocks) + len(tu.DemixingBlocks) + len(tu.ReconGainBlocks)
}

// NumSamples returns the samples per channel left after trimming.
func (tu *TemporalUnit) NumSamples() int {
	n := int(tu.EndTimestamp - tu.OutputTimestamp)
	return max(0, n-int(tu.SamplesToTrimAtStart)-int(tu.SamplesToTrimAtEnd))
}

// OBUs lists the unit's OBUs in bitstream order: the parameter blocks,
// then the audio frames ordered by substream ID.
func (tu *TemporalUnit) OBUs() []obu.OBU {
	out := make([]obu.OBU, 0, tu.NumParameterBlocks()+len(tu.AudioFrames))
	for _, blocks := range [][]*param.BlockWithData{tu.DemixingBlocks, tu.ReconGainBlocks, tu.MixGainBlocks} {
		for _, b := range blocks {
			out = append(out, b.Obu)
		}
	}
	for _, f := range tu.AudioFrames {
		out = append(out, f.Obu)
	}
	return out
}
