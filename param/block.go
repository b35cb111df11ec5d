// SPDX-License-Identifier: EPL-2.0

package param

import (
	"slices"

	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/obu"
	"github.com/ik5/iamf/timing"
)

// BlockMetadata is the user description of one parameter block.
//
// Duration, ConstantSubblockDuration and the subblock durations are only
// read when the definition leaves timing to the blocks; otherwise the
// definition's values apply and may be left zero.
type BlockMetadata struct {
	ParameterID              uint32
	StartTimestamp           int64
	Duration                 uint32
	ConstantSubblockDuration uint32
	Subblocks                []obu.ParameterSubblock
}

// BlockWithData is a parameter block OBU with the interval it covers.
type BlockWithData struct {
	Obu            *obu.ParameterBlock
	StartTimestamp int64
	EndTimestamp   int64
}

// Type returns the type of the block's subblocks.
func (b *BlockWithData) Type() obu.ParamDefinitionType {
	return b.Obu.Subblocks[0].Data.Type()
}

// BlockGenerator validates parameter block metadata against the directory
// and keeps every parameter stream contiguous.
type BlockGenerator struct {
	directory map[uint32]*Metadata
	timing    *timing.Module
}

// NewBlockGenerator registers every parameter stream of directory with tm.
func NewBlockGenerator(directory map[uint32]*Metadata, tm *timing.Module) (*BlockGenerator, error) {
	ids := make([]uint32, 0, len(directory))
	for id := range directory {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if err := tm.AddParameter(id); err != nil {
			return nil, err
		}
	}
	return &BlockGenerator{directory: directory, timing: tm}, nil
}

// Generate builds the parameter block described by md.
func (g *BlockGenerator) Generate(md BlockMetadata) (*BlockWithData, error) {
	meta, err := errs.LookupInMap(g.directory, md.ParameterID, "Parameter definition for parameter_id")
	if err != nil {
		return nil, err
	}
	def := meta.Definition

	pb := &obu.ParameterBlock{
		Header:      obu.Header{Type: obu.TypeParameterBlock},
		ParameterID: md.ParameterID,
		Mode:        def.Mode,
		Subblocks:   slices.Clone(md.Subblocks),
	}
	if def.Mode {
		if err := fillBlockTiming(pb, md); err != nil {
			return nil, err
		}
	} else if err := fillDefinitionTiming(pb, def, md); err != nil {
		return nil, err
	}

	for i, sb := range pb.Subblocks {
		if sb.Data == nil {
			return nil, errs.InvalidArgumentf("parameter %d subblock %d has no data", md.ParameterID, i)
		}
		if sb.Data.Type() != def.Type() {
			return nil, errs.InvalidArgumentf("parameter %d is a %s definition, subblock %d carries %s data",
				md.ParameterID, def.Type(), i, sb.Data.Type())
		}
		switch d := sb.Data.(type) {
		case *obu.DemixingParameterData:
			if err := d.DmixpMode.Validate(); err != nil {
				return nil, err
			}
		case *obu.ReconGainParameterData:
			if len(d.Layers) != meta.NumLayers {
				return nil, errs.InvalidArgumentf("parameter %d subblock %d has %d recon gain layers, audio element %d has %d",
					md.ParameterID, i, len(d.Layers), meta.AudioElementID, meta.NumLayers)
			}
		}
	}
	pb.ReconGainIsPresent = meta.ReconGainIsPresent

	if err := pb.Validate(); err != nil {
		return nil, err
	}

	end, err := g.timing.AdvanceParameter(md.ParameterID, md.StartTimestamp, pb.Duration)
	if err != nil {
		return nil, err
	}
	return &BlockWithData{Obu: pb, StartTimestamp: md.StartTimestamp, EndTimestamp: end}, nil
}

func fillBlockTiming(pb *obu.ParameterBlock, md BlockMetadata) error {
	pb.Duration = md.Duration
	pb.ConstantSubblockDuration = md.ConstantSubblockDuration
	if md.ConstantSubblockDuration == 0 {
		return nil
	}
	for i := range pb.Subblocks {
		start := uint32(i) * md.ConstantSubblockDuration
		if start >= md.Duration {
			return errs.InvalidArgumentf("parameter %d: subblock %d starts after the block's duration %d",
				md.ParameterID, i, md.Duration)
		}
		pb.Subblocks[i].Duration = min(md.ConstantSubblockDuration, md.Duration-start)
	}
	return nil
}

func fillDefinitionTiming(pb *obu.ParameterBlock, def *obu.ParamDefinition, md BlockMetadata) error {
	if md.Duration != 0 && md.Duration != def.Duration {
		return errs.InvalidArgumentf("parameter %d: block duration %d differs from the definition's %d",
			md.ParameterID, md.Duration, def.Duration)
	}
	if len(pb.Subblocks) != def.NumSubblocks() {
		return errs.InvalidArgumentf("parameter %d: got %d subblocks, the definition has %d",
			md.ParameterID, len(pb.Subblocks), def.NumSubblocks())
	}

	pb.Duration = def.Duration
	pb.ConstantSubblockDuration = def.ConstantSubblockDuration
	for i := range pb.Subblocks {
		d, err := def.SubblockDuration(i)
		if err != nil {
			return err
		}
		pb.Subblocks[i].Duration = d
	}
	return nil
}
