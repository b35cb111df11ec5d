// SPDX-License-Identifier: EPL-2.0

// Package param gathers the param definitions of an IA sequence into a
// directory keyed by parameter ID, turns user parameter block metadata into
// parameter block OBUs and tracks the demixing state carried from frame to
// frame.
package param

import (
	"fmt"
	"slices"

	"github.com/ik5/iamf/element"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/label"
	"github.com/ik5/iamf/obu"
)

// Metadata is the directory entry of one parameter ID.
type Metadata struct {
	Definition *obu.ParamDefinition

	// The remaining fields are set for recon gain definitions only.
	AudioElementID          uint32
	NumLayers               int
	ReconGainIsPresent      []bool
	ChannelNumbersForLayers []label.ChannelNumbers
}

func insertDefinition(defs map[uint32]*obu.ParamDefinition, d *obu.ParamDefinition) error {
	if prev, ok := defs[d.ParameterID]; ok {
		if !prev.Equivalent(d) {
			return errs.InvalidArgumentf("parameter %d has two different %s definitions", d.ParameterID, d.Type())
		}
		return nil
	}
	defs[d.ParameterID] = d
	return nil
}

// CollectAndValidateParamDefinitions returns every param definition of the
// audio elements and mix presentations, keyed by parameter ID. Definitions
// sharing an ID must be equivalent. Mix gain definitions may not sit in an
// audio element. Extension definitions are skipped, as nothing downstream
// can interpret them.
func CollectAndValidateParamDefinitions(elements map[uint32]*element.WithData, mixes []*obu.MixPresentation) (map[uint32]*obu.ParamDefinition, error) {
	defs := make(map[uint32]*obu.ParamDefinition)

	ids := make([]uint32, 0, len(elements))
	for id := range elements {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		for _, p := range elements[id].Obu.Params {
			switch {
			case p.Type == obu.ParamMixGain:
				return nil, errs.InvalidArgumentf("audio element %d carries a mix gain definition", id)
			case p.Type >= obu.ParamReservedStart:
				continue
			case p.Definition == nil || p.Definition.Type() != p.Type:
				return nil, errs.Internalf("audio element %d: param of type %s has no matching definition", id, p.Type)
			}
			if rg, ok := p.Definition.Params.(*obu.ReconGainParams); ok && rg.AudioElementID != id {
				return nil, errs.InvalidArgumentf("audio element %d carries the recon gain definition of audio element %d",
					id, rg.AudioElementID)
			}
			if err := insertDefinition(defs, p.Definition); err != nil {
				return nil, err
			}
		}
	}

	for _, m := range mixes {
		for _, d := range m.MixGainDefinitions() {
			if err := insertDefinition(defs, d); err != nil {
				return nil, fmt.Errorf("mix presentation %d: %w", m.ID, err)
			}
		}
	}
	return defs, nil
}

// GenerateParamIDToMetadataMap builds the directory. Recon gain entries
// also carry the layer layout of their audio element, which must be one of
// elements.
func GenerateParamIDToMetadataMap(defs map[uint32]*obu.ParamDefinition, elements map[uint32]*element.WithData) (map[uint32]*Metadata, error) {
	out := make(map[uint32]*Metadata, len(defs))
	for id, d := range defs {
		m := &Metadata{Definition: d}

		if rg, ok := d.Params.(*obu.ReconGainParams); ok {
			ae, err := errs.LookupInMap(elements, rg.AudioElementID, "Audio element for recon gain")
			if err != nil {
				return nil, fmt.Errorf("parameter %d: %w", id, err)
			}
			m.AudioElementID = rg.AudioElementID
			m.NumLayers = len(ae.ChannelNumbersForLayers)
			m.ReconGainIsPresent = ae.ReconGainIsPresent()
			m.ChannelNumbersForLayers = slices.Clone(ae.ChannelNumbersForLayers)
		}
		out[id] = m
	}
	return out, nil
}
