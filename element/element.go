// SPDX-License-Identifier: EPL-2.0

// Package element pairs an audio element OBU with the data derived from it:
// the labels carried by each substream and the channel counts of each
// scalable layer.
package element

import (
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/label"
	"github.com/ik5/iamf/obu"
)

// WithData is an audio element with its codec config and derived layout.
type WithData struct {
	Obu         *obu.AudioElement
	CodecConfig *obu.CodecConfig

	// SubstreamIDToLabels lists the labels coded in each substream, in
	// channel order.
	SubstreamIDToLabels map[uint32][]label.Label

	// ChannelNumbersForLayers is empty for scene-based elements.
	ChannelNumbersForLayers []label.ChannelNumbers

	// Layouts holds the loudspeaker layout of each layer.
	Layouts []label.Layout
}

// New derives the substream labels of ae. cc must be the codec config ae
// refers to.
func New(ae *obu.AudioElement, cc *obu.CodecConfig) (*WithData, error) {
	if ae == nil || cc == nil {
		return nil, errs.InvalidArgumentf("audio element and codec config are required")
	}
	if ae.CodecConfigID != cc.ID {
		return nil, errs.InvalidArgumentf("audio element %d uses codec config %d, got %d", ae.ID, ae.CodecConfigID, cc.ID)
	}
	if err := ae.Validate(); err != nil {
		return nil, err
	}

	w := &WithData{
		Obu:                 ae,
		CodecConfig:         cc,
		SubstreamIDToLabels: make(map[uint32][]label.Label, len(ae.SubstreamIDs)),
	}

	var err error
	switch ae.Type {
	case obu.ChannelBased:
		err = w.fillChannelBased()
	case obu.SceneBased:
		err = w.fillSceneBased()
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (w *WithData) fillChannelBased() error {
	ae := w.Obu
	next := 0
	var prev *label.Layout

	for i, layer := range ae.ChannelLayout.Layers {
		coupled, single, err := label.LayerSubstreams(prev, layer.LoudspeakerLayout)
		if err != nil {
			return err
		}
		if len(coupled) != int(layer.CoupledSubstreamCount) || len(coupled)+len(single) != int(layer.SubstreamCount) {
			return errs.InvalidArgumentf("audio element %d layer %d (%s): want %d substreams with %d coupled, declared %d with %d coupled",
				ae.ID, i, layer.LoudspeakerLayout, len(coupled)+len(single), len(coupled), layer.SubstreamCount, layer.CoupledSubstreamCount)
		}

		for _, group := range append(coupled, single...) {
			w.SubstreamIDToLabels[ae.SubstreamIDs[next]] = group
			next++
		}

		n, err := layer.LoudspeakerLayout.ChannelNumbers()
		if err != nil {
			return err
		}
		w.ChannelNumbersForLayers = append(w.ChannelNumbersForLayers, n)
		w.Layouts = append(w.Layouts, layer.LoudspeakerLayout)

		l := layer.LoudspeakerLayout
		prev = &l
	}
	return nil
}

func (w *WithData) fillSceneBased() error {
	for acn, idx := range w.Obu.Ambisonics.ChannelMapping {
		if idx == obu.DroppedAmbisonicsChannel {
			continue
		}
		l, err := label.Ambisonics(acn)
		if err != nil {
			return err
		}
		id := w.Obu.SubstreamIDs[idx]
		w.SubstreamIDToLabels[id] = append(w.SubstreamIDToLabels[id], l)
	}
	return nil
}

// ID returns the audio element ID.
func (w *WithData) ID() uint32 { return w.Obu.ID }

// InputLabels returns the labels a caller supplies samples for: the
// channels of the highest layer, or every ambisonics channel.
func (w *WithData) InputLabels() ([]label.Label, error) {
	if w.Obu.Type == obu.SceneBased {
		out := make([]label.Label, 0, len(w.Obu.Ambisonics.ChannelMapping))
		for acn := range w.Obu.Ambisonics.ChannelMapping {
			l, err := label.Ambisonics(acn)
			if err != nil {
				return nil, err
			}
			out = append(out, l)
		}
		return out, nil
	}
	return w.Layouts[len(w.Layouts)-1].Labels()
}

// HasReconGain reports whether any layer carries recon gain.
func (w *WithData) HasReconGain() bool {
	if w.Obu.ChannelLayout == nil {
		return false
	}
	for _, l := range w.Obu.ChannelLayout.Layers {
		if l.ReconGainIsPresent {
			return true
		}
	}
	return false
}

// ReconGainIsPresent lists the recon gain flag of every layer.
func (w *WithData) ReconGainIsPresent() []bool {
	if w.Obu.ChannelLayout == nil {
		return nil
	}
	out := make([]bool, len(w.Obu.ChannelLayout.Layers))
	for i, l := range w.Obu.ChannelLayout.Layers {
		out[i] = l.ReconGainIsPresent
	}
	return out
}

// Param returns the audio element's definition of type t, if any.
func (w *WithData) Param(t obu.ParamDefinitionType) *obu.ParamDefinition {
	for _, p := range w.Obu.Params {
		if p.Type == t {
			return p.Definition
		}
	}
	return nil
}
