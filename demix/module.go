// SPDX-License-Identifier: EPL-2.0

package demix

import (
	"fmt"

	"github.com/ik5/iamf/element"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/label"
)

// Module splits labeled frames into substreams for every audio element and
// rebuilds labeled frames from decoded substreams.
type Module struct {
	elements map[uint32]*element.WithData
}

// NewModule builds a module over the given audio elements. The map is not
// copied and must not change afterwards.
func NewModule(elements map[uint32]*element.WithData) *Module {
	return &Module{elements: elements}
}

func (m *Module) element(id uint32) (*element.WithData, error) {
	return errs.LookupInMap(m.elements, id, fmt.Sprintf("Audio element for ID %d", id))
}

// SubstreamLabels lists every label carried by a substream of the audio
// element.
func (m *Module) SubstreamLabels(audioElementID uint32) ([]label.Label, error) {
	el, err := m.element(audioElementID)
	if err != nil {
		return nil, err
	}
	var out []label.Label
	for _, id := range el.Obu.SubstreamIDs {
		out = append(out, el.SubstreamIDToLabels[id]...)
	}
	return out, nil
}

// DownMixSamplesToSubstreams down-mixes frame in place and returns the
// samples of every substream, one slice per channel.
func (m *Module) DownMixSamplesToSubstreams(audioElementID uint32, c Coefficients, frame LabelSamples) (map[uint32][][]int32, error) {
	el, err := m.element(audioElementID)
	if err != nil {
		return nil, err
	}

	want, err := m.SubstreamLabels(audioElementID)
	if err != nil {
		return nil, err
	}
	if err := DownMix(frame, c, want); err != nil {
		return nil, fmt.Errorf("audio element %d: %w", audioElementID, err)
	}

	out := make(map[uint32][][]int32, len(el.SubstreamIDToLabels))
	for id, labels := range el.SubstreamIDToLabels {
		channels := make([][]int32, len(labels))
		for i, l := range labels {
			channels[i] = frame[l]
		}
		out[id] = channels
	}
	return out, nil
}

// DemixDecodedSamples labels the decoded substreams of an audio element and
// adds the demixed reconstruction of the omitted channels.
func (m *Module) DemixDecodedSamples(audioElementID uint32, c Coefficients, decoded map[uint32][][]int32) (LabelSamples, error) {
	el, err := m.element(audioElementID)
	if err != nil {
		return nil, err
	}

	frame := make(LabelSamples)
	for id, labels := range el.SubstreamIDToLabels {
		channels, ok := decoded[id]
		if !ok {
			return nil, errs.NotFoundf("audio element %d: substream %d was not decoded", audioElementID, id)
		}
		if len(channels) != len(labels) {
			return nil, errs.InvalidArgumentf("audio element %d: substream %d decoded to %d channels, want %d",
				audioElementID, id, len(channels), len(labels))
		}
		for i, l := range labels {
			frame[l] = channels[i]
		}
	}

	if err := Demix(frame, c); err != nil {
		return nil, fmt.Errorf("audio element %d: %w", audioElementID, err)
	}
	return frame, nil
}
