// SPDX-License-Identifier: EPL-2.0

package iamf

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/iamf/audio"
	"github.com/ik5/iamf/element"
	"github.com/ik5/iamf/label"
)

// Input feeds one audio element from a PCM source, one frame per temporal
// unit. Source channels map to the element's input labels in order.
type Input struct {
	AudioElementID uint32

	labels []label.Label
	framer *audio.Framer
}

// NewInput conforms src to the output rate of the element's codec config
// and to its number of input labels.
func NewInput(ae *element.WithData, src audio.Source) (*Input, error) {
	labels, err := ae.InputLabels()
	if err != nil {
		return nil, err
	}
	cc := ae.CodecConfig
	conformed, err := audio.Conform(src, int(cc.DecoderConfig.OutputSampleRate()), len(labels))
	if err != nil {
		return nil, fmt.Errorf("audio element %d: %w", ae.ID(), err)
	}
	framer, err := audio.NewFramer(conformed, int(cc.NumSamplesPerFrame))
	if err != nil {
		return nil, fmt.Errorf("audio element %d: %w", ae.ID(), err)
	}
	return &Input{
		AudioElementID: ae.ID(),
		labels:         labels,
		framer:         framer,
	}, nil
}

// Labels returns the labels samples are added under.
func (in *Input) Labels() []label.Label { return in.labels }

// Next returns the next frame of the source, one slice per input label.
// Only the last frame may be short. It returns io.EOF once the source is
// drained.
func (in *Input) Next() ([][]int32, error) {
	frame, err := in.framer.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("audio element %d: %w", in.AudioElementID, err)
	}
	return frame, nil
}

// Add adds frame, as returned by Next, to the temporal unit enc is
// accumulating.
func (in *Input) Add(enc *Encoder, frame [][]int32) error {
	if len(frame) != len(in.labels) {
		return fmt.Errorf("audio element %d: got %d channels, want %d", in.AudioElementID, len(frame), len(in.labels))
	}
	for i, l := range in.labels {
		if err := enc.AddSamples(in.AudioElementID, l, frame[i]); err != nil {
			return err
		}
	}
	return nil
}

// Feed adds the next frame of the source to enc. It returns io.EOF once the
// source is drained.
func (in *Input) Feed(enc *Encoder) error {
	frame, err := in.Next()
	if err != nil {
		return err
	}
	return in.Add(enc, frame)
}

func (in *Input) Close() error {
	return in.framer.Close()
}
