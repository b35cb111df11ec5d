// SPDX-License-Identifier: EPL-2.0

package iamf_test

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ik5/iamf"
	"github.com/ik5/iamf/bitbuffer"
	"github.com/ik5/iamf/label"
	"github.com/ik5/iamf/metadata"
)

const exampleMetadata = `
codec_configs:
  - codec_config_id: 1
    codec: lpcm
    num_samples_per_frame: 4
    lpcm: {sample_size: 16, sample_rate: 48000, little_endian: true}
audio_elements:
  - audio_element_id: 10
    type: channel_based
    codec_config_id: 1
    substream_ids: [0]
    layers:
      - loudspeaker_layout: Stereo
mix_presentations:
  - mix_presentation_id: 20
    annotations_language: [en-us]
    localized_presentation_annotations: [stereo]
    sub_mixes:
      - audio_elements:
          - audio_element_id: 10
            localized_element_annotations: [stereo]
            element_mix_gain: {parameter_id: 30, parameter_rate: 48000, duration: 4, constant_subblock_duration: 4}
        output_mix_gain: {parameter_id: 31, parameter_rate: 48000, duration: 4, constant_subblock_duration: 4}
        layouts:
          - sound_system: 0+2+0
            loudness: {integrated_loudness: 0, digital_peak: 0}
`

// Example encodes two frames of stereo LPCM.
func Example() {
	md, err := metadata.Load(strings.NewReader(exampleMetadata))
	if err != nil {
		fmt.Println(err)
		return
	}
	enc, err := iamf.New(md)
	if err != nil {
		fmt.Println(err)
		return
	}
	descriptors, err := enc.GenerateDescriptorObus()
	if err != nil {
		fmt.Println(err)
		return
	}

	var out bytes.Buffer
	w := iamf.NewSequenceWriter(&out, bitbuffer.NewLebGenerator())
	if err := w.WriteDescriptors(descriptors); err != nil {
		fmt.Println(err)
		return
	}

	input := [][]int32{{1 << 16, 2 << 16, 3 << 16, 4 << 16}, {5 << 16, 6 << 16, 7 << 16, 8 << 16}}
	for i := 0; enc.GeneratingDataObus(); i++ {
		if err := enc.BeginTemporalUnit(); err != nil {
			fmt.Println(err)
			return
		}
		if i < len(input) {
			_ = enc.AddSamples(10, label.L2, input[i])
			_ = enc.AddSamples(10, label.R2, input[i])
		} else if i == len(input) {
			_ = enc.FinalizeAddSamples()
		}
		tu, err := enc.OutputTemporalUnit()
		if err != nil {
			fmt.Println(err)
			return
		}
		if tu.Empty() {
			continue
		}
		fmt.Printf("[%d, %d) %d frame(s), first L2 sample %d\n",
			tu.OutputTimestamp, tu.EndTimestamp, len(tu.AudioFrames), tu.LabeledFrames[10].Samples[label.L2][0]>>16)
		if err := w.WriteTemporalUnit(tu); err != nil {
			fmt.Println(err)
			return
		}
	}
	fmt.Println(enc.State())
	// Output:
	// [0, 4) 1 frame(s), first L2 sample 1
	// [4, 8) 1 frame(s), first L2 sample 5
	// done
}
