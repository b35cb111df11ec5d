// SPDX-License-Identifier: EPL-2.0

package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ik5/iamf"
	"github.com/ik5/iamf/bitbuffer"
	"github.com/ik5/iamf/formats/wav"
	"github.com/ik5/iamf/metadata"
)

const sessionDoc = `
codec_configs:
  - codec_config_id: 1
    codec: lpcm
    num_samples_per_frame: 8
    lpcm: {sample_size: 16, sample_rate: 48000, little_endian: true}
audio_elements:
  - audio_element_id: 10
    type: channel_based
    codec_config_id: 1
    substream_ids: [100]
    input_file: in.wav
    layers:
      - loudspeaker_layout: Mono
mix_presentations:
  - mix_presentation_id: 20
    annotations_language: [en-us]
    localized_presentation_annotations: [mono]
    sub_mixes:
      - audio_elements:
          - audio_element_id: 10
            localized_element_annotations: [mono]
            element_mix_gain: {parameter_id: 30, parameter_rate: 48000, duration: 8, constant_subblock_duration: 8}
        output_mix_gain: {parameter_id: 31, parameter_rate: 48000, duration: 8, constant_subblock_duration: 8}
        layouts:
          - sound_system: 0+2+0
            loudness: {integrated_loudness: 0, digital_peak: 0}
parameter_blocks:
  - parameter_id: 30
    start_timestamp: 0
    subblocks: [{duration: 8, mix_gain: {animation: step, start: 0}}]
  - parameter_id: 30
    start_timestamp: 8
    subblocks: [{duration: 8, mix_gain: {animation: step, start: -256}}]
  - parameter_id: 30
    start_timestamp: 16
    subblocks: [{duration: 8, mix_gain: {animation: step, start: -512}}]
`

func writeInput(t *testing.T, path string, samples []int32) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w, err := wav.NewWriter(f, 48000, 16, 1)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if err := w.WriteFrame([][]int32{samples}); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func readRendered(t *testing.T, path string) []int32 {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	src, err := wav.Decoder{}.Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	defer src.Close()

	var out []int32
	buf := make([]int32, 7)
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestSession(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := make([]int32, 20)
	for i := range input {
		input[i] = int32(i*100-1000) << 16
	}
	writeInput(t, filepath.Join(dir, "in.wav"), input)

	md, err := metadata.Load(strings.NewReader(sessionDoc))
	if err != nil {
		t.Fatalf("metadata.Load() error = %v", err)
	}
	enc, err := iamf.New(md)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var out bytes.Buffer
	s := &session{
		md:        md,
		enc:       enc,
		writer:    iamf.NewSequenceWriter(&out, bitbuffer.NewLebGenerator()),
		inputDir:  dir,
		renderDir: dir,
	}
	if err := s.encode(); err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	if err := s.close(); err != nil {
		t.Fatalf("close() error = %v", err)
	}

	if enc.State() != iamf.StateDone {
		t.Errorf("State() = %v, want %v", enc.State(), iamf.StateDone)
	}
	if len(s.blocks) != 0 {
		t.Errorf("%d parameter blocks left, want 0", len(s.blocks))
	}
	if out.Len() == 0 || int64(out.Len()) != s.writer.Written() {
		t.Errorf("wrote %d bytes, Written() = %d", out.Len(), s.writer.Written())
	}

	got := readRendered(t, filepath.Join(dir, "audio_element_10.wav"))
	if !reflect.DeepEqual(got, input) {
		t.Errorf("rendered %v, want %v", got, input)
	}
}

func TestSession_MissingInput(t *testing.T) {
	t.Parallel()

	doc := strings.Replace(sessionDoc, "    input_file: in.wav\n", "", 1)
	md, err := metadata.Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("metadata.Load() error = %v", err)
	}
	enc, err := iamf.New(md)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s := &session{
		md:       md,
		enc:      enc,
		writer:   iamf.NewSequenceWriter(io.Discard, bitbuffer.NewLebGenerator()),
		inputDir: t.TempDir(),
	}
	if err := s.encode(); err == nil || !strings.Contains(err.Error(), "no input_file") {
		t.Errorf("encode() error = %v, want a missing input_file error", err)
	}
	if err := s.close(); err != nil {
		t.Errorf("close() error = %v", err)
	}
}
