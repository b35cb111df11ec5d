// SPDX-License-Identifier: EPL-2.0

package main

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"

	"github.com/ik5/iamf"
	"github.com/ik5/iamf/audio"
	"github.com/ik5/iamf/formats/aiff"
	"github.com/ik5/iamf/formats/mp3"
	"github.com/ik5/iamf/formats/vorbis"
	"github.com/ik5/iamf/formats/wav"
	"github.com/ik5/iamf/label"
	"github.com/ik5/iamf/metadata"
	"github.com/ik5/iamf/render"
)

func decoders() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	return reg
}

type source struct {
	input *iamf.Input
	file  *os.File
}

type renderer struct {
	labels []label.Label
	empty  []int32
	writer *wav.Writer
	file   *os.File
}

// session drives one encoder from the metadata's input files and
// parameter blocks.
type session struct {
	md        *metadata.UserMetadata
	enc       *iamf.Encoder
	writer    *iamf.SequenceWriter
	inputDir  string
	renderDir string

	frameSize int
	sources   []source
	renderers map[uint32]*renderer

	blocks    []metadata.ParameterBlock
	finalized bool
}

func (s *session) encode() error {
	d, err := s.enc.GenerateDescriptorObus()
	if err != nil {
		return err
	}
	if err := s.writer.WriteDescriptors(d); err != nil {
		return err
	}

	if err := s.open(d.AudioElementIDs()); err != nil {
		return err
	}

	s.blocks = slices.Clone(s.md.ParameterBlocks)
	slices.SortStableFunc(s.blocks, func(a, b metadata.ParameterBlock) int {
		return cmp.Compare(a.StartTimestamp, b.StartTimestamp)
	})

	for s.enc.GeneratingDataObus() {
		if err := s.enc.BeginTemporalUnit(); err != nil {
			return err
		}
		if !s.finalized {
			if err := s.feed(); err != nil {
				return err
			}
		}

		tu, err := s.enc.OutputTemporalUnit()
		if err != nil {
			return err
		}
		if err := s.writer.WriteTemporalUnit(tu); err != nil {
			return err
		}
		if err := s.render(tu); err != nil {
			return err
		}
	}
	return nil
}

// open prepares an input for every audio element and, when rendering, a
// WAV writer per element.
func (s *session) open(ids []uint32) error {
	reg := decoders()
	files := s.md.InputFiles()
	s.renderers = make(map[uint32]*renderer)

	for _, id := range ids {
		ae, err := s.enc.AudioElement(id)
		if err != nil {
			return err
		}
		name, ok := files[id]
		if !ok {
			return fmt.Errorf("audio element %d has no input_file", id)
		}
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.inputDir, path)
		}

		dec, err := reg.ForFile(path)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		src, err := dec.Decode(f)
		if err != nil {
			return errors.Join(fmt.Errorf("decoding %s: %w", path, err), f.Close())
		}
		in, err := iamf.NewInput(ae, src)
		if err != nil {
			return errors.Join(err, src.Close(), f.Close())
		}
		s.sources = append(s.sources, source{input: in, file: f})
		log.Printf("audio element %d: %s, %d Hz, %d channel(s) as %v", id, path, src.SampleRate(), src.Channels(), in.Labels())

		n := int(ae.CodecConfig.NumSamplesPerFrame)
		if s.frameSize == 0 {
			s.frameSize = n
		} else if n != s.frameSize {
			return fmt.Errorf("audio element %d has %d samples per frame, want %d", id, n, s.frameSize)
		}

		if s.renderDir != "" {
			r, err := newRenderer(s.renderDir, id, in.Labels(), ae.CodecConfig.DecoderConfig.OutputSampleRate(),
				ae.CodecConfig.DecoderConfig.OutputBitDepth(), n)
			if err != nil {
				return err
			}
			s.renderers[id] = r
		}
	}
	return nil
}

func newRenderer(dir string, id uint32, labels []label.Label, rate uint32, bitDepth uint8, frameSize int) (*renderer, error) {
	path := filepath.Join(dir, fmt.Sprintf("audio_element_%d.wav", id))
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := wav.NewWriter(f, int(rate), int(bitDepth), len(labels))
	if err != nil {
		return nil, errors.Join(err, f.Close())
	}
	return &renderer{
		labels: labels,
		empty:  make([]int32, frameSize),
		writer: w,
		file:   f,
	}, nil
}

// feed adds one frame of every input, truncated to the shortest, and the
// parameter blocks starting before the end of the frame. The input is
// finalized as soon as one source runs short.
func (s *session) feed() error {
	ts, err := s.enc.GetInputTimestamp()
	if err != nil {
		return err
	}

	frames := make([][][]int32, len(s.sources))
	n := s.frameSize
	for i, src := range s.sources {
		frame, err := src.input.Next()
		if errors.Is(err, io.EOF) {
			n = 0
			continue
		}
		if err != nil {
			return err
		}
		frames[i] = frame
		n = min(n, len(frame[0]))
	}

	if n > 0 {
		for i, src := range s.sources {
			frame := frames[i]
			for c := range frame {
				frame[c] = frame[c][:n]
			}
			if err := src.input.Add(s.enc, frame); err != nil {
				return err
			}
		}
	}

	end := ts + int64(s.frameSize)
	if n < s.frameSize {
		s.finalized = true
		end = -1
	}
	if err := s.addBlocks(end); err != nil {
		return err
	}

	if s.finalized {
		return s.enc.FinalizeAddSamples()
	}
	return nil
}

// addBlocks adds the pending parameter blocks starting before end, or all
// of them when end is negative.
func (s *session) addBlocks(end int64) error {
	n := 0
	for n < len(s.blocks) && (end < 0 || s.blocks[n].StartTimestamp < end) {
		md, err := s.blocks[n].BlockMetadata()
		if err != nil {
			return err
		}
		if err := s.enc.AddParameterBlockMetadata(md); err != nil {
			return err
		}
		n++
	}
	s.blocks = s.blocks[n:]
	return nil
}

func (s *session) render(tu *iamf.TemporalUnit) error {
	for id, frame := range tu.LabeledFrames {
		r, ok := s.renderers[id]
		if !ok {
			continue
		}
		samples, err := render.ArrangeSamplesToRender(frame, r.labels, r.empty)
		if err != nil {
			return err
		}
		if err := r.writer.WriteFrame(samples); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) close() error {
	var err error
	for _, src := range s.sources {
		err = errors.Join(err, src.input.Close(), src.file.Close())
	}
	for _, r := range s.renderers {
		err = errors.Join(err, r.writer.Close(), r.file.Close())
	}
	return err
}
