// SPDX-License-Identifier: EPL-2.0

// Package audioframe turns per-substream samples into audio frame OBUs and
// decodes them back.
//
// Frames are numbered on the output clock of their substream: frame k
// covers [kN, (k+1)N), where N is the frame size. A codec that delays its
// output by d samples puts input sample t at output timestamp t+d, so the
// first d+U output samples are trimmed from the start, U being the user
// trim at start. Likewise the samples after d+L-E are trimmed from the
// end, where L is the number of input samples and E the user trim at end.
package audioframe

import (
	"slices"

	"github.com/ik5/iamf/codec"
	"github.com/ik5/iamf/element"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/obu"
	"github.com/ik5/iamf/timing"
)

// WithData is an audio frame with the interval it covers on the output
// clock and the audio element it belongs to.
type WithData struct {
	Obu            *obu.AudioFrame
	StartTimestamp int64
	EndTimestamp   int64
	AudioElementID uint32
}

// Trim is the number of samples the user asks to drop from an audio
// element.
type Trim struct {
	Start uint32
	End   uint32
}

type encodedFrame struct {
	index   int64
	payload []byte
}

type substream struct {
	id             uint32
	audioElementID uint32
	channels       int
	encoder        codec.Encoder
	delay          int64

	pending     [][]int32
	userSamples int64
	encoded     int64
	queue       []encodedFrame
}

// Generator encodes every substream of a set of audio elements in
// lock-step.
type Generator struct {
	frameSize int
	trim      Trim
	ids       []uint32
	substream map[uint32]*substream
	timing    *timing.Module
	finalized bool
}

// NewGenerator creates one encoder per substream and registers the
// substreams with tm. Every codec config must share the frame size, every
// encoder the delay and every audio element the trims, so that all the
// frames of a temporal unit are trimmed alike.
func NewGenerator(elements map[uint32]*element.WithData, trims map[uint32]Trim,
	codecs *codec.Registry, tm *timing.Module,
) (*Generator, error) {
	if len(elements) == 0 {
		return nil, errs.InvalidArgumentf("no audio elements to encode")
	}

	g := &Generator{
		substream: make(map[uint32]*substream),
		timing:    tm,
	}

	aeIDs := sortedKeys(elements)
	for i, aeID := range aeIDs {
		ae := elements[aeID]
		n := int(ae.CodecConfig.NumSamplesPerFrame)
		trim := trims[aeID]
		if i == 0 {
			g.frameSize = n
			g.trim = trim
		}
		if n != g.frameSize {
			return nil, errs.InvalidArgumentf("audio element %d uses %d samples per frame, audio element %d uses %d",
				aeID, n, aeIDs[0], g.frameSize)
		}
		if trim != g.trim {
			return nil, errs.InvalidArgumentf("audio element %d trims %+v, audio element %d trims %+v",
				aeID, trim, aeIDs[0], g.trim)
		}

		c, err := codecs.Lookup(ae.CodecConfig)
		if err != nil {
			return nil, err
		}
		for _, id := range ae.Obu.SubstreamIDs {
			if _, dup := g.substream[id]; dup {
				return nil, errs.InvalidArgumentf("substream %d appears in more than one audio element", id)
			}
			channels := len(ae.SubstreamIDToLabels[id])
			enc, err := c.NewEncoder(ae.CodecConfig, channels)
			if err != nil {
				return nil, err
			}
			s := &substream{
				id:             id,
				audioElementID: aeID,
				channels:       channels,
				encoder:        enc,
				delay:          int64(enc.SamplesToDelayAtStart()),
				pending:        make([][]int32, channels),
			}
			if len(g.ids) > 0 && s.delay != g.substream[g.ids[0]].delay {
				return nil, errs.InvalidArgumentf("substream %d is delayed by %d samples, substream %d by %d",
					id, s.delay, g.ids[0], g.substream[g.ids[0]].delay)
			}
			if err := tm.AddSubstream(id, int(s.delay)); err != nil {
				return nil, err
			}
			g.substream[id] = s
			g.ids = append(g.ids, id)
		}
	}
	slices.Sort(g.ids)
	return g, nil
}

func sortedKeys[V any](m map[uint32]V) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// FrameSize returns the number of samples per frame.
func (g *Generator) FrameSize() int { return g.frameSize }

// Delay returns the codec delay shared by every substream.
func (g *Generator) Delay() int {
	return int(g.substream[g.ids[0]].delay)
}

// Finalized reports whether Finalize was called.
func (g *Generator) Finalized() bool { return g.finalized }

// Pending reports whether any encoded frame is still waiting to be taken.
func (g *Generator) Pending() bool {
	for _, s := range g.substream {
		if len(s.queue) > 0 {
			return true
		}
	}
	return false
}

// AddSamples appends channel-major samples to a substream and encodes every
// full frame.
func (g *Generator) AddSamples(substreamID uint32, samples [][]int32) error {
	if g.finalized {
		return errs.FailedPreconditionf("substream %d: samples added after finalize", substreamID)
	}
	s, err := errs.LookupInMap(g.substream, substreamID, "substream_id")
	if err != nil {
		return err
	}
	if len(samples) != s.channels {
		return errs.InvalidArgumentf("substream %d: got %d channels, want %d", substreamID, len(samples), s.channels)
	}
	n := len(samples[0])
	for c, ch := range samples {
		if len(ch) != n {
			return errs.InvalidArgumentf("substream %d: channel %d has %d samples, want %d", substreamID, c, len(ch), n)
		}
		s.pending[c] = append(s.pending[c], ch...)
	}
	if _, _, err := g.timing.AdvanceInput(substreamID, n); err != nil {
		return err
	}
	s.userSamples += int64(n)

	for len(s.pending[0]) >= g.frameSize {
		if err := g.encodePending(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) encodePending(s *substream) error {
	frame := make([][]int32, s.channels)
	for c := range s.pending {
		frame[c] = s.pending[c][:g.frameSize:g.frameSize]
		s.pending[c] = s.pending[c][g.frameSize:]
	}
	return g.encode(s, frame)
}

func (g *Generator) encode(s *substream, frame [][]int32) error {
	payload, err := s.encoder.EncodeFrame(frame)
	if err != nil {
		return err
	}
	s.queue = append(s.queue, encodedFrame{index: s.encoded, payload: payload})
	s.encoded++
	return nil
}

// Finalize pads the last partial frame of every substream, then feeds
// silence until the delayed samples are flushed out of the codecs. Frames
// made up only of trimmed end samples are dropped.
func (g *Generator) Finalize() error {
	if g.finalized {
		return errs.FailedPreconditionf("audio frames were already finalized")
	}
	g.finalized = true

	n := int64(g.frameSize)
	for _, id := range g.ids {
		s := g.substream[id]
		if int64(g.trim.Start)+int64(g.trim.End) > s.userSamples {
			return errs.InvalidArgumentf("substream %d: trims %d + %d exceed its %d samples",
				id, g.trim.Start, g.trim.End, s.userSamples)
		}

		if partial := len(s.pending[0]); partial > 0 {
			pad := g.frameSize - partial
			for c := range s.pending {
				s.pending[c] = append(s.pending[c], make([]int32, pad)...)
			}
			if _, _, err := g.timing.AdvanceInput(id, pad); err != nil {
				return err
			}
			if err := g.encodePending(s); err != nil {
				return err
			}
		}

		total := (s.delay + s.userSamples - int64(g.trim.End) + n - 1) / n
		for s.encoded < total {
			silence := make([][]int32, s.channels)
			for c := range silence {
				silence[c] = make([]int32, g.frameSize)
			}
			if _, _, err := g.timing.AdvanceInput(id, g.frameSize); err != nil {
				return err
			}
			if err := g.encode(s, silence); err != nil {
				return err
			}
		}
		s.queue = slices.DeleteFunc(s.queue, func(f encodedFrame) bool { return f.index >= total })

		if err := s.encoder.Close(); err != nil {
			return err
		}
	}
	return nil
}

// ready counts the queued frames whose trims are settled. Before Finalize
// a frame may still be hit by the user trim at end, so it waits until
// enough input has arrived to rule that out.
func (g *Generator) ready(s *substream) int {
	if g.finalized {
		return len(s.queue)
	}
	n := int64(g.frameSize)
	count := 0
	for _, f := range s.queue {
		if (f.index+1)*n-s.delay+int64(g.trim.End) > s.userSamples {
			break
		}
		count++
	}
	return count
}

// TakeFrames returns the next frame of every substream, ordered by
// substream ID. It returns nil when no substream has a frame ready and
// fails when only some do.
func (g *Generator) TakeFrames() ([]WithData, error) {
	readyIDs := 0
	for _, id := range g.ids {
		if g.ready(g.substream[id]) > 0 {
			readyIDs++
		}
	}
	if readyIDs == 0 {
		return nil, nil
	}
	if readyIDs != len(g.ids) {
		return nil, errs.InvalidArgumentf("%d of %d substreams have a frame ready", readyIDs, len(g.ids))
	}

	frames := make([]WithData, 0, len(g.ids))
	for _, id := range g.ids {
		s := g.substream[id]
		f := s.queue[0]
		s.queue = s.queue[1:]

		trimStart, trimEnd := g.trims(s, f.index)
		start, end, err := g.timing.AdvanceOutput(id, g.frameSize)
		if err != nil {
			return nil, err
		}
		if start != f.index*int64(g.frameSize) {
			return nil, errs.Internalf("substream %d: frame %d starts at %d", id, f.index, start)
		}
		frames = append(frames, WithData{
			Obu:            obu.NewAudioFrame(id, trimStart, trimEnd, f.payload),
			StartTimestamp: start,
			EndTimestamp:   end,
			AudioElementID: s.audioElementID,
		})
	}
	return frames, nil
}

func (g *Generator) trims(s *substream, index int64) (start, end uint32) {
	n := int64(g.frameSize)
	firstKept := s.delay + int64(g.trim.Start)
	lastKept := s.delay + s.userSamples - int64(g.trim.End)
	return uint32(clamp(firstKept-index*n, 0, n)), uint32(clamp((index+1)*n-lastKept, 0, n))
}

func clamp(v, lo, hi int64) int64 {
	return max(lo, min(v, hi))
}
