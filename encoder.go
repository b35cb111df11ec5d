// SPDX-License-Identifier: EPL-2.0

package iamf

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"

	"github.com/ik5/iamf/audioframe"
	"github.com/ik5/iamf/codec"
	"github.com/ik5/iamf/demix"
	"github.com/ik5/iamf/element"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/label"
	"github.com/ik5/iamf/metadata"
	"github.com/ik5/iamf/metrics"
	"github.com/ik5/iamf/obu"
	"github.com/ik5/iamf/param"
	"github.com/ik5/iamf/reconcile"
	"github.com/ik5/iamf/timing"
)

// State is the stage an Encoder is in.
type State int

const (
	StateCreated State = iota
	StateDescriptorsGenerated
	StateAccumulatingTemporalUnit
	StateEmittingTemporalUnit
	StateDone
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateDescriptorsGenerated:
		return "descriptors generated"
	case StateAccumulatingTemporalUnit:
		return "accumulating temporal unit"
	case StateEmittingTemporalUnit:
		return "emitting temporal unit"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger logs descriptor generation and every emitted temporal unit.
func WithLogger(l *log.Logger) Option {
	return func(e *Encoder) { e.logger = l }
}

// WithMetrics records encoder progress in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Encoder) { e.metrics = m }
}

// WithCodecs replaces the codecs used to code substreams. The default is
// DefaultCodecs(0).
func WithCodecs(r *codec.Registry) Option {
	return func(e *Encoder) { e.codecs = r }
}

type coefficientsAt struct {
	start        int64
	coefficients demix.Coefficients
}

// Encoder turns user metadata, samples and parameter block metadata into
// descriptor OBUs and temporal units. It is not safe for concurrent use.
//
// After GenerateDescriptorObus, each temporal unit is driven by
// BeginTemporalUnit, any number of AddSamples and AddParameterBlockMetadata
// calls, then OutputTemporalUnit. FinalizeAddSamples marks the end of the
// input; the caller keeps calling OutputTemporalUnit while
// GeneratingDataObus reports true.
type Encoder struct {
	md      *metadata.UserMetadata
	logger  *log.Logger
	metrics *metrics.Metrics
	codecs  *codec.Registry

	state       State
	descriptors *Descriptors
	elementIDs  []uint32

	timing    *timing.Module
	generator *audioframe.Generator
	decoder   *audioframe.Decoder
	demixer   *demix.Module
	params    *param.Manager
	blocks    *param.BlockGenerator

	pending      map[uint32]demix.LabelSamples
	queued       []*param.BlockWithData
	coefficients map[uint32][]coefficientsAt

	finalizeRequested bool
}

// New returns an encoder for the sequence md describes.
func New(md *metadata.UserMetadata, opts ...Option) (*Encoder, error) {
	if md == nil {
		return nil, errs.InvalidArgumentf("user metadata is required")
	}
	e := &Encoder{
		md:      md,
		logger:  log.New(io.Discard, "", 0),
		pending: make(map[uint32]demix.LabelSamples),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.codecs == nil {
		e.codecs = DefaultCodecs(md.OpusBitrate())
	}
	return e, nil
}

// State returns the current stage of e.
func (e *Encoder) State() State { return e.state }

func (e *Encoder) requireState(op string, allowed ...State) error {
	if slices.Contains(allowed, e.state) {
		return nil
	}
	return errs.FailedPreconditionf("%s is not allowed while %s", op, e.state)
}

// GenerateDescriptorObus builds the descriptor OBUs and prepares the
// encoding pipeline. It may be called once.
func (e *Encoder) GenerateDescriptorObus() (*Descriptors, error) {
	if err := e.requireState("GenerateDescriptorObus", StateCreated); err != nil {
		return nil, err
	}

	d, err := newDescriptors(e.md)
	if err != nil {
		return nil, fmt.Errorf("generating descriptors: %w", err)
	}

	defs, err := param.CollectAndValidateParamDefinitions(d.AudioElements, d.MixPresentations)
	if err != nil {
		return nil, err
	}
	directory, err := param.GenerateParamIDToMetadataMap(defs, d.AudioElements)
	if err != nil {
		return nil, err
	}

	e.timing = timing.New()
	e.generator, err = audioframe.NewGenerator(d.AudioElements, e.md.Trims(), e.codecs, e.timing)
	if err != nil {
		return nil, err
	}
	e.decoder, err = audioframe.NewDecoder(d.AudioElements, e.codecs)
	if err != nil {
		return nil, err
	}
	e.params, err = param.NewManager(d.AudioElements)
	if err != nil {
		return nil, errors.Join(err, e.decoder.Close())
	}
	e.blocks, err = param.NewBlockGenerator(directory, e.timing)
	if err != nil {
		return nil, errors.Join(err, e.decoder.Close())
	}
	e.demixer = demix.NewModule(d.AudioElements)
	e.coefficients = make(map[uint32][]coefficientsAt, len(d.AudioElements))

	e.descriptors = d
	e.elementIDs = d.AudioElementIDs()
	e.state = StateDescriptorsGenerated

	e.logger.Printf("generated descriptors: %d codec configs, %d audio elements, %d mix presentations, %d param definitions",
		len(d.CodecConfigs), len(d.AudioElements), len(d.MixPresentations), len(defs))
	return d, nil
}

// GeneratingDataObus reports whether more temporal units remain to be
// output.
func (e *Encoder) GeneratingDataObus() bool {
	switch e.state {
	case StateCreated, StateDone:
		return false
	}
	return !e.generator.Finalized() || e.generator.Pending() || len(e.queued) > 0
}

// BeginTemporalUnit clears the samples and parameter blocks buffered for a
// temporal unit.
func (e *Encoder) BeginTemporalUnit() error {
	if err := e.requireState("BeginTemporalUnit",
		StateDescriptorsGenerated, StateAccumulatingTemporalUnit, StateEmittingTemporalUnit); err != nil {
		return err
	}
	clear(e.pending)
	e.state = StateAccumulatingTemporalUnit

	ts, err := e.timing.InputTimestamp()
	if err == nil {
		e.metrics.SetInputTimestamp(ts)
	}
	return nil
}

// GetInputTimestamp returns the input timestamp of the temporal unit being
// accumulated.
func (e *Encoder) GetInputTimestamp() (int64, error) {
	if err := e.requireState("GetInputTimestamp",
		StateDescriptorsGenerated, StateAccumulatingTemporalUnit, StateEmittingTemporalUnit); err != nil {
		return 0, err
	}
	return e.timing.InputTimestamp()
}

// AddSamples buffers the samples of one input channel of an audio element.
// Samples added after FinalizeAddSamples are discarded.
func (e *Encoder) AddSamples(audioElementID uint32, l label.Label, samples []int32) error {
	if err := e.requireState("AddSamples", StateAccumulatingTemporalUnit); err != nil {
		return err
	}
	if e.finalizeRequested {
		return nil
	}
	if _, err := errs.LookupInMap(e.descriptors.AudioElements, audioElementID, "Audio element for audio_element_id"); err != nil {
		return err
	}

	frame, ok := e.pending[audioElementID]
	if !ok {
		frame = make(demix.LabelSamples)
		e.pending[audioElementID] = frame
	}
	frame[l] = append(frame[l], samples...)
	return nil
}

// FinalizeAddSamples marks the end of the input. The codecs are flushed by
// the next OutputTemporalUnit.
func (e *Encoder) FinalizeAddSamples() error {
	if err := e.requireState("FinalizeAddSamples",
		StateDescriptorsGenerated, StateAccumulatingTemporalUnit, StateEmittingTemporalUnit); err != nil {
		return err
	}
	if e.finalizeRequested {
		return errs.FailedPreconditionf("FinalizeAddSamples was already called")
	}
	e.finalizeRequested = true
	return nil
}

// AddParameterBlockMetadata turns md into a parameter block and queues it
// for output. Blocks of one parameter ID must be added in order and
// without gaps.
func (e *Encoder) AddParameterBlockMetadata(md param.BlockMetadata) error {
	if err := e.requireState("AddParameterBlockMetadata", StateAccumulatingTemporalUnit); err != nil {
		return err
	}
	b, err := e.blocks.Generate(md)
	if err != nil {
		return err
	}
	if b.Type() == obu.ParamDemixing {
		if err := e.params.AddDemixingBlock(b); err != nil {
			return err
		}
	}
	e.queued = append(e.queued, b)
	return nil
}

// OutputTemporalUnit encodes the samples of the temporal unit being
// accumulated and returns the oldest temporal unit whose frames are
// complete. The returned unit is empty while the codec delay has not
// elapsed.
func (e *Encoder) OutputTemporalUnit() (*TemporalUnit, error) {
	if err := e.requireState("OutputTemporalUnit", StateAccumulatingTemporalUnit); err != nil {
		return nil, err
	}
	e.state = StateEmittingTemporalUnit

	if err := e.encodePending(); err != nil {
		return nil, err
	}
	if e.finalizeRequested && !e.generator.Finalized() {
		if err := e.generator.Finalize(); err != nil {
			return nil, err
		}
	}

	frames, err := e.generator.TakeFrames()
	if err != nil {
		return nil, err
	}
	tu := &TemporalUnit{}
	drained := e.generator.Finalized() && !e.generator.Pending()

	if len(frames) > 0 {
		if err := e.fillAudio(tu, frames); err != nil {
			return nil, err
		}
	}
	if len(frames) > 0 || drained {
		e.fillParameterBlocks(tu, frames, drained)
	}

	if !e.GeneratingDataObus() {
		e.state = StateDone
		if err := e.decoder.Close(); err != nil {
			return nil, err
		}
	}

	if !tu.Empty() {
		e.metrics.RecordTemporalUnit(tu.SamplesToTrimAtStart, tu.SamplesToTrimAtEnd)
		e.logger.Printf("temporal unit at %d: %d audio frames, %d parameter blocks, trim %d/%d",
			tu.OutputTimestamp, len(tu.AudioFrames), tu.NumParameterBlocks(), tu.SamplesToTrimAtStart, tu.SamplesToTrimAtEnd)
	}
	return tu, nil
}

// encodePending down-mixes the buffered samples of every audio element and
// hands them to the codecs. Every audio element must supply the same
// number of samples for every input label.
func (e *Encoder) encodePending() error {
	if len(e.pending) == 0 {
		return nil
	}

	ts, err := e.timing.InputTimestamp()
	if err != nil {
		return err
	}

	numSamples := -1
	for _, aeID := range e.elementIDs {
		frame, ok := e.pending[aeID]
		if !ok {
			return errs.InvalidArgumentf("audio element %d has no samples for the temporal unit at %d", aeID, ts)
		}
		labels, err := e.descriptors.AudioElements[aeID].InputLabels()
		if err != nil {
			return err
		}
		for _, l := range labels {
			s, ok := frame[l]
			if !ok {
				return errs.InvalidArgumentf("audio element %d has no samples for %s at %d", aeID, l, ts)
			}
			if numSamples >= 0 && len(s) != numSamples {
				return errs.InvalidArgumentf("audio element %d has %d samples for %s at %d, want %d",
					aeID, len(s), l, ts, numSamples)
			}
			numSamples = len(s)
		}
	}
	if numSamples > e.generator.FrameSize() {
		return errs.InvalidArgumentf("temporal unit at %d has %d samples, more than the frame size %d",
			ts, numSamples, e.generator.FrameSize())
	}

	// Every element is down-mixed before any substream clock advances.
	type downMixed struct {
		coefficients demix.Coefficients
		substreams   map[uint32][][]int32
	}
	mixed := make([]downMixed, len(e.elementIDs))
	for i, aeID := range e.elementIDs {
		c, err := e.params.DemixingCoefficients(aeID, ts)
		if err != nil {
			return err
		}
		substreams, err := e.demixer.DownMixSamplesToSubstreams(aeID, c, e.pending[aeID])
		if err != nil {
			return err
		}
		mixed[i] = downMixed{coefficients: c, substreams: substreams}
	}

	delay := int64(e.generator.Delay())
	for i, aeID := range e.elementIDs {
		for _, id := range e.descriptors.AudioElements[aeID].Obu.SubstreamIDs {
			if err := e.generator.AddSamples(id, mixed[i].substreams[id]); err != nil {
				return err
			}
		}
		if err := e.params.UpdateDemixingState(aeID, ts); err != nil {
			return err
		}
		e.coefficients[aeID] = append(e.coefficients[aeID], coefficientsAt{start: ts + delay, coefficients: mixed[i].coefficients})
		e.metrics.RecordSamples(aeID, numSamples)
	}
	clear(e.pending)
	return nil
}

// coefficientsFor returns the down-mix weights of the input that landed at
// output timestamp ts and forgets the older ones.
func (e *Encoder) coefficientsFor(aeID uint32, ts int64) demix.Coefficients {
	entries := e.coefficients[aeID]
	i := 0
	for i+1 < len(entries) && entries[i+1].start <= ts {
		i++
	}
	e.coefficients[aeID] = entries[i:]
	if len(entries) == 0 {
		c, _ := demix.NewCoefficients(obu.DMixPMode1, 0)
		return c
	}
	return entries[i].coefficients
}

func (e *Encoder) fillAudio(tu *TemporalUnit, frames []audioframe.WithData) error {
	trimStart, trimEnd, err := reconcile.ValidateAndGetCommonTrim(uint32(e.generator.FrameSize()), frames)
	if err != nil {
		return err
	}
	tu.AudioFrames = frames
	tu.OutputTimestamp = frames[0].StartTimestamp
	tu.EndTimestamp = frames[0].EndTimestamp
	tu.SamplesToTrimAtStart = trimStart
	tu.SamplesToTrimAtEnd = trimEnd

	decoded := make(map[uint32]map[uint32][][]int32, len(e.elementIDs))
	for _, f := range frames {
		samples, err := e.decoder.Decode(f)
		if err != nil {
			return err
		}
		if decoded[f.AudioElementID] == nil {
			decoded[f.AudioElementID] = make(map[uint32][][]int32)
		}
		decoded[f.AudioElementID][f.Obu.SubstreamID] = samples
		e.metrics.RecordAudioFrame(f.Obu.SubstreamID, len(f.Obu.Data))
	}

	tu.LabeledFrames = make(map[uint32]demix.LabeledFrame, len(decoded))
	for aeID, substreams := range decoded {
		c := e.coefficientsFor(aeID, tu.OutputTimestamp)
		samples, err := e.demixer.DemixDecodedSamples(aeID, c, substreams)
		if err != nil {
			return err
		}
		tu.LabeledFrames[aeID] = demix.LabeledFrame{
			SamplesToTrimAtStart: trimStart,
			SamplesToTrimAtEnd:   trimEnd,
			Samples:              samples,
		}
	}
	return nil
}

// fillParameterBlocks moves the queued blocks starting before the end of
// the unit into it, or every queued block once the audio is drained.
func (e *Encoder) fillParameterBlocks(tu *TemporalUnit, frames []audioframe.WithData, drained bool) {
	slices.SortStableFunc(e.queued, func(a, b *param.BlockWithData) int {
		return cmp.Compare(a.StartTimestamp, b.StartTimestamp)
	})

	n := len(e.queued)
	if !drained {
		end := frames[0].EndTimestamp
		n = 0
		for n < len(e.queued) && e.queued[n].StartTimestamp < end {
			n++
		}
	}

	for _, b := range e.queued[:n] {
		switch b.Type() {
		case obu.ParamMixGain:
			tu.MixGainBlocks = append(tu.MixGainBlocks, b)
		case obu.ParamDemixing:
			tu.DemixingBlocks = append(tu.DemixingBlocks, b)
		case obu.ParamReconGain:
			tu.ReconGainBlocks = append(tu.ReconGainBlocks, b)
		}
		e.metrics.RecordParameterBlock(b.Type().String())
	}
	e.queued = slices.Delete(e.queued, 0, n)
}

// AudioElement returns the audio element with the given ID, once the
// descriptors are generated.
func (e *Encoder) AudioElement(id uint32) (*element.WithData, error) {
	if e.descriptors == nil {
		return nil, errs.FailedPreconditionf("descriptors are not generated yet")
	}
	return errs.LookupInMap(e.descriptors.AudioElements, id, "Audio element for audio_element_id")
}
