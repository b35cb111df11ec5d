// SPDX-License-Identifier: EPL-2.0

// Package timing keeps the clocks of every substream and parameter stream of
// an IA sequence.
//
// A substream has two clocks. The input clock counts the samples fed to its
// codec, including the padding and silence used to flush it. The output
// clock counts the samples of the audio frames emitted so far. A sample fed
// at input timestamp t is coded at output timestamp t+delay, where delay is
// the number of samples the codec holds back at the start.
//
// A parameter stream has a single clock: the start timestamp the next
// parameter block must carry.
package timing

import (
	"slices"

	"github.com/ik5/iamf/errs"
)

type substreamClock struct {
	delay  int64
	input  int64
	output int64
}

type parameterClock struct {
	next int64
}

// Module owns the clocks. The zero value is not usable; call New.
type Module struct {
	substreams map[uint32]*substreamClock
	parameters map[uint32]*parameterClock
}

// New returns a module with no registered streams.
func New() *Module {
	return &Module{
		substreams: make(map[uint32]*substreamClock),
		parameters: make(map[uint32]*parameterClock),
	}
}

// AddSubstream registers a substream whose codec delays its output by delay
// samples.
func (m *Module) AddSubstream(id uint32, delay int) error {
	if _, ok := m.substreams[id]; ok {
		return errs.InvalidArgumentf("substream %d is already registered", id)
	}
	if delay < 0 {
		return errs.InvalidArgumentf("substream %d: negative codec delay %d", id, delay)
	}
	m.substreams[id] = &substreamClock{delay: int64(delay)}
	return nil
}

// AddParameter registers a parameter stream starting at timestamp 0.
func (m *Module) AddParameter(id uint32) error {
	if _, ok := m.parameters[id]; ok {
		return errs.InvalidArgumentf("parameter %d is already registered", id)
	}
	m.parameters[id] = &parameterClock{}
	return nil
}

func (m *Module) substream(id uint32) (*substreamClock, error) {
	return errs.LookupInMap(m.substreams, id, "substream_id")
}

// AdvanceInput moves the input clock of a substream by n samples and returns
// the interval they occupy.
func (m *Module) AdvanceInput(id uint32, n int) (start, end int64, err error) {
	c, err := m.substream(id)
	if err != nil {
		return 0, 0, err
	}
	if n < 0 {
		return 0, 0, errs.InvalidArgumentf("substream %d: negative sample count %d", id, n)
	}
	start = c.input
	c.input += int64(n)
	return start, c.input, nil
}

// AdvanceOutput moves the output clock of a substream by the n samples of a
// newly emitted frame. A frame cannot end after the last sample fed.
func (m *Module) AdvanceOutput(id uint32, n int) (start, end int64, err error) {
	c, err := m.substream(id)
	if err != nil {
		return 0, 0, err
	}
	if n < 0 {
		return 0, 0, errs.InvalidArgumentf("substream %d: negative sample count %d", id, n)
	}
	if c.output+int64(n) > c.input {
		return 0, 0, errs.Internalf("substream %d: frame ending at %d was never fed (input at %d)",
			id, c.output+int64(n), c.input)
	}
	start = c.output
	c.output += int64(n)
	return start, c.output, nil
}

// Delay returns the codec delay of a substream.
func (m *Module) Delay(id uint32) (int, error) {
	c, err := m.substream(id)
	if err != nil {
		return 0, err
	}
	return int(c.delay), nil
}

// SubstreamTimestamps returns the input and output clocks of a substream.
func (m *Module) SubstreamTimestamps(id uint32) (input, output int64, err error) {
	c, err := m.substream(id)
	if err != nil {
		return 0, 0, err
	}
	return c.input, c.output, nil
}

// AdvanceParameter checks that a block of a parameter stream starts where
// the previous block ended and moves the clock past it.
func (m *Module) AdvanceParameter(id uint32, start int64, duration uint32) (end int64, err error) {
	c, err := errs.LookupInMap(m.parameters, id, "parameter_id")
	if err != nil {
		return 0, err
	}
	if start != c.next {
		return 0, errs.InvalidArgumentf("parameter %d: block starts at %d, want %d", id, start, c.next)
	}
	if duration == 0 {
		return 0, errs.InvalidArgumentf("parameter %d: block at %d has zero duration", id, start)
	}
	c.next += int64(duration)
	return c.next, nil
}

// NextParameterTimestamp returns the start the next block of a parameter
// stream must carry.
func (m *Module) NextParameterTimestamp(id uint32) (int64, error) {
	c, err := errs.LookupInMap(m.parameters, id, "parameter_id")
	if err != nil {
		return 0, err
	}
	return c.next, nil
}

// InputTimestamp returns the input clock shared by every substream. It
// fails when the substreams disagree.
func (m *Module) InputTimestamp() (int64, error) {
	return m.common("input", func(c *substreamClock) int64 { return c.input })
}

// OutputTimestamp returns the output clock shared by every substream. It
// fails when the substreams disagree.
func (m *Module) OutputTimestamp() (int64, error) {
	return m.common("output", func(c *substreamClock) int64 { return c.output })
}

func (m *Module) common(what string, get func(*substreamClock) int64) (int64, error) {
	ids := make([]uint32, 0, len(m.substreams))
	for id := range m.substreams {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var ts int64
	for i, id := range ids {
		v := get(m.substreams[id])
		if i == 0 {
			ts = v
			continue
		}
		if v != ts {
			return 0, errs.InvalidArgumentf("substream %d is at %s timestamp %d, substream %d at %d",
				id, what, v, ids[0], ts)
		}
	}
	return ts, nil
}
