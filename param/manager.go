// SPDX-License-Identifier: EPL-2.0

package param

import (
	"cmp"
	"slices"

	"github.com/ik5/iamf/demix"
	"github.com/ik5/iamf/element"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/obu"
)

type demixingInterval struct {
	start, end int64
	mode       obu.DMixPMode
}

type demixingState struct {
	defaults  obu.DemixingParams
	intervals []demixingInterval
	prevWIdx  int
}

// Manager tracks the demixing parameters of every audio element. A frame
// covered by a demixing block uses that block's mode, with w_idx moved from
// the previous frame's; a frame with no block falls back to the
// definition's mode and default w.
type Manager struct {
	demixing      map[uint32]*demixingState
	byParameterID map[uint32]uint32
}

// NewManager reads the demixing definitions of elements.
func NewManager(elements map[uint32]*element.WithData) (*Manager, error) {
	m := &Manager{
		demixing:      make(map[uint32]*demixingState),
		byParameterID: make(map[uint32]uint32),
	}
	for id, ae := range elements {
		def := ae.Param(obu.ParamDemixing)
		if def == nil {
			continue
		}
		dp, ok := def.Params.(*obu.DemixingParams)
		if !ok {
			return nil, errs.Internalf("audio element %d: demixing definition holds %T", id, def.Params)
		}
		if err := dp.DmixpMode.Validate(); err != nil {
			return nil, err
		}
		if dp.DefaultW > obu.MaxWIdx {
			return nil, errs.InvalidArgumentf("audio element %d: default_w %d is out of [0, %d]", id, dp.DefaultW, obu.MaxWIdx)
		}
		m.demixing[id] = &demixingState{defaults: *dp}
		m.byParameterID[def.ParameterID] = id
	}
	return m, nil
}

// AddDemixingBlock records the modes of a demixing parameter block.
func (m *Manager) AddDemixingBlock(b *BlockWithData) error {
	if b.Type() != obu.ParamDemixing {
		return errs.InvalidArgumentf("parameter %d carries %s data", b.Obu.ParameterID, b.Type())
	}
	aeID, err := errs.LookupInMap(m.byParameterID, b.Obu.ParameterID, "Audio element for demixing parameter_id")
	if err != nil {
		return err
	}
	s := m.demixing[aeID]

	start := b.StartTimestamp
	for _, sb := range b.Obu.Subblocks {
		end := start + int64(sb.Duration)
		s.intervals = append(s.intervals, demixingInterval{
			start: start,
			end:   end,
			mode:  sb.Data.(*obu.DemixingParameterData).DmixpMode,
		})
		start = end
	}
	slices.SortFunc(s.intervals, func(a, b demixingInterval) int { return cmp.Compare(a.start, b.start) })
	return nil
}

func (s *demixingState) resolve(timestamp int64) (obu.DMixPMode, int, error) {
	for _, iv := range s.intervals {
		if iv.start <= timestamp && timestamp < iv.end {
			w, err := demix.NextWIdx(s.prevWIdx, iv.mode)
			return iv.mode, w, err
		}
	}
	return s.defaults.DmixpMode, int(s.defaults.DefaultW), nil
}

// DemixingCoefficients returns the down-mix weights of the frame of an
// audio element starting at timestamp. Audio elements without a demixing
// definition get the weights of the first mode.
func (m *Manager) DemixingCoefficients(audioElementID uint32, timestamp int64) (demix.Coefficients, error) {
	s, ok := m.demixing[audioElementID]
	if !ok {
		return demix.NewCoefficients(obu.DMixPMode1, 0)
	}
	mode, w, err := s.resolve(timestamp)
	if err != nil {
		return demix.Coefficients{}, err
	}
	return demix.NewCoefficients(mode, w)
}

// UpdateDemixingState commits the w_idx of the frame starting at timestamp
// and forgets the blocks that ended before it.
func (m *Manager) UpdateDemixingState(audioElementID uint32, timestamp int64) error {
	s, ok := m.demixing[audioElementID]
	if !ok {
		return nil
	}
	_, w, err := s.resolve(timestamp)
	if err != nil {
		return err
	}
	s.prevWIdx = w
	s.intervals = slices.DeleteFunc(s.intervals, func(iv demixingInterval) bool { return iv.end <= timestamp })
	return nil
}
