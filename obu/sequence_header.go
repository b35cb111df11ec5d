// SPDX-License-Identifier: EPL-2.0

package obu

import (
	"github.com/ik5/iamf/bitbuffer"
	"github.com/ik5/iamf/errs"
)

// IACode is the "iamf" four-character code that opens every sequence header.
const IACode uint32 = 0x69616d66

// Profile is an IAMF profile version.
type Profile uint8

const (
	ProfileSimple Profile = iota
	ProfileBase
	ProfileBaseEnhanced
)

func (p Profile) String() string {
	switch p {
	case ProfileSimple:
		return "simple"
	case ProfileBase:
		return "base"
	case ProfileBaseEnhanced:
		return "base-enhanced"
	default:
		return "reserved"
	}
}

// SequenceHeader is the IA sequence header OBU.
type SequenceHeader struct {
	Header            Header
	PrimaryProfile    Profile
	AdditionalProfile Profile
}

// NewSequenceHeader returns a sequence header for the given profiles.
func NewSequenceHeader(primary, additional Profile) *SequenceHeader {
	return &SequenceHeader{
		Header:            Header{Type: TypeSequenceHeader},
		PrimaryProfile:    primary,
		AdditionalProfile: additional,
	}
}

func (s *SequenceHeader) ObuHeader() Header { return s.Header }

// Validate checks the profiles.
func (s *SequenceHeader) Validate() error {
	if s.PrimaryProfile > ProfileBaseEnhanced {
		return errs.Unimplementedf("primary profile %d is not supported", s.PrimaryProfile)
	}
	if s.AdditionalProfile < s.PrimaryProfile {
		return errs.InvalidArgumentf("additional profile %s is lower than primary profile %s",
			s.AdditionalProfile, s.PrimaryProfile)
	}
	return nil
}

func (s *SequenceHeader) writePayload(wb *bitbuffer.WriteBitBuffer) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := wb.WriteUnsignedLiteral(uint64(IACode), 32); err != nil {
		return err
	}
	if err := wb.WriteUnsignedLiteral(uint64(s.PrimaryProfile), 8); err != nil {
		return err
	}
	return wb.WriteUnsignedLiteral(uint64(s.AdditionalProfile), 8)
}

// ReadSequenceHeader parses the payload of a sequence header OBU.
func ReadSequenceHeader(h Header, rb *bitbuffer.ReadBitBuffer) (*SequenceHeader, error) {
	code, err := rb.ReadUint32(32)
	if err != nil {
		return nil, err
	}
	if code != IACode {
		return nil, errs.InvalidArgumentf("ia_code %#x is not %#x", code, IACode)
	}

	primary, err := rb.ReadUint8(8)
	if err != nil {
		return nil, err
	}
	additional, err := rb.ReadUint8(8)
	if err != nil {
		return nil, err
	}

	s := &SequenceHeader{Header: h, PrimaryProfile: Profile(primary), AdditionalProfile: Profile(additional)}
	return s, s.Validate()
}
