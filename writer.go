// SPDX-License-Identifier: EPL-2.0

package iamf

import (
	"fmt"
	"io"

	"github.com/ik5/iamf/bitbuffer"
	"github.com/ik5/iamf/obu"
)

// SequenceWriter serializes descriptors and temporal units to w.
type SequenceWriter struct {
	w   io.Writer
	leb bitbuffer.LebGenerator

	// TemporalDelimiters writes a temporal delimiter OBU in front of every
	// non-empty temporal unit.
	TemporalDelimiters bool

	written int64
}

// NewSequenceWriter returns a writer encoding ULEB128 fields with leb.
func NewSequenceWriter(w io.Writer, leb bitbuffer.LebGenerator) *SequenceWriter {
	return &SequenceWriter{w: w, leb: leb}
}

// Written returns the number of bytes written so far.
func (s *SequenceWriter) Written() int64 { return s.written }

func (s *SequenceWriter) write(obus []obu.OBU) error {
	wb := bitbuffer.NewWriteBitBuffer(s.leb)
	for _, o := range obus {
		if err := obu.Write(wb, o); err != nil {
			return err
		}
	}
	data, err := wb.Bytes()
	if err != nil {
		return err
	}
	n, err := s.w.Write(data)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write sequence: %w", err)
	}
	return nil
}

// WriteDescriptors writes the descriptor OBUs.
func (s *SequenceWriter) WriteDescriptors(d *Descriptors) error {
	return s.write(d.OBUs())
}

// WriteTemporalUnit writes the OBUs of tu. Empty units write nothing.
func (s *SequenceWriter) WriteTemporalUnit(tu *TemporalUnit) error {
	if tu.Empty() {
		return nil
	}
	obus := tu.OBUs()
	if s.TemporalDelimiters {
		obus = append([]obu.OBU{obu.TemporalDelimiter{}}, obus...)
	}
	return s.write(obus)
}
