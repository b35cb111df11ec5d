// SPDX-License-Identifier: EPL-2.0

package bitbuffer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/icza/bitio"

	"github.com/ik5/iamf/errs"
)

// WriteBitBuffer accumulates MSB-first bit fields into an in-memory buffer.
type WriteBitBuffer struct {
	buf  *bytes.Buffer
	w    *bitio.Writer
	bits int64
	leb  LebGenerator
}

// NewWriteBitBuffer returns an empty writer encoding ULEB128 values with leb.
func NewWriteBitBuffer(leb LebGenerator) *WriteBitBuffer {
	buf := &bytes.Buffer{}
	return &WriteBitBuffer{buf: buf, w: bitio.NewWriter(buf), leb: leb}
}

// Leb returns the generator used for ULEB128 fields.
func (wb *WriteBitBuffer) Leb() LebGenerator { return wb.leb }

// Tell returns the number of bits written so far.
func (wb *WriteBitBuffer) Tell() int64 { return wb.bits }

// IsByteAligned reports whether a whole number of bytes has been written.
func (wb *WriteBitBuffer) IsByteAligned() bool { return wb.bits%8 == 0 }

// WriteUnsignedLiteral writes the low numBits bits of data, MSB first. data
// must fit in numBits.
func (wb *WriteBitBuffer) WriteUnsignedLiteral(data uint64, numBits int) error {
	if numBits < 0 || numBits > 64 {
		return errs.InvalidArgumentf("num_bits= %d must be in [0, 64]", numBits)
	}
	if numBits < 64 && data>>numBits != 0 {
		return errs.InvalidArgumentf("value %d does not fit in %d bits", data, numBits)
	}
	if numBits == 0 {
		return nil
	}

	if err := wb.w.WriteBits(data, uint8(numBits)); err != nil {
		return fmt.Errorf("writing %d bits: %w", numBits, err)
	}
	wb.bits += int64(numBits)
	return nil
}

// WriteBoolean writes a single bit.
func (wb *WriteBitBuffer) WriteBoolean(v bool) error {
	var bit uint64
	if v {
		bit = 1
	}
	return wb.WriteUnsignedLiteral(bit, 1)
}

// WriteSigned16 writes v as 16 two's-complement bits.
func (wb *WriteBitBuffer) WriteSigned16(v int16) error {
	return wb.WriteUnsignedLiteral(uint64(uint16(v)), 16)
}

// WriteULeb128 writes v with the writer's LebGenerator.
func (wb *WriteBitBuffer) WriteULeb128(v uint32) error {
	encoded, err := wb.leb.Encode(v)
	if err != nil {
		return err
	}
	return wb.WriteUint8Span(encoded)
}

// WriteISO14496Expanded writes v as the minimal ISO/IEC 14496-1 expandable
// size field.
func (wb *WriteBitBuffer) WriteISO14496Expanded(v uint32) error {
	var groups [maxISO14496ExpandedSize]byte
	n := 0
	for {
		groups[n] = byte(v & 0x7f)
		n++
		v >>= 7
		if v == 0 {
			break
		}
	}

	for i := n - 1; i >= 0; i-- {
		b := groups[i]
		if i > 0 {
			b |= 0x80
		}
		if err := wb.WriteUnsignedLiteral(uint64(b), 8); err != nil {
			return err
		}
	}
	return nil
}

// WriteUint8Span writes data byte by byte. The writer need not be aligned.
func (wb *WriteBitBuffer) WriteUint8Span(data []byte) error {
	for _, b := range data {
		if err := wb.WriteUnsignedLiteral(uint64(b), 8); err != nil {
			return err
		}
	}
	return nil
}

// WriteString writes s followed by a null terminator.
func (wb *WriteBitBuffer) WriteString(s string) error {
	if len(s)+1 > MaxStringSize {
		return errs.InvalidArgumentf("string of %d bytes exceeds the maximum of %d with its terminator", len(s), MaxStringSize)
	}
	if strings.IndexByte(s, 0) >= 0 {
		return errs.InvalidArgumentf("string contains an embedded null byte")
	}

	if err := wb.WriteUint8Span([]byte(s)); err != nil {
		return err
	}
	return wb.WriteUnsignedLiteral(0, 8)
}

// Bytes returns everything written so far. The writer must be byte aligned.
func (wb *WriteBitBuffer) Bytes() ([]byte, error) {
	if !wb.IsByteAligned() {
		return nil, errs.InvalidArgumentf("buffer is not byte aligned after %d bits", wb.bits)
	}
	return wb.buf.Bytes(), nil
}
