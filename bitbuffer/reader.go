// SPDX-License-Identifier: EPL-2.0

package bitbuffer

import (
	"fmt"
	"math"

	"github.com/ik5/iamf/errs"
)

// ReadBitBuffer reads MSB-first bit fields from a growable byte source.
//
// Bits are pulled from the source into a fixed-capacity window that is
// allocated once and reused across reloads. The window never holds more than
// the capacity given to NewReadBitBuffer, so a single read wider than the
// capacity fails with errs.ErrResourceExhausted.
//
// Invariant: windowOffset <= windowBits <= capacityBits, and
// sourceBitOffset <= 8*len(source).
type ReadBitBuffer struct {
	source []byte

	window       []byte
	capacityBits int64
	windowBits   int64 // bits currently loaded into window
	windowOffset int64 // bits of window already consumed

	sourceBitOffset int64 // next source bit to load into window
}

// NewReadBitBuffer creates a reader with a window of capacityBits bits over
// source. The reader never modifies source.
func NewReadBitBuffer(capacityBits int64, source []byte) *ReadBitBuffer {
	if capacityBits < 0 {
		capacityBits = 0
	}

	return &ReadBitBuffer{
		source:       source,
		window:       make([]byte, (capacityBits+7)/8),
		capacityBits: capacityBits,
	}
}

// PushBytes appends data to the end of the source.
func (rb *ReadBitBuffer) PushBytes(data []byte) {
	rb.source = append(rb.source, data...)
}

func (rb *ReadBitBuffer) sourceBits() int64 {
	return int64(len(rb.source)) * 8
}

// Tell returns the absolute bit position of the next bit to be read.
func (rb *ReadBitBuffer) Tell() int64 {
	return rb.sourceBitOffset - (rb.windowBits - rb.windowOffset)
}

// SeekBit moves the read position to bitPosition and discards the window.
func (rb *ReadBitBuffer) SeekBit(bitPosition int64) error {
	if bitPosition < 0 {
		return fmt.Errorf("%w: %w: seek position %d is negative",
			errs.ErrInvalidArgument, errs.ErrOutOfRange, bitPosition)
	}
	if bitPosition > rb.sourceBits() {
		return errs.ResourceExhaustedf("seek position %d is beyond the source size of %d bits",
			bitPosition, rb.sourceBits())
	}

	rb.sourceBitOffset = bitPosition
	rb.discardAllBits()
	return nil
}

// IsDataAvailable reports whether any unread bit remains in the window or
// the source.
func (rb *ReadBitBuffer) IsDataAvailable() bool {
	return rb.windowOffset < rb.windowBits || rb.sourceBitOffset < rb.sourceBits()
}

func (rb *ReadBitBuffer) discardAllBits() {
	rb.windowBits = 0
	rb.windowOffset = 0
}

// loadBits refills the window so that it holds at least required bits,
// starting at the current read position. A failed load leaves the read
// position untouched.
func (rb *ReadBitBuffer) loadBits(required int64) error {
	start := rb.Tell()
	rb.sourceBitOffset = start
	rb.discardAllBits()

	remaining := required
	total := rb.sourceBits()
	for remaining > 0 && rb.sourceBitOffset < total && rb.windowBits < rb.capacityBits {
		if remaining < 8 || rb.sourceBitOffset%8 != 0 || rb.windowBits%8 != 0 ||
			rb.windowBits+8 > rb.capacityBits {
			shift := 7 - rb.sourceBitOffset%8
			rb.appendBit((rb.source[rb.sourceBitOffset/8] >> shift) & 1)
			rb.sourceBitOffset++
			remaining--
			continue
		}

		rb.window[rb.windowBits/8] = rb.source[rb.sourceBitOffset/8]
		rb.windowBits += 8
		rb.sourceBitOffset += 8
		remaining -= 8
	}

	if remaining > 0 {
		rb.sourceBitOffset = start
		rb.discardAllBits()
		return errs.ResourceExhaustedf("not enough bits in source: requested %d bits at bit %d", required, start)
	}

	return nil
}

func (rb *ReadBitBuffer) appendBit(bit byte) {
	idx := rb.windowBits / 8
	shift := 7 - rb.windowBits%8
	if shift == 7 {
		rb.window[idx] = 0
	}
	rb.window[idx] |= bit << shift
	rb.windowBits++
}

func (rb *ReadBitBuffer) readLiteral(numBits, width int) (uint64, error) {
	if numBits < 0 || numBits > 64 {
		return 0, errs.InvalidArgumentf("num_bits= %d must be in [0, 64]", numBits)
	}
	if numBits > width {
		return 0, errs.InvalidArgumentf("num_bits= %d does not fit a %d-bit destination", numBits, width)
	}
	if numBits == 0 {
		return 0, nil
	}

	if rb.windowBits-rb.windowOffset < int64(numBits) {
		if err := rb.loadBits(int64(numBits)); err != nil {
			return 0, err
		}
	}

	var value uint64
	remaining := numBits
	for remaining > 0 {
		b := uint(rb.window[rb.windowOffset/8])
		avail := 8 - int(rb.windowOffset%8)
		take := min(avail, remaining)

		bits := (b >> (avail - take)) & (1<<take - 1)
		value = value<<take | uint64(bits)

		rb.windowOffset += int64(take)
		remaining -= take
	}

	return value, nil
}

// ReadUnsignedLiteral reads numBits bits, MSB first, into a 64-bit value.
func (rb *ReadBitBuffer) ReadUnsignedLiteral(numBits int) (uint64, error) {
	return rb.readLiteral(numBits, 64)
}

// ReadUint32 reads numBits (at most 32) bits.
func (rb *ReadBitBuffer) ReadUint32(numBits int) (uint32, error) {
	v, err := rb.readLiteral(numBits, 32)
	return uint32(v), err
}

// ReadUint16 reads numBits (at most 16) bits.
func (rb *ReadBitBuffer) ReadUint16(numBits int) (uint16, error) {
	v, err := rb.readLiteral(numBits, 16)
	return uint16(v), err
}

// ReadUint8 reads numBits (at most 8) bits.
func (rb *ReadBitBuffer) ReadUint8(numBits int) (uint8, error) {
	v, err := rb.readLiteral(numBits, 8)
	return uint8(v), err
}

// ReadBoolean reads a single bit.
func (rb *ReadBitBuffer) ReadBoolean() (bool, error) {
	v, err := rb.readLiteral(1, 1)
	return v == 1, err
}

// ReadSigned16 reads 16 bits as a two's-complement integer.
func (rb *ReadBitBuffer) ReadSigned16() (int16, error) {
	v, err := rb.readLiteral(16, 16)
	return int16(uint16(v)), err
}

// ReadULeb128 reads an unsigned LEB128 value of at most 8 bytes that must
// fit in 32 bits.
func (rb *ReadBitBuffer) ReadULeb128() (uint32, error) {
	v, _, err := rb.ReadULeb128WithSize()
	return v, err
}

// ReadULeb128WithSize is ReadULeb128 that also returns the number of bytes
// consumed, trailing zero-valued continuation bytes included.
func (rb *ReadBitBuffer) ReadULeb128WithSize() (uint32, int, error) {
	var acc uint64
	for i := range maxLeb128Size {
		b, err := rb.ReadUint8(8)
		if err != nil {
			return 0, 0, err
		}

		acc |= uint64(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			if acc > math.MaxUint32 {
				return 0, 0, errs.InvalidArgumentf("decoded ULEB128 value %d overflows 32 bits", acc)
			}
			return uint32(acc), i + 1, nil
		}
	}

	return 0, 0, errs.InvalidArgumentf("ULEB128 is longer than %d bytes", maxLeb128Size)
}

// ReadISO14496Expanded reads an ISO/IEC 14496-1 expandable size field: up to
// 8 big-endian groups of 7 bits. The value must fit in 32 bits and must not
// exceed maxClassSize.
func (rb *ReadBitBuffer) ReadISO14496Expanded(maxClassSize uint32) (uint32, error) {
	var acc uint64
	for range maxISO14496ExpandedSize {
		b, err := rb.ReadUint8(8)
		if err != nil {
			return 0, err
		}

		acc = acc<<7 | uint64(b&0x7f)
		if acc > math.MaxUint32 {
			return 0, errs.InvalidArgumentf("expanded size does not fit into 32 bits")
		}

		if b&0x80 == 0 {
			if acc > uint64(maxClassSize) {
				return 0, errs.InvalidArgumentf("expanded size %d exceeds the max class size %d", acc, maxClassSize)
			}
			return uint32(acc), nil
		}
	}

	return 0, errs.InvalidArgumentf("expanded size signals more than %d bytes", maxISO14496ExpandedSize)
}

// ReadUint8Span fills dst with the next len(dst) bytes. The read position
// does not need to be byte aligned.
func (rb *ReadBitBuffer) ReadUint8Span(dst []byte) error {
	needed := int64(len(dst)) * 8
	if rb.Tell()+needed > rb.sourceBits() {
		return errs.ResourceExhaustedf("not enough data to read %d bytes at bit %d", len(dst), rb.Tell())
	}

	chunkBits := rb.capacityBits / 8 * 8
	written := 0
	for written < len(dst) {
		if rb.windowBits-rb.windowOffset < 8 {
			if err := rb.loadBits(min(int64(len(dst)-written)*8, max(chunkBits, 8))); err != nil {
				return err
			}
		}

		shift := uint(rb.windowOffset % 8)
		idx := rb.windowOffset / 8
		n := min(int((rb.windowBits-rb.windowOffset)/8), len(dst)-written)
		if shift == 0 {
			copy(dst[written:written+n], rb.window[idx:idx+int64(n)])
		} else {
			for i := range n {
				hi := rb.window[idx+int64(i)] << shift
				lo := rb.window[idx+int64(i)+1] >> (8 - shift)
				dst[written+i] = hi | lo
			}
		}

		rb.windowOffset += int64(n) * 8
		written += n
	}

	return nil
}

// ReadString reads a null-terminated string of at most MaxStringSize bytes,
// the terminator included.
func (rb *ReadBitBuffer) ReadString() (string, error) {
	buf := make([]byte, 0, MaxStringSize)
	for range MaxStringSize {
		b, err := rb.ReadUint8(8)
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}

	return "", errs.InvalidArgumentf("string is missing a null terminator within %d bytes", MaxStringSize)
}
