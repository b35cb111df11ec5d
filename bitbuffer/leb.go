// SPDX-License-Identifier: EPL-2.0

package bitbuffer

import "github.com/ik5/iamf/errs"

// LebMode selects how a LebGenerator sizes encoded values.
type LebMode int

const (
	// LebMinimum encodes each value with as few bytes as possible.
	LebMinimum LebMode = iota
	// LebFixedSize pads every value to the same number of bytes.
	LebFixedSize
)

// LebGenerator encodes ULEB128 values.
type LebGenerator struct {
	mode      LebMode
	fixedSize int
}

// NewLebGenerator returns a generator producing minimal encodings.
func NewLebGenerator() LebGenerator {
	return LebGenerator{mode: LebMinimum}
}

// NewFixedSizeLebGenerator returns a generator that always emits size bytes.
// size must be in [1, 8].
func NewFixedSizeLebGenerator(size int) (LebGenerator, error) {
	if size < 1 || size > maxLeb128Size {
		return LebGenerator{}, errs.InvalidArgumentf("fixed LEB128 size %d must be in [1, %d]", size, maxLeb128Size)
	}
	return LebGenerator{mode: LebFixedSize, fixedSize: size}, nil
}

// Mode returns the generator's sizing mode.
func (g LebGenerator) Mode() LebMode { return g.mode }

// FixedSize returns the padded width, or 0 in LebMinimum mode.
func (g LebGenerator) FixedSize() int { return g.fixedSize }

// Encode returns the ULEB128 bytes for v.
func (g LebGenerator) Encode(v uint32) ([]byte, error) {
	out := make([]byte, 0, maxLeb128Size)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}

	if g.mode != LebFixedSize {
		return out, nil
	}
	if len(out) > g.fixedSize {
		return nil, errs.InvalidArgumentf("value needs %d bytes but the generator is fixed to %d", len(out), g.fixedSize)
	}
	for len(out) < g.fixedSize {
		out[len(out)-1] |= 0x80
		out = append(out, 0x00)
	}
	return out, nil
}
