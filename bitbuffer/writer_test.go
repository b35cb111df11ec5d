// SPDX-License-Identifier: EPL-2.0

package bitbuffer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ik5/iamf/errs"
)

func TestWriteUnsignedLiteral(t *testing.T) {
	t.Parallel()

	wb := NewWriteBitBuffer(NewLebGenerator())
	if err := wb.WriteUnsignedLiteral(0b101, 3); err != nil {
		t.Fatalf("WriteUnsignedLiteral(0b101, 3) error = %v", err)
	}
	if _, err := wb.Bytes(); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("Bytes() while misaligned error = %v, want ErrInvalidArgument", err)
	}
	if err := wb.WriteUnsignedLiteral(0b00001, 5); err != nil {
		t.Fatalf("WriteUnsignedLiteral(1, 5) error = %v", err)
	}
	if err := wb.WriteUnsignedLiteral(0xabcd, 16); err != nil {
		t.Fatalf("WriteUnsignedLiteral(0xabcd, 16) error = %v", err)
	}

	got, err := wb.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if want := []byte{0b10100001, 0xab, 0xcd}; !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %x, want %x", got, want)
	}
	if wb.Tell() != 24 {
		t.Errorf("Tell() = %d, want 24", wb.Tell())
	}
}

func TestWriteUnsignedLiteral_Overflow(t *testing.T) {
	t.Parallel()

	wb := NewWriteBitBuffer(NewLebGenerator())
	if err := wb.WriteUnsignedLiteral(8, 3); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("WriteUnsignedLiteral(8, 3) error = %v, want ErrInvalidArgument", err)
	}
	if err := wb.WriteUnsignedLiteral(0, 65); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("WriteUnsignedLiteral(0, 65) error = %v, want ErrInvalidArgument", err)
	}
	if wb.Tell() != 0 {
		t.Errorf("Tell() = %d, want 0", wb.Tell())
	}
}

func TestWriteSigned16AndBoolean(t *testing.T) {
	t.Parallel()

	wb := NewWriteBitBuffer(NewLebGenerator())
	for _, v := range []bool{true, false, false, false, false, false, false, true} {
		if err := wb.WriteBoolean(v); err != nil {
			t.Fatalf("WriteBoolean(%v) error = %v", v, err)
		}
	}
	if err := wb.WriteSigned16(-2); err != nil {
		t.Fatalf("WriteSigned16(-2) error = %v", err)
	}

	got, err := wb.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if want := []byte{0x81, 0xff, 0xfe}; !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %x, want %x", got, want)
	}
}

func TestLebGenerator_Encode(t *testing.T) {
	t.Parallel()

	fixed2, err := NewFixedSizeLebGenerator(2)
	if err != nil {
		t.Fatalf("NewFixedSizeLebGenerator(2) error = %v", err)
	}
	fixed8, err := NewFixedSizeLebGenerator(8)
	if err != nil {
		t.Fatalf("NewFixedSizeLebGenerator(8) error = %v", err)
	}

	tests := []struct {
		name    string
		gen     LebGenerator
		value   uint32
		want    []byte
		wantErr bool
	}{
		{"minimal zero", NewLebGenerator(), 0, []byte{0x00}, false},
		{"minimal 127", NewLebGenerator(), 127, []byte{0x7f}, false},
		{"minimal 128", NewLebGenerator(), 128, []byte{0x80, 0x01}, false},
		{"minimal max", NewLebGenerator(), 0xffffffff, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}, false},
		{"fixed pads", fixed2, 1, []byte{0x81, 0x00}, false},
		{"fixed exact", fixed2, 128, []byte{0x80, 0x01}, false},
		{"fixed too small", fixed2, 1 << 14, nil, true},
		{"fixed eight", fixed8, 1, []byte{0x81, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.gen.Encode(tt.value)
			if tt.wantErr {
				if !errors.Is(err, errs.ErrInvalidArgument) {
					t.Fatalf("Encode(%d) error = %v, want ErrInvalidArgument", tt.value, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Encode(%d) error = %v", tt.value, err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode(%d) = %x, want %x", tt.value, got, tt.want)
			}
		})
	}
}

func TestNewFixedSizeLebGenerator_Bounds(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, 9} {
		if _, err := NewFixedSizeLebGenerator(size); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Errorf("NewFixedSizeLebGenerator(%d) error = %v, want ErrInvalidArgument", size, err)
		}
	}
}

func TestULeb128_RoundTrip(t *testing.T) {
	t.Parallel()

	values := []uint32{0, 1, 127, 128, 300, 1 << 21, 1<<28 - 1, 0xffffffff}
	fixed, err := NewFixedSizeLebGenerator(5)
	if err != nil {
		t.Fatalf("NewFixedSizeLebGenerator(5) error = %v", err)
	}

	for _, gen := range []LebGenerator{NewLebGenerator(), fixed} {
		wb := NewWriteBitBuffer(gen)
		for _, v := range values {
			if err := wb.WriteULeb128(v); err != nil {
				t.Fatalf("WriteULeb128(%d) error = %v", v, err)
			}
		}
		data, err := wb.Bytes()
		if err != nil {
			t.Fatalf("Bytes() error = %v", err)
		}

		rb := NewReadBitBuffer(testCapacity, data)
		for _, want := range values {
			got, size, err := rb.ReadULeb128WithSize()
			if err != nil {
				t.Fatalf("ReadULeb128WithSize() error = %v", err)
			}
			if got != want {
				t.Errorf("ReadULeb128WithSize() = %d, want %d", got, want)
			}
			if gen.Mode() == LebFixedSize && size != gen.FixedSize() {
				t.Errorf("ReadULeb128WithSize() size = %d, want %d", size, gen.FixedSize())
			}
		}
	}
}

func TestWriteISO14496Expanded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value uint32
		want  []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x00}},
		{0x3fff, []byte{0xff, 0x7f}},
		{0x200000, []byte{0x81, 0x80, 0x80, 0x00}},
		{0xffffffff, []byte{0x8f, 0xff, 0xff, 0xff, 0x7f}},
	}

	for _, tt := range tests {
		wb := NewWriteBitBuffer(NewLebGenerator())
		if err := wb.WriteISO14496Expanded(tt.value); err != nil {
			t.Fatalf("WriteISO14496Expanded(%d) error = %v", tt.value, err)
		}
		got, _ := wb.Bytes()
		if !bytes.Equal(got, tt.want) {
			t.Errorf("WriteISO14496Expanded(%d) = %x, want %x", tt.value, got, tt.want)
		}

		rb := NewReadBitBuffer(testCapacity, got)
		if back, err := rb.ReadISO14496Expanded(0xffffffff); err != nil || back != tt.value {
			t.Errorf("ReadISO14496Expanded() = %d, %v, want %d, nil", back, err, tt.value)
		}
	}
}

func TestWriteString(t *testing.T) {
	t.Parallel()

	wb := NewWriteBitBuffer(NewLebGenerator())
	if err := wb.WriteString("en-us"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}
	got, _ := wb.Bytes()
	if want := []byte("en-us\x00"); !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %q, want %q", got, want)
	}

	if err := wb.WriteString(strings.Repeat("a", MaxStringSize)); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("WriteString(too long) error = %v, want ErrInvalidArgument", err)
	}
	if err := wb.WriteString("a\x00b"); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("WriteString(embedded null) error = %v, want ErrInvalidArgument", err)
	}
}

func TestWriteUint8Span_Misaligned(t *testing.T) {
	t.Parallel()

	wb := NewWriteBitBuffer(NewLebGenerator())
	if err := wb.WriteUnsignedLiteral(0xa, 4); err != nil {
		t.Fatalf("WriteUnsignedLiteral() error = %v", err)
	}
	if err := wb.WriteUint8Span([]byte{0xbc, 0xde}); err != nil {
		t.Fatalf("WriteUint8Span() error = %v", err)
	}
	if err := wb.WriteUnsignedLiteral(0xf, 4); err != nil {
		t.Fatalf("WriteUnsignedLiteral() error = %v", err)
	}

	got, _ := wb.Bytes()
	if want := []byte{0xab, 0xcd, 0xef}; !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %x, want %x", got, want)
	}
}
