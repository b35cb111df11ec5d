// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"testing"
)

// mockMP3Reader returns at most chunk bytes per Read.
type mockMP3Reader struct {
	data  []byte
	chunk int
}

func (m *mockMP3Reader) SampleRate() int { return 44100 }

func (m *mockMP3Reader) Read(buf []byte) (int, error) {
	if len(m.data) == 0 {
		return 0, io.EOF
	}
	n := copy(buf[:min(len(buf), m.chunk)], m.data)
	m.data = m.data[n:]
	return n, nil
}

func pcm16(samples ...int16) []byte {
	buf := new(bytes.Buffer)
	for _, s := range samples {
		_ = binary.Write(buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := (Decoder{}).Decode(bytes.NewReader([]byte("not an mp3"))); err == nil {
		t.Error("Decode() error = nil, want error")
	}
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		chunk int
	}{
		{"whole reads", 1 << 10},
		{"split frames", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := &source{
				dec:        &mockMP3Reader{data: pcm16(1, -1, 2, -2, 32767, -32768), chunk: tt.chunk},
				sampleRate: 44100,
			}
			if s.Channels() != 2 || s.SampleRate() != 44100 {
				t.Fatalf("source = %d channels at %d Hz", s.Channels(), s.SampleRate())
			}

			var got []int32
			buf := make([]int32, 4)
			for {
				n, err := s.ReadSamples(buf)
				got = append(got, buf[:n]...)
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("ReadSamples() error = %v", err)
				}
			}

			want := []int32{1 << 16, -1 << 16, 2 << 16, -2 << 16, 32767 << 16, -32768 << 16}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("ReadSamples() = %v, want %v", got, want)
			}
		})
	}
}
