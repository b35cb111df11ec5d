// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/ik5/iamf/internal/audiotest"
)

func TestFramer(t *testing.T) {
	t.Parallel()

	f, err := NewFramer(audiotest.NewRampSource(48000, 2, 5), 2)
	if err != nil {
		t.Fatalf("NewFramer() error = %v", err)
	}

	want := [][][]int32{
		{{0 << 16, 2 << 16}, {1 << 16, 3 << 16}},
		{{4 << 16, 6 << 16}, {5 << 16, 7 << 16}},
		{{8 << 16}, {9 << 16}},
	}
	for i, w := range want {
		got, err := f.Next()
		if err != nil {
			t.Fatalf("Next() #%d error = %v", i, err)
		}
		if !reflect.DeepEqual(got, w) {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
	for range 2 {
		if _, err := f.Next(); !errors.Is(err, io.EOF) {
			t.Errorf("Next() after end error = %v, want io.EOF", err)
		}
	}
}

func TestNewFramer_InvalidFrameSize(t *testing.T) {
	t.Parallel()

	if _, err := NewFramer(audiotest.NewSilentSource(48000, 1, 1), 0); !errors.Is(err, ErrInvalidFrameSize) {
		t.Errorf("NewFramer(0) error = %v, want ErrInvalidFrameSize", err)
	}
}

func TestConform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rate     int
		channels int
		wantRate int
		wantCh   int
		wantErr  error
	}{
		{"unchanged", 48000, 2, 48000, 2, nil},
		{"resample", 44100, 2, 48000, 2, nil},
		{"downmix", 48000, 1, 48000, 1, nil},
		{"resample and downmix", 16000, 1, 48000, 1, nil},
		{"upmix", 48000, 6, 0, 0, ErrChannelMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewSilentSource(tt.rate, 2, 10)
			got, err := Conform(src, 48000, tt.channels)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Conform() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.SampleRate() != tt.wantRate || got.Channels() != tt.wantCh {
				t.Errorf("Conform() = %d Hz %d channels, want %d Hz %d channels",
					got.SampleRate(), got.Channels(), tt.wantRate, tt.wantCh)
			}
		})
	}
}
