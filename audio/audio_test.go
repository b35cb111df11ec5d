// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"testing"

	"github.com/ik5/iamf/internal/audiotest"
)

type mockDecoder struct {
	name string
}

func (d *mockDecoder) Decode(io.Reader) (Source, error) {
	return audiotest.NewSilentSource(48000, 2, 100), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	wavDecoder := &mockDecoder{name: "wav"}
	oggDecoder := &mockDecoder{name: "ogg"}
	registry.Register("wav", wavDecoder)
	registry.Register("ogg", oggDecoder)

	tests := []struct {
		format string
		want   Decoder
		wantOK bool
	}{
		{"wav", wavDecoder, true},
		{"ogg", oggDecoder, true},
		{"flac", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			got, ok := registry.Get(tt.format)
			if ok != tt.wantOK {
				t.Fatalf("Registry.Get(%q) ok = %v, want %v", tt.format, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Registry.Get(%q) returned a different decoder", tt.format)
			}
		})
	}
}

func TestRegistry_ForFile(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	wavDecoder := &mockDecoder{name: "wav"}
	registry.Register("wav", wavDecoder)

	got, err := registry.ForFile("/tmp/Input.WAV")
	if err != nil {
		t.Fatalf("ForFile() error = %v", err)
	}
	if got != wavDecoder {
		t.Error("ForFile() returned a different decoder")
	}

	_, err = registry.ForFile("track.mp3")
	var unknown *UnknownFormatError
	if !errors.As(err, &unknown) {
		t.Fatalf("ForFile(mp3) error = %v, want *UnknownFormatError", err)
	}
	if unknown.Format != "mp3" || unknown.Path != "track.mp3" {
		t.Errorf("UnknownFormatError = %+v", unknown)
	}
	if want := `no decoder for format "mp3" of track.mp3`; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
