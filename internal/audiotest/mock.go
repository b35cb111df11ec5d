// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds in-memory sources for tests.
package audiotest

import (
	"io"
	"math"

	"github.com/ik5/iamf/utils"
)

// MockSource generates interleaved left-justified samples from a waveform.
// It implements audio.Source without importing it to avoid cycles.
type MockSource struct {
	sampleRate   int
	channels     int
	totalSamples int // per channel
	generated    int // per channel
	waveform     func(sample int, channel int) int32

	Closed bool
}

// NewMockSource creates a source of totalSamples frames.
func NewMockSource(sampleRate, channels, totalSamples int, waveform func(sample int, channel int) int32) *MockSource {
	return &MockSource{
		sampleRate:   sampleRate,
		channels:     channels,
		totalSamples: totalSamples,
		waveform:     waveform,
	}
}

// NewSilentSource creates a mock source that generates silence.
func NewSilentSource(sampleRate, channels, totalSamples int) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(int, int) int32 { return 0 })
}

// NewSineSource creates a mock source that generates a full scale sine wave
// on every channel.
func NewSineSource(sampleRate, channels, totalSamples int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, _ int) int32 {
		t := float64(sample) / float64(sampleRate)
		return utils.Float32ToInt32(float32(math.Sin(2 * math.Pi * frequency * t)))
	})
}

// NewConstantSource creates a mock source with a constant value in [-1,1].
func NewConstantSource(sampleRate, channels, totalSamples int, value float32) *MockSource {
	v := utils.Float32ToInt32(value)
	return NewMockSource(sampleRate, channels, totalSamples, func(int, int) int32 { return v })
}

// NewRampSource creates a source whose sample is (index*channels+channel)
// shifted left by 16, so every value is unique and easy to check.
func NewRampSource(sampleRate, channels, totalSamples int) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample, channel int) int32 {
		return int32(sample*channels+channel) << 16
	})
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }

func (m *MockSource) Close() error {
	m.Closed = true
	return nil
}

// Reset rewinds the source.
func (m *MockSource) Reset() {
	m.generated = 0
}

func (m *MockSource) ReadSamples(dst []int32) (int, error) {
	if m.generated >= m.totalSamples {
		return 0, io.EOF
	}

	frames := min(len(dst)/m.channels, m.totalSamples-m.generated)
	for f := range frames {
		for ch := range m.channels {
			dst[f*m.channels+ch] = m.waveform(m.generated+f, ch)
		}
	}
	m.generated += frames

	if m.generated >= m.totalSamples {
		return frames * m.channels, io.EOF
	}
	return frames * m.channels, nil
}
