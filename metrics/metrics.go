// SPDX-License-Identifier: EPL-2.0

// Package metrics exposes encoder progress as Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the encoder metrics. A nil *Metrics records nothing.
type Metrics struct {
	// Temporal unit metrics
	TemporalUnits  prometheus.Counter
	TrimmedSamples *prometheus.CounterVec // edge: start or end

	// Audio frame metrics
	AudioFrames  *prometheus.CounterVec // substream_id
	PayloadBytes *prometheus.CounterVec // substream_id
	PayloadSize  prometheus.Histogram

	// Parameter block metrics
	ParameterBlocks *prometheus.CounterVec // type

	// Input metrics
	SamplesAdded   *prometheus.CounterVec // audio_element_id
	InputTimestamp prometheus.Gauge
}

// New creates the metrics and registers them with reg; a nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		TemporalUnits: f.NewCounter(prometheus.CounterOpts{
			Name: "iamf_temporal_units_total",
			Help: "Total number of temporal units emitted",
		}),
		TrimmedSamples: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iamf_trimmed_samples_total",
				Help: "Samples per channel trimmed from emitted temporal units",
			},
			[]string{"edge"},
		),

		AudioFrames: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iamf_audio_frames_total",
				Help: "Total number of audio frames emitted",
			},
			[]string{"substream_id"},
		),
		PayloadBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iamf_audio_frame_payload_bytes_total",
				Help: "Coded bytes emitted in audio frames",
			},
			[]string{"substream_id"},
		),
		PayloadSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "iamf_audio_frame_payload_size_bytes",
			Help:    "Size of audio frame payloads",
			Buckets: prometheus.ExponentialBuckets(16, 2, 12), // 16B to 32KB
		}),

		ParameterBlocks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iamf_parameter_blocks_total",
				Help: "Total number of parameter blocks emitted",
			},
			[]string{"type"},
		),

		SamplesAdded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iamf_samples_added_total",
				Help: "Samples per channel accepted for encoding",
			},
			[]string{"audio_element_id"},
		),
		InputTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "iamf_input_timestamp",
			Help: "Input timestamp of the temporal unit being accumulated",
		}),
	}
}

func id(v uint32) string { return strconv.FormatUint(uint64(v), 10) }

// RecordAudioFrame counts one audio frame of a substream.
func (m *Metrics) RecordAudioFrame(substreamID uint32, payloadSize int) {
	if m == nil {
		return
	}
	m.AudioFrames.WithLabelValues(id(substreamID)).Inc()
	m.PayloadBytes.WithLabelValues(id(substreamID)).Add(float64(payloadSize))
	m.PayloadSize.Observe(float64(payloadSize))
}

// RecordParameterBlock counts one parameter block of the named type.
func (m *Metrics) RecordParameterBlock(paramType string) {
	if m == nil {
		return
	}
	m.ParameterBlocks.WithLabelValues(paramType).Inc()
}

// RecordTemporalUnit counts one emitted temporal unit and its trims.
func (m *Metrics) RecordTemporalUnit(trimStart, trimEnd uint32) {
	if m == nil {
		return
	}
	m.TemporalUnits.Inc()
	m.TrimmedSamples.WithLabelValues("start").Add(float64(trimStart))
	m.TrimmedSamples.WithLabelValues("end").Add(float64(trimEnd))
}

// RecordSamples counts samples accepted for an audio element.
func (m *Metrics) RecordSamples(audioElementID uint32, n int) {
	if m == nil {
		return
	}
	m.SamplesAdded.WithLabelValues(id(audioElementID)).Add(float64(n))
}

// SetInputTimestamp records the timestamp of the unit being accumulated.
func (m *Metrics) SetInputTimestamp(ts int64) {
	if m == nil {
		return
	}
	m.InputTimestamp.Set(float64(ts))
}
