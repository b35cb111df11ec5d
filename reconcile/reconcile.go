// SPDX-License-Identifier: EPL-2.0

// Package reconcile settles the values every substream of an IA sequence
// must agree on: the sample rate and bit depth used for rendering, and the
// trims of the frames in a temporal unit.
package reconcile

import (
	"cmp"
	"math"
	"slices"

	"github.com/ik5/iamf/audioframe"
	"github.com/ik5/iamf/errs"
)

const (
	// FallbackSampleRate is used when the codec configs disagree.
	FallbackSampleRate = 48000
	// FallbackBitDepth is used when the codec configs disagree.
	FallbackBitDepth = 16
)

// GetCommonSampleRateAndBitDepth returns the sample rate and bit depth all
// decoded substreams can be rendered at. When the inputs disagree it falls
// back to FallbackSampleRate or FallbackBitDepth and reports that the
// decoded samples must be resampled.
func GetCommonSampleRateAndBitDepth(sampleRates []uint32, bitDepths []uint8) (rate uint32, depth uint8, requiresResampling bool, err error) {
	if len(sampleRates) == 0 || len(bitDepths) == 0 {
		return 0, 0, false, errs.InvalidArgumentf("got %d sample rates and %d bit depths, want at least one of each",
			len(sampleRates), len(bitDepths))
	}

	rate = sampleRates[0]
	if slices.ContainsFunc(sampleRates, func(r uint32) bool { return r != rate }) {
		rate = FallbackSampleRate
		requiresResampling = true
	}

	depth = bitDepths[0]
	if slices.ContainsFunc(bitDepths, func(d uint8) bool { return d != depth }) {
		depth = FallbackBitDepth
		requiresResampling = true
	}
	return rate, depth, requiresResampling, nil
}

type substreamTrim struct {
	start, end uint32
}

// ValidateAndGetCommonTrim checks the trims of frames and returns the trim
// every substream shares.
//
// Within a substream the trim at start may span a run of fully trimmed
// frames followed by at most one partially trimmed frame; the trim at start
// is the sum over that run. A frame trimmed at end must be the last frame
// of its substream and must keep at least one sample. All substreams must
// end up with the same trims.
func ValidateAndGetCommonTrim(samplesPerFrame uint32, frames []audioframe.WithData) (trimStart, trimEnd uint32, err error) {
	if len(frames) == 0 {
		return 0, 0, nil
	}

	var order []uint32
	bySubstream := make(map[uint32][]audioframe.WithData)
	for _, f := range frames {
		id := f.Obu.SubstreamID
		if _, ok := bySubstream[id]; !ok {
			order = append(order, id)
		}
		bySubstream[id] = append(bySubstream[id], f)
	}

	var common substreamTrim
	for i, id := range order {
		list := bySubstream[id]
		slices.SortStableFunc(list, func(a, b audioframe.WithData) int {
			return cmp.Compare(a.StartTimestamp, b.StartTimestamp)
		})

		got, err := substreamTrims(samplesPerFrame, id, list)
		if err != nil {
			return 0, 0, err
		}
		if i == 0 {
			common = got
			continue
		}
		if got != common {
			return 0, 0, errs.InvalidArgumentf("substream %d trims (start %d, end %d), substream %d trims (start %d, end %d)",
				id, got.start, got.end, order[0], common.start, common.end)
		}
	}
	return common.start, common.end, nil
}

func substreamTrims(n uint32, id uint32, frames []audioframe.WithData) (substreamTrim, error) {
	var (
		t         substreamTrim
		startDone bool
		endSeen   bool
	)
	for _, f := range frames {
		h := f.Obu.Header
		start, end := h.NumSamplesToTrimAtStart, h.NumSamplesToTrimAtEnd

		if endSeen {
			return t, errs.InvalidArgumentf("substream %d: frame at %d follows a frame trimmed at end", id, f.StartTimestamp)
		}
		if uint64(start)+uint64(end) > uint64(n) {
			return t, errs.InvalidArgumentf("substream %d: frame at %d trims %d + %d of %d samples",
				id, f.StartTimestamp, start, end, n)
		}
		if end == n {
			return t, errs.InvalidArgumentf("substream %d: frame at %d is fully trimmed at end", id, f.StartTimestamp)
		}

		if start > 0 {
			if startDone {
				return t, errs.InvalidArgumentf("substream %d: frame at %d is trimmed at start after a partially trimmed frame",
					id, f.StartTimestamp)
			}
			t.start += start
		}
		if start < n {
			startDone = true
		}

		if end > 0 {
			endSeen = true
			t.end = end
		}
	}
	return t, nil
}

// WritePCMFrameToBuffer interleaves the untrimmed samples of a
// channel-major frame into out, keeping the top bitDepth bits of each
// sample. It reuses the storage of out and returns the written bytes.
func WritePCMFrameToBuffer(frame [][]int32, trimStart, trimEnd uint32, bitDepth uint8, bigEndian bool, out []byte) ([]byte, error) {
	if bitDepth == 0 || bitDepth > 32 || bitDepth%8 != 0 {
		return nil, errs.InvalidArgumentf("bit depth %d must be a multiple of 8 in [8, 32]", bitDepth)
	}
	out = out[:0]
	if len(frame) == 0 {
		return out, nil
	}

	numSamples := len(frame[0])
	for c, ch := range frame {
		if len(ch) != numSamples {
			return nil, errs.InvalidArgumentf("channel %d has %d samples, want %d", c, len(ch), numSamples)
		}
	}
	if int(trimStart)+int(trimEnd) > numSamples {
		return nil, errs.InvalidArgumentf("trims %d + %d exceed %d samples", trimStart, trimEnd, numSamples)
	}

	bytesPerSample := int(bitDepth / 8)
	for t := int(trimStart); t < numSamples-int(trimEnd); t++ {
		for _, ch := range frame {
			v := uint32(ch[t])
			for b := range bytesPerSample {
				shift := 24 - 8*b
				if !bigEndian {
					shift = 24 - 8*(bytesPerSample-1-b)
				}
				out = append(out, byte(v>>shift))
			}
		}
	}
	return out, nil
}

// LogSpectralDistance returns 10·sqrt(mean((a-b)²)) of two log spectra of
// equal length.
func LogSpectralDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, errs.InvalidArgumentf("spectra have %d and %d bins, want an equal positive count", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return 10 * math.Sqrt(sum/float64(len(a))), nil
}
