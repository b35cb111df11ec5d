// SPDX-License-Identifier: EPL-2.0

// Package demix down-mixes input channels into the channels carried by each
// scalable layer, and reconstructs the omitted channels on the way back.
package demix

import (
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/label"
	"github.com/ik5/iamf/utils"
)

// LabelSamples maps a channel label to the samples of one frame.
type LabelSamples map[label.Label][]int32

// LabeledFrame is one frame of an audio element with the samples to drop
// when it is played back.
type LabeledFrame struct {
	SamplesToTrimAtStart uint32
	SamplesToTrimAtEnd   uint32
	Samples              LabelSamples
}

type rule struct {
	out label.Label
	in  []label.Label
	mix func(c Coefficients, x []float64) float64
}

const centreGain = 0.707

func copyOf(_ Coefficients, x []float64) float64 { return x[0] }

func l7ToLs5(c Coefficients, x []float64) float64  { return c.Alpha*x[0] + c.Beta*x[1] }
func l4ToLtf2(c Coefficients, x []float64) float64 { return x[0] + c.Gamma*x[1] }
func l5ToL3(c Coefficients, x []float64) float64   { return x[0] + c.Delta*x[1] }
func l2ToLtf3(c Coefficients, x []float64) float64 { return x[0] + c.W*c.Delta*x[1] }
func l3ToL2(_ Coefficients, x []float64) float64   { return x[0] + centreGain*x[1] }
func l2ToMono(_ Coefficients, x []float64) float64 { return 0.5 * (x[0] + x[1]) }

// downMixRules are ordered so every input is produced before it is read.
var downMixRules = []rule{
	{label.L5, []label.Label{label.L7}, copyOf},
	{label.R5, []label.Label{label.R7}, copyOf},
	{label.Ls5, []label.Label{label.Lss7, label.Lrs7}, l7ToLs5},
	{label.Rs5, []label.Label{label.Rss7, label.Rrs7}, l7ToLs5},
	{label.Ltf2, []label.Label{label.Ltf4, label.Ltb4}, l4ToLtf2},
	{label.Rtf2, []label.Label{label.Rtf4, label.Rtb4}, l4ToLtf2},
	{label.L3, []label.Label{label.L5, label.Ls5}, l5ToL3},
	{label.R3, []label.Label{label.R5, label.Rs5}, l5ToL3},
	{label.Ltf3, []label.Label{label.Ltf2, label.Ls5}, l2ToLtf3},
	{label.Rtf3, []label.Label{label.Rtf2, label.Rs5}, l2ToLtf3},
	{label.L2, []label.Label{label.L3, label.Centre}, l3ToL2},
	{label.R2, []label.Label{label.R3, label.Centre}, l3ToL2},
	{label.Mono, []label.Label{label.L2, label.R2}, l2ToMono},
}

func monoToR2(_ Coefficients, x []float64) float64  { return 2*x[0] - x[1] }
func l2ToL3(_ Coefficients, x []float64) float64    { return x[0] - centreGain*x[1] }
func l3ToLs5(c Coefficients, x []float64) float64   { return (x[0] - x[1]) / c.Delta }
func ls5ToLrs7(c Coefficients, x []float64) float64 { return (x[0] - c.Alpha*x[1]) / c.Beta }
func ltf3ToLtf2(c Coefficients, x []float64) float64 {
	return x[0] - c.W*c.Delta*x[1]
}
func ltf2ToLtb4(c Coefficients, x []float64) float64 { return (x[0] - x[1]) / c.Gamma }

// demixRules read a label or its demixed counterpart and write demixed
// labels only.
var demixRules = []rule{
	{label.DemixedR2, []label.Label{label.Mono, label.L2}, monoToR2},
	{label.DemixedL3, []label.Label{label.L2, label.Centre}, l2ToL3},
	{label.DemixedR3, []label.Label{label.R2, label.Centre}, l2ToL3},
	{label.DemixedL5, []label.Label{label.L7}, copyOf},
	{label.DemixedR5, []label.Label{label.R7}, copyOf},
	{label.DemixedLs5, []label.Label{label.L3, label.L5}, l3ToLs5},
	{label.DemixedRs5, []label.Label{label.R3, label.R5}, l3ToLs5},
	{label.DemixedL7, []label.Label{label.L5}, copyOf},
	{label.DemixedR7, []label.Label{label.R5}, copyOf},
	{label.DemixedLrs7, []label.Label{label.Ls5, label.Lss7}, ls5ToLrs7},
	{label.DemixedRrs7, []label.Label{label.Rs5, label.Rss7}, ls5ToLrs7},
	{label.DemixedLtf2, []label.Label{label.Ltf3, label.Ls5}, ltf3ToLtf2},
	{label.DemixedRtf2, []label.Label{label.Rtf3, label.Rs5}, ltf3ToLtf2},
	{label.DemixedLtb4, []label.Label{label.Ltf2, label.Ltf4}, ltf2ToLtb4},
	{label.DemixedRtb4, []label.Label{label.Rtf2, label.Rtf4}, ltf2ToLtb4},
}

// demixedOriginal maps a demixed label back to the label it reconstructs.
var demixedOriginal = func() map[label.Label]label.Label {
	m := make(map[label.Label]label.Label)
	for l := label.Omitted; l < label.A0; l++ {
		if d, err := label.Demixed(l); err == nil {
			m[d] = l
		}
	}
	return m
}()

// FindSamplesOrDemixedSamples returns the samples of l, falling back to its
// demixed reconstruction.
func FindSamplesOrDemixedSamples(l label.Label, samples LabelSamples) ([]int32, error) {
	if s, ok := samples[l]; ok {
		return s, nil
	}
	d, err := label.Demixed(l)
	if err != nil {
		return nil, errs.NotFoundf("channel %s is neither present nor demixable", l)
	}
	if s, ok := samples[d]; ok {
		return s, nil
	}
	return nil, errs.NotFoundf("neither %s nor %s is present", l, d)
}

func applyRule(r rule, c Coefficients, inputs [][]int32) ([]int32, error) {
	n := len(inputs[0])
	for i, in := range inputs[1:] {
		if len(in) != n {
			return nil, errs.InvalidArgumentf("cannot derive %s: %s has %d samples, %s has %d",
				r.out, r.in[0], n, r.in[i+1], len(in))
		}
	}

	out := make([]int32, n)
	x := make([]float64, len(inputs))
	for t := range n {
		for i, in := range inputs {
			x[i] = float64(in[t])
		}
		out[t] = utils.ClampToInt32(r.mix(c, x))
	}
	return out, nil
}

// DownMix adds to frame every channel in want that can be derived from the
// channels already present. Only the channels needed for want are computed.
func DownMix(frame LabelSamples, c Coefficients, want []label.Label) error {
	needed := make(map[label.Label]bool, len(want))
	for _, l := range want {
		if _, ok := frame[l]; !ok {
			needed[l] = true
		}
	}
	for i := len(downMixRules) - 1; i >= 0; i-- {
		r := downMixRules[i]
		if !needed[r.out] {
			continue
		}
		for _, in := range r.in {
			if _, ok := frame[in]; !ok {
				needed[in] = true
			}
		}
	}

	for _, r := range downMixRules {
		if !needed[r.out] {
			continue
		}
		if _, ok := frame[r.out]; ok {
			continue
		}

		inputs := make([][]int32, 0, len(r.in))
		for _, in := range r.in {
			s, ok := frame[in]
			if !ok {
				break
			}
			inputs = append(inputs, s)
		}
		if len(inputs) != len(r.in) {
			continue
		}

		out, err := applyRule(r, c, inputs)
		if err != nil {
			return err
		}
		frame[r.out] = out
	}

	for _, l := range want {
		if _, ok := frame[l]; !ok {
			return errs.NotFoundf("channel %s cannot be down-mixed from the input channels", l)
		}
	}
	return nil
}

// Demix adds to frame the demixed reconstruction of every channel that is
// absent but derivable.
func Demix(frame LabelSamples, c Coefficients) error {
	for _, r := range demixRules {
		if _, ok := frame[r.out]; ok {
			continue
		}
		if _, ok := frame[demixedOriginal[r.out]]; ok {
			continue
		}

		inputs := make([][]int32, 0, len(r.in))
		for _, in := range r.in {
			s, err := FindSamplesOrDemixedSamples(in, frame)
			if err != nil {
				break
			}
			inputs = append(inputs, s)
		}
		if len(inputs) != len(r.in) {
			continue
		}

		out, err := applyRule(r, c, inputs)
		if err != nil {
			return err
		}
		frame[r.out] = out
	}
	return nil
}
