// SPDX-License-Identifier: EPL-2.0

package label

import (
	"github.com/ik5/iamf/errs"
)

// Layout is a loudspeaker layout of one scalable channel layer.
type Layout uint8

const (
	LayoutMono Layout = iota
	LayoutStereo
	Layout5_1
	Layout5_1_2
	Layout5_1_4
	Layout7_1
	Layout7_1_2
	Layout7_1_4
	Layout3_1_2
	LayoutBinaural
)

var layoutNames = map[Layout]string{
	LayoutMono:     "Mono",
	LayoutStereo:   "Stereo",
	Layout5_1:      "5.1",
	Layout5_1_2:    "5.1.2",
	Layout5_1_4:    "5.1.4",
	Layout7_1:      "7.1",
	Layout7_1_2:    "7.1.2",
	Layout7_1_4:    "7.1.4",
	Layout3_1_2:    "3.1.2",
	LayoutBinaural: "Binaural",
}

func (l Layout) String() string {
	if n, ok := layoutNames[l]; ok {
		return n
	}
	return "Reserved"
}

// ParseLayout converts a name such as "5.1.2" or "Stereo" to a Layout.
func ParseLayout(s string) (Layout, error) {
	for l, n := range layoutNames {
		if n == s {
			return l, nil
		}
	}
	return 0, errs.InvalidArgumentf("unknown loudspeaker layout %q", s)
}

// ChannelNumbers counts the surround, low-frequency and height channels of
// a layout.
type ChannelNumbers struct {
	Surround int
	LFE      int
	Height   int
}

// Total returns the number of channels.
func (c ChannelNumbers) Total() int { return c.Surround + c.LFE + c.Height }

var layoutChannels = map[Layout]ChannelNumbers{
	LayoutMono:     {1, 0, 0},
	LayoutStereo:   {2, 0, 0},
	Layout5_1:      {5, 1, 0},
	Layout5_1_2:    {5, 1, 2},
	Layout5_1_4:    {5, 1, 4},
	Layout7_1:      {7, 1, 0},
	Layout7_1_2:    {7, 1, 2},
	Layout7_1_4:    {7, 1, 4},
	Layout3_1_2:    {3, 1, 2},
	LayoutBinaural: {2, 0, 0},
}

// ChannelNumbers returns the channel counts of l.
func (l Layout) ChannelNumbers() (ChannelNumbers, error) {
	return errs.LookupInMap(layoutChannels, l, "Channel numbers for layout "+l.String())
}

var layoutLabels = map[Layout][]Label{
	LayoutMono:     {Mono},
	LayoutStereo:   {L2, R2},
	Layout5_1:      {L5, R5, Centre, LFE, Ls5, Rs5},
	Layout5_1_2:    {L5, R5, Centre, LFE, Ls5, Rs5, Ltf2, Rtf2},
	Layout5_1_4:    {L5, R5, Centre, LFE, Ls5, Rs5, Ltf4, Rtf4, Ltb4, Rtb4},
	Layout7_1:      {L7, R7, Centre, LFE, Lss7, Rss7, Lrs7, Rrs7},
	Layout7_1_2:    {L7, R7, Centre, LFE, Lss7, Rss7, Lrs7, Rrs7, Ltf2, Rtf2},
	Layout7_1_4:    {L7, R7, Centre, LFE, Lss7, Rss7, Lrs7, Rrs7, Ltf4, Rtf4, Ltb4, Rtb4},
	Layout3_1_2:    {L3, R3, Centre, LFE, Ltf3, Rtf3},
	LayoutBinaural: {L2, R2},
}

// Labels returns the channel labels of l in rendering order.
func (l Layout) Labels() ([]Label, error) {
	labels, err := errs.LookupInMap(layoutLabels, l, "Labels for layout "+l.String())
	if err != nil {
		return nil, err
	}
	return append([]Label(nil), labels...), nil
}

// SubstreamLabels lists the labels carried by one substream: two for a
// coupled substream, one otherwise.
type SubstreamLabels []Label

// LayerSubstreams returns the substreams a scalable layer adds on top of the
// previous layer, coupled substreams first. prev is nil for the first layer.
func LayerSubstreams(prev *Layout, cur Layout) (coupled, single []SubstreamLabels, err error) {
	curN, err := cur.ChannelNumbers()
	if err != nil {
		return nil, nil, err
	}

	if prev == nil {
		return firstLayerSubstreams(cur)
	}
	if *prev == LayoutBinaural || cur == LayoutBinaural {
		return nil, nil, errs.InvalidArgumentf("binaural layout must be the only layer")
	}

	prevN, err := prev.ChannelNumbers()
	if err != nil {
		return nil, nil, err
	}
	if curN.Surround < prevN.Surround || curN.Height < prevN.Height || curN.LFE < prevN.LFE ||
		curN == prevN {
		return nil, nil, errs.InvalidArgumentf("layer %s does not extend layer %s", cur, *prev)
	}
	if prevN.Surround == 1 && curN.Surround != 2 {
		return nil, nil, errs.InvalidArgumentf("a mono layer can only be followed by a stereo layer, got %s", cur)
	}
	pair := func(a, b Label) { coupled = append(coupled, SubstreamLabels{a, b}) }
	one := func(a Label) { single = append(single, SubstreamLabels{a}) }

	if curN.Surround > prevN.Surround {
		switch curN.Surround {
		case 2:
			one(L2)
		case 5:
			pair(L5, R5)
		case 7:
			if prevN.Surround < 5 {
				pair(L7, R7)
			}
			pair(Lss7, Rss7)
		}
		if prevN.Surround < 3 && curN.Surround >= 3 {
			one(Centre)
		}
	}

	if curN.Height > prevN.Height {
		switch {
		case prevN.Height == 0 && curN.Height == 2 && curN.Surround == 3:
			pair(Ltf3, Rtf3)
		case prevN.Height == 0 && curN.Height == 2:
			pair(Ltf2, Rtf2)
		case curN.Height == 4:
			pair(Ltf4, Rtf4)
			if prevN.Height == 0 {
				pair(Ltb4, Rtb4)
			}
		}
	}

	if curN.LFE > prevN.LFE {
		one(LFE)
	}

	return coupled, single, nil
}

func firstLayerSubstreams(cur Layout) (coupled, single []SubstreamLabels, err error) {
	labels, err := cur.Labels()
	if err != nil {
		return nil, nil, err
	}
	if cur == LayoutMono {
		return nil, []SubstreamLabels{{Mono}}, nil
	}

	// Layout labels list left/right partners next to each other, with C and
	// LFE as the only unpaired channels.
	for i := 0; i < len(labels); {
		if labels[i] == Centre || labels[i] == LFE {
			single = append(single, SubstreamLabels{labels[i]})
			i++
			continue
		}
		coupled = append(coupled, SubstreamLabels{labels[i], labels[i+1]})
		i += 2
	}
	return coupled, single, nil
}
