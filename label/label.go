// SPDX-License-Identifier: EPL-2.0

package label

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ik5/iamf/errs"
)

// Label names one channel of an audio element. Labels prefixed with
// "Demixed" name channels reconstructed from the transmitted ones.
type Label int

const (
	Omitted Label = iota

	Mono
	L2
	R2
	DemixedR2
	Centre
	LFE
	L3
	R3
	Rtf3
	Ltf3
	DemixedL3
	DemixedR3
	L5
	R5
	Ls5
	Rs5
	DemixedL5
	DemixedR5
	DemixedLs5
	DemixedRs5
	Ltf2
	Rtf2
	DemixedLtf2
	DemixedRtf2
	L7
	R7
	Lss7
	Rss7
	Lrs7
	Rrs7
	DemixedL7
	DemixedR7
	DemixedLrs7
	DemixedRrs7
	Ltf4
	Rtf4
	Ltb4
	Rtb4
	DemixedLtb4
	DemixedRtb4

	// A0 is ambisonics channel number 0; A0+n is channel number n.
	A0
)

// MaxAmbisonicsChannel is the highest ambisonics channel number (fourth
// order).
const MaxAmbisonicsChannel = 24

var names = map[Label]string{
	Omitted:     "Omitted",
	Mono:        "M",
	L2:          "L2",
	R2:          "R2",
	DemixedR2:   "D_R2",
	Centre:      "C",
	LFE:         "LFE",
	L3:          "L3",
	R3:          "R3",
	Rtf3:        "Rtf3",
	Ltf3:        "Ltf3",
	DemixedL3:   "D_L3",
	DemixedR3:   "D_R3",
	L5:          "L5",
	R5:          "R5",
	Ls5:         "Ls5",
	Rs5:         "Rs5",
	DemixedL5:   "D_L5",
	DemixedR5:   "D_R5",
	DemixedLs5:  "D_Ls5",
	DemixedRs5:  "D_Rs5",
	Ltf2:        "Ltf2",
	Rtf2:        "Rtf2",
	DemixedLtf2: "D_Ltf2",
	DemixedRtf2: "D_Rtf2",
	L7:          "L7",
	R7:          "R7",
	Lss7:        "Lss7",
	Rss7:        "Rss7",
	Lrs7:        "Lrs7",
	Rrs7:        "Rrs7",
	DemixedL7:   "D_L7",
	DemixedR7:   "D_R7",
	DemixedLrs7: "D_Lrs7",
	DemixedRrs7: "D_Rrs7",
	Ltf4:        "Ltf4",
	Rtf4:        "Rtf4",
	Ltb4:        "Ltb4",
	Rtb4:        "Rtb4",
	DemixedLtb4: "D_Ltb4",
	DemixedRtb4: "D_Rtb4",
}

var byName = func() map[string]Label {
	m := make(map[string]Label, len(names))
	for l, n := range names {
		m[n] = l
	}
	return m
}()

// Ambisonics returns the label of ambisonics channel number acn.
func Ambisonics(acn int) (Label, error) {
	if acn < 0 || acn > MaxAmbisonicsChannel {
		return Omitted, errs.InvalidArgumentf("ambisonics channel number %d is out of [0, %d]", acn, MaxAmbisonicsChannel)
	}
	return A0 + Label(acn), nil
}

// IsAmbisonics reports whether l names an ambisonics channel.
func (l Label) IsAmbisonics() bool {
	return l >= A0 && l <= A0+MaxAmbisonicsChannel
}

func (l Label) String() string {
	if l.IsAmbisonics() {
		return "A" + strconv.Itoa(int(l-A0))
	}
	if n, ok := names[l]; ok {
		return n
	}
	return fmt.Sprintf("Label(%d)", int(l))
}

// Parse converts a label name such as "L2", "D_R2" or "A7" back to a Label.
func Parse(s string) (Label, error) {
	if l, ok := byName[s]; ok {
		return l, nil
	}
	if rest, ok := strings.CutPrefix(s, "A"); ok {
		if n, err := strconv.Atoi(rest); err == nil {
			return Ambisonics(n)
		}
	}
	return Omitted, errs.InvalidArgumentf("unknown channel label %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

var demixed = map[Label]Label{
	R2:   DemixedR2,
	L3:   DemixedL3,
	R3:   DemixedR3,
	L5:   DemixedL5,
	R5:   DemixedR5,
	Ls5:  DemixedLs5,
	Rs5:  DemixedRs5,
	Ltf2: DemixedLtf2,
	Rtf2: DemixedRtf2,
	L7:   DemixedL7,
	R7:   DemixedR7,
	Lrs7: DemixedLrs7,
	Rrs7: DemixedRrs7,
	Ltb4: DemixedLtb4,
	Rtb4: DemixedRtb4,
}

// Demixed returns the label under which a reconstruction of l is stored.
func Demixed(l Label) (Label, error) {
	return errs.LookupInMap(demixed, l, "Demixed label for "+l.String())
}
