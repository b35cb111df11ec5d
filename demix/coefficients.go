// SPDX-License-Identifier: EPL-2.0

package demix

import (
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/obu"
)

// Coefficients are the down-mix weights of one frame.
type Coefficients struct {
	Alpha float64 // Lss7 into Ls5
	Beta  float64 // Lrs7 into Ls5
	Gamma float64 // Ltb4 into Ltf2
	Delta float64 // Ls5 into L3
	W     float64 // Ls5 into Ltf3, scaled by Delta
}

type modeParams struct {
	alpha, beta, gamma, delta float64
	wIdxOffset                int
}

var modes = map[obu.DMixPMode]modeParams{
	obu.DMixPMode1:  {1, 1, 0.707, 0.707, -1},
	obu.DMixPMode2:  {0.707, 0.707, 0.707, 0.707, -1},
	obu.DMixPMode3:  {1, 0.866, 0.866, 0.866, -1},
	obu.DMixPMode1N: {1, 1, 0.707, 0.707, 1},
	obu.DMixPMode2N: {0.707, 0.707, 0.707, 0.707, 1},
	obu.DMixPMode3N: {1, 0.866, 0.866, 0.866, 1},
}

var wTable = [obu.MaxWIdx + 1]float64{
	0, 0.0179, 0.0391, 0.0658, 0.1038, 0.25, 0.3962, 0.4342, 0.4609, 0.4821, 0.5,
}

func lookupMode(mode obu.DMixPMode) (modeParams, error) {
	p, err := errs.LookupInMap(modes, mode, "Down-mix parameters for dmixp_mode")
	if err != nil {
		return modeParams{}, errs.InvalidArgumentf("dmixp_mode %d is reserved: %v", mode, err)
	}
	return p, nil
}

// NewCoefficients returns the weights of mode with the w value at wIdx.
func NewCoefficients(mode obu.DMixPMode, wIdx int) (Coefficients, error) {
	p, err := lookupMode(mode)
	if err != nil {
		return Coefficients{}, err
	}
	if wIdx < 0 || wIdx > obu.MaxWIdx {
		return Coefficients{}, errs.InvalidArgumentf("w_idx %d is out of [0, %d]", wIdx, obu.MaxWIdx)
	}
	return Coefficients{
		Alpha: p.alpha,
		Beta:  p.beta,
		Gamma: p.gamma,
		Delta: p.delta,
		W:     wTable[wIdx],
	}, nil
}

// NextWIdx moves the previous frame's w_idx by the offset of mode,
// clamped to the table.
func NextWIdx(prev int, mode obu.DMixPMode) (int, error) {
	p, err := lookupMode(mode)
	if err != nil {
		return 0, err
	}
	return min(max(prev+p.wIdxOffset, 0), obu.MaxWIdx), nil
}
