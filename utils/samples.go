// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// Float32ToInt32 converts a sample in [-1,1] to a left-justified int32.
// Values outside the range are clipped.
func Float32ToInt32(x float32) int32 {
	return ClampToInt32(float64(x) * (math.MaxInt32 + 1))
}

// Int32ToFloat32 converts a left-justified int32 sample to [-1,1).
func Int32ToFloat32(x int32) float32 {
	return float32(float64(x) / (math.MaxInt32 + 1))
}

// ClampToInt32 rounds x to the nearest integer and clips it to the int32
// range.
func ClampToInt32(x float64) int32 {
	switch {
	case math.IsNaN(x):
		return 0
	case x >= math.MaxInt32:
		return math.MaxInt32
	case x <= math.MinInt32:
		return math.MinInt32
	}
	return int32(math.Round(x))
}

// Int32ToInt16 keeps the 16 most significant bits of a left-justified sample.
func Int32ToInt16(x int32) int16 {
	return int16(x >> 16)
}

// Int16ToInt32 left-justifies a 16-bit sample.
func Int16ToInt32(x int16) int32 {
	return int32(x) << 16
}

// CubicInterpolate evaluates the Catmull-Rom spline through four consecutive
// left-justified samples at x, the fractional position between y1 and y2.
// The result is rounded and clipped to the int32 range.
func CubicInterpolate(y0, y1, y2, y3 int32, x float64) int32 {
	p0, p1, p2, p3 := float64(y0), float64(y1), float64(y2), float64(y3)

	a0 := -0.5*p0 + 1.5*p1 - 1.5*p2 + 0.5*p3
	a1 := p0 - 2.5*p1 + 2*p2 - 0.5*p3
	a2 := -0.5*p0 + 0.5*p2

	return ClampToInt32(((a0*x+a1)*x+a2)*x + p1)
}
