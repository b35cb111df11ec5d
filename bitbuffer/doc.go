// SPDX-License-Identifier: EPL-2.0

// Package bitbuffer reads and writes the MSB-first bit fields, ULEB128
// integers and ISO/IEC 14496-1 expandable sizes used by IAMF OBUs.
//
// ReadBitBuffer pulls bits from a growable source through a reusable window
// of fixed capacity; failed reads never move the read position. WriteBitBuffer
// accumulates bits on top of github.com/icza/bitio and encodes ULEB128 values
// through a LebGenerator, which may pad every value to a fixed width.
package bitbuffer

const (
	// MaxStringSize is the largest null-terminated string, terminator
	// included, that may be read or written.
	MaxStringSize = 128

	maxLeb128Size           = 8
	maxISO14496ExpandedSize = 8
)
