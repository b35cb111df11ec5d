// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF files with github.com/go-audio/aiff.
//
// 16, 24 and 32-bit PCM is supported in any channel count and sample
// rate. Samples are returned left-justified to 32 bits. AIFF-C and other
// compressed variants are rejected.
//
//	src, err := aiff.Decoder{}.Decode(file)
//	if errors.Is(err, aiff.ErrUnsupportedBitDepth) {
//	    // 8-bit or compressed input
//	}
package aiff
