// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis files with github.com/jfreymuth/oggvorbis.
//
// The float output of the decoder is clipped to [-1,1] and scaled to
// left-justified 32-bit samples.
package vorbis
