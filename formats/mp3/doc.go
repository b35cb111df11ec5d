// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 files with github.com/hajimehoshi/go-mp3.
//
// go-mp3 always produces 16-bit stereo, so mono files come out with the
// channel duplicated. Samples are returned left-justified to 32 bits.
package mp3
