// SPDX-License-Identifier: EPL-2.0

// Package audio reads PCM input for the encoder.
//
// A Source streams interleaved samples left-justified to 32 bits, so 16 and
// 24-bit material share one representation with the codecs:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []int32) (int, error)
//	    Close() error
//	}
//
// Decoders for file formats live under formats/ and are looked up through a
// Registry keyed by file extension:
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", wav.Decoder{})
//	dec, err := registry.ForFile("input.wav")
//
// Conform resamples a Source with cubic interpolation and downmixes it to
// mono when needed. A Framer then cuts it into channel-major frames that
// can be handed to the encoder one temporal unit at a time:
//
//	src, _ = audio.Conform(src, 48000, 2)
//	framer, _ := audio.NewFramer(src, 960)
//	for {
//	    frame, err := framer.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    // frame[0] is left, frame[1] is right
//	}
package audio
