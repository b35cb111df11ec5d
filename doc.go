// SPDX-License-Identifier: EPL-2.0

// Package iamf encodes Immersive Audio Model and Formats (IAMF) sequences.
//
// An Encoder is built from user metadata, usually loaded from YAML with the
// metadata package. It produces the descriptor OBUs once, then one temporal
// unit per call to OutputTemporalUnit:
//
//	md, _ := metadata.LoadFile("sequence.yaml")
//	enc, _ := iamf.New(md, iamf.WithLogger(log.Default()))
//	descriptors, _ := enc.GenerateDescriptorObus()
//
//	w := iamf.NewSequenceWriter(out, bitbuffer.NewLebGenerator())
//	_ = w.WriteDescriptors(descriptors)
//
//	for enc.GeneratingDataObus() {
//	    _ = enc.BeginTemporalUnit()
//	    // AddSamples for every input label of every audio element, and
//	    // AddParameterBlockMetadata for the blocks starting now, or
//	    // FinalizeAddSamples once the input is exhausted.
//	    tu, _ := enc.OutputTemporalUnit()
//	    _ = w.WriteTemporalUnit(tu)
//	}
//
// Samples are int32, left-justified: a 16-bit sample s is passed as s<<16.
// Input feeds an audio element from an audio.Source, resampling and
// downmixing it as needed, and the formats packages decode WAV, AIFF, MP3
// and Ogg Vorbis files into such sources.
//
// Every temporal unit also carries the decoded and demixed samples of each
// audio element, so callers can render or verify what a decoder will hear
// without decoding the bitstream again.
package iamf
