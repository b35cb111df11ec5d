// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes WAV files with github.com/go-audio/wav.
//
// The Decoder accepts 16, 24 and 32-bit integer PCM, including
// WAVE_FORMAT_EXTENSIBLE files, and returns samples left-justified to 32
// bits. Float WAV files are rejected with ErrOnlyPCMSupported.
//
// The Writer takes channel-major frames in the same representation, which
// is what the encoder's decoded and rendered output uses:
//
//	out, _ := os.Create("rendered.wav")
//	w, err := wav.NewWriter(out, 48000, 16, 2)
//	if err != nil {
//	    return err
//	}
//	_ = w.WriteFrame(frame) // frame[0] left, frame[1] right
//	_ = w.Close()
//	_ = out.Close()
package wav
