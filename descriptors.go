// SPDX-License-Identifier: EPL-2.0

package iamf

import (
	"slices"

	"github.com/ik5/iamf/codec"
	"github.com/ik5/iamf/codec/flac"
	"github.com/ik5/iamf/codec/lpcm"
	"github.com/ik5/iamf/codec/opus"
	"github.com/ik5/iamf/element"
	"github.com/ik5/iamf/errs"
	"github.com/ik5/iamf/metadata"
	"github.com/ik5/iamf/obu"
)

// DefaultCodecs returns a registry with the LPCM, Opus and FLAC codecs.
// opusBitrate is the bitrate of every Opus substream in bits per second;
// zero keeps the libopus default.
func DefaultCodecs(opusBitrate int) *codec.Registry {
	r := codec.NewRegistry()
	r.Register(obu.CodecLPCM, lpcm.Codec{})
	r.Register(obu.CodecOpus, opus.Codec{Bitrate: opusBitrate})
	r.Register(obu.CodecFLAC, flac.Codec{})
	return r
}

// Descriptors holds the descriptor OBUs of an IA sequence.
type Descriptors struct {
	SequenceHeader   *obu.SequenceHeader
	CodecConfigs     map[uint32]*obu.CodecConfig
	AudioElements    map[uint32]*element.WithData
	MixPresentations []*obu.MixPresentation
}

func newDescriptors(md *metadata.UserMetadata) (*Descriptors, error) {
	sh, err := md.SequenceHeaderOBU()
	if err != nil {
		return nil, err
	}
	ccs, err := md.CodecConfigOBUs()
	if err != nil {
		return nil, err
	}

	var frameSize uint32
	for _, id := range sortedIDs(ccs) {
		n := ccs[id].NumSamplesPerFrame
		if frameSize != 0 && n != frameSize {
			return nil, errs.InvalidArgumentf("codec config %d uses %d samples per frame, others use %d", id, n, frameSize)
		}
		frameSize = n
	}

	elements, err := md.AudioElementsWithData(ccs)
	if err != nil {
		return nil, err
	}
	mixes, err := md.MixPresentationOBUs()
	if err != nil {
		return nil, err
	}

	return &Descriptors{
		SequenceHeader:   sh,
		CodecConfigs:     ccs,
		AudioElements:    elements,
		MixPresentations: mixes,
	}, nil
}

func sortedIDs[V any](m map[uint32]V) []uint32 {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// AudioElementIDs lists the audio element IDs in increasing order.
func (d *Descriptors) AudioElementIDs() []uint32 { return sortedIDs(d.AudioElements) }

// OBUs lists the descriptors in bitstream order: the sequence header, the
// codec configs, the audio elements, then the mix presentations.
func (d *Descriptors) OBUs() []obu.OBU {
	out := []obu.OBU{d.SequenceHeader}
	for _, id := range sortedIDs(d.CodecConfigs) {
		out = append(out, d.CodecConfigs[id])
	}
	for _, id := range d.AudioElementIDs() {
		out = append(out, d.AudioElements[id].Obu)
	}
	for _, mp := range d.MixPresentations {
		out = append(out, mp)
	}
	return out
}
