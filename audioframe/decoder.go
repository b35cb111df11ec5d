// SPDX-License-Identifier: EPL-2.0

package audioframe

import (
	"errors"

	"github.com/ik5/iamf/codec"
	"github.com/ik5/iamf/element"
	"github.com/ik5/iamf/errs"
)

// Decoder decodes audio frames with one codec decoder per substream.
type Decoder struct {
	decoders map[uint32]codec.Decoder
	channels map[uint32]int
}

// NewDecoder creates a decoder for every substream of elements.
func NewDecoder(elements map[uint32]*element.WithData, codecs *codec.Registry) (*Decoder, error) {
	d := &Decoder{
		decoders: make(map[uint32]codec.Decoder),
		channels: make(map[uint32]int),
	}
	for _, aeID := range sortedKeys(elements) {
		ae := elements[aeID]
		c, err := codecs.Lookup(ae.CodecConfig)
		if err != nil {
			return nil, err
		}
		for _, id := range ae.Obu.SubstreamIDs {
			n := len(ae.SubstreamIDToLabels[id])
			dec, err := c.NewDecoder(ae.CodecConfig, n)
			if err != nil {
				return nil, errors.Join(err, d.Close())
			}
			d.decoders[id] = dec
			d.channels[id] = n
		}
	}
	return d, nil
}

// Decode returns the untrimmed samples of f, channel-major.
func (d *Decoder) Decode(f WithData) ([][]int32, error) {
	dec, err := errs.LookupInMap(d.decoders, f.Obu.SubstreamID, "substream_id")
	if err != nil {
		return nil, err
	}
	samples, err := dec.DecodeFrame(f.Obu.Data)
	if err != nil {
		return nil, err
	}
	if len(samples) != d.channels[f.Obu.SubstreamID] {
		return nil, errs.Internalf("substream %d decoded to %d channels, want %d",
			f.Obu.SubstreamID, len(samples), d.channels[f.Obu.SubstreamID])
	}
	return samples, nil
}

// Close releases every codec decoder.
func (d *Decoder) Close() error {
	var errList []error
	for _, dec := range d.decoders {
		errList = append(errList, dec.Close())
	}
	return errors.Join(errList...)
}
