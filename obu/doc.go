// SPDX-License-Identifier: EPL-2.0

// Package obu defines the IAMF open bitstream units and their serialization.
//
// Descriptor OBUs (sequence header, codec config, audio element, mix
// presentation) are written once at the start of a sequence; data OBUs
// (temporal delimiter, parameter block, audio frame) are written per
// temporal unit. Every type implements OBU and is serialized with Write:
//
//	wb := bitbuffer.NewWriteBitBuffer(bitbuffer.NewLebGenerator())
//	if err := obu.Write(wb, obu.NewSequenceHeader(obu.ProfileBase, obu.ProfileBase)); err != nil {
//		return err
//	}
//
// ParamDefinition is a tagged union over mix gain, demixing, recon gain and
// extension variants; Equivalent compares only encoded fields.
package obu
