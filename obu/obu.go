// SPDX-License-Identifier: EPL-2.0

package obu

import (
	"fmt"

	"github.com/ik5/iamf/bitbuffer"
)

// OBU is any unit that can be serialized into an IAMF bitstream.
type OBU interface {
	ObuHeader() Header
	writePayload(wb *bitbuffer.WriteBitBuffer) error
}

// Write validates o and appends its header and payload to wb. The payload is
// encoded with the same LebGenerator as wb.
func Write(wb *bitbuffer.WriteBitBuffer, o OBU) error {
	payload := bitbuffer.NewWriteBitBuffer(wb.Leb())
	if err := o.writePayload(payload); err != nil {
		return fmt.Errorf("writing %s payload: %w", o.ObuHeader().Type, err)
	}

	data, err := payload.Bytes()
	if err != nil {
		return fmt.Errorf("writing %s payload: %w", o.ObuHeader().Type, err)
	}
	return o.ObuHeader().write(wb, data)
}

// Serialize returns o as a standalone byte slice.
func Serialize(leb bitbuffer.LebGenerator, o OBU) ([]byte, error) {
	wb := bitbuffer.NewWriteBitBuffer(leb)
	if err := Write(wb, o); err != nil {
		return nil, err
	}
	return wb.Bytes()
}

func writeStrings(wb *bitbuffer.WriteBitBuffer, ss []string) error {
	for _, s := range ss {
		if err := wb.WriteString(s); err != nil {
			return err
		}
	}
	return nil
}
