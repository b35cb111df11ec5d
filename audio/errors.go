// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDstSize   = errors.New("dst size must be multiple of channels")
	ErrInvalidFrameSize = errors.New("frame size must be positive")
	ErrChannelMismatch  = errors.New("source channels do not match the requested channels")
)

// UnknownFormatError reports a file whose extension has no decoder.
type UnknownFormatError struct {
	Path   string
	Format string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("no decoder for format %q of %s", e.Format, e.Path)
}
