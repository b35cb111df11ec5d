// SPDX-License-Identifier: EPL-2.0

package errs

import (
	"errors"
	"fmt"
)

// Code classifies an error returned by any package of this module.
type Code int

const (
	OK Code = iota
	InvalidArgument
	ResourceExhausted
	NotFound
	Unimplemented
	Internal
	OutOfRange
	FailedPrecondition
	Unknown
)

var codeNames = [...]string{
	"ok",
	"invalid argument",
	"resource exhausted",
	"not found",
	"unimplemented",
	"internal",
	"out of range",
	"failed precondition",
	"unknown",
}

func (c Code) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "unknown"
}

var (
	// ErrInvalidArgument reports malformed input: bad bit-count requests,
	// inconsistent trims, overflowing variable-length integers or illegal
	// param definition placement.
	ErrInvalidArgument = errors.New(InvalidArgument.String())

	// ErrResourceExhausted reports that a source or destination cannot
	// supply or hold the requested bits.
	ErrResourceExhausted = errors.New(ResourceExhausted.String())

	// ErrNotFound reports a missing key in a lookup or demix resolution.
	ErrNotFound = errors.New(NotFound.String())

	// ErrUnimplemented reports a recognized but unsupported feature.
	ErrUnimplemented = errors.New(Unimplemented.String())

	// ErrInternal reports a broken invariant.
	ErrInternal = errors.New(Internal.String())

	// ErrOutOfRange reports a position outside of the addressable range.
	ErrOutOfRange = errors.New(OutOfRange.String())

	// ErrFailedPrecondition reports a call made in the wrong state.
	ErrFailedPrecondition = errors.New(FailedPrecondition.String())
)

var codeToErr = map[Code]error{
	InvalidArgument:    ErrInvalidArgument,
	ResourceExhausted:  ErrResourceExhausted,
	NotFound:           ErrNotFound,
	Unimplemented:      ErrUnimplemented,
	Internal:           ErrInternal,
	OutOfRange:         ErrOutOfRange,
	FailedPrecondition: ErrFailedPrecondition,
}

// CodeOf returns the Code of the first sentinel err wraps. A nil error is OK.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	for c := InvalidArgument; c < Unknown; c++ {
		if errors.Is(err, codeToErr[c]) {
			return c
		}
	}
	return Unknown
}

// InvalidArgumentf wraps ErrInvalidArgument with a formatted message.
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// ResourceExhaustedf wraps ErrResourceExhausted with a formatted message.
func ResourceExhaustedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrResourceExhausted, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Unimplementedf wraps ErrUnimplemented with a formatted message.
func Unimplementedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnimplemented, fmt.Sprintf(format, args...))
}

// Internalf wraps ErrInternal with a formatted message.
func Internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}

// FailedPreconditionf wraps ErrFailedPrecondition with a formatted message.
func FailedPreconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFailedPrecondition, fmt.Sprintf(format, args...))
}
