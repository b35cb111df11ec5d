// SPDX-License-Identifier: EPL-2.0

package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCodeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"invalid argument", InvalidArgumentf("bad %d", 1), InvalidArgument},
		{"resource exhausted", ResourceExhaustedf("empty"), ResourceExhausted},
		{"not found", NotFoundf("missing"), NotFound},
		{"unimplemented", Unimplementedf("later"), Unimplemented},
		{"internal", Internalf("broken"), Internal},
		{"failed precondition", FailedPreconditionf("too early"), FailedPrecondition},
		{"wrapped twice", fmt.Errorf("outer: %w", NotFoundf("inner")), NotFound},
		{"foreign", errors.New("other"), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCodeOf_FirstSentinelWins(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("%w: %w: negative", ErrInvalidArgument, ErrOutOfRange)
	if got := CodeOf(err); got != InvalidArgument {
		t.Errorf("CodeOf() = %v, want %v", got, InvalidArgument)
	}
	if !errors.Is(err, ErrOutOfRange) {
		t.Error("errors.Is(err, ErrOutOfRange) = false, want true")
	}
}

func TestLookupInMap(t *testing.T) {
	t.Parallel()

	m := map[uint32]string{1: "one"}

	got, err := LookupInMap(m, 1, "Audio element ID")
	if err != nil || got != "one" {
		t.Fatalf("LookupInMap(1) = %q, %v, want %q, nil", got, err, "one")
	}

	_, err = LookupInMap(m, 2, "Audio element ID")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("LookupInMap(2) error = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "Audio element ID= 2") {
		t.Errorf("LookupInMap(2) error = %q, want context in message", err)
	}
}

func TestLookupInMap_EmptyMapHint(t *testing.T) {
	t.Parallel()

	_, err := LookupInMap(map[string]int{}, "x", "key")
	if err == nil || !strings.Contains(err.Error(), "The map is empty") {
		t.Errorf("LookupInMap() error = %v, want empty-map hint", err)
	}
}
