package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusOK},
		{"bad input", BadInputf("missing %s", "uid"), StatusBadInput},
		{"unauthorized", Unauthorizedf("nope"), StatusUnauthorized},
		{"not found", NotFoundf("no room"), StatusNotFound},
		{"gone", Gonef("ended"), StatusGone},
		{"exists", New(AlreadyExists, "dup"), StatusAlreadyExists},
		{"foreign", errors.New("boom"), StatusInternal},
		{"wrapped twice", fmt.Errorf("outer: %w", NotFoundf("inner")), StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusOf(tc.err); got != tc.want {
				t.Fatalf("StatusOf = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(Internal, cause, "insert chat")
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error must unwrap to cause")
	}
	if err.Error() != "insert chat: disk full" {
		t.Fatalf("unexpected text %q", err.Error())
	}
	if Wrap(Internal, nil, "x") != nil {
		t.Fatal("wrapping nil must yield nil")
	}
}

func TestPublicHidesInternalCause(t *testing.T) {
	err := Wrap(Internal, errors.New("pq: password authentication failed"), "")
	if got := Public(err); got != "internal error" {
		t.Fatalf("Public leaked %q", got)
	}
	if got := Public(BadInputf("missing uid")); got != "missing uid" {
		t.Fatalf("Public = %q", got)
	}
}
