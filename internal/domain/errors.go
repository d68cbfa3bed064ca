package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput marks input that is rejected before any planning work starts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnreachable marks a node set that cannot be closed into a tour.
	ErrUnreachable = errors.New("unreachable")

	// ErrCapacityExceeded marks a shipment or destination that cannot fit a single vehicle.
	ErrCapacityExceeded = errors.New("exceeds vehicle capacity")
)

// InvalidInputError describes which part of the request was rejected.
type InvalidInputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// UnreachableError lists the nodes that blocked tour construction.
type UnreachableError struct {
	NodeIDs []string
	Reason  string
}

func (e *UnreachableError) Error() string {
	msg := "unreachable nodes: " + strings.Join(e.NodeIDs, ", ")
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}
