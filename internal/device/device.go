package device

import (
	"context"
	"fmt"
)

// Backend is the part of a transport backend the selector needs.
type Backend interface {
	// Name identifies the backend in labels and logs.
	Name() string
	// Enumerate lists the interfaces this backend can open.
	Enumerate(ctx context.Context) ([]Record, error)
}

// Record is one candidate device. Records are values and are never mutated
// after creation.
type Record struct {
	// Backend is the backend that produced the record.
	Backend Backend
	// Interface is unique within one backend's enumeration.
	Interface string
	// Label is the human-readable description shown to the operator.
	Label string
}

// BackendName returns the producing backend's name, or "" when unset.
func (r Record) BackendName() string {
	if r.Backend == nil {
		return ""
	}
	return r.Backend.Name()
}

func (r Record) String() string {
	if r.Label == "" || r.Label == r.Interface {
		return fmt.Sprintf("%s (%s)", r.Interface, r.BackendName())
	}
	return fmt.Sprintf("%s: %s (%s)", r.Interface, r.Label, r.BackendName())
}

// Chooser asks the operator to pick one of several records and returns its
// index.
type Chooser interface {
	Choose(ctx context.Context, records []Record) (int, error)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(ctx context.Context, records []Record) (int, error)

// Choose calls f.
func (f ChooserFunc) Choose(ctx context.Context, records []Record) (int, error) {
	return f(ctx, records)
}
