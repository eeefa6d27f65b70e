package memory

import "fmt"

// InvalidSectionError is returned for a section whose start is not below its end.
type InvalidSectionError struct {
	Section Section
}

func (e *InvalidSectionError) Error() string {
	return fmt.Sprintf("invalid section 0x%08x-0x%08x: start must be below end",
		e.Section.Start, e.Section.End)
}

// OverlapError is returned when two sections of one table overlap.
type OverlapError struct {
	First  Section
	Second Section
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("section 0x%08x-0x%08x overlaps 0x%08x-0x%08x",
		e.Second.Start, e.Second.End, e.First.Start, e.First.End)
}

// AddressError reports an access outside the valid sections.
type AddressError struct {
	Addr     uint32
	Length   uint32
	Writable bool
	// Bad is the first offending address; valid when HasBad is set.
	Bad    uint32
	HasBad bool
	Reason string
}

func (e *AddressError) Error() string {
	access := "read"
	if e.Writable {
		access = "write"
	}
	if e.HasBad && e.Bad != e.Addr {
		return fmt.Sprintf("cannot %s 0x%x bytes at 0x%08x: 0x%08x is %s",
			access, e.Length, e.Addr, e.Bad, e.Reason)
	}
	return fmt.Sprintf("cannot %s 0x%x bytes at 0x%08x: %s", access, e.Length, e.Addr, e.Reason)
}
