package memory

import (
	"sort"
)

// Table is an immutable, sorted, non-overlapping set of sections.
type Table struct {
	sections []Section
}

// NewTable validates sections and returns a table sorted by start address.
// The input slice is not modified.
func NewTable(sections []Section) (*Table, error) {
	sorted := make([]Section, len(sections))
	copy(sorted, sections)

	for _, s := range sorted {
		if s.Start >= s.End {
			return nil, &InvalidSectionError{Section: s}
		}
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End {
			return nil, &OverlapError{First: sorted[i-1], Second: sorted[i]}
		}
	}

	return &Table{sections: sorted}, nil
}

// Sections returns a copy of the table's sections in address order.
func (t *Table) Sections() []Section {
	out := make([]Section, len(t.sections))
	copy(out, t.sections)
	return out
}

// Len returns the number of sections.
func (t *Table) Len() int {
	return len(t.sections)
}

// Lookup returns the section containing addr.
func (t *Table) Lookup(addr uint32) (Section, bool) {
	// first section whose End is beyond addr
	i := sort.Search(len(t.sections), func(i int) bool {
		return t.sections[i].End > addr
	})
	if i < len(t.sections) && t.sections[i].Contains(addr) {
		return t.sections[i], true
	}
	return Section{}, false
}

// Classify returns the region of addr.
func (t *Table) Classify(addr uint32) Region {
	s, ok := t.Lookup(addr)
	if !ok {
		return Unmapped
	}
	return s.Region()
}

// IsValidTarget reports whether addr may be read, or written when
// requireWritable is set.
func (t *Table) IsValidTarget(addr uint32, requireWritable bool) bool {
	switch t.Classify(addr) {
	case RAM:
		return true
	case ROM:
		return !requireWritable
	default:
		return false
	}
}

// CheckRange verifies that every address in [addr, addr+length) is a valid
// target. The range may span adjacent sections.
func (t *Table) CheckRange(addr, length uint32, requireWritable bool) error {
	if length == 0 {
		return nil
	}
	end := uint64(addr) + uint64(length)
	if end > 1<<32 {
		return &AddressError{Addr: addr, Length: length, Writable: requireWritable, Reason: "range wraps the address space"}
	}

	cur := uint64(addr)
	for cur < end {
		s, ok := t.Lookup(uint32(cur))
		if !ok || s.Region() == Unmapped {
			return &AddressError{Addr: addr, Length: length, Writable: requireWritable, Bad: uint32(cur), HasBad: true, Reason: "unmapped"}
		}
		if requireWritable && s.Region() != RAM {
			return &AddressError{Addr: addr, Length: length, Writable: requireWritable, Bad: uint32(cur), HasBad: true, Reason: "read-only"}
		}
		cur = uint64(s.End)
	}
	return nil
}
