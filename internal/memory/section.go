package memory

import "fmt"

// Region is the classification of a single address.
type Region int

const (
	// Unmapped addresses are not backed by readable memory.
	Unmapped Region = iota
	// ROM addresses are readable but not writable.
	ROM
	// RAM addresses are readable and writable.
	RAM
)

// String returns the lowercase region name.
func (r Region) String() string {
	switch r {
	case ROM:
		return "rom"
	case RAM:
		return "ram"
	default:
		return "unmapped"
	}
}

// Section is a contiguous address range [Start, End) of a controller.
type Section struct {
	Start uint32 `yaml:"start"`
	End   uint32 `yaml:"end"`
	ROM   bool   `yaml:"rom"`
	RAM   bool   `yaml:"ram"`
	// Name is an optional label shown by the sections listing.
	Name string `yaml:"name,omitempty"`
}

// Size returns End - Start.
func (s Section) Size() uint32 {
	return s.End - s.Start
}

// Contains reports whether addr lies inside the section.
func (s Section) Contains(addr uint32) bool {
	return addr >= s.Start && addr < s.End
}

// Region returns the classification of every address inside the section.
// A section flagged both ROM and RAM counts as RAM.
func (s Section) Region() Region {
	switch {
	case s.RAM:
		return RAM
	case s.ROM:
		return ROM
	default:
		return Unmapped
	}
}

func (s Section) String() string {
	return fmt.Sprintf("0x%08x-0x%08x %s", s.Start, s.End, s.Region())
}
