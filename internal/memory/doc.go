// Package memory models the address space of a controller as a table of
// sections and classifies addresses against it.
//
// A Section is a half-open range [Start, End) flagged as ROM, RAM, both, or
// neither. Addresses outside every section, and addresses inside a section
// flagged neither ROM nor RAM, classify as Unmapped. Tables are built once
// per hardware target and shared read-only:
//
//	table, err := memory.NewTable(fw.Sections)
//	if err != nil {
//	    return err
//	}
//	if !table.IsValidTarget(addr, true) {
//	    return fmt.Errorf("0x%x is not writable", addr)
//	}
//
// Section tables are data supplied by the firmware catalog, never hard-coded
// in validators.
package memory
