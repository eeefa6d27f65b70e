package builtin

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/muurk/hcishell/internal/command"
	"github.com/muurk/hcishell/internal/memory"
	"github.com/muurk/hcishell/internal/session"
	"github.com/muurk/hcishell/internal/ui"
)

// DefaultReadLength is read by readmem when no length is given.
const DefaultReadLength = 256

var sectionsSpec = command.Spec{
	Keywords:    []string{"sections", "memmap"},
	Description: "Show the memory sections of the firmware",
	Usage:       "sections",
	New: func(line string, s *session.Session) command.Command {
		return &sectionsCmd{base: newBase(line, s, "sections")}
	},
}

type sectionsCmd struct{ base }

func (c *sectionsCmd) Execute(context.Context) (bool, error) {
	fw, err := c.s.RequireFirmware()
	if err != nil {
		return c.finish(err)
	}
	c.out.Printf("Memory map of %s:\n\n", fw.Name)
	c.out.Printf("%s", ui.FormatSectionTable(c.s.Sections.Sections()))
	return true, nil
}

var classifySpec = command.Spec{
	Keywords:    []string{"classify"},
	Description: "Classify an address as rom, ram or unmapped",
	Usage:       "classify <addr>",
	New: func(line string, s *session.Session) command.Command {
		return &classifyCmd{base: newBase(line, s, "classify <addr>")}
	},
}

type classifyCmd struct{ base }

func (c *classifyCmd) Execute(context.Context) (bool, error) {
	args, err := c.parse(nil)
	if err != nil {
		return c.finish(err)
	}
	if len(args) != 1 {
		return c.finish(c.usageErr("expected one address"))
	}
	addr, err := memory.ParseAddress(args[0])
	if err != nil {
		return c.finish(c.usageErr("%v", err))
	}

	region := c.s.Sections.Classify(addr)
	if sec, ok := c.s.Sections.Lookup(addr); ok {
		c.out.Printf("0x%08x: %s (section %s %s)\n", addr, region, sec, sec.Name)
	} else {
		c.out.Printf("0x%08x: %s\n", addr, region)
	}
	return true, nil
}

var constantsSpec = command.Spec{
	Keywords:    []string{"constants"},
	Description: "List the named constants of the firmware",
	Usage:       "constants",
	New: func(line string, s *session.Session) command.Command {
		return &constantsCmd{base: newBase(line, s, "constants")}
	},
}

type constantsCmd struct{ base }

func (c *constantsCmd) Execute(context.Context) (bool, error) {
	fw, err := c.s.RequireFirmware()
	if err != nil {
		return c.finish(err)
	}
	for _, name := range fw.ConstantNames() {
		v, _ := fw.Constant(name)
		c.out.Printf("  %-28s 0x%08x (%d)\n", name, v, v)
	}
	return true, nil
}

const readmemUsage = "readmem <addr> [length] [--out file]"

var readmemSpec = command.Spec{
	Keywords:    []string{"readmem", "hexdump"},
	Description: "Read controller memory and print a hex dump",
	Usage:       readmemUsage,
	New: func(line string, s *session.Session) command.Command {
		return &readmemCmd{base: newBase(line, s, readmemUsage)}
	},
}

type readmemCmd struct{ base }

func (c *readmemCmd) Execute(ctx context.Context) (bool, error) {
	var out string
	args, err := c.parse(func(fs *pflag.FlagSet) {
		fs.StringVarP(&out, "out", "o", "", "write the bytes to a file instead of printing them")
	})
	if err != nil {
		return c.finish(err)
	}
	if len(args) < 1 || len(args) > 2 {
		return c.finish(c.usageErr("expected an address and an optional length"))
	}
	addr, err := memory.ParseAddress(args[0])
	if err != nil {
		return c.finish(c.usageErr("%v", err))
	}
	length := uint32(DefaultReadLength)
	if len(args) == 2 {
		if length, err = memory.ParseLength(args[1]); err != nil {
			return c.finish(c.usageErr("%v", err))
		}
	}

	if _, err := c.s.RequireFirmware(); err != nil {
		return c.finish(err)
	}
	if err := c.s.Sections.CheckRange(addr, length, false); err != nil {
		return c.finish(err)
	}

	progress := ui.NewProgress(c.out.Writer(), fmt.Sprintf("Reading 0x%x bytes", length), length)
	data, err := c.s.HCI.ReadRAM(ctx, addr, length, progress.Update)
	progress.Done()
	if err != nil {
		return c.finish(err)
	}

	if out != "" {
		if err := os.WriteFile(out, data, 0644); err != nil {
			return c.finish(c.usageErr("write %s: %v", out, err))
		}
		c.out.Printf("wrote %d bytes from 0x%08x to %s\n", len(data), addr, out)
		return true, nil
	}
	c.out.Printf("%s", ui.FormatHexDump(addr, data))
	return true, nil
}

const writememUsage = "writemem <addr> <hex bytes> | writemem <addr> --file data.bin [--yes]"

var writememSpec = command.Spec{
	Keywords:    []string{"writemem"},
	Description: "Write bytes to controller RAM",
	Usage:       writememUsage,
	New: func(line string, s *session.Session) command.Command {
		return &writememCmd{base: newBase(line, s, writememUsage)}
	},
}

type writememCmd struct{ base }

func (c *writememCmd) Execute(ctx context.Context) (bool, error) {
	var (
		file string
		yes  bool
	)
	args, err := c.parse(func(fs *pflag.FlagSet) {
		fs.StringVarP(&file, "file", "f", "", "write the contents of a file")
		fs.BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	})
	if err != nil {
		return c.finish(err)
	}
	if len(args) < 1 || (file == "" && len(args) < 2) || (file != "" && len(args) != 1) {
		return c.finish(c.usageErr("expected an address and data"))
	}
	addr, err := memory.ParseAddress(args[0])
	if err != nil {
		return c.finish(c.usageErr("%v", err))
	}

	var data []byte
	if file != "" {
		if data, err = os.ReadFile(file); err != nil {
			return c.finish(c.usageErr("read %s: %v", file, err))
		}
	} else if data, err = parseHex(args[1:]); err != nil {
		return c.finish(c.usageErr("%v", err))
	}
	if len(data) == 0 {
		return c.finish(c.usageErr("nothing to write"))
	}

	if _, err := c.s.RequireFirmware(); err != nil {
		return c.finish(err)
	}
	if err := c.s.Sections.CheckRange(addr, uint32(len(data)), true); err != nil {
		return c.finish(err)
	}

	if c.s.Interactive && !yes && c.s.Confirm != nil {
		ok, err := c.s.Confirm(fmt.Sprintf("Write %d bytes to 0x%08x?", len(data), addr))
		if err != nil {
			return c.finish(err)
		}
		if !ok {
			c.out.Println("write cancelled")
			return false, nil
		}
	}

	progress := ui.NewProgress(c.out.Writer(), fmt.Sprintf("Writing 0x%x bytes", len(data)), uint32(len(data)))
	err = c.s.HCI.WriteRAM(ctx, addr, data, progress.Update)
	progress.Done()
	if err != nil {
		return c.finish(err)
	}
	c.out.Printf("wrote %d bytes to 0x%08x\n", len(data), addr)
	return true, nil
}
