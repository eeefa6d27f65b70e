package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/hcishell/internal/command"
	"github.com/muurk/hcishell/internal/firmware"
	"github.com/muurk/hcishell/internal/hci"
	"github.com/muurk/hcishell/internal/session"
	"github.com/muurk/hcishell/internal/transport"
	"github.com/muurk/hcishell/internal/ui"
)

func helpSpec(reg func() *command.Registry) command.Spec {
	const usage = "help [command]"
	return command.Spec{
		Keywords:    []string{"help", "?"},
		Description: "List commands or show the usage of one",
		Usage:       usage,
		New: func(line string, s *session.Session) command.Command {
			return &helpCmd{base: newBase(line, s, usage), registry: reg}
		},
	}
}

type helpCmd struct {
	base
	registry func() *command.Registry
}

func (c *helpCmd) Execute(context.Context) (bool, error) {
	args, err := c.parse(nil)
	if err != nil {
		return c.finish(err)
	}
	reg := c.registry()

	if len(args) > 0 {
		spec, ok := reg.Lookup(args[0])
		if !ok {
			return c.finish(c.usageErr("unknown command %q", args[0]))
		}
		c.out.Printf("%s\n\n  %s\n", spec.Description, spec.Usage)
		if len(spec.Keywords) > 1 {
			c.out.Printf("\n  aliases: %s\n", strings.Join(spec.Keywords[1:], ", "))
		}
		return true, nil
	}

	c.out.Println("Commands:")
	for _, spec := range reg.Specs() {
		c.out.Printf("  %-20s %s\n", strings.Join(spec.Keywords, ", "), spec.Description)
	}
	c.out.Println("\nType 'help <command>' for usage.")
	return true, nil
}

var exitSpec = command.Spec{
	Keywords:    []string{"exit", "quit"},
	Description: "Leave the shell",
	Usage:       "exit",
	New: func(line string, s *session.Session) command.Command {
		return &exitCmd{base: newBase(line, s, "exit")}
	},
}

type exitCmd struct{ base }

func (c *exitCmd) Execute(context.Context) (bool, error) {
	c.s.State.RequestExit()
	return true, nil
}

var infoSpec = command.Spec{
	Keywords:    []string{"info"},
	Description: "Show the connected device, firmware and hooks",
	Usage:       "info",
	New: func(line string, s *session.Session) command.Command {
		return &infoCmd{base: newBase(line, s, "info")}
	},
}

type infoCmd struct{ base }

func (c *infoCmd) Execute(context.Context) (bool, error) {
	r := ui.NewSuccessResult("Session")
	r.AddDetail("Device", c.s.Device.Interface)
	r.AddDetail("Backend", c.s.Device.BackendName())
	if c.s.Device.Label != "" {
		r.AddDetail("Label", c.s.Device.Label)
	}
	if v := c.s.Version; v != nil {
		r.AddDetail("Manufacturer", hci.ManufacturerName(v.Manufacturer))
		r.AddDetail("LMP", fmt.Sprintf("version %d, subversion 0x%04x", v.LMPVersion, v.LMPSubversion))
	}
	if fw := c.s.Firmware; fw != nil {
		r.AddDetail("Firmware", fw.String())
	} else {
		r.AddDetail("Firmware", "not identified")
	}
	r.AddDetail("Sections", fmt.Sprintf("%d", c.s.Sections.Len()))
	r.AddDetail("Hooks", hookSummary(c.s))
	c.out.Println(r.Render())
	return true, nil
}

func hookSummary(s *session.Session) string {
	var parts []string
	for _, kind := range transport.Kinds() {
		variants := s.Hooks.Attached(kind)
		if len(variants) == 0 {
			continue
		}
		names := make([]string, len(variants))
		for i, v := range variants {
			names[i] = string(v)
		}
		parts = append(parts, fmt.Sprintf("%s: %s", kind, strings.Join(names, "+")))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

var identifySpec = command.Spec{
	Keywords:    []string{"identify"},
	Description: "Read the controller version and select its firmware",
	Usage:       "identify",
	New: func(line string, s *session.Session) command.Command {
		return &identifyCmd{base: newBase(line, s, "identify")}
	},
}

type identifyCmd struct{ base }

func (c *identifyCmd) Execute(ctx context.Context) (bool, error) {
	fw, err := c.s.Identify(ctx)
	var unsupported *firmware.UnsupportedFirmwareError
	if errors.As(err, &unsupported) {
		c.out.PrintWarning("Unsupported firmware",
			ui.Detail{Key: "Subversion", Value: fmt.Sprintf("0x%04x", unsupported.Subversion)},
			ui.Detail{Key: "Known", Value: strings.Join(c.s.Catalog.Names(), ", ")},
		)
		return false, nil
	}
	if err != nil {
		return c.finish(err)
	}
	c.out.PrintSuccess("Firmware identified",
		ui.Detail{Key: "Firmware", Value: fw.String()},
		ui.Detail{Key: "Chip", Value: fw.Chip},
		ui.Detail{Key: "Manufacturer", Value: hci.ManufacturerName(c.s.Version.Manufacturer)},
	)
	return true, nil
}

var resetSpec = command.Spec{
	Keywords:    []string{"reset"},
	Description: "Send HCI Reset",
	Usage:       "reset",
	New: func(line string, s *session.Session) command.Command {
		return &resetCmd{base: newBase(line, s, "reset")}
	},
}

type resetCmd struct{ base }

func (c *resetCmd) Execute(ctx context.Context) (bool, error) {
	if err := c.s.HCI.Reset(ctx); err != nil {
		return c.finish(err)
	}
	c.out.Println("controller reset")
	return true, nil
}
