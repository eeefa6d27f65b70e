package builtin

import (
	"context"

	"github.com/muurk/hcishell/internal/command"
	"github.com/muurk/hcishell/internal/hci"
	"github.com/muurk/hcishell/internal/memory"
	"github.com/muurk/hcishell/internal/session"
	"github.com/muurk/hcishell/internal/ui"
)

const sendUsage = "send <opcode> [hex parameters]"

var sendSpec = command.Spec{
	Keywords:    []string{"send", "sendhcicmd"},
	Description: "Send a raw HCI command and print its completion",
	Usage:       sendUsage,
	New: func(line string, s *session.Session) command.Command {
		return &sendCmd{base: newBase(line, s, sendUsage)}
	},
}

type sendCmd struct{ base }

func (c *sendCmd) Execute(ctx context.Context) (bool, error) {
	args, err := c.parse(nil)
	if err != nil {
		return c.finish(err)
	}
	if len(args) < 1 {
		return c.finish(c.usageErr("expected an opcode"))
	}
	op, err := memory.ParseAddress(args[0])
	if err != nil || op > 0xffff {
		return c.finish(c.usageErr("invalid opcode %q", args[0]))
	}
	params, err := parseHex(args[1:])
	if err != nil {
		return c.finish(c.usageErr("%v", err))
	}
	if len(params) > hci.MaxParams {
		return c.finish(c.usageErr("%d parameter bytes, at most %d", len(params), hci.MaxParams))
	}

	opcode := uint16(op)
	cc, err := c.s.HCI.Do(ctx, opcode, params)
	if err != nil {
		return c.finish(err)
	}

	c.out.Printf("opcode 0x%04x (ogf 0x%02x, ocf 0x%03x): status 0x%02x (%s)\n",
		opcode, hci.OGF(opcode), hci.OCF(opcode), cc.Status, hci.StatusName(cc.Status))
	if len(cc.Return) > 0 {
		c.out.Printf("%s", ui.FormatHexDump(0, cc.Return))
	}
	return true, nil
}

