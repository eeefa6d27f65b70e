package builtin

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/muurk/hcishell/internal/command"
	"github.com/muurk/hcishell/internal/hci"
	"github.com/muurk/hcishell/internal/memory"
	"github.com/muurk/hcishell/internal/session"
)

const scriptUsage = "script <file.lua>"

var scriptSpec = command.Spec{
	Keywords:    []string{"script", "lua"},
	Description: "Run a Lua script with the hci and mem modules",
	Usage:       scriptUsage,
	New: func(line string, s *session.Session) command.Command {
		return &scriptCmd{base: newBase(line, s, scriptUsage)}
	},
}

type scriptCmd struct{ base }

func (c *scriptCmd) Execute(ctx context.Context) (bool, error) {
	args, err := c.parse(nil)
	if err != nil {
		return c.finish(err)
	}
	if len(args) != 1 {
		return c.finish(c.usageErr("expected one script file"))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.Aborted():
			cancel()
		case <-ctx.Done():
		}
	}()

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	var fatal error
	c.install(ctx, L, &fatal)

	err = L.DoFile(args[0])
	switch {
	case fatal != nil:
		return false, fatal
	case ctx.Err() != nil:
		return false, ctx.Err()
	case err != nil:
		c.out.Printf("script error: %v\n", err)
		return false, nil
	}
	return true, nil
}

// install registers print and the hci and mem modules. Transport failures
// are stored in fatal and abort the script.
func (c *scriptCmd) install(ctx context.Context, L *lua.LState, fatal *error) {
	raise := func(L *lua.LState, err error) int {
		if !recoverable(err) && !errors.Is(err, context.Canceled) {
			*fatal = err
		}
		L.RaiseError("%v", err)
		return 0
	}

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		c.out.Println(strings.Join(parts, "\t"))
		return 0
	}))

	hciMod := L.NewTable()
	L.SetFuncs(hciMod, map[string]lua.LGFunction{
		// hci.send(opcode, params) -> status, return bytes
		"send": func(L *lua.LState) int {
			opcode := L.CheckInt(1)
			if opcode < 0 || opcode > 0xffff {
				L.ArgError(1, "opcode out of range")
			}
			cc, err := c.s.HCI.Do(ctx, uint16(opcode), []byte(L.OptString(2, "")))
			if err != nil {
				return raise(L, err)
			}
			L.Push(lua.LNumber(cc.Status))
			L.Push(lua.LString(cc.Return))
			return 2
		},
		// hci.version() -> table
		"version": func(L *lua.LState) int {
			v, err := c.s.HCI.ReadLocalVersion(ctx)
			if err != nil {
				return raise(L, err)
			}
			t := L.NewTable()
			t.RawSetString("hci_version", lua.LNumber(v.HCIVersion))
			t.RawSetString("lmp_version", lua.LNumber(v.LMPVersion))
			t.RawSetString("lmp_subversion", lua.LNumber(v.LMPSubversion))
			t.RawSetString("manufacturer", lua.LString(hci.ManufacturerName(v.Manufacturer)))
			L.Push(t)
			return 1
		},
	})
	L.SetGlobal("hci", hciMod)

	memMod := L.NewTable()
	L.SetFuncs(memMod, map[string]lua.LGFunction{
		// mem.read(addr, length) -> bytes
		"read": func(L *lua.LState) int {
			addr, length := uint32(L.CheckInt64(1)), uint32(L.CheckInt64(2))
			if _, err := c.s.RequireFirmware(); err != nil {
				return raise(L, err)
			}
			if err := c.s.Sections.CheckRange(addr, length, false); err != nil {
				return raise(L, err)
			}
			data, err := c.s.HCI.ReadRAM(ctx, addr, length, nil)
			if err != nil {
				return raise(L, err)
			}
			L.Push(lua.LString(data))
			return 1
		},
		// mem.write(addr, bytes)
		"write": func(L *lua.LState) int {
			addr, data := uint32(L.CheckInt64(1)), []byte(L.CheckString(2))
			if _, err := c.s.RequireFirmware(); err != nil {
				return raise(L, err)
			}
			if err := c.s.Sections.CheckRange(addr, uint32(len(data)), true); err != nil {
				return raise(L, err)
			}
			if err := c.s.HCI.WriteRAM(ctx, addr, data, nil); err != nil {
				return raise(L, err)
			}
			return 0
		},
		// mem.classify(addr) -> "rom" | "ram" | "unmapped"
		"classify": func(L *lua.LState) int {
			L.Push(lua.LString(c.s.Sections.Classify(uint32(L.CheckInt64(1))).String()))
			return 1
		},
		// mem.constant(name) -> number or nil
		"constant": func(L *lua.LState) int {
			name := L.CheckString(1)
			if c.s.Firmware == nil {
				L.Push(lua.LNil)
				return 1
			}
			v, ok := c.s.Firmware.Constant(name)
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LNumber(v))
			return 1
		},
		// mem.parse(s) -> address in monitor notation
		"parse": func(L *lua.LState) int {
			v, err := memory.ParseAddress(L.CheckString(1))
			if err != nil {
				L.ArgError(1, err.Error())
			}
			L.Push(lua.LNumber(v))
			return 1
		},
		// mem.hex(bytes) -> hex string
		"hex": func(L *lua.LState) int {
			L.Push(lua.LString(hex.EncodeToString([]byte(L.CheckString(1)))))
			return 1
		},
	})
	L.SetGlobal("mem", memMod)
}

