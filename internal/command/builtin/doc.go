// Package builtin implements the commands available at the hcishell prompt.
//
// Every command parses its own line: arguments are split with shell quoting
// rules (go-shellwords) and flags are parsed with pflag, so
//
//	readmem 0x204ba8 0x150 --out conn0.bin
//	writemem $200000 "de ad be ef" --yes
//
// behave as they would in a POSIX shell. Operator mistakes (bad arguments,
// addresses outside the firmware's section table, a non-zero HCI status)
// are printed and reported as a failed command; transport failures end the
// session.
//
// Memory commands validate every access against the section table of the
// identified firmware before anything is sent to the controller.
package builtin
