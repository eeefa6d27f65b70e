// Package hci builds HCI command packets, parses events, and runs
// request/response exchanges over a transport.
//
// All packets carry the H4 indicator byte. Multi-byte fields are little
// endian. Broadcom vendor commands (Read_RAM, Write_RAM) are provided for
// memory access on Broadcom/Cypress controllers.
package hci
