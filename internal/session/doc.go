// Package session ties an opened controller to the state the shell and its
// commands work against: the selected device, the (possibly hooked)
// transport, an HCI client, the identified firmware and its memory map.
//
// A Session is built by Connect from a selected device.Record. Connect
// opens the channel through the hook registry, so a replay attachment never
// touches hardware, and optionally identifies the firmware by its LMP
// subversion to pick the section table used by the memory commands.
package session
