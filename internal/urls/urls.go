package urls

// Documentation URLs for guides and troubleshooting.
// All URLs point to the documentation site at https://muurk.github.io/hcishell/

// SupportedFirmware lists the controller firmwares with section tables and
// explains how to contribute a catalog entry for a new one.
const SupportedFirmware = "https://muurk.github.io/hcishell/firmware/"

// Permissions covers udev rules and group membership needed to open serial
// ports and USB Bluetooth controllers without root.
const Permissions = "https://muurk.github.io/hcishell/setup/permissions/"

// Bridge explains how to expose a controller over the network with
// hcishell-bridge.
const Bridge = "https://muurk.github.io/hcishell/bridge/"

// TraceFiles documents the record/replay trace format.
const TraceFiles = "https://muurk.github.io/hcishell/traces/"
