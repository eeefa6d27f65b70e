// Package logging provides structured logging for hcishell.
//
// This package configures the global zap logger used throughout
// the shell, the transport hooks and the bridge. Logs go to stderr so that
// command output on stdout stays clean.
//
// # Log Levels
//
//   - Debug: packet hex dumps, hook activity, enumeration details
//   - Info: session lifecycle (device selected, connected, shutdown)
//   - Warn: recoverable issues (unknown command, failed command, recording errors)
//   - Error: fatal issues (startup failures, unclassified command errors)
//
// # Configuration
//
// Initialize logging once at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When the level is empty the HCISHELL_LOG_LEVEL environment variable is
// consulted. Code that runs before Initialize gets a no-op logger.
//
// # Packet Logging
//
//	logging.LogPacket(logger, "send", payload)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
