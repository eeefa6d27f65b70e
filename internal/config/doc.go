// Package config resolves the startup options of hcishell.
//
// Options come from four layers, highest priority first:
//   - command line flags registered with RegisterFlags
//   - HCISHELL_* environment variables (a .env file in the data directory
//     is loaded into the environment first, without overriding it)
//   - config.yaml in the data directory
//   - built-in defaults
//
// # Data Directory
//
// The data directory holds the command history, config.yaml and .env. It is
// --data-directory when given, otherwise the platform location:
//   - Linux: $XDG_CONFIG_HOME/hcishell or $HOME/.config/hcishell
//   - macOS: $HOME/.config/hcishell
//   - Windows: %LOCALAPPDATA%\hcishell
//
// It is created with user-only permissions when missing.
//
// # Usage Example
//
//	fs := cmd.Flags()
//	config.RegisterFlags(fs)
//	...
//	opts, err := config.Load(fs)
//	if err != nil {
//	    return err
//	}
//	if err := logging.Initialize(opts.Level()); err != nil {
//	    return err
//	}
package config
