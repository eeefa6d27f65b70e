package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "HCISHELL"
	configName = "config"
	configType = "yaml"
)

// Flag and configuration keys.
const (
	KeyDataDirectory   = "data-directory"
	KeyVerbose         = "verbose"
	KeyLogLevel        = "log-level"
	KeyDevice          = "device"
	KeyBackend         = "backend"
	KeyCommands        = "commands"
	KeyTrace           = "trace"
	KeySave            = "save"
	KeyReplay          = "replay"
	KeyStrictReplay    = "strict-replay"
	KeySerialBaud      = "serial-baud"
	KeySerialHWFC      = "serial-hwfc"
	KeyTCPAddr         = "tcp-addr"
	KeyWSURL           = "ws-url"
	KeyDiscoverTimeout = "discover-timeout"
	KeyFirmwareFile    = "firmware-file"
	KeyNoIdentify      = "no-identify"
)

// Defaults.
var (
	DefaultBackends        = []string{"serial", "usb", "tcp"}
	DefaultSerialBaud      = 115200
	DefaultDiscoverTimeout = 2 * time.Second
)

// Options is the resolved startup configuration.
type Options struct {
	DataDir  string
	Verbose  bool
	LogLevel string

	// Device is an explicit interface id; empty means select.
	Device   string
	Backends []string
	// Commands is the raw ';'-separated startup queue.
	Commands string

	Trace        bool
	Save         string
	Replay       string
	StrictReplay bool

	SerialBaud      int
	SerialHWFC      bool
	TCPAddrs        []string
	WSURLs          []string
	DiscoverTimeout time.Duration

	FirmwareFile string
	Identify     bool
}

// RegisterFlags adds the startup flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP(KeyDataDirectory, "d", "", "Data directory for history and configuration (default: platform config dir)")
	fs.BoolP(KeyVerbose, "v", false, "Enable debug logging")
	fs.String(KeyLogLevel, "", "Log level (debug, info, warn, error, off)")
	fs.String(KeyDevice, "", "Interface id of the device to open")
	fs.StringSlice(KeyBackend, DefaultBackends, "Backends to enumerate (serial, usb, tcp, websocket)")
	fs.StringP(KeyCommands, "c", "", "Commands to run at startup, separated by ';'")
	fs.Bool(KeyTrace, false, "Log every packet sent and received")
	fs.String(KeySave, "", "Record all traffic to a trace file")
	fs.String(KeyReplay, "", "Replay a recorded trace file instead of opening a device")
	fs.Bool(KeyStrictReplay, false, "Reject sends that differ from the replayed recording")
	fs.Int(KeySerialBaud, DefaultSerialBaud, "Serial baud rate")
	fs.Bool(KeySerialHWFC, false, "Enable serial hardware flow control")
	fs.StringSlice(KeyTCPAddr, nil, "Socket bridge address host:port (repeatable)")
	fs.StringSlice(KeyWSURL, nil, "WebSocket bridge URL (repeatable)")
	fs.Duration(KeyDiscoverTimeout, DefaultDiscoverTimeout, "How long to browse for bridges with mDNS (0 disables)")
	fs.String(KeyFirmwareFile, "", "Additional firmware catalog (YAML)")
	fs.Bool(KeyNoIdentify, false, "Skip firmware identification at connect")
}

// Load resolves Options from fs, the environment and the data directory.
func Load(fs *pflag.FlagSet) (*Options, error) {
	return LoadWith(viper.New(), fs)
}

// LoadWith is Load with a caller supplied viper instance.
func LoadWith(v *viper.Viper, fs *pflag.FlagSet) (*Options, error) {
	dataDir, err := resolveDataDir(fs)
	if err != nil {
		return nil, err
	}
	if err := EnsureDataDir(dataDir); err != nil {
		return nil, err
	}
	if err := loadDotEnv(filepath.Join(dataDir, dotEnvFile)); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", dotEnvFile, err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}
	v.SetDefault(KeyBackend, DefaultBackends)
	v.SetDefault(KeySerialBaud, DefaultSerialBaud)
	v.SetDefault(KeyDiscoverTimeout, DefaultDiscoverTimeout)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dataDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	opts := &Options{
		DataDir:         dataDir,
		Verbose:         v.GetBool(KeyVerbose),
		LogLevel:        v.GetString(KeyLogLevel),
		Device:          v.GetString(KeyDevice),
		Backends:        splitList(v.GetStringSlice(KeyBackend)),
		Commands:        v.GetString(KeyCommands),
		Trace:           v.GetBool(KeyTrace),
		Save:            v.GetString(KeySave),
		Replay:          v.GetString(KeyReplay),
		StrictReplay:    v.GetBool(KeyStrictReplay),
		SerialBaud:      v.GetInt(KeySerialBaud),
		SerialHWFC:      v.GetBool(KeySerialHWFC),
		TCPAddrs:        splitList(v.GetStringSlice(KeyTCPAddr)),
		WSURLs:          splitList(v.GetStringSlice(KeyWSURL)),
		DiscoverTimeout: v.GetDuration(KeyDiscoverTimeout),
		FirmwareFile:    v.GetString(KeyFirmwareFile),
		Identify:        !v.GetBool(KeyNoIdentify),
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks option combinations.
func (o *Options) Validate() error {
	if len(o.Backends) == 0 {
		return fmt.Errorf("at least one backend is required")
	}
	if o.SerialBaud <= 0 {
		return fmt.Errorf("invalid serial baud rate %d", o.SerialBaud)
	}
	if o.DiscoverTimeout < 0 {
		return fmt.Errorf("discover timeout must not be negative")
	}
	if o.StrictReplay && o.Replay == "" {
		return fmt.Errorf("--%s requires --%s", KeyStrictReplay, KeyReplay)
	}
	if o.Replay != "" && o.Save != "" && sameFile(o.Replay, o.Save) {
		return fmt.Errorf("--%s and --%s name the same file", KeyReplay, KeySave)
	}
	return nil
}

// Level returns the log level to initialize with. An explicit level wins,
// verbose selects debug, and empty leaves the choice to the logging package.
func (o *Options) Level() string {
	if o.LogLevel != "" {
		return o.LogLevel
	}
	if o.Verbose {
		return "debug"
	}
	return ""
}

// HistoryPath is the readline history file in the data directory.
func (o *Options) HistoryPath() string {
	return filepath.Join(o.DataDir, historyFile)
}

func resolveDataDir(fs *pflag.FlagSet) (string, error) {
	if fs != nil {
		if f := fs.Lookup(KeyDataDirectory); f != nil && f.Changed {
			return f.Value.String(), nil
		}
	}
	if dir := os.Getenv(envPrefix + "_DATA_DIRECTORY"); dir != "" {
		return dir, nil
	}
	return GetDataDir()
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// splitList flattens comma separated entries so that environment values
// like "serial,usb" behave like repeated flags.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
