package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type appConfig struct {
	configPath           string
	serialDev            string
	baud                 int
	serialReadTO         time.Duration
	outCSV               string
	sqlitePath           string
	requireFullyResolved bool
	logFormat            string
	logLevel             string
	metricsAddr          string
	logMetricsEvery      time.Duration
	mdnsEnable           bool
	mdnsName             string
}

// fileConfig is the YAML layer. Pointers distinguish "absent" from zero.
type fileConfig struct {
	Serial               *string        `yaml:"serial"`
	Baud                 *int           `yaml:"baud"`
	SerialReadTimeout    *time.Duration `yaml:"serial_read_timeout"`
	Out                  *string        `yaml:"out"`
	SQLite               *string        `yaml:"sqlite"`
	RequireFullyResolved *bool          `yaml:"require_fully_resolved"`
	LogFormat            *string        `yaml:"log_format"`
	LogLevel             *string        `yaml:"log_level"`
	MetricsAddr          *string        `yaml:"metrics_addr"`
	LogMetricsInterval   *time.Duration `yaml:"log_metrics_interval"`
	MDNSEnable           *bool          `yaml:"mdns_enable"`
	MDNSName             *string        `yaml:"mdns_name"`
}

// parseFlags builds the configuration with precedence flag > env > file > default.
func parseFlags(args []string) (*appConfig, bool, error) {
	cfg := &appConfig{}
	fs := flag.NewFlagSet("ubx-logger", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.configPath, "config", "", "Optional YAML config file")
	fs.StringVar(&cfg.serialDev, "serial", "/dev/ttyACM0", "Serial device path")
	fs.IntVar(&cfg.baud, "baud", 115200, "Serial baud rate")
	fs.DurationVar(&cfg.serialReadTO, "serial-read-timeout", 100*time.Millisecond, "Serial read timeout (bounds shutdown latency)")
	fs.StringVar(&cfg.outCSV, "out", "gnss_log.csv", "CSV output file (appended)")
	fs.StringVar(&cfg.sqlitePath, "sqlite", "", "Optional SQLite database to also record samples into")
	fs.BoolVar(&cfg.requireFullyResolved, "require-fully-resolved", false, "Drop NAV-PVT samples whose time is not fully resolved")
	fs.StringVar(&cfg.logFormat, "log-format", "text", "Log format: text|json")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.StringVar(&cfg.metricsAddr, "metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	fs.DurationVar(&cfg.logMetricsEvery, "log-metrics-interval", 0, "If >0, periodically log metrics counters")
	fs.BoolVar(&cfg.mdnsEnable, "mdns-enable", false, "Advertise the metrics endpoint via mDNS (requires -metrics-addr)")
	fs.StringVar(&cfg.mdnsName, "mdns-name", "", "mDNS instance name (default ubx-logger-<hostname>)")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if *showVersion {
		return cfg, true, nil
	}

	// Track which flags were explicitly set to give them precedence.
	setFlags := map[string]struct{}{}
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	if _, ok := setFlags["config"]; !ok {
		if v, ok := os.LookupEnv(envPrefix + "CONFIG"); ok && strings.TrimSpace(v) != "" {
			cfg.configPath = strings.TrimSpace(v)
		}
	}
	if cfg.configPath != "" {
		fc, err := loadConfigFile(cfg.configPath)
		if err != nil {
			return nil, false, err
		}
		applyFileConfig(cfg, fc, setFlags)
	}
	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		return nil, false, fmt.Errorf("environment override: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &fc, nil
}

// applyFileConfig copies values present in the file unless the matching flag
// was set on the command line.
func applyFileConfig(c *appConfig, fc *fileConfig, set map[string]struct{}) {
	setStr := func(flagName string, dst *string, v *string) {
		if _, ok := set[flagName]; !ok && v != nil {
			*dst = *v
		}
	}
	setStr("serial", &c.serialDev, fc.Serial)
	setStr("out", &c.outCSV, fc.Out)
	setStr("sqlite", &c.sqlitePath, fc.SQLite)
	setStr("log-format", &c.logFormat, fc.LogFormat)
	setStr("log-level", &c.logLevel, fc.LogLevel)
	setStr("metrics-addr", &c.metricsAddr, fc.MetricsAddr)
	setStr("mdns-name", &c.mdnsName, fc.MDNSName)
	if _, ok := set["baud"]; !ok && fc.Baud != nil {
		c.baud = *fc.Baud
	}
	if _, ok := set["serial-read-timeout"]; !ok && fc.SerialReadTimeout != nil {
		c.serialReadTO = *fc.SerialReadTimeout
	}
	if _, ok := set["log-metrics-interval"]; !ok && fc.LogMetricsInterval != nil {
		c.logMetricsEvery = *fc.LogMetricsInterval
	}
	if _, ok := set["require-fully-resolved"]; !ok && fc.RequireFullyResolved != nil {
		c.requireFullyResolved = *fc.RequireFullyResolved
	}
	if _, ok := set["mdns-enable"]; !ok && fc.MDNSEnable != nil {
		c.mdnsEnable = *fc.MDNSEnable
	}
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open devices or files – only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.serialDev == "" {
		return errors.New("serial device must be set")
	}
	if c.baud <= 0 {
		return fmt.Errorf("baud must be > 0 (got %d)", c.baud)
	}
	if c.serialReadTO <= 0 {
		return fmt.Errorf("serial-read-timeout must be > 0")
	}
	if c.outCSV == "" && c.sqlitePath == "" {
		return errors.New("at least one of out or sqlite must be set")
	}
	if c.logMetricsEvery < 0 {
		return fmt.Errorf("log-metrics-interval must be >= 0")
	}
	if c.mdnsEnable && c.metricsAddr == "" {
		return errors.New("mdns-enable requires metrics-addr")
	}
	return nil
}

// applyEnvOverrides maps UBX_LOGGER_* environment variables to config fields
// unless a corresponding flag was explicitly set. Empty values are ignored.
// Duration accepts Go time.ParseDuration format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(flagName string) (string, bool) {
		if _, ok := set[flagName]; ok {
			return "", false
		}
		key := envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
		v, ok := os.LookupEnv(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	fail := func(flagName string, err error) {
		if firstErr == nil {
			firstErr = fmt.Errorf("invalid %s%s: %w", envPrefix, strings.ToUpper(strings.ReplaceAll(flagName, "-", "_")), err)
		}
	}
	str := func(flagName string, dst *string) {
		if v, ok := get(flagName); ok {
			*dst = v
		}
	}
	dur := func(flagName string, dst *time.Duration) {
		if v, ok := get(flagName); ok {
			if d, err := time.ParseDuration(v); err != nil {
				fail(flagName, err)
			} else {
				*dst = d
			}
		}
	}
	boolean := func(flagName string, dst *bool) {
		if v, ok := get(flagName); ok {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			default:
				fail(flagName, fmt.Errorf("not a boolean: %q", v))
			}
		}
	}

	str("serial", &c.serialDev)
	if v, ok := get("baud"); ok {
		if n, err := strconv.Atoi(v); err != nil {
			fail("baud", err)
		} else {
			c.baud = n
		}
	}
	dur("serial-read-timeout", &c.serialReadTO)
	str("out", &c.outCSV)
	str("sqlite", &c.sqlitePath)
	boolean("require-fully-resolved", &c.requireFullyResolved)
	str("log-format", &c.logFormat)
	str("log-level", &c.logLevel)
	// UBX_LOGGER_METRICS keeps the short name used in deployment units.
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := os.LookupEnv(envPrefix + "METRICS"); ok {
			c.metricsAddr = strings.TrimSpace(v)
		}
	}
	dur("log-metrics-interval", &c.logMetricsEvery)
	boolean("mdns-enable", &c.mdnsEnable)
	str("mdns-name", &c.mdnsName)
	return firstErr
}
