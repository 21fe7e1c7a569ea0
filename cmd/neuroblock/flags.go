package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/Mohammedsanin/NeuroBlock/config"
)

// CLIConfig holds command-line configuration. Most settings live in the
// config file; flags cover the config path itself plus the overrides
// that matter during development.
type CLIConfig struct {
	ConfigPath  string
	Addr        string
	LogLevel    string
	LogFormat   string
	Debug       bool
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
	WriteConfig string
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// The config path falls back to the environment; everything else in
	// the environment is applied by the config loader itself.
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("NEUROBLOCK_CONFIG", ""),
		"Path to YAML configuration file (env: NEUROBLOCK_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("NEUROBLOCK_CONFIG", ""),
		"Path to YAML configuration file (env: NEUROBLOCK_CONFIG)")

	flag.StringVar(&cfg.Addr, "addr", "",
		"Listen address, overrides the config file (e.g. \":9090\")")

	flag.StringVar(&cfg.LogLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides the config file)")

	flag.StringVar(&cfg.LogFormat, "log-format", "",
		"Log format: json, text (overrides the config file)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("NEUROBLOCK_DEBUG", false),
		"Enable debug logging (env: NEUROBLOCK_DEBUG)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	flag.StringVar(&cfg.WriteConfig, "write-config", "",
		"Write the effective configuration to the given YAML file and exit")

	// Custom usage
	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	// Empty means "use the config file value".
	validLevels := []string{"", "debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"", "json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

// applyFlagOverrides lets explicit flags win over the config file.
func applyFlagOverrides(cfg *config.Config, cli *CLIConfig) {
	if cli.Addr != "" {
		cfg.Server.Addr = cli.Addr
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Visual ML Pipeline Builder

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with defaults (ML service on http://localhost:5000)
  %s

  # Run with a custom config
  %s --config=/etc/neuroblock/config.yaml

  # Run with debug logging on another port
  %s --debug --log-format=text --addr=:9090

  # Run with environment variables
  export NEUROBLOCK_CONFIG=/etc/neuroblock/config.yaml
  export NEUROBLOCK_BACKEND_URL=http://ml-service:5000
  %s

  # Generate a starter config file
  %s --write-config=config.yaml

  # Validate configuration only
  %s --config=config.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
