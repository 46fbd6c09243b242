package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigPath  string
	SchemaPath  string
	OutputPath  string
	DryRun      bool
	Validate    bool
	ShowVersion bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("BIOGRAPH_CONFIG", "configs/biograph.yaml"),
		"Path to configuration file (env: BIOGRAPH_CONFIG)")

	flag.StringVar(&cfg.SchemaPath, "schema", "",
		"Path to schema file, overriding the configured one")

	flag.StringVar(&cfg.OutputPath, "out", "",
		"Write routed records to this file instead of stdout")

	flag.BoolVar(&cfg.DryRun, "dry-run", false,
		"Project a bounded sample and report counts without writing records")

	flag.BoolVar(&cfg.Validate, "validate", false,
		"Validate configuration and schema, then exit")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")

	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ConfigPath == "" {
		return fmt.Errorf("config path must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
