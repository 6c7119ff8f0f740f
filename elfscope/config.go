package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

const (
	outputText = "text"
	outputJSON = "json"
)

type RuntimeConfig struct {
	Debug   bool   `toml:"debug"`
	NoColor bool   `toml:"no_color"`
	Output  string `toml:"output"`
}

// loadConfig layers the optional TOML file and the environment over the
// defaults. Command-line flags are applied by the caller.
func loadConfig(path string) (RuntimeConfig, error) {
	config := RuntimeConfig{Output: outputText}

	if path != "" {
		if _, err := toml.DecodeFile(path, &config); err != nil {
			return config, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if v, ok := os.LookupEnv("ELFSCOPE_DEBUG"); ok {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return config, fmt.Errorf("parsing ELFSCOPE_DEBUG: %w", err)
		}
		config.Debug = debug
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		config.NoColor = true
	}
	return config, nil
}

func (c RuntimeConfig) validate() error {
	switch c.Output {
	case outputText, outputJSON:
		return nil
	}
	return fmt.Errorf("invalid output format %q, use %q or %q", c.Output, outputText, outputJSON)
}

func (c RuntimeConfig) apply() {
	if c.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	if c.NoColor {
		color.NoColor = true
	}
}
