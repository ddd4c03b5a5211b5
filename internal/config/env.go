package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by OverridesFromEnv.
const (
	EnvCatalog   = "SWSELECT_CATALOG"
	EnvStateDB   = "SWSELECT_STATE_DB"
	EnvAutomated = "SWSELECT_AUTOMATED"
	EnvLiveImage = "SWSELECT_LIVEIMG"
)

// LoadEnv loads the given dotenv files into the process environment.
// Missing files are skipped and variables that are already set win.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}

	return nil
}

// Overrides are the settings taken from the environment.
type Overrides struct {
	Catalog   string
	StateDB   string
	Automated bool
	LiveImage bool
}

// OverridesFromEnv reads the SWSELECT_* variables.
func OverridesFromEnv() Overrides {
	var o Overrides
	setIfEnvExists(&o.Catalog, EnvCatalog)
	setIfEnvExists(&o.StateDB, EnvStateDB)
	o.Automated = boolFromEnv(EnvAutomated)
	o.LiveImage = boolFromEnv(EnvLiveImage)

	return o
}

// Apply copies the non-empty paths onto cfg.
func (o Overrides) Apply(cfg *AppConfig) {
	if o.Catalog != "" {
		cfg.Catalog = ExpandPath(o.Catalog)
	}
	if o.StateDB != "" {
		cfg.StateDB = ExpandPath(o.StateDB)
	}
}

func setIfEnvExists(value *string, name string) {
	if val := os.Getenv(name); val != "" {
		*value = val
	}
}

func boolFromEnv(name string) bool {
	val := os.Getenv(name)
	if val == "" {
		return false
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		slog.Warn("ignoring invalid boolean", slog.String("variable", name), slog.String("value", val))
		return false
	}

	return b
}
