package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides.
const (
	EnvConfigPath   = "LIVEGATE_CONFIG"
	EnvLogLevel     = "LIVEGATE_LOG_LEVEL"
	EnvLogFile      = "LIVEGATE_LOG_FILE"
	EnvCameraDevice = "LIVEGATE_CAMERA_DEVICE"
	EnvProfile      = "LIVEGATE_PROFILE"
	EnvDataDir      = "LIVEGATE_DATA_DIR"
)

// LoadEnv reads .env files into the process environment. Missing files are
// skipped; variables already set are not overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ConfigPathFromEnv returns the config path set in the environment, if any.
func ConfigPathFromEnv() string {
	return strings.TrimSpace(os.Getenv(EnvConfigPath))
}

// ApplyEnv overrides settings from LIVEGATE_* variables.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Logging.Level, EnvLogLevel)
	set(&c.Logging.File, EnvLogFile)
	set(&c.Camera.Device, EnvCameraDevice)
	set(&c.Liveness.Profile, EnvProfile)
	set(&c.Storage.DataDir, EnvDataDir)
}
