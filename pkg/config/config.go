// Package config provides configuration management for livegate.
// It loads configuration from YAML files with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrCodeEU/livegate/pkg/logging"
)

// Config holds all livegate configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"face_detector"`
	Landmark LandmarkConfig `yaml:"landmarks"`
	Liveness LivenessConfig `yaml:"liveness_detection"`
	Gate     GateConfig     `yaml:"gate"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CameraConfig holds frame source settings.
type CameraConfig struct {
	// Source is "webcam" or "directory".
	Source     string `yaml:"source"`
	Device     string `yaml:"device"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	FPS        int    `yaml:"fps"`
	Label      string `yaml:"label"`
	FacingMode string `yaml:"facing_mode"`
	// Directory and AssumeLive apply to the directory source.
	Directory  string `yaml:"directory"`
	AssumeLive bool   `yaml:"assume_live"`
}

// DetectorConfig holds face-box detector settings.
type DetectorConfig struct {
	// Backend is "pigo" or "dlib".
	Backend     string  `yaml:"backend"`
	CascadePath string  `yaml:"cascade_path"`
	ModelPath   string  `yaml:"model_path"`
	MinSize     int     `yaml:"min_size"`
	MaxSize     int     `yaml:"max_size"`
	ShiftFactor float64 `yaml:"shift_factor"`
	ScaleFactor float64 `yaml:"scale_factor"`
	IoU         float64 `yaml:"iou_threshold"`
	MinQuality  float64 `yaml:"min_quality"`
}

// LandmarkConfig holds landmark provider settings.
type LandmarkConfig struct {
	// Backend is "worker" or "replay".
	Backend    string   `yaml:"backend"`
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args"`
	ModelPath  string   `yaml:"model_path"`
	ReplayPath string   `yaml:"replay_path"`
}

// GateConfig holds scan loop settings.
type GateConfig struct {
	Timeout            time.Duration `yaml:"timeout"`
	DetectorSkipFrames int           `yaml:"detector_skip_frames"`
	Cooldown           time.Duration `yaml:"cooldown"`
	MaxMatchAttempts   int           `yaml:"max_match_attempts"`
	MaxCameraErrors    int           `yaml:"max_camera_errors"`
}

// StorageConfig holds verdict log settings.
type StorageConfig struct {
	DataDir           string `yaml:"data_dir"`
	EncryptionEnabled bool   `yaml:"encryption_enabled"`
	RecordVerdicts    bool   `yaml:"record_verdicts"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local/share/livegate")
	return &Config{
		Camera: CameraConfig{
			Source: "webcam",
			Device: "/dev/video0",
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Detector: DetectorConfig{
			Backend:     "pigo",
			CascadePath: filepath.Join(dataDir, "models/facefinder"),
			ModelPath:   filepath.Join(dataDir, "models"),
			MinSize:     40,
			MaxSize:     1000,
			ShiftFactor: 0.1,
			ScaleFactor: 1.1,
			IoU:         0.2,
			MinQuality:  5,
		},
		Landmark: LandmarkConfig{
			Backend:   "worker",
			Command:   "livegate-landmarker",
			ModelPath: filepath.Join(dataDir, "models/face_landmarker.task"),
		},
		Liveness: LivenessConfig{
			Profile: "desktop",
		},
		Gate: GateConfig{
			Timeout:            10 * time.Second,
			DetectorSkipFrames: 2,
			Cooldown:           3 * time.Second,
			MaxMatchAttempts:   3,
			MaxCameraErrors:    5,
		},
		Storage: StorageConfig{
			DataDir:           dataDir,
			EncryptionEnabled: true,
			RecordVerdicts:    true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       filepath.Join(dataDir, "livegate.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load loads configuration from the specified file.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, err
	}

	return config, nil
}

// LoadDefault tries to load configuration from default locations.
func LoadDefault() (*Config, error) {
	// Try system config first
	if _, err := os.Stat("/etc/livegate/livegate.yaml"); err == nil {
		return Load("/etc/livegate/livegate.yaml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	userConfig := filepath.Join(homeDir, ".config/livegate/livegate.yaml")
	if _, err := os.Stat(userConfig); err == nil {
		return Load(userConfig)
	}

	return DefaultConfig(), nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Camera.Source {
	case "webcam":
		if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
			return fmt.Errorf("invalid camera resolution: %dx%d", c.Camera.Width, c.Camera.Height)
		}
		if c.Camera.FPS <= 0 {
			return fmt.Errorf("invalid camera FPS: %d", c.Camera.FPS)
		}
	case "directory":
		if c.Camera.Directory == "" {
			return fmt.Errorf("camera directory must be set for the directory source")
		}
	default:
		return fmt.Errorf("invalid camera source: %s (must be webcam or directory)", c.Camera.Source)
	}

	switch c.Detector.Backend {
	case "pigo", "dlib":
	default:
		return fmt.Errorf("invalid face detector backend: %s (must be pigo or dlib)", c.Detector.Backend)
	}

	switch c.Landmark.Backend {
	case "worker":
		if c.Landmark.Command == "" {
			return fmt.Errorf("landmark worker command must be set")
		}
	case "replay":
		if c.Landmark.ReplayPath == "" {
			return fmt.Errorf("landmark replay_path must be set for the replay backend")
		}
	default:
		return fmt.Errorf("invalid landmark backend: %s (must be worker or replay)", c.Landmark.Backend)
	}

	if _, err := c.LivenessConfig(); err != nil {
		return err
	}

	if c.Gate.Timeout <= 0 {
		return fmt.Errorf("gate timeout must be positive, got %s", c.Gate.Timeout)
	}
	if c.Gate.DetectorSkipFrames < 0 {
		return fmt.Errorf("detector_skip_frames must not be negative, got %d", c.Gate.DetectorSkipFrames)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Camera.Device = ExpandPath(c.Camera.Device)
	c.Camera.Directory = ExpandPath(c.Camera.Directory)
	c.Detector.CascadePath = ExpandPath(c.Detector.CascadePath)
	c.Detector.ModelPath = ExpandPath(c.Detector.ModelPath)
	c.Landmark.ModelPath = ExpandPath(c.Landmark.ModelPath)
	c.Landmark.ReplayPath = ExpandPath(c.Landmark.ReplayPath)
	c.Storage.DataDir = ExpandPath(c.Storage.DataDir)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// EnsureDirectories creates necessary directories for storage and logging.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	sessionsDir := filepath.Join(c.Storage.DataDir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0700); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	if c.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	return nil
}

// LoggingOptions returns the logging setup for this configuration.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
	}
}
