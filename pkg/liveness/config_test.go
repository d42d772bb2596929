package liveness

import (
	"errors"
	"testing"
)

func TestConfigFromProfile(t *testing.T) {
	tests := []struct {
		profile     Profile
		wantProfile Profile
		wantWindow  int
		wantSamples int
	}{
		{ProfileDesktop, ProfileDesktop, 15, 12},
		{ProfileMobile, ProfileMobile, 6, 8},
		{"kiosk", ProfileDesktop, 15, 12},
	}

	for _, tt := range tests {
		t.Run(string(tt.profile), func(t *testing.T) {
			cfg := ConfigFromProfile(tt.profile)
			if cfg.Profile != tt.wantProfile {
				t.Errorf("Profile = %s, want %s", cfg.Profile, tt.wantProfile)
			}
			if cfg.Blink.Window != tt.wantWindow {
				t.Errorf("Blink.Window = %d, want %d", cfg.Blink.Window, tt.wantWindow)
			}
			if cfg.FrameSampleSize != tt.wantSamples {
				t.Errorf("FrameSampleSize = %d, want %d", cfg.FrameSampleSize, tt.wantSamples)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("preset fails validation: %v", err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"history too small", func(c *Config) { c.HistorySize = 1 }},
		{"samples too small", func(c *Config) { c.FrameSampleSize = 0 }},
		{"blink window", func(c *Config) { c.Blink.Window = 1 }},
		{"closed above open", func(c *Config) { c.Blink.ClosedThreshold = 0.3 }},
		{"texture block", func(c *Config) { c.Texture.BlockSize = 0 }},
		{"texture checks", func(c *Config) { c.Texture.MinChecks = 4 }},
		{"baseline size", func(c *Config) { c.Baseline.Size = 1 }},
		{"unique rate", func(c *Config) { c.Static.MinUniqueRate = 1.5 }},
		{"block ratio", func(c *Config) { c.Discontinuity.BlockRatio = 0 }},
		{"no attempts", func(c *Config) { c.Inference.MaxAttempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
