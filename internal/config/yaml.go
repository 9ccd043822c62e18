// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the runtime application configuration, loaded from YAML.
// The DSP parameters themselves are fixed constants (see config.go); this
// struct only selects devices, files and surfaces.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug mode (verbose logging).
	LogLevel  string          `yaml:"log_level"`         // Logging level (e.g., "debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // A one-off command to execute instead of running the pipeline (e.g., "list").
	Audio     AudioConfig     `yaml:"audio"`             // Audio source settings.
	Transport TransportConfig `yaml:"transport"`         // Feature snapshot transport settings.
}

// AudioConfig holds settings related to the active audio source.
type AudioConfig struct {
	InputDevice int     `yaml:"input_device"` // PortAudio device index for microphone input (-1 for default).
	Channels    int     `yaml:"channels"`     // Number of channels to capture (1=mono, 2=stereo; mixed down to mono).
	MicGain     float64 `yaml:"mic_gain"`     // Amplitude boost applied to microphone samples.
	File        string  `yaml:"file"`         // Audio file to play instead of the microphone (wav/mp3/ogg/flac).
	Loop        bool    `yaml:"loop"`         // Loop file playback at end of stream.
	Interactive bool    `yaml:"-"`            // Interactive device picker for the list command (CLI only).
}

// TransportConfig holds settings for publishing feature snapshots.
type TransportConfig struct {
	WSEnabled bool   `yaml:"ws_enabled"` // Enable the WebSocket feature broadcast.
	WSPort    string `yaml:"ws_port"`    // Port for the WebSocket server.
}

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty it searches default locations ("config.yaml"). If no file is found
// it uses built-in defaults. After loading, environment variable overrides
// are applied and the final configuration is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice: MinDeviceID,
			Channels:    1,
			MicGain:     DefaultMicGain,
			Loop:        true,
		},
		Transport: TransportConfig{
			WSEnabled: true,
			WSPort:    "8080",
		},
	}

	if path == "" {
		candidates := []string{"config.yaml"}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return &cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for values the pipeline cannot
// work with.
func (c *Config) Validate() error {
	if c.Audio.Channels < 1 || c.Audio.Channels > 2 {
		return fmt.Errorf("audio.channels must be 1 or 2, got %d", c.Audio.Channels)
	}
	if c.Audio.MicGain <= 0 {
		return fmt.Errorf("audio.mic_gain must be positive, got %f", c.Audio.MicGain)
	}
	if c.Transport.WSEnabled && c.Transport.WSPort == "" {
		return fmt.Errorf("transport.ws_port must be set when the WebSocket transport is enabled")
	}
	return nil
}

func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	// ENV_INPUT_DEVICE
	if val, ok := os.LookupEnv("ENV_INPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.InputDevice = iVal
		}
	}
	// ENV_WS_ENABLED
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WSEnabled = bVal
		}
	}
	// ENV_WS_PORT
	if val, ok := os.LookupEnv("ENV_WS_PORT"); ok {
		cfg.Transport.WSPort = val
	}
}
