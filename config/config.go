package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// maxRecent is how many recently played files are remembered
const maxRecent = 10

// OutputConfig defines the MIDI output
type OutputConfig struct {
	PortName   string `json:"portName,omitempty"`
	SampleRate uint32 `json:"sampleRate,omitempty"`
	Period     uint32 `json:"period,omitempty"` // frames per clock cycle
	SendSysex  bool   `json:"sendSysex"`
}

// OSCConfig defines the network control surface
type OSCConfig struct {
	Enabled   bool   `json:"enabled"`
	Listen    string `json:"listen,omitempty"`
	ReplyHost string `json:"replyHost,omitempty"`
	ReplyPort int    `json:"replyPort,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette     string   `json:"palette,omitempty"` // path to a GIMP .gpl palette
	RecentFiles []string `json:"recentFiles,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Output OutputConfig `json:"output"`
	OSC    OSCConfig    `json:"osc"`
	UI     UIConfig     `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			SampleRate: 48000,
			Period:     256,
			SendSysex:  true,
		},
		OSC: OSCConfig{
			Listen: "127.0.0.1:9000",
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-smfplay"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path, or returns defaults if it does not
// exist. Fields missing from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory.
func (c *Config) SaveFile(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// AddRecent moves path to the front of the recent files list
func (c *Config) AddRecent(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	recent := []string{path}
	for _, p := range c.UI.RecentFiles {
		if p != path && len(recent) < maxRecent {
			recent = append(recent, p)
		}
	}
	c.UI.RecentFiles = recent
}
