// Package profile manages the local credential file for the capscribe
// services.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/capscribe/capscribe/config"
)

// Common error messages
const (
	ErrNoAPIKey    = "no API key configured. Run 'capscribe login' first"
	ErrEmptyAPIKey = "API key is empty"
)

// ProfileConfig is the on-disk profile file layout.
type ProfileConfig struct {
	APIKey             string `toml:"api_key"`
	TranscribeEndpoint string `toml:"transcribe_endpoint,omitempty"`
	GuideEndpoint      string `toml:"guide_endpoint,omitempty"`
}

// Manager reads and writes the profile file.
type Manager struct {
	config ProfileConfig
	path   string
}

// NewManager creates a manager over the configured profile path.
func NewManager() *Manager {
	return &Manager{path: config.GetProfilePath()}
}

// Load loads the profile from disk. A missing file is not an error;
// the profile just stays empty.
func (pm *Manager) Load() error {
	data, err := os.ReadFile(pm.path)
	if os.IsNotExist(err) {
		pm.config = ProfileConfig{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read profile file: %v", err)
	}

	if err := toml.Unmarshal(data, &pm.config); err != nil {
		return fmt.Errorf("failed to parse profile file: %v", err)
	}
	return nil
}

// Save writes the profile to disk, creating the directory if needed.
// The file is user-readable only since it holds the API key.
func (pm *Manager) Save() error {
	if err := os.MkdirAll(filepath.Dir(pm.path), 0o755); err != nil {
		return fmt.Errorf("failed to create profile directory: %v", err)
	}

	data, err := toml.Marshal(pm.config)
	if err != nil {
		return fmt.Errorf("failed to serialize profile data: %v", err)
	}

	if err := os.WriteFile(pm.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write profile file: %v", err)
	}
	return nil
}

// SetAPIKey stores the API key.
func (pm *Manager) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s", ErrEmptyAPIKey)
	}
	pm.config.APIKey = key
	return nil
}

// APIKey returns the stored API key, or an error when none is set.
func (pm *Manager) APIKey() (string, error) {
	if pm.config.APIKey == "" {
		return "", fmt.Errorf("%s", ErrNoAPIKey)
	}
	return pm.config.APIKey, nil
}

// TranscribeEndpoint returns the per-profile transcription endpoint
// override, falling back to the configured default.
func (pm *Manager) TranscribeEndpoint() string {
	if pm.config.TranscribeEndpoint != "" {
		return pm.config.TranscribeEndpoint
	}
	return config.GetTranscribeEndpoint()
}

// GuideEndpoint returns the per-profile guide endpoint override,
// falling back to the configured default.
func (pm *Manager) GuideEndpoint() string {
	if pm.config.GuideEndpoint != "" {
		return pm.config.GuideEndpoint
	}
	return config.GetGuideEndpoint()
}

// Path returns the profile file location.
func (pm *Manager) Path() string {
	return pm.path
}

// LoadDefault loads the profile from the configured path.
func LoadDefault() (*Manager, error) {
	pm := NewManager()
	if err := pm.Load(); err != nil {
		return nil, err
	}
	return pm, nil
}
