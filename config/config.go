package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

var v *viper.Viper

func init() {
	v = viper.New()

	// Set default values
	v.SetDefault("service.transcribe.endpoint", "https://api.capscribe.dev/v1/transcriptions")
	v.SetDefault("service.guide.endpoint", "https://api.capscribe.dev/v1/guides")

	// Capture helper command; resolved through PATH when not absolute
	v.SetDefault("capture.helper", "capscribe-capture")

	// Set default capscribe home directory
	v.SetDefault("capscribe.home", filepath.Join(xdg.Home, ".capscribe"))

	// Profile path defaults to capscribe.home/profile.toml; resolved
	// dynamically when accessed
	v.SetDefault("profile.path", "")

	v.SetDefault("studio.port", 8321)

	// Environment variables
	v.AutomaticEnv()
	v.BindEnv("service.transcribe.endpoint", "CAPSCRIBE_TRANSCRIBE_ENDPOINT")
	v.BindEnv("service.guide.endpoint", "CAPSCRIBE_GUIDE_ENDPOINT")
	v.BindEnv("capture.helper", "CAPSCRIBE_CAPTURE_HELPER")
	v.BindEnv("capscribe.home", "CAPSCRIBE_HOME")
	v.BindEnv("profile.path", "CAPSCRIBE_PROFILE_PATH")
	v.BindEnv("studio.port", "CAPSCRIBE_STUDIO_PORT")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Look for config in the following paths
	configPaths := []string{
		".",
		"$HOME/.capscribe",
		"/etc/capscribe",
	}

	for _, path := range configPaths {
		expandedPath := os.ExpandEnv(path)
		v.AddConfigPath(expandedPath)
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			panic(fmt.Sprintf("Fatal error reading config file: %s", err))
		}
		// Config file not found; ignore error and use defaults
	}
}

// GetTranscribeEndpoint returns the transcription service URL
func GetTranscribeEndpoint() string {
	return v.GetString("service.transcribe.endpoint")
}

// GetGuideEndpoint returns the guide-generation service URL
func GetGuideEndpoint() string {
	return v.GetString("service.guide.endpoint")
}

// GetCaptureHelper returns the capture helper command
func GetCaptureHelper() string {
	return v.GetString("capture.helper")
}

// GetHome returns the capscribe home directory
func GetHome() string {
	return v.GetString("capscribe.home")
}

// GetProfilePath returns the profile file path
func GetProfilePath() string {
	// If profile.path is explicitly set, use it
	if profilePath := v.GetString("profile.path"); profilePath != "" {
		return profilePath
	}

	// Otherwise, use capscribe.home + "/profile.toml"
	return filepath.Join(GetHome(), "profile.toml")
}

// GetStudioPort returns the default studio server port
func GetStudioPort() int {
	return v.GetInt("studio.port")
}
