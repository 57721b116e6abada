package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/tidwall/pretty"

	"github.com/matjam/scrollpaper"
)

// CanonicalPath expands a leading ~ to the user's home directory.
func CanonicalPath(path string) string {
	if path == "" {
		return ""
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return home
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}

	return path
}

func PrintJSONColored(data any) {
	j, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Errorf("Error marshalling JSON: %v", err)
		return
	}

	jPretty := pretty.Color(j, nil)
	log.Info(string(jPretty))
}

// ConfigDir is the per-user configuration directory.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "scrollpaper")
}

// DataDir is where logs are written when running in the background.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "scrollpaper")
}

func InstallDefaultConfig() {
	configPath := filepath.Join(ConfigDir(), "scrollpaper.toml")

	if _, err := os.Stat(configPath); err == nil {
		log.Warnf("Config file already exists at %v", configPath)
		return
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		log.Fatalf("Error creating config directory: %v", err)
	}

	if err := os.WriteFile(configPath, []byte(scrollpaper.DefaultConfig), 0644); err != nil {
		log.Fatalf("Error writing config file: %v", err)
	}

	log.Infof("Installed default config file at %v", configPath)
}
