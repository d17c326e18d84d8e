package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "lmm"

// DefaultDownloadsDir returns the well-known per-OS folder fetched archives
// are preserved in and rescanned from.
func DefaultDownloadsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return downloadsDir(runtime.GOOS, os.Getenv, home), nil
}

func downloadsDir(goos string, getenv func(string) string, home string) string {
	return filepath.Join(dataHome(goos, getenv, home), appDirName, "Downloads")
}

func dataHome(goos string, getenv func(string) string, home string) string {
	switch goos {
	case "windows":
		if dir := getenv("LOCALAPPDATA"); dir != "" {
			return dir
		}
		return filepath.Join(home, "AppData", "Local")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support")
	default:
		if dir := getenv("XDG_DATA_HOME"); dir != "" && filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(home, ".local", "share")
	}
}

// DefaultDirs returns the config and data directories used when no flags override them
func DefaultDirs() (configDir, dataDir string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("home directory: %w", err)
	}
	configDir = filepath.Join(home, ".config", appDirName)
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" && filepath.IsAbs(dir) {
		configDir = filepath.Join(dir, appDirName)
	}
	dataDir = filepath.Join(dataHome(runtime.GOOS, os.Getenv, home), appDirName)
	return configDir, dataDir, nil
}
