package config

import (
	"os"
	"path/filepath"
)

const (
	apiURLVar = "CLUB_API_URL"
	wsURLVar  = "CLUB_WS_URL"
	folderVar = "CLUB_FOLDER"
	appName   = "CLUB_APP_NAME"
)

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
}

type StorageConfig interface {
	GetDataFolder() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}
var _ StorageConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appName, "Club Client")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetDataFolder returns the folder used for durable client state (credentials).
// Defaults to ~/.clubsync, falling back to a relative folder when the home
// directory cannot be resolved.
func (EnvVars) GetDataFolder() string {
	if folder := os.Getenv(folderVar); folder != "" {
		return folder
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clubsync"
	}
	return filepath.Join(home, ".clubsync")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
