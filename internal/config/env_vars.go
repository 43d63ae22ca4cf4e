package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	appNameVar         = "APP_NAME"
	credentialsFileVar = "CREDENTIALS_FILE"
	logLevelVar        = "LOG_LEVEL"
)

// Load reads a .env file if one is present. Real environment variables win.
func Load() {
	_ = godotenv.Load()
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "SmartKart")
}

// GetCredentialsFile returns the path of the durable credential store.
// Defaults to smartkart/credentials.json under the user config dir.
func (EnvVars) GetCredentialsFile() string {
	if file := os.Getenv(credentialsFileVar); file != "" {
		return file
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".smartkart", "credentials.json")
	}
	return filepath.Join(configDir, "smartkart", "credentials.json")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
