package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	cfgKeyServer    = "server"
	cfgKeyToken     = "token"
	cfgKeyEmail     = "email"
	cfgKeyPageSize  = "page_size"
	cfgKeyRateLimit = "rate_limit"
	cfgKeyJSON      = "json"
	cfgKeyVerbose   = "verbose"

	defaultServer    = "http://localhost:8080"
	defaultPageSize  = 100
	defaultRateLimit = 10.0

	envPrefix = "SHELF"
)

// defaultConfigPath is $XDG_CONFIG_HOME/shelfkeeper/shelf.yaml or the
// platform equivalent.
func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "shelfkeeper", "shelf.yaml"), nil
}

// loadConfig reads the config file at path. Values resolve as
// flag > SHELF_* environment > file > default. A missing file is not an error.
func loadConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyServer, defaultServer)
	v.SetDefault(cfgKeyPageSize, defaultPageSize)
	v.SetDefault(cfgKeyRateLimit, defaultRateLimit)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// saveSession records the server, account and token in the config file at
// path, keeping any other keys already there.
func saveSession(path, server, email, token string) error {
	w := viper.New()
	w.SetConfigFile(path)
	w.SetConfigType("yaml")
	if err := w.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	w.Set(cfgKeyServer, server)
	w.Set(cfgKeyEmail, email)
	w.Set(cfgKeyToken, token)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := w.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Chmod(path, 0o600)
}
