// Package config loads typed configuration from the environment, with an
// optional .env file for local development. The .env values are exported
// into the process environment once, so envconfig sees one merged view
// and real environment variables win.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const dotEnvFile = ".env"

var (
	exportOnce sync.Once
	exportErr  error
)

// New populates a config struct of type T from the environment using
// envconfig struct tags. The prefix namespaces the variables, e.g.
// prefix "MINSWAP" reads MINSWAP_BASE_URL for a BaseURL field.
func New[T any](prefix string) (*T, error) {
	exportOnce.Do(func() { exportErr = exportDotEnv() })
	if exportErr != nil {
		return nil, exportErr
	}

	cfg := new(T)
	if err := envconfig.Process(prefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment (prefix=%q): %w", prefix, err)
	}
	return cfg, nil
}

// MustNew is New for wiring code that cannot continue without config.
func MustNew[T any](prefix string) *T {
	cfg, err := New[T](prefix)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

func exportDotEnv() error {
	if _, err := os.Stat(dotEnvFile); os.IsNotExist(err) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(dotEnvFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", dotEnvFile, err)
	}

	// viper lowercases keys; environment variable names are upper-case.
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
	}
	return nil
}
