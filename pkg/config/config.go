package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// Option customizes how a config struct is loaded.
type Option func(*loader)

type loader struct {
	envFile string
}

// WithEnvFile loads the given dotenv-style file into the process environment
// before the struct is populated. The file must exist.
func WithEnvFile(path string) Option {
	return func(l *loader) {
		l.envFile = strings.TrimSpace(path)
	}
}

// New populates T from the environment using envconfig struct tags, optionally
// exporting an env file first. Without WithEnvFile, a ./.env file is exported
// when present.
func New[T any](prefix string, opts ...Option) (*T, error) {
	var l loader
	for _, opt := range opts {
		if opt != nil {
			opt(&l)
		}
	}

	if l.envFile != "" {
		if err := exportEnvironment(l.envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", l.envFile, err)
		}
	} else if err := exportEnvironmentIfExists(".env"); err != nil {
		return nil, fmt.Errorf("load default env file: %w", err)
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// MustNew is New, panicking on failure. For wiring code where a bad
// environment is unrecoverable.
func MustNew[T any](prefix string, opts ...Option) *T {
	conf, err := New[T](prefix, opts...)
	if err != nil {
		panic(err)
	}
	return conf
}

func exportEnvironmentIfExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(path)
}

func exportEnvironment(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for key, value := range v.AllSettings() {
		name := strings.ToUpper(key)
		// Values already present in the environment win over the file.
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, fmt.Sprint(value)); err != nil {
			return err
		}
	}
	return nil
}
