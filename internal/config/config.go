// Package config resolves aceflow settings from flags, ACEFLOW_* environment
// variables and an optional $ACEFLOW_HOME/config.yaml, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexanderramin/aceflow/internal/repository"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "ACEFLOW"

	// FileName is read from the home directory when present.
	FileName = "config.yaml"

	keyHome        = "home"
	keyTemplates   = "templates"
	keyDirectory   = "directory"
	keyLockTimeout = "lock.timeout"
	keyLogLevel    = "log.level"
	keyLogUseCases = "log.use_cases"
)

type Config struct {
	// Home holds user-level state; defaults to ~/.aceflow.
	Home string
	// Templates is the template catalog directory. A missing directory means
	// the embedded catalog.
	Templates   string
	Directory   string
	LockTimeout time.Duration
	LogLevel    slog.Level
	LogUseCases bool
	// File is the config file that was read, or "".
	File string
}

// Load builds the configuration. flags may be nil; a "directory" flag in it
// overrides the environment and the config file when set.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyHome, defaultHome())
	v.SetDefault(keyTemplates, "")
	v.SetDefault(keyDirectory, ".")
	v.SetDefault(keyLockTimeout, repository.DefaultLockTimeout)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogUseCases, false)

	if flags != nil {
		if f := flags.Lookup(keyDirectory); f != nil {
			if err := v.BindPFlag(keyDirectory, f); err != nil {
				return Config{}, fmt.Errorf("binding --%s: %w", keyDirectory, err)
			}
		}
	}

	cfg := Config{Home: expandHome(v.GetString(keyHome))}
	path := filepath.Join(cfg.Home, FileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
		cfg.File = path
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("checking %s: %w", path, err)
	}

	cfg.Templates = expandHome(v.GetString(keyTemplates))
	if cfg.Templates == "" {
		cfg.Templates = filepath.Join(cfg.Home, "templates")
	}
	cfg.Directory = v.GetString(keyDirectory)
	if cfg.Directory == "" {
		cfg.Directory = "."
	}

	cfg.LockTimeout = v.GetDuration(keyLockTimeout)
	if cfg.LockTimeout < 0 {
		return Config{}, fmt.Errorf("%s must not be negative, got %v", keyLockTimeout, cfg.LockTimeout)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(keyLogLevel))); err != nil {
		return Config{}, fmt.Errorf("%s: %w", keyLogLevel, err)
	}
	cfg.LogUseCases = v.GetBool(keyLogUseCases)
	return cfg, nil
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aceflow"
	}
	return filepath.Join(home, ".aceflow")
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
