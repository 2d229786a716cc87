// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads and persists the per-user sk configuration.
//
// The file is config.json in the configuration directory. Missing keys take
// their defaults, and each key can be overridden from the environment with the
// SK_ prefix (SK_DEFAULT_ROOT, SK_PROTOCOL, ...).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/stacklok/skills-kit/paths"
	"github.com/stacklok/skills-kit/skerr"
)

// FileName is the configuration file inside the configuration directory.
const FileName = "config.json"

// Keys.
const (
	KeyDefaultRoot = "default_root"
	KeyProtocol    = "protocol"
	KeyDefaultHost = "default_host"
	KeyGitHubUser  = "github_user"
	KeyDefaultRepo = "default_repo"
)

// Protocol values.
const (
	ProtocolSSH   = "ssh"
	ProtocolHTTPS = "https"
)

// Config is the user configuration.
type Config struct {
	DefaultRoot string `mapstructure:"default_root" json:"default_root"`
	Protocol    string `mapstructure:"protocol" json:"protocol"`
	DefaultHost string `mapstructure:"default_host" json:"default_host"`
	GitHubUser  string `mapstructure:"github_user" json:"github_user"`
	// DefaultRepo is the publish target for sync-back of brand-new skills.
	DefaultRepo string `mapstructure:"default_repo" json:"default_repo,omitempty"`
}

var defaults = map[string]string{
	KeyDefaultRoot: paths.DefaultInstallRoot,
	KeyProtocol:    ProtocolSSH,
	KeyDefaultHost: "github.com",
	KeyGitHubUser:  "",
	KeyDefaultRepo: "",
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DefaultRoot: defaults[KeyDefaultRoot],
		Protocol:    defaults[KeyProtocol],
		DefaultHost: defaults[KeyDefaultHost],
	}
}

// PreferHTTPS reports whether shorthand repositories expand to https URLs.
func (c Config) PreferHTTPS() bool {
	return c.Protocol == ProtocolHTTPS
}

// Keys lists the known configuration keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the configuration file inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(Path(dir))
	v.SetConfigType("json")
	v.SetEnvPrefix("SK")
	v.AutomaticEnv()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	return v
}

// Load reads the configuration from dir, falling back to defaults when the
// file does not exist.
func Load(dir string) (Config, error) {
	v := newViper(dir)
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) && !isNotFound(err) {
			return Config{}, skerr.WithHint(
				skerr.Wrap(skerr.KindConfiguration, fmt.Errorf("reading %s: %w", Path(dir), err)),
				"fix or delete "+Path(dir),
			)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, skerr.Wrap(skerr.KindConfiguration, fmt.Errorf("decoding %s: %w", Path(dir), err))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf)
}

// Validate checks every key's value.
func (c Config) Validate() error {
	for _, k := range Keys() {
		v, _ := c.Get(k)
		if err := validate(k, v); err != nil {
			return err
		}
	}
	return nil
}

func validate(key, value string) error {
	switch key {
	case KeyProtocol:
		if value != ProtocolSSH && value != ProtocolHTTPS {
			return skerr.WithHint(
				skerr.Newf(skerr.KindConfiguration, "invalid protocol %q", value),
				"sk config set protocol ssh|https",
			)
		}
	case KeyDefaultRoot, KeyDefaultHost:
		if strings.TrimSpace(value) == "" {
			return skerr.Newf(skerr.KindConfiguration, "%s must not be empty", key)
		}
	}
	return nil
}

// Get returns the value of key.
func (c Config) Get(key string) (string, error) {
	switch key {
	case KeyDefaultRoot:
		return c.DefaultRoot, nil
	case KeyProtocol:
		return c.Protocol, nil
	case KeyDefaultHost:
		return c.DefaultHost, nil
	case KeyGitHubUser:
		return c.GitHubUser, nil
	case KeyDefaultRepo:
		return c.DefaultRepo, nil
	}
	return "", unknownKey(key)
}

// Set validates and assigns value to key.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	if _, err := c.Get(key); err != nil {
		return err
	}
	if err := validate(key, value); err != nil {
		return err
	}
	switch key {
	case KeyDefaultRoot:
		c.DefaultRoot = value
	case KeyProtocol:
		c.Protocol = value
	case KeyDefaultHost:
		c.DefaultHost = value
	case KeyGitHubUser:
		c.GitHubUser = value
	case KeyDefaultRepo:
		c.DefaultRepo = value
	}
	return nil
}

func unknownKey(key string) error {
	return skerr.WithHint(
		skerr.Newf(skerr.KindConfiguration, "unknown config key %q", key),
		"valid keys: "+strings.Join(Keys(), ", "),
	)
}

// Save writes cfg to dir as pretty-printed JSON.
func Save(dir string, cfg Config) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(Path(dir), append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", Path(dir), err)
	}
	return nil
}

// SaveIfMissing writes cfg only when no configuration file exists yet.
// It reports whether a file was written.
func SaveIfMissing(dir string, cfg Config) (bool, error) {
	if _, err := os.Stat(Path(dir)); err == nil {
		return false, nil
	}
	if err := Save(dir, cfg); err != nil {
		return false, err
	}
	return true, nil
}
