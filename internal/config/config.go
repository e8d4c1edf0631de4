// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config merges command line flags, TRVLINK_* environment variables
// and an optional YAML config file.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix for every setting.
const EnvPrefix = "TRVLINK"

// PasswordEnv holds the WebSocket password. There is deliberately no flag for it.
const PasswordEnv = EnvPrefix + "_PASSWORD"

// Config holds the connection and logging settings shared by all commands.
type Config struct {
	Port        string `mapstructure:"port"`
	Baud        int    `mapstructure:"baud"`
	URL         string `mapstructure:"url"`
	Username    string `mapstructure:"username"`
	NoSSLVerify bool   `mapstructure:"no-ssl-verify"`
	Sync        bool   `mapstructure:"sync"`
	LogLevel    string `mapstructure:"log-level"`
	LogJSON     bool   `mapstructure:"log-json"`
}

// Load binds flags to v, reads the config file and returns the merged
// settings. Precedence: flag, environment, config file, flag default.
// A missing config file is only an error when configFile names it explicitly.
func Load(v *viper.Viper, flags *pflag.FlagSet, configFile string) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, errors.Wrap(err, "failed to bind flags")
	}

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("trvlink")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/trvlink")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	return conf, nil
}

// ApplyToFlags fills every flag in flags that was not given on the command
// line from the environment or config file already loaded into v. This covers
// command-specific flags that are not part of Config.
func ApplyToFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var firstErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) || firstErr != nil {
			return
		}
		if err := f.Value.Set(v.GetString(f.Name)); err != nil {
			firstErr = errors.Wrapf(err, "invalid value for %s", f.Name)
		}
	})
	return firstErr
}
