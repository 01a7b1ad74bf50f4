package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RESOLVER"

// Env holds the RESOLVER_* environment overrides. Unset fields leave the
// file configuration alone.
type Env struct {
	Provider string `envconfig:"PROVIDER"`
	Model    string `envconfig:"MODEL"`
	BaseURL  string `envconfig:"BASE_URL"`
	Storage  string `envconfig:"STORAGE"`
	DataDir  string `envconfig:"DATA_DIR"`
	LogLevel string `envconfig:"LOG_LEVEL"`
	LogDev   bool   `envconfig:"LOG_DEV" default:"false"`
}

// LoadEnv reads the overrides from the environment.
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Env{}, fmt.Errorf("failed to load environment config: %w", err)
	}
	return env, nil
}

// Overlay copies the set fields of env over c.
func (c *Config) Overlay(env Env) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Provider, env.Provider)
	set(&c.Model, env.Model)
	set(&c.BaseURL, env.BaseURL)
	set(&c.Storage, env.Storage)
	set(&c.DataDir, env.DataDir)
	set(&c.LogLevel, env.LogLevel)
	if env.LogDev {
		c.LogDev = true
	}
}
