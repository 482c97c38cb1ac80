package sessioncache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DebugLogName is the file name of the diagnostic log
const DebugLogName = "OPENCODE_SESSION_CACHE_DEBUG.log"

// EnvConfig holds the environment inputs of the plugin
type EnvConfig struct {
	// Debug force-enables diagnostics when set to "1"
	Debug string `env:"OPENCODE_SESSION_CACHE_DEBUG"`
	// DebugFile overrides the diagnostic log path
	DebugFile string `env:"OPENCODE_SESSION_CACHE_DEBUG_FILE"`
}

// DebugEnabled reports whether the environment forces diagnostics on
func (c EnvConfig) DebugEnabled() bool {
	return c.Debug == "1"
}

// LoadEnvConfig reads EnvConfig from environ, or from the process
// environment when environ is nil. A parse failure yields the zero config.
func LoadEnvConfig(environ map[string]string) EnvConfig {
	var cfg EnvConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return EnvConfig{}
	}
	return cfg
}

// PluginInput is the initialization data the host hands the plugin
type PluginInput struct {
	Worktree  string `json:"worktree,omitempty" yaml:"worktree,omitempty"`
	Directory string `json:"directory,omitempty" yaml:"directory,omitempty"`
}

// ResolveDebugPath picks the diagnostic log path: the environment override,
// then the host worktree or directory, then the working directory.
func ResolveDebugPath(envCfg EnvConfig, input PluginInput) string {
	if override := strings.TrimSpace(envCfg.DebugFile); override != "" {
		return override
	}

	// A blank worktree still wins over the directory and falls through to
	// the working directory.
	base := input.Worktree
	if base == "" {
		base = input.Directory
	}
	if base = strings.TrimSpace(base); base != "" {
		return filepath.Join(base, DebugLogName)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return DebugLogName
	}
	return filepath.Join(cwd, DebugLogName)
}

// HostConfig is the subset of the host configuration the startup hook
// inspects. Hosts use either "provider" or "providers".
type HostConfig struct {
	Provider  map[string]Provider `json:"provider,omitempty" yaml:"provider,omitempty"`
	Providers map[string]Provider `json:"providers,omitempty" yaml:"providers,omitempty"`
}

// WantsDebug reports whether any configured provider sets
// sessionCacheDebug: true
func (c *HostConfig) WantsDebug() bool {
	if c == nil {
		return false
	}

	providers := c.Provider
	if providers == nil {
		providers = c.Providers
	}
	for _, provider := range providers {
		if provider.BoolOption(optionDebug) {
			return true
		}
	}
	return false
}

// LoadHostConfig loads the host configuration from a file (JSON or YAML)
func LoadHostConfig(filename string) (*HostConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseHostConfig(data)
}

// ParseHostConfig decodes YAML first, then JSON
func ParseHostConfig(data []byte) (*HostConfig, error) {
	var config HostConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file as YAML or JSON: %w", err)
		}
	}
	return &config, nil
}
