package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aristath/retox/internal/engine"
)

// ProjectFiles are the project config names looked up, in order.
var ProjectFiles = []string{".retox.json", ".retox.yaml", ".retox.yml"}

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config, defaults.
// Missing files are not errors; malformed files return an error.
func Load(globalPath, projectPath string) (*RetoxConfig, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// DefaultPaths returns the conventional config locations.
// Global: ~/.retox/config.json
// Project: the first of ProjectFiles present in dir, else .retox.json
func DefaultPaths(dir string) (globalPath, projectPath string, err error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".retox", "config.json"), FindProject(dir), nil
}

// FindProject returns the project config path in dir.
func FindProject(dir string) string {
	for _, name := range ProjectFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(dir, ProjectFiles[0])
}

// LoadFile reads a single config file without defaults. A missing file
// yields an empty config.
func LoadFile(path string) (*RetoxConfig, error) {
	cfg := &RetoxConfig{Envs: map[string]EnvConfig{}}
	if err := mergeConfigFile(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// isYAML reports whether path names a YAML file.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// mergeConfigFile reads a config file and merges it into the base config.
// Missing files are silently skipped. Malformed files return an error.
func mergeConfigFile(base *RetoxConfig, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil // Missing file is not an error
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded RetoxConfig
	if isYAML(path) {
		err = yaml.Unmarshal(data, &loaded)
	} else {
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	merge(base, &loaded)
	return nil
}

// merge copies every field set in loaded over base. Environments are
// replaced whole by name.
func merge(base, loaded *RetoxConfig) {
	if base.Envs == nil {
		base.Envs = map[string]EnvConfig{}
	}
	for name, env := range loaded.Envs {
		base.Envs[name] = env
	}
	if loaded.EnvList != nil {
		base.EnvList = loaded.EnvList
	}
	if loaded.Watch != nil {
		base.Watch = loaded.Watch
	}
	if loaded.Ignore != nil {
		base.Ignore = loaded.Ignore
	}
	if loaded.Parallel != 0 {
		base.Parallel = loaded.Parallel
	}
	if loaded.InstallRetries != nil {
		base.InstallRetries = loaded.InstallRetries
	}
	if loaded.LogFile != "" {
		base.LogFile = loaded.LogFile
	}
}

// Validate checks the env list and dependency references.
func (c *RetoxConfig) Validate() error {
	var errs []error
	if c.Parallel < 0 {
		errs = append(errs, fmt.Errorf("parallel must not be negative, got %d", c.Parallel))
	}
	if c.Retries() < 0 {
		errs = append(errs, fmt.Errorf("install_retries must not be negative, got %d", c.Retries()))
	}
	for _, name := range c.EnvList {
		if _, ok := c.Envs[name]; !ok {
			errs = append(errs, fmt.Errorf("envlist names unknown environment %q", name))
		}
	}
	for _, name := range sortedKeys(c.Envs) {
		if name == "" {
			errs = append(errs, errors.New("environment with empty name"))
		}
		for _, dep := range c.Envs[name].Depends {
			if _, ok := c.Envs[dep]; !ok {
				errs = append(errs, fmt.Errorf("environment %q depends on unknown environment %q", name, dep))
			}
		}
	}
	return errors.Join(errs...)
}

// EnvNames returns the environments to run: the env list when set, otherwise
// every environment sorted by name.
func (c *RetoxConfig) EnvNames() []string {
	if len(c.EnvList) > 0 {
		return slices.Clone(c.EnvList)
	}
	return sortedKeys(c.Envs)
}

// EnvSpecs converts the environments into engine specs, sorted by name.
func (c *RetoxConfig) EnvSpecs() []engine.EnvSpec {
	specs := make([]engine.EnvSpec, 0, len(c.Envs))
	for _, name := range sortedKeys(c.Envs) {
		env := c.Envs[name]
		specs = append(specs, engine.EnvSpec{
			Name:     name,
			Install:  env.Install,
			Commands: env.Commands,
			Depends:  env.Depends,
			WorkDir:  env.WorkDir,
			SetEnv:   env.SetEnv,
		})
	}
	return specs
}

func sortedKeys(envs map[string]EnvConfig) []string {
	keys := make([]string, 0, len(envs))
	for name := range envs {
		keys = append(keys, name)
	}
	slices.Sort(keys)
	return keys
}
