package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Save persists the configuration, as YAML when path ends in .yaml or .yml
// and as indented JSON otherwise. Creates parent directories if they don't exist.
func Save(cfg *RetoxConfig, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// SaveEnvList stores envs as the env list of the config file at path. Other
// settings in the file are kept; defaults are not written out.
func SaveEnvList(path string, envs []string) error {
	cfg, err := LoadFile(path)
	if err != nil {
		return err
	}
	cfg.EnvList = append([]string(nil), envs...)
	return Save(cfg, path)
}
