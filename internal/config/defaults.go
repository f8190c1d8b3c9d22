package config

import "github.com/aristath/retox/internal/watch"

// Default values used when no config file sets them
const (
	DefaultParallel       = 4
	DefaultInstallRetries = 2
	DefaultLogFile        = "retox.log"
)

// DefaultConfig returns the configuration used before any file is merged.
// It has no environments.
func DefaultConfig() *RetoxConfig {
	retries := DefaultInstallRetries
	return &RetoxConfig{
		Envs:           map[string]EnvConfig{},
		Ignore:         append([]string(nil), watch.DefaultIgnore...),
		Parallel:       DefaultParallel,
		InstallRetries: &retries,
		LogFile:        DefaultLogFile,
	}
}
