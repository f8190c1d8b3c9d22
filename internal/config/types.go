package config

// EnvConfig defines one test environment.
type EnvConfig struct {
	Install  []string          `json:"install,omitempty" yaml:"install,omitempty"`   // Dependency install commands, run before Commands
	Commands []string          `json:"commands,omitempty" yaml:"commands,omitempty"` // Test commands, run in order until one fails
	Depends  []string          `json:"depends,omitempty" yaml:"depends,omitempty"`   // Environments that must finish first
	WorkDir  string            `json:"workdir,omitempty" yaml:"workdir,omitempty"`   // Working directory, default cwd
	SetEnv   map[string]string `json:"setenv,omitempty" yaml:"setenv,omitempty"`     // Extra environment variables
}

// RetoxConfig is the top-level configuration.
type RetoxConfig struct {
	Envs           map[string]EnvConfig `json:"envs" yaml:"envs"`
	EnvList        []string             `json:"envlist,omitempty" yaml:"envlist,omitempty"` // Run order; default all envs sorted
	Watch          []string             `json:"watch,omitempty" yaml:"watch,omitempty"`     // Roots polled for mtime changes
	Ignore         []string             `json:"ignore,omitempty" yaml:"ignore,omitempty"`   // File suffixes excluded from watching
	Parallel       int                  `json:"parallel,omitempty" yaml:"parallel,omitempty"`
	InstallRetries *int                 `json:"install_retries,omitempty" yaml:"install_retries,omitempty"`
	LogFile        string               `json:"log_file,omitempty" yaml:"log_file,omitempty"`
}

// Retries returns the install retry count, 0 when unset.
func (c *RetoxConfig) Retries() int {
	if c.InstallRetries == nil {
		return 0
	}
	return *c.InstallRetries
}
