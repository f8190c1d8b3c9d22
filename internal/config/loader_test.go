package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name          string
		global        string // JSON, empty for no file
		project       string
		projectName   string
		expectEnvs    []string
		expectList    []string
		expectPar     int
		expectRetries int
		checkEnv      string
		expectCommand string
	}{
		{
			name:          "No config files - returns defaults",
			expectEnvs:    []string{},
			expectPar:     DefaultParallel,
			expectRetries: DefaultInstallRetries,
		},
		{
			name:          "Global only - adds environment",
			global:        `{"envs": {"py38": {"commands": ["pytest"]}}}`,
			expectEnvs:    []string{"py38"},
			expectPar:     DefaultParallel,
			expectRetries: DefaultInstallRetries,
			checkEnv:      "py38",
			expectCommand: "pytest",
		},
		{
			name:          "Project YAML overrides global environment",
			global:        `{"envs": {"py38": {"commands": ["pytest"]}}, "parallel": 2}`,
			project:       "envs:\n  py38:\n    commands: [\"pytest -x\"]\n  lint:\n    commands: [flake8]\nenvlist: [lint, py38]\ninstall_retries: 0\n",
			projectName:   ".retox.yaml",
			expectEnvs:    []string{"lint", "py38"},
			expectList:    []string{"lint", "py38"},
			expectPar:     2,
			expectRetries: 0,
			checkEnv:      "py38",
			expectCommand: "pytest -x",
		},
		{
			name:          "Project JSON keeps unrelated global settings",
			global:        `{"envs": {"a": {}}, "watch": ["src"]}`,
			project:       `{"envs": {"b": {"depends": ["a"]}}, "parallel": 8}`,
			projectName:   ".retox.json",
			expectEnvs:    []string{"a", "b"},
			expectPar:     8,
			expectRetries: DefaultInstallRetries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()

			globalPath := ""
			if tt.global != "" {
				globalPath = filepath.Join(tmpDir, "global.json")
				writeFile(t, globalPath, tt.global)
			}
			projectPath := ""
			if tt.project != "" {
				projectPath = filepath.Join(tmpDir, tt.projectName)
				writeFile(t, projectPath, tt.project)
			}

			cfg, err := Load(globalPath, projectPath)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}

			if got := sortedKeys(cfg.Envs); !slices.Equal(got, tt.expectEnvs) {
				t.Errorf("envs = %v, want %v", got, tt.expectEnvs)
			}
			if tt.expectList != nil && !slices.Equal(cfg.EnvList, tt.expectList) {
				t.Errorf("envlist = %v, want %v", cfg.EnvList, tt.expectList)
			}
			if cfg.Parallel != tt.expectPar {
				t.Errorf("parallel = %d, want %d", cfg.Parallel, tt.expectPar)
			}
			if cfg.Retries() != tt.expectRetries {
				t.Errorf("install_retries = %d, want %d", cfg.Retries(), tt.expectRetries)
			}
			if tt.checkEnv != "" {
				env, ok := cfg.Envs[tt.checkEnv]
				if !ok {
					t.Fatalf("expected env %q not found", tt.checkEnv)
				}
				if len(env.Commands) != 1 || env.Commands[0] != tt.expectCommand {
					t.Errorf("env %q commands = %v, want [%s]", tt.checkEnv, env.Commands, tt.expectCommand)
				}
			}
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "global.json", "{invalid json"},
		{"yaml", "global.yaml", "envs: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			writeFile(t, path, tt.content)

			_, err := Load(path, "")
			if err == nil {
				t.Fatal("expected error for malformed config, got nil")
			}
			if !strings.Contains(err.Error(), tt.file) {
				t.Errorf("error %q should mention the file", err)
			}
		})
	}
}

func TestLoad_MissingFilesNotError(t *testing.T) {
	cfg, err := Load("/nonexistent/global.json", "/nonexistent/.retox.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing files, got: %v", err)
	}
	if !slices.Equal(cfg.Ignore, []string{".pyc"}) {
		t.Errorf("ignore = %v, want [.pyc]", cfg.Ignore)
	}
	if cfg.LogFile != DefaultLogFile {
		t.Errorf("log_file = %q, want %q", cfg.LogFile, DefaultLogFile)
	}
}

func TestFindProject(t *testing.T) {
	dir := t.TempDir()
	if got := FindProject(dir); got != filepath.Join(dir, ".retox.json") {
		t.Errorf("FindProject() with no files = %q", got)
	}

	writeFile(t, filepath.Join(dir, ".retox.yml"), "envs: {}\n")
	if got := FindProject(dir); got != filepath.Join(dir, ".retox.yml") {
		t.Errorf("FindProject() = %q, want .retox.yml", got)
	}

	writeFile(t, filepath.Join(dir, ".retox.json"), "{}")
	if got := FindProject(dir); got != filepath.Join(dir, ".retox.json") {
		t.Errorf("FindProject() = %q, want .retox.json first", got)
	}
}

func TestValidate(t *testing.T) {
	negative := -1
	tests := []struct {
		name    string
		cfg     RetoxConfig
		wantErr string
	}{
		{
			name: "valid",
			cfg:  RetoxConfig{Envs: map[string]EnvConfig{"a": {}, "b": {Depends: []string{"a"}}}, EnvList: []string{"b"}},
		},
		{
			name:    "unknown envlist entry",
			cfg:     RetoxConfig{Envs: map[string]EnvConfig{"a": {}}, EnvList: []string{"zzz"}},
			wantErr: `unknown environment "zzz"`,
		},
		{
			name:    "unknown dependency",
			cfg:     RetoxConfig{Envs: map[string]EnvConfig{"a": {Depends: []string{"nope"}}}},
			wantErr: `depends on unknown environment "nope"`,
		},
		{
			name:    "negative parallel",
			cfg:     RetoxConfig{Parallel: -2},
			wantErr: "parallel must not be negative",
		},
		{
			name:    "negative retries",
			cfg:     RetoxConfig{InstallRetries: &negative},
			wantErr: "install_retries must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvNamesAndSpecs(t *testing.T) {
	cfg := &RetoxConfig{Envs: map[string]EnvConfig{
		"py39": {Commands: []string{"pytest"}, WorkDir: "tests"},
		"lint": {Install: []string{"pip install flake8"}, Commands: []string{"flake8"}},
	}}

	if got := cfg.EnvNames(); !slices.Equal(got, []string{"lint", "py39"}) {
		t.Errorf("EnvNames() = %v, want sorted keys", got)
	}
	cfg.EnvList = []string{"py39"}
	if got := cfg.EnvNames(); !slices.Equal(got, []string{"py39"}) {
		t.Errorf("EnvNames() = %v, want envlist", got)
	}

	specs := cfg.EnvSpecs()
	if len(specs) != 2 || specs[0].Name != "lint" || specs[1].Name != "py39" {
		t.Fatalf("EnvSpecs() = %+v", specs)
	}
	if specs[0].Install[0] != "pip install flake8" || specs[1].WorkDir != "tests" {
		t.Errorf("EnvSpecs() lost fields: %+v", specs)
	}
}
