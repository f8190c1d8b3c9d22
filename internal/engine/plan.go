package engine

import (
	"fmt"
	"strings"

	"github.com/gammazero/toposort"
)

// EnvSpec describes what the engine runs for one environment.
type EnvSpec struct {
	Name     string
	Install  []string          // dependency install commands, retried as one activity
	Commands []string          // test commands, one runtests activity each
	Depends  []string          // environments that must finish first
	WorkDir  string
	SetEnv   map[string]string
}

// plan groups the selected environments into waves. Every environment in a
// wave only depends on environments from earlier waves. Dependencies outside
// the selection are ignored. Within a wave the selection order is kept.
func plan(specs map[string]EnvSpec, names []string) ([][]string, error) {
	selected := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := specs[name]; !ok {
			return nil, fmt.Errorf("unknown environment %q", name)
		}
		selected[name] = true
	}

	var edges []toposort.Edge
	for _, name := range names {
		deps := selectedDeps(specs[name], selected)
		if len(deps) == 0 {
			edges = append(edges, toposort.Edge{nil, name})
			continue
		}
		for _, dep := range deps {
			edges = append(edges, toposort.Edge{dep, name})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("environment dependencies contain a cycle: %w", err)
	}

	level := make(map[string]int, len(names))
	for _, id := range sorted {
		if id == nil {
			continue
		}
		name := id.(string)
		lvl := 0
		for _, dep := range selectedDeps(specs[name], selected) {
			if level[dep]+1 > lvl {
				lvl = level[dep] + 1
			}
		}
		level[name] = lvl
	}
	if len(level) != len(selected) {
		var missing []string
		for name := range selected {
			if _, ok := level[name]; !ok {
				missing = append(missing, name)
			}
		}
		return nil, fmt.Errorf("ordering lost %d environments: %s", len(missing), strings.Join(missing, ", "))
	}

	var waves [][]string
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		lvl := level[name]
		for len(waves) <= lvl {
			waves = append(waves, nil)
		}
		waves[lvl] = append(waves[lvl], name)
	}
	return waves, nil
}

func selectedDeps(spec EnvSpec, selected map[string]bool) []string {
	var deps []string
	for _, dep := range spec.Depends {
		if selected[dep] && dep != spec.Name {
			deps = append(deps, dep)
		}
	}
	return deps
}
