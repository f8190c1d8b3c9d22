package tui

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/huh"
)

// ErrNoEnvs is returned when the picker is confirmed with nothing selected.
var ErrNoEnvs = errors.New("no environments selected")

// PickEnvs asks which environments to supervise. Names in preselected start
// checked. The returned list keeps the order of all.
func PickEnvs(all, preselected []string) ([]string, error) {
	if len(all) == 0 {
		return nil, ErrNoEnvs
	}

	selected := slices.Clone(preselected)
	form := pickerForm(all, preselected, &selected)
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("env picker: %w", err)
	}
	return ordered(all, selected), nil
}

// pickerForm builds the form with one multi-select field over all.
func pickerForm(all, preselected []string, selected *[]string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Key("envs").
				Title("Environments").
				Description("space: toggle, enter: start").
				Options(pickerOptions(all, preselected)...).
				Validate(func(v []string) error {
					if len(v) == 0 {
						return ErrNoEnvs
					}
					return nil
				}).
				Value(selected),
		).Title("Select environments to run"),
	)
}

func pickerOptions(all, preselected []string) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(all))
	for _, name := range all {
		opts = append(opts, huh.NewOption(name, name).Selected(slices.Contains(preselected, name)))
	}
	return opts
}

// ordered filters all down to the names present in selected.
func ordered(all, selected []string) []string {
	out := make([]string, 0, len(selected))
	for _, name := range all {
		if slices.Contains(selected, name) {
			out = append(out, name)
		}
	}
	return out
}
