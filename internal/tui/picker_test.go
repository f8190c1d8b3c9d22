package tui

import (
	"errors"
	"slices"
	"testing"
)

func TestPickerOptions(t *testing.T) {
	opts := pickerOptions([]string{"py38", "py39", "lint"}, []string{"lint"})
	if len(opts) != 3 {
		t.Fatalf("got %d options, want 3", len(opts))
	}
	for i, name := range []string{"py38", "py39", "lint"} {
		if opts[i].Key != name || opts[i].Value != name {
			t.Errorf("option %d = %q/%q, want %q", i, opts[i].Key, opts[i].Value, name)
		}
	}
}

func TestOrdered(t *testing.T) {
	tests := []struct {
		name     string
		all      []string
		selected []string
		want     []string
	}{
		{"keeps config order", []string{"a", "b", "c"}, []string{"c", "a"}, []string{"a", "c"}},
		{"drops unknown names", []string{"a", "b"}, []string{"b", "zzz"}, []string{"b"}},
		{"empty selection", []string{"a"}, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ordered(tt.all, tt.selected); !slices.Equal(got, tt.want) {
				t.Errorf("ordered() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPickEnvs_NothingToPick(t *testing.T) {
	if _, err := PickEnvs(nil, nil); !errors.Is(err, ErrNoEnvs) {
		t.Errorf("err = %v, want ErrNoEnvs", err)
	}
}

func TestPickerForm_Builds(t *testing.T) {
	var selected []string
	if form := pickerForm([]string{"py38"}, nil, &selected); form == nil {
		t.Fatal("pickerForm returned nil")
	}
}
