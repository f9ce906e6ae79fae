/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package constraint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseAndCompileYAMLDefinition(t *testing.T) {
	src := []byte(`
name: late_night
extends: perceptual_randomness
params:
  energy_max_jump: 2
  genre_run_bound: "3"
rules:
  - id: artist_streak
    negate: true
    value: 2
`)

	def, err := ParseDefinition(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	bundle, err := def.Compile(DefaultParams())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if bundle.Name != "late_night" {
		t.Errorf("bundle name = %q", bundle.Name)
	}
	if len(bundle.Elements) != 8 {
		t.Fatalf("expected 8 elements, got %d: %s", len(bundle.Elements), bundle)
	}

	var sawEnergy, sawGenre, sawNegated bool
	for _, e := range bundle.Elements {
		switch c := e.Constraint.(type) {
		case EnergyConstraint:
			sawEnergy = c.MaxJump == 2
		case GenreRunConstraint:
			sawGenre = c.MaxRun == 3
		case StreakConstraint:
			sawNegated = e.Negated && c.Window == 2
		}
	}
	if !sawEnergy || !sawGenre || !sawNegated {
		t.Fatalf("params not applied: energy=%v genre=%v negated=%v", sawEnergy, sawGenre, sawNegated)
	}
}

func TestCompileJSONDefinitionWithoutBase(t *testing.T) {
	src := []byte(`{"name":"contrast","rules":[{"id":"uniqueness"},{"id":"exposure_balance","values":{"popular":10,"less_played":0}}]}`)

	def, err := ParseDefinition(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	bundle, err := def.Compile(DefaultParams())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(bundle.Elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(bundle.Elements))
	}
	exp, ok := bundle.Elements[1].Constraint.(ExposureConstraint)
	if !ok || exp.PopularThreshold != 10 || exp.LessPlayedThreshold != 0 {
		t.Fatalf("unexpected exposure constraint: %#v", bundle.Elements[1].Constraint)
	}
}

func TestCompileRejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr error
	}{
		{"unknown rule", Definition{Name: "x", Rules: []Rule{{ID: "telepathy"}}}, ErrUnknownConstraint},
		{"unknown base", Definition{Name: "x", Extends: "chaos"}, ErrUnknownBundle},
		{"empty", Definition{Name: "x"}, nil},
		{"bad params", Definition{Name: "x", Extends: "perceptual_randomness", Params: map[string]any{"max_run": 0}}, nil},
		{"unknown param", Definition{Name: "x", Extends: "perceptual_randomness", Params: map[string]any{"genre_run": 3}}, ErrUnknownParam},
		{"non-numeric param", Definition{Name: "x", Extends: "perceptual_randomness", Params: map[string]any{"energy_max_jump": "steep"}}, nil},
		{"fractional param", Definition{Name: "x", Extends: "perceptual_randomness", Params: map[string]any{"energy_max_jump": 2.5}}, nil},
		{"zero genre run rule", Definition{Name: "x", Rules: []Rule{{ID: "genre_run_bound", Value: 0}}}, nil},
		{"negative energy rule", Definition{Name: "x", Rules: []Rule{{ID: "energy_smoothness", Value: -3}}}, nil},
		{"non-numeric rule value", Definition{Name: "x", Rules: []Rule{{ID: "genre_run_bound", Value: "two"}}}, nil},
		{"negative exposure threshold", Definition{Name: "x", Rules: []Rule{{ID: "exposure_balance", Values: map[string]any{"popular": -1}}}}, nil},
		{"unknown exposure key", Definition{Name: "x", Rules: []Rule{{ID: "exposure_balance", Values: map[string]any{"famous": 4}}}}, ErrUnknownParam},
		{"zero streak window", Definition{Name: "x", Rules: []Rule{{ID: "artist_streak", Value: 0}}}, nil},
		{"value on argless rule", Definition{Name: "x", Rules: []Rule{{ID: "uniqueness", Value: 1}}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.def.Compile(DefaultParams())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadDefinitionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.yaml")
	if err := os.WriteFile(path, []byte("name: plain\nextends: true_randomness\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	def, err := LoadDefinition(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	bundle, err := def.Compile(DefaultParams())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(bundle.Elements) != 1 || bundle.Elements[0].ID() != IDUniqueness {
		t.Fatalf("unexpected bundle %s", bundle)
	}
}

func TestIntValue(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected int
		wantErr  bool
	}{
		{"int", 7, 7, false},
		{"integral float64", float64(3), 3, false},
		{"int64", int64(12), 12, false},
		{"string", "5", 5, false},
		{"fractional float64", 3.9, 0, true},
		{"invalid string", "abc", 0, true},
		{"bool", true, 0, true},
		{"nil", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := intValue(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("intValue(%v) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("intValue(%v) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRuleValueOverridesParams(t *testing.T) {
	def := Definition{Name: "tight", Rules: []Rule{
		{ID: "genre_run_bound", Value: 1},
		{ID: "energy_smoothness", Value: "0"},
	}}
	bundle, err := def.Compile(DefaultParams())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	genre, ok := bundle.Elements[0].Constraint.(GenreRunConstraint)
	if !ok || genre.MaxRun != 1 {
		t.Fatalf("unexpected genre constraint %#v", bundle.Elements[0].Constraint)
	}
	energy, ok := bundle.Elements[1].Constraint.(EnergyConstraint)
	if !ok || energy.MaxJump != 0 {
		t.Fatalf("unexpected energy constraint %#v", bundle.Elements[1].Constraint)
	}
}
