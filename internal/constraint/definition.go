/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package constraint

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownConstraint indicates a rule names no library constraint.
	ErrUnknownConstraint = errors.New("unknown constraint")
	// ErrUnknownParam indicates a definition sets a parameter that does not exist.
	ErrUnknownParam = errors.New("unknown parameter")
)

// Definition encodes a bundle shipped as YAML or JSON.
//
//	name: late_night
//	extends: perceptual_randomness
//	params:
//	  energy_max_jump: 3
//	rules:
//	  - id: artist_streak
//	    negate: true
//	    value: 2
type Definition struct {
	Name    string         `json:"name" yaml:"name"`
	Extends string         `json:"extends,omitempty" yaml:"extends,omitempty"`
	Params  map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Rules   []Rule         `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Rule selects one library constraint. Value carries the constraint's single
// numeric argument when it has one; Values carries both exposure thresholds.
type Rule struct {
	ID     string         `json:"id" yaml:"id"`
	Negate bool           `json:"negate,omitempty" yaml:"negate,omitempty"`
	Value  any            `json:"value,omitempty" yaml:"value,omitempty"`
	Values map[string]any `json:"values,omitempty" yaml:"values,omitempty"`
}

// ParseDefinition decodes YAML (and therefore JSON) bundle text.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parse bundle definition: %w", err)
	}
	return def, nil
}

// LoadDefinition reads a bundle definition file.
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read bundle definition: %w", err)
	}
	return ParseDefinition(data)
}

// Compile resolves the definition into a Bundle. Parameters missing from the
// definition fall back to defaults. Unknown parameter keys, non-integral
// values and rule arguments outside the Params bounds are errors.
func (d Definition) Compile(defaults Params) (Bundle, error) {
	params, err := d.applyParams(defaults)
	if err != nil {
		return Bundle{}, err
	}
	if err := params.Validate(); err != nil {
		return Bundle{}, err
	}

	var bundle Bundle
	if d.Extends != "" {
		base, err := Named(d.Extends, params)
		if err != nil {
			return Bundle{}, err
		}
		bundle = base
	}

	for idx, rule := range d.Rules {
		c, err := rule.constraint(params)
		if err != nil {
			return Bundle{}, fmt.Errorf("rule %d: %w", idx, err)
		}
		bundle = bundle.With(Element{Constraint: c, Negated: rule.Negate})
	}

	if len(bundle.Elements) == 0 {
		return Bundle{}, fmt.Errorf("bundle %q has no constraints", d.Name)
	}

	bundle.Name = d.Name
	if bundle.Name == "" {
		bundle.Name = d.Extends
	}
	return bundle, nil
}

func (d Definition) applyParams(p Params) (Params, error) {
	for key, value := range d.Params {
		var field *int
		switch normalizeKey(key) {
		case "genrerunbound", "maxrun":
			field = &p.GenreRunBound
		case "energymaxjump", "maxjump":
			field = &p.EnergyMaxJump
		case "popularthreshold", "popular":
			field = &p.PopularThreshold
		case "lessplayedthreshold", "lessplayed":
			field = &p.LessPlayedThreshold
		case "highplaythreshold", "highplay":
			field = &p.HighPlayThreshold
		default:
			return p, fmt.Errorf("%w: %q", ErrUnknownParam, key)
		}
		v, err := intValue(value)
		if err != nil {
			return p, fmt.Errorf("param %s: %w", key, err)
		}
		*field = v
	}
	return p, nil
}

// constraint builds the rule's constraint. An explicit argument is checked
// against the same bounds as the corresponding Params field.
func (r Rule) constraint(p Params) (Constraint, error) {
	arg := func(field *int) error {
		if r.Value == nil {
			return nil
		}
		v, err := intValue(r.Value)
		if err != nil {
			return fmt.Errorf("%s value: %w", r.ID, err)
		}
		*field = v
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s value: %w", r.ID, err)
		}
		return nil
	}
	noArg := func() error {
		if r.Value != nil || len(r.Values) > 0 {
			return fmt.Errorf("%s takes no value", r.ID)
		}
		return nil
	}

	switch ID(strings.ToLower(strings.TrimSpace(r.ID))) {
	case IDUniqueness:
		return Uniqueness(), noArg()
	case IDNoAdjacentSameArtist:
		return AdjacentArtist(), noArg()
	case IDNoAdjacentSameAlbum:
		return AdjacentAlbum(), noArg()
	case IDRecencyOrder:
		return RecencyOrder(), noArg()
	case IDGenreRunBound:
		if err := arg(&p.GenreRunBound); err != nil {
			return nil, err
		}
		return GenreRun(p.GenreRunBound), nil
	case IDEnergySmoothness:
		if err := arg(&p.EnergyMaxJump); err != nil {
			return nil, err
		}
		return EnergySmoothness(p.EnergyMaxJump), nil
	case IDHighPlaySpacing:
		if err := arg(&p.HighPlayThreshold); err != nil {
			return nil, err
		}
		return HighPlaySpacing(p.HighPlayThreshold), nil
	case IDExposureBalance:
		for key, value := range r.Values {
			var field *int
			switch normalizeKey(key) {
			case "popular", "popularthreshold":
				field = &p.PopularThreshold
			case "lessplayed", "lessplayedthreshold":
				field = &p.LessPlayedThreshold
			default:
				return nil, fmt.Errorf("%w: %q", ErrUnknownParam, key)
			}
			v, err := intValue(value)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", r.ID, key, err)
			}
			*field = v
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%s values: %w", r.ID, err)
		}
		return ExposureBalance(p.PopularThreshold, p.LessPlayedThreshold), nil
	case IDArtistStreak:
		window := 2
		if r.Value != nil {
			v, err := intValue(r.Value)
			if err != nil {
				return nil, fmt.Errorf("%s value: %w", r.ID, err)
			}
			if v < 1 {
				return nil, fmt.Errorf("%s window must be >= 1, got %d", r.ID, v)
			}
			window = v
		}
		return ArtistStreak(window), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownConstraint, r.ID)
}

var keyNormalizer = strings.NewReplacer("_", "", "-", "", " ", "")

func normalizeKey(s string) string {
	return keyNormalizer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// intValue accepts integers, integral floats and strings holding either.
func intValue(value any) (int, error) {
	var f float64
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		f = v
	case float32:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%v (%T) is not a number", value, value)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not an integer", value)
	}
	return int(f), nil
}
