/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package constraint

import (
	"errors"
	"fmt"
	"strings"
)

// Bundle names understood by Named.
const (
	BundleTrueRandomness       = "true_randomness"
	BundlePerceptualRandomness = "perceptual_randomness"
	BundleUserSatisfied        = "user_satisfied"
)

// ErrUnknownBundle is returned by Named for unregistered names.
var ErrUnknownBundle = errors.New("unknown constraint bundle")

// Params carries the numeric knobs of the perceptual bundles.
type Params struct {
	GenreRunBound       int `json:"genre_run_bound" yaml:"genre_run_bound"`
	EnergyMaxJump       int `json:"energy_max_jump" yaml:"energy_max_jump"`
	PopularThreshold    int `json:"popular_threshold" yaml:"popular_threshold"`
	LessPlayedThreshold int `json:"less_played_threshold" yaml:"less_played_threshold"`
	HighPlayThreshold   int `json:"high_play_threshold" yaml:"high_play_threshold"`
}

// DefaultParams returns the stock perceptual randomness parameters.
func DefaultParams() Params {
	return Params{
		GenreRunBound:       4,
		EnergyMaxJump:       5,
		PopularThreshold:    3,
		LessPlayedThreshold: 1,
		HighPlayThreshold:   3,
	}
}

// Validate rejects parameter sets no sequence could be judged against.
func (p Params) Validate() error {
	var problems []string
	if p.GenreRunBound < 1 {
		problems = append(problems, fmt.Sprintf("genre run bound must be >= 1, got %d", p.GenreRunBound))
	}
	if p.EnergyMaxJump < 0 {
		problems = append(problems, fmt.Sprintf("energy max jump must be >= 0, got %d", p.EnergyMaxJump))
	}
	if p.PopularThreshold < 0 || p.LessPlayedThreshold < 0 {
		problems = append(problems, "play count thresholds must be >= 0")
	}
	if p.HighPlayThreshold < 0 {
		problems = append(problems, fmt.Sprintf("high play threshold must be >= 0, got %d", p.HighPlayThreshold))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid params: %s", strings.Join(problems, "; "))
	}
	return nil
}

// TrueRandomness only forbids duplicate placement.
func TrueRandomness() Bundle {
	return NewBundle(BundleTrueRandomness, Uniqueness())
}

// PerceptualRandomness is the full perceptual bundle.
func PerceptualRandomness(p Params) Bundle {
	return NewBundle(BundlePerceptualRandomness,
		Uniqueness(),
		AdjacentArtist(),
		AdjacentAlbum(),
		GenreRun(p.GenreRunBound),
		EnergySmoothness(p.EnergyMaxJump),
		RecencyOrder(),
		ExposureBalance(p.PopularThreshold, p.LessPlayedThreshold),
	)
}

// UserSatisfied extends the perceptual bundle with high-play spacing. The
// spacing rule is vacuous while Uniqueness is present.
func UserSatisfied(p Params) Bundle {
	return PerceptualRandomness(p).
		With(Is(HighPlaySpacing(p.HighPlayThreshold))).
		Renamed(BundleUserSatisfied)
}

// Named resolves a built-in bundle by name.
func Named(name string, p Params) (Bundle, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BundleTrueRandomness, "truly_random", "true":
		return TrueRandomness(), nil
	case BundlePerceptualRandomness, "perceptual", "":
		return PerceptualRandomness(p), nil
	case BundleUserSatisfied:
		return UserSatisfied(p), nil
	}
	return Bundle{}, fmt.Errorf("%w: %q", ErrUnknownBundle, name)
}
