package types

import "fmt"

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

func (e EnergyLevel) Valid() bool {
	switch e {
	case EnergyLow, EnergyMedium, EnergyHigh:
		return true
	}
	return false
}

type Style string

const (
	StyleRomantic  Style = "romantic"
	StyleEnergetic Style = "energetic"
	StyleSensual   Style = "sensual"
	StylePlayful   Style = "playful"
)

func (s Style) Valid() bool {
	switch s {
	case StyleRomantic, StyleEnergetic, StyleSensual, StylePlayful:
		return true
	}
	return false
}

// GenerationParams are the pre-validated style parameters supplied by the
// external parameter extractor. TempoPreference is accepted for forward
// compatibility but does not currently influence composition.
type GenerationParams struct {
	Difficulty      Difficulty  `json:"difficulty"`
	EnergyLevel     EnergyLevel `json:"energy_level"`
	Style           Style       `json:"style"`
	TempoPreference *float64    `json:"tempo_preference,omitempty"`
	UserID          string      `json:"user_id"`
}

func (p GenerationParams) Validate() error {
	if !p.Difficulty.Valid() {
		return fmt.Errorf("invalid difficulty %q", p.Difficulty)
	}
	if !p.EnergyLevel.Valid() {
		return fmt.Errorf("invalid energy_level %q", p.EnergyLevel)
	}
	if !p.Style.Valid() {
		return fmt.Errorf("invalid style %q", p.Style)
	}
	return nil
}

// SearchFilter holds optional conjunctive equality constraints over the move
// metadata. Empty fields are unconstrained.
type SearchFilter struct {
	Difficulty  Difficulty
	EnergyLevel EnergyLevel
	Style       Style
}

// Matches reports whether a move satisfies every set constraint.
func (f SearchFilter) Matches(m Move) bool {
	if f.Difficulty != "" && m.Difficulty != f.Difficulty {
		return false
	}
	if f.EnergyLevel != "" && m.EnergyLevel != f.EnergyLevel {
		return false
	}
	if f.Style != "" && m.Style != f.Style {
		return false
	}
	return true
}
