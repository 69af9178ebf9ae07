package session

import "slices"

// Energy bounds for radio steering. Zero is neutral.
const (
	EnergyMin = -2
	EnergyMax = 2
)

// Tuning is the mutable state driving radio-mode selection: the active
// description, the energy dial and the ordered history of directions the
// session has been tuned through.
type Tuning struct {
	Description string   `json:"description"`
	Energy      int      `json:"energy"`
	Directions  []string `json:"directions"`
}

// NewTuning starts a fresh tuning at the given description with neutral
// energy.
func NewTuning(description string) Tuning {
	return Tuning{
		Description: description,
		Directions:  []string{description},
	}
}

// Retune replaces the active description and records it in the direction
// history. Takes effect on the next selection.
func (t *Tuning) Retune(direction string) {
	t.Description = direction
	t.Directions = append(t.Directions, direction)
}

// Dial adjusts energy by delta, clamped to [EnergyMin, EnergyMax], and
// returns the new level.
func (t *Tuning) Dial(delta int) int {
	t.Energy = min(EnergyMax, max(EnergyMin, t.Energy+delta))
	return t.Energy
}

// Snapshot returns a deep copy suitable for persisting as a station preset.
func (t Tuning) Snapshot() Tuning {
	t.Directions = slices.Clone(t.Directions)
	return t
}
