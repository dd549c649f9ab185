package world

import (
	"brickwall.dev/internal/sim/tuning"
)

type WorldConfig struct {
	ID string

	// Gen is the full generator configuration. It is validated by New.
	Gen tuning.WorldGen

	// NoVegetation skips trees and bushes.
	NoVegetation bool
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "great_wall"
	}
}

// ConfigFromTuning builds a world configuration from a loaded tuning file.
func ConfigFromTuning(t tuning.Tuning) WorldConfig {
	return WorldConfig{ID: t.WorldID, Gen: t.WorldGen}
}
