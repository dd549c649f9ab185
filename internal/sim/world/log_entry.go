package world

import (
	"time"

	"brickwall.dev/internal/sim/tuning"
	"brickwall.dev/internal/sim/world/terrain/store"
)

// GenerationLogEntry records one world generation. It carries the full generator
// configuration so the run can be regenerated and its digest verified.
type GenerationLogEntry struct {
	WorldID       string          `json:"world_id"`
	GeneratedAt   int64           `json:"generated_at"`
	Digest        string          `json:"digest"`
	ConfigDigest  string          `json:"config_digest"`
	PaletteDigest string          `json:"palette_digest"`
	NoVegetation  bool            `json:"no_vegetation,omitempty"`
	Config        tuning.WorldGen `json:"config"`
	Counts        store.Counts    `json:"counts"`
	Watchtowers   int             `json:"watchtowers"`
	GenerateMS    float64         `json:"generate_ms"`
}

type GenerationLogger interface {
	WriteGeneration(entry GenerationLogEntry) error
}

func (w *World) LogEntry(at time.Time) GenerationLogEntry {
	return GenerationLogEntry{
		WorldID:       w.cfg.ID,
		GeneratedAt:   at.UnixMilli(),
		Digest:        w.Digest(),
		ConfigDigest:  w.cfg.Gen.Digest(),
		PaletteDigest: w.catalogs.Colors.PaletteDigest,
		NoVegetation:  w.cfg.NoVegetation,
		Config:        w.cfg.Gen,
		Counts:        w.Counts(),
		Watchtowers:   w.watchtowers,
		GenerateMS:    float64(w.GeneratedIn().Microseconds()) / 1000,
	}
}
