package world

import "brickwall.dev/internal/sim/world/terrain/store"

// WorldMetrics is a read-only view of the generated scene for HTTP handlers.
type WorldMetrics struct {
	WorldID string `json:"world_id"`
	Digest  string `json:"digest"`

	Bricks      int                `json:"bricks"`
	Columns     int                `json:"columns"`
	Chunks      int                `json:"chunks"`
	ByKind      map[store.Kind]int `json:"by_kind"`
	Watchtowers int                `json:"watchtowers"`
	TowerCols   int                `json:"tower_columns"`
	WallCols    int                `json:"wall_columns"`
	Trees       int                `json:"trees"`
	Bushes      int                `json:"bushes"`
	PeakY       int                `json:"peak_y"`

	GenerateMS float64 `json:"generate_ms"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	c := w.Counts()
	return WorldMetrics{
		WorldID:     w.cfg.ID,
		Digest:      w.Digest(),
		Bricks:      c.Bricks,
		Columns:     c.Columns,
		Chunks:      len(w.index.ChunkKeys()),
		ByKind:      c.ByKind,
		Watchtowers: w.watchtowers,
		TowerCols:   c.Towers,
		WallCols:    c.Walls,
		Trees:       c.Trees,
		Bushes:      c.Bushes,
		PeakY:       c.PeakY,
		GenerateMS:  float64(w.GeneratedIn().Microseconds()) / 1000,
	}
}
