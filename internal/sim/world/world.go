package world

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"brickwall.dev/internal/sim/catalogs"
	genpkg "brickwall.dev/internal/sim/world/terrain/gen"
	"brickwall.dev/internal/sim/world/terrain/store"
)

var ErrIndexOutOfRange = errors.New("brick index out of range")

// World is one generated scene. It is immutable after New and safe for concurrent
// readers; regenerating means building a new World.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs

	bricks []store.Brick
	index  *store.Index
	counts store.Counts
	digest [32]byte

	watchtowers int
	bounds      Bounds
	genDur      time.Duration
}

// Bounds is the inclusive extent of all bricks.
type Bounds struct {
	Min [3]int `json:"min"`
	Max [3]int `json:"max"`
}

func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	cfg.applyDefaults()
	if cats == nil {
		return nil, fmt.Errorf("world %s: nil catalogs", cfg.ID)
	}
	start := time.Now()
	res, err := store.Generate(cfg.Gen, cats, store.Options{NoVegetation: cfg.NoVegetation})
	if err != nil {
		return nil, fmt.Errorf("world %s: %w", cfg.ID, err)
	}
	w := &World{
		cfg:      cfg,
		catalogs: cats,
		bricks:   res.Bricks,
		index:    store.NewIndex(res.Bricks),
		counts:   res.Counts,
		digest:   res.Digest,
		genDur:   time.Since(start),
	}
	w.bounds = computeBounds(res.Bricks)
	w.watchtowers = countWatchtowers(cfg, res.Bricks)
	return w, nil
}

func computeBounds(bricks []store.Brick) Bounds {
	if len(bricks) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: bricks[0].Pos, Max: bricks[0].Pos}
	for _, br := range bricks[1:] {
		for a := 0; a < 3; a++ {
			if br.Pos[a] < b.Min[a] {
				b.Min[a] = br.Pos[a]
			}
			if br.Pos[a] > b.Max[a] {
				b.Max[a] = br.Pos[a]
			}
		}
	}
	return b
}

// countWatchtowers counts tower zones that produced at least one tower brick.
func countWatchtowers(cfg WorldConfig, bricks []store.Brick) int {
	zones := map[int]struct{}{}
	for _, b := range bricks {
		if b.Kind != store.KindTower {
			continue
		}
		x := b.Pos[0]
		zones[x-genpkg.TowerPhase(x, cfg.Gen.TowerInterval)] = struct{}{}
	}
	return len(zones)
}

func (w *World) ID() string { return w.cfg.ID }

func (w *World) Config() WorldConfig { return w.cfg }

func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }

func (w *World) Len() int { return len(w.bricks) }

// Brick returns the canonical record at index i.
func (w *World) Brick(i int) (store.Brick, error) {
	if i < 0 || i >= len(w.bricks) {
		return store.Brick{}, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, i, len(w.bricks))
	}
	return w.bricks[i], nil
}

// Bricks returns a copy of the full sequence in generation order.
func (w *World) Bricks() []store.Brick {
	out := make([]store.Brick, len(w.bricks))
	copy(out, w.bricks)
	return out
}

func (w *World) Index() *store.Index { return w.index }

// Chunk exports one streaming chunk with palette and kind ids.
func (w *World) Chunk(k store.ChunkKey) (store.ChunkExport, error) {
	return store.ExportChunk(w.bricks, w.index, k, w.catalogs)
}

func (w *World) Counts() store.Counts {
	c := w.counts
	c.ByKind = make(map[store.Kind]int, len(w.counts.ByKind))
	for k, v := range w.counts.ByKind {
		c.ByKind[k] = v
	}
	return c
}

func (w *World) Digest() string { return hex.EncodeToString(w.digest[:]) }

func (w *World) Bounds() Bounds { return w.bounds }

func (w *World) Watchtowers() int { return w.watchtowers }

func (w *World) GeneratedIn() time.Duration { return w.genDur }
