package store

import (
	"fmt"

	"brickwall.dev/internal/sim/catalogs"
	"brickwall.dev/internal/sim/tuning"
	"brickwall.dev/internal/sim/world/logic/mathx"
	genpkg "brickwall.dev/internal/sim/world/terrain/gen"
	"brickwall.dev/internal/sim/world/terrain/noise"
)

// Options tweak a generation run without touching the scene configuration.
type Options struct {
	// NoVegetation skips trees and bushes entirely.
	NoVegetation bool
}

type Result struct {
	Bricks []Brick
	Counts Counts
	Digest [32]byte
}

const (
	structureDescription = "Part of the Ming Dynasty construction."
	needleDescription    = "Evergreen foliage adapted to the harsh climate."

	saltTreeHeight = 1
	saltLeafColor  = 2
)

// Generate builds the full brick sequence for a scene, column-major (x outer, z inner).
// Apart from vegetation, which is driven by cfg.VegetationSeed, every value is a pure
// function of the column position.
func Generate(cfg tuning.WorldGen, cat *catalogs.Catalogs, opts Options) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if cat == nil {
		return Result{}, fmt.Errorf("generate: nil catalogs")
	}
	field, err := genpkg.NewField(cfg)
	if err != nil {
		return Result{}, err
	}

	g := &generator{
		cfg:   cfg,
		cat:   cat,
		opts:  opts,
		field: field,
		dig:   newDigester(),
		counts: Counts{
			ByKind: map[Kind]int{},
		},
	}
	for x := -cfg.SizeX; x <= cfg.SizeX; x++ {
		for z := -cfg.SizeZ; z <= cfg.SizeZ; z++ {
			g.column(x, z)
		}
	}
	g.counts.Bricks = len(g.bricks)
	return Result{
		Bricks: g.bricks,
		Counts: g.counts,
		Digest: g.dig.sum(),
	}, nil
}

type generator struct {
	cfg   tuning.WorldGen
	cat   *catalogs.Catalogs
	opts  Options
	field genpkg.Field

	bricks []Brick
	counts Counts
	dig    *digester
}

func (g *generator) emit(b Brick) {
	g.bricks = append(g.bricks, b)
	g.counts.ByKind[b.Kind]++
	g.dig.add(b)
}

func (g *generator) outOfBounds(x, z int) bool {
	return mathx.AbsInt(x) > g.cfg.SizeX || mathx.AbsInt(z) > g.cfg.SizeZ
}

// neighbourElevation treats columns past the map edge as level with the current one.
func (g *generator) neighbourElevation(x, z, self int) int {
	if g.outOfBounds(x, z) {
		return self
	}
	return g.field.TerrainElevation(x, z)
}

// FillLayers is the number of terrain layers a column at y emits given its lowest
// neighbour: the surface plus up to fillCap layers of cliff face.
func FillLayers(y, minNeighbour, fillCap int) int {
	depth := mathx.MinInt(y-minNeighbour, fillCap)
	return 1 + mathx.MaxInt(0, depth)
}

func (g *generator) column(x, z int) {
	g.counts.Columns++

	y := g.field.TerrainElevation(x, z)
	if y > g.counts.PeakY {
		g.counts.PeakY = y
	}
	minN := y
	for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		minN = mathx.MinInt(minN, g.neighbourElevation(x+d[0], z+d[1], y))
	}
	layers := FillLayers(y, minN, g.cfg.FillCap)

	surf := genpkg.Classify(g.cfg, g.cat, x, z, y)
	kind := KindTerrain
	if surf.Snow {
		kind = KindSnow
	}
	for i := 0; i < layers; i++ {
		b := Brick{
			Pos:         [3]int{x, y - i, z},
			Color:       surf.Color,
			Kind:        kind,
			Name:        surf.Name,
			Description: surf.Description,
		}
		if i > 0 {
			b.Color = surf.SubColor
			b.Name = surf.SubName
			b.Description = surf.SubDescription
		}
		g.emit(b)
	}

	fp := genpkg.FootprintAt(g.cfg, x, z)
	if fp.Kind != genpkg.StructureNone {
		g.structure(x, z, y, fp)
		return
	}
	if g.opts.NoVegetation || surf.Snow || y >= g.cfg.VegetationMaxElevation {
		return
	}
	g.vegetation(x, z, y, fp.Dist)
}

func (g *generator) structure(x, z, y int, fp genpkg.Footprint) {
	tower := fp.Kind == genpkg.StructureTower
	kind := KindWall
	if tower {
		kind = KindTower
		g.counts.Towers++
	} else {
		g.counts.Walls++
	}
	height := genpkg.StructureHeight(g.cfg, fp.Kind)
	base := y + 1

	for h := 0; h < height; h++ {
		cy := base + h
		color := genpkg.WeatheredStone(g.cat, x, cy)
		name := "Ancient Wall Brick"

		if tower {
			name = "Watchtower Fortification"
			if genpkg.IsWindow(g.cfg, fp, h, height) {
				continue
			}
			if h == height-2 {
				color = g.cat.Hex(catalogs.DarkGray)
			}
		} else if h == height-2 {
			color = g.cat.Hex(catalogs.DarkTan)
			name = "Walkway Paving"
		}

		if h == height-1 {
			if !genpkg.IsMerlon(fp, x, z) {
				continue
			}
			name = "Battlement"
		}

		g.emit(Brick{
			Pos:         [3]int{x, cy, z},
			Color:       color,
			Kind:        kind,
			Name:        name,
			Description: structureDescription,
		})
	}
}

func (g *generator) vegetation(x, z, y int, dist float64) {
	roll := noise.Hash2(float64(x), float64(z))
	switch {
	case roll > g.cfg.TreeThreshold && dist > g.cfg.TreeMinDistance:
		g.tree(x, z, y)
	case roll > g.cfg.BushThreshold && dist > g.cfg.BushMinDistance:
		g.counts.Bushes++
		g.emit(Brick{
			Pos:   [3]int{x, y + 1, z},
			Color: g.cat.Hex(catalogs.Green),
			Kind:  KindFoliage,
			Name:  "Mountain Shrub",
		})
	}
}

func (g *generator) tree(x, z, y int) {
	g.counts.Trees++
	seed := g.cfg.VegetationSeed
	height := g.cfg.TreeMinHeight + int(mathx.Hash3(seed, x, saltTreeHeight, z)%uint64(g.cfg.TreeHeightRange))
	leaf := g.cat.Hex(catalogs.DarkGreen)
	if mathx.Unit(mathx.Hash3(seed, x, saltLeafColor, z)) > 0.5 {
		leaf = g.cat.Hex(catalogs.Olive)
	}

	for _, ty := range []int{y + 1, y + 2} {
		g.emit(Brick{
			Pos:   [3]int{x, ty, z},
			Color: g.cat.Hex(catalogs.Brown),
			Kind:  KindFoliage,
			Name:  "Pine Trunk",
		})
	}

	for ly := 0; ly < height; ly++ {
		py := y + 2 + ly
		radius := CanopyRadius(height, ly)
		for lx := -radius; lx <= radius; lx++ {
			for lz := -radius; lz <= radius; lz++ {
				// The trunk column stays clear below the crown tip.
				if lx == 0 && lz == 0 && ly < height-1 {
					continue
				}
				if mathx.AbsInt(lx)+mathx.AbsInt(lz) > radius {
					continue
				}
				g.emit(Brick{
					Pos:         [3]int{x + lx, py, z + lz},
					Color:       leaf,
					Kind:        KindFoliage,
					Name:        "Pine Needles",
					Description: needleDescription,
				})
			}
		}
	}
}

// CanopyRadius is the Manhattan radius of leaf layer ly of a tree of the given height.
func CanopyRadius(height, ly int) int {
	return int(float64(height-ly) * 0.6)
}
