package gen

import (
	"math"

	"brickwall.dev/internal/sim/catalogs"
	"brickwall.dev/internal/sim/tuning"
	"brickwall.dev/internal/sim/world/logic/mathx"
	"brickwall.dev/internal/sim/world/terrain/noise"
)

func FloorDiv(a, b int) int {
	return mathx.FloorDiv(a, b)
}

// WallCenterline is the serpentine z offset the wall follows at x.
func WallCenterline(x float64) float64 {
	return math.Sin(x*0.05)*20 + math.Sin(x*0.15)*8
}

// RidgeElevation is the mountain spine height at x, independent of z.
func RidgeElevation(x float64) float64 {
	return 15 + math.Sin(x*0.04)*12 + math.Cos(x*0.1)*5
}

// DistanceToWall is |z - WallCenterline(x)|.
func DistanceToWall(x, z int) float64 {
	return math.Abs(float64(z) - WallCenterline(float64(x)))
}

// Field evaluates terrain elevation with a configured noise backend. The zero value is
// not usable; build it with NewField.
type Field struct {
	src noise.Source
}

func NewField(cfg tuning.WorldGen) (Field, error) {
	src, err := noise.NewSource(cfg.NoiseBackend, cfg.NoiseSeed)
	if err != nil {
		return Field{}, err
	}
	return Field{src: src}, nil
}

// TerrainElevation is the surface height of column (x, z). It is a pure function of its
// inputs and is called for every neighbour lookup.
func (f Field) TerrainElevation(x, z int) int {
	fx, fz := float64(x), float64(z)
	dist := math.Abs(fz - WallCenterline(fx))

	slope := noise.FractalOf(f.src, fx*0.1, fz*0.1, 2) * 5
	ground := RidgeElevation(fx) - dist*1.2 + slope
	ground += noise.FractalOf(f.src, fx*0.05, fz*0.05, 3) * 8

	if ground < 1 {
		ground = 1 + noise.Hash2(fx, fz)*0.5
	}
	return int(math.Floor(ground))
}

// Surface describes the top brick of a column and the material under it.
type Surface struct {
	Snow        bool
	Color       string
	Name        string
	Description string

	SubColor       string
	SubName        string
	SubDescription string
}

const subsurfaceDescription = "Supporting terrain foundation."

// Classify picks the biome of the top layer of a column at elevation y.
func Classify(cfg tuning.WorldGen, cat *catalogs.Catalogs, x, z, y int) Surface {
	s := Surface{
		Color:          cat.Hex(catalogs.DarkGreen),
		Name:           "Grass Block",
		Description:    "Lush vegetation covering the hills.",
		SubColor:       cat.Hex(catalogs.Brown),
		SubName:        "Dirt Foundation",
		SubDescription: subsurfaceDescription,
	}
	if y > cfg.RockElevation {
		s.SubColor = cat.Hex(catalogs.DarkGray)
		s.SubName = "Mountain Bedrock"
	}

	dist := DistanceToWall(x, z)
	switch {
	case y > cfg.SnowElevation && dist > cfg.SnowMinDistance:
		s.Snow = true
		s.Color = cat.Hex(catalogs.Snow)
		s.Name = "Snowy Peak"
		s.Description = "Eternal snow on the highest ridges."
	case y > cfg.RockElevation:
		mix := noise.Hash2(float64(x), float64(z))
		switch {
		case mix > cfg.GraniteThreshold:
			s.Color = cat.Hex(catalogs.DarkGray)
			s.Name = "Granite Rock"
			s.Description = "Solid mountain bedrock."
		case mix > cfg.LimestoneThresh:
			s.Color = cat.Hex(catalogs.BluishGray)
			s.Name = "Limestone"
		default:
			s.Color = cat.Hex(catalogs.Olive)
			s.Name = "Highland Moss"
		}
	default:
		lush := noise.Fractal(float64(x)*0.2, float64(z)*0.2, 1)
		s.Color = PaletteAt(cat.FoliageVariants, math.Abs(lush)*float64(len(cat.FoliageVariants)))
	}
	return s
}

// PaletteAt indexes a palette with floor(v) wrapped to its length.
func PaletteAt(palette []string, v float64) string {
	i := int(math.Floor(v)) % len(palette)
	if i < 0 {
		i += len(palette)
	}
	return palette[i]
}

// WeatheredStone is the stone colour of a structure brick at (x, y).
func WeatheredStone(cat *catalogs.Catalogs, x, y int) string {
	w := noise.Fractal(float64(x)*0.5, float64(y)*0.5, 1)
	return PaletteAt(cat.StoneVariants, math.Abs(w*10))
}

type StructureKind int

const (
	StructureNone StructureKind = iota
	StructureWall
	StructureTower
)

// Footprint says whether a column carries a wall or tower, and whether it is an edge
// column eligible for windows and battlements.
type Footprint struct {
	Kind  StructureKind
	Edge  bool
	Phase int
	Dist  float64
}

// TowerPhase is the signed remainder of x by the tower interval.
func TowerPhase(x, interval int) int {
	return x % interval
}

func InTowerZone(cfg tuning.WorldGen, x int) bool {
	p := TowerPhase(x, cfg.TowerInterval)
	return p > -cfg.TowerZoneHalfWidth && p < cfg.TowerZoneHalfWidth
}

func FootprintAt(cfg tuning.WorldGen, x, z int) Footprint {
	fp := Footprint{
		Phase: TowerPhase(x, cfg.TowerInterval),
		Dist:  DistanceToWall(x, z),
	}
	isWall := fp.Dist < cfg.WallHalfWidth
	isTower := InTowerZone(cfg, x) && fp.Dist < cfg.TowerHalfWidth
	switch {
	case isTower:
		fp.Kind = StructureTower
		fp.Edge = fp.Dist > cfg.TowerEdgeDistance || mathx.AbsInt(fp.Phase) > cfg.TowerEdgePhase
	case isWall:
		fp.Kind = StructureWall
		fp.Edge = fp.Dist > cfg.WallEdgeDistance
	}
	return fp
}

// StructureHeight is the number of layers a footprint stacks above the terrain.
func StructureHeight(cfg tuning.WorldGen, k StructureKind) int {
	switch k {
	case StructureTower:
		return cfg.WallHeightBase + cfg.TowerHeightBonus
	case StructureWall:
		return cfg.WallHeightBase
	default:
		return 0
	}
}

// IsWindow reports whether layer h of a tower column is carved out.
func IsWindow(cfg tuning.WorldGen, fp Footprint, h, height int) bool {
	if fp.Kind != StructureTower || !fp.Edge {
		return false
	}
	return h > cfg.WindowMinHeight && h < height-2 && h%cfg.WindowEvery == 0
}

// IsMerlon reports whether the top layer of a structure column is kept: only edge
// columns on the even (x+z) checkerboard.
func IsMerlon(fp Footprint, x, z int) bool {
	return fp.Edge && (x+z)%2 == 0
}
