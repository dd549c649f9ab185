package gen

import (
	"math"
	"testing"

	"brickwall.dev/internal/sim/catalogs"
	"brickwall.dev/internal/sim/tuning"
)

func TestHeightFieldsAtOrigin(t *testing.T) {
	if got := WallCenterline(0); got != 0 {
		t.Fatalf("WallCenterline(0)=%v", got)
	}
	if got := RidgeElevation(0); got != 20 {
		t.Fatalf("RidgeElevation(0)=%v want 20", got)
	}
}

func TestTerrainElevationMinimumAndPurity(t *testing.T) {
	f, err := NewField(tuning.DefaultWorldGen())
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	for x := -80; x <= 80; x += 5 {
		for z := -50; z <= 50; z += 5 {
			y := f.TerrainElevation(x, z)
			if y < 1 {
				t.Fatalf("elevation(%d,%d)=%d below 1", x, z, y)
			}
			if y != f.TerrainElevation(x, z) {
				t.Fatalf("elevation(%d,%d) not pure", x, z)
			}
		}
	}
}

func TestTerrainFallsAwayFromRidge(t *testing.T) {
	f, _ := NewField(tuning.DefaultWorldGen())
	// 40 columns off the centreline loses 48 units of ridge height; noise adds at most 11.
	x := 10
	wz := int(math.Round(WallCenterline(float64(x))))
	if near, far := f.TerrainElevation(x, wz), f.TerrainElevation(x, wz+40); far >= near {
		t.Fatalf("expected far column lower: near=%d far=%d", near, far)
	}
}

func TestClassifyBiomes(t *testing.T) {
	cfg := tuning.DefaultWorldGen()
	cat := catalogs.Default()

	// Far from the wall (x=0 centreline is z=0) and high: snow.
	s := Classify(cfg, cat, 0, 40, 30)
	if !s.Snow || s.Name != "Snowy Peak" || s.Color != cat.Hex(catalogs.Snow) {
		t.Fatalf("expected snow, got %+v", s)
	}
	if s.SubName != "Mountain Bedrock" {
		t.Fatalf("high subsurface=%q", s.SubName)
	}

	// High but near the wall: rocky, never snow.
	s = Classify(cfg, cat, 0, 2, 30)
	if s.Snow {
		t.Fatalf("snow within snow_min_distance of the wall")
	}
	switch s.Name {
	case "Granite Rock", "Limestone", "Highland Moss":
	default:
		t.Fatalf("expected rocky biome, got %q", s.Name)
	}

	// Low: vegetated, colour from the foliage palette, dirt below.
	s = Classify(cfg, cat, 3, 7, 5)
	if s.Name != "Grass Block" || s.SubName != "Dirt Foundation" {
		t.Fatalf("expected grass over dirt, got %+v", s)
	}
	found := false
	for _, h := range cat.FoliageVariants {
		if h == s.Color {
			found = true
		}
	}
	if !found {
		t.Fatalf("grass colour %s not in foliage palette", s.Color)
	}
}

func TestFootprintTowerSupersedesWall(t *testing.T) {
	cfg := tuning.DefaultWorldGen()
	// x=0 is in the tower zone; the centreline is z=0.
	fp := FootprintAt(cfg, 0, 0)
	if fp.Kind != StructureTower {
		t.Fatalf("expected tower at origin, got %v", fp.Kind)
	}
	if fp.Edge {
		t.Fatalf("tower centre should be interior")
	}
	if fp := FootprintAt(cfg, 0, 4); fp.Kind != StructureTower || !fp.Edge {
		t.Fatalf("expected tower edge at z=4, got %+v", fp)
	}
	// x=17 is outside the tower zone.
	wz := int(math.Round(WallCenterline(17)))
	if fp := FootprintAt(cfg, 17, wz); fp.Kind != StructureWall {
		t.Fatalf("expected wall at (17,%d), got %+v", wz, fp)
	}
	if fp := FootprintAt(cfg, 17, wz+10); fp.Kind != StructureNone {
		t.Fatalf("expected open ground, got %+v", fp)
	}
}

func TestTowerPhaseIsSigned(t *testing.T) {
	cases := map[int]int{-36: -1, -35: 0, -3: -3, 0: 0, 3: 3, 34: 34, 36: 1}
	for x, want := range cases {
		if got := TowerPhase(x, 35); got != want {
			t.Fatalf("TowerPhase(%d)=%d want %d", x, got, want)
		}
	}
	cfg := tuning.DefaultWorldGen()
	if !InTowerZone(cfg, -3) || InTowerZone(cfg, 4) || !InTowerZone(cfg, 38) {
		t.Fatalf("unexpected tower zones")
	}
}

func TestWindowsAndMerlons(t *testing.T) {
	cfg := tuning.DefaultWorldGen()
	tower := Footprint{Kind: StructureTower, Edge: true}
	height := StructureHeight(cfg, StructureTower)
	if height != 12 {
		t.Fatalf("tower height=%d", height)
	}
	var windows []int
	for h := 0; h < height; h++ {
		if IsWindow(cfg, tower, h, height) {
			windows = append(windows, h)
		}
	}
	if len(windows) != 2 || windows[0] != 6 || windows[1] != 9 {
		t.Fatalf("windows=%v want [6 9]", windows)
	}
	if IsWindow(cfg, Footprint{Kind: StructureTower}, 6, height) {
		t.Fatalf("interior tower column carved")
	}
	if IsWindow(cfg, Footprint{Kind: StructureWall, Edge: true}, 6, height) {
		t.Fatalf("wall column carved")
	}

	if !IsMerlon(tower, 2, 4) || IsMerlon(tower, 2, 3) || IsMerlon(tower, -1, 0) {
		t.Fatalf("checkerboard wrong")
	}
	if IsMerlon(Footprint{Kind: StructureWall}, 2, 2) {
		t.Fatalf("interior merlon")
	}
}

func TestWeatheredStoneUsesStonePalette(t *testing.T) {
	cat := catalogs.Default()
	for x := -10; x < 10; x++ {
		c := WeatheredStone(cat, x, x*2+3)
		ok := false
		for _, h := range cat.StoneVariants {
			ok = ok || h == c
		}
		if !ok {
			t.Fatalf("stone colour %s not in stone palette", c)
		}
	}
}
