package store

import (
	"testing"

	"brickwall.dev/internal/sim/catalogs"
	"brickwall.dev/internal/sim/tuning"
	"brickwall.dev/internal/sim/world/logic/mathx"
	genpkg "brickwall.dev/internal/sim/world/terrain/gen"
	"brickwall.dev/internal/sim/world/terrain/noise"
)

func smallConfig() tuning.WorldGen {
	cfg := tuning.DefaultWorldGen()
	cfg.SizeX = 40
	cfg.SizeZ = 30
	return cfg
}

func mustGenerate(t *testing.T, cfg tuning.WorldGen, opts Options) Result {
	t.Helper()
	res, err := Generate(cfg, catalogs.Default(), opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return res
}

func isGround(k Kind) bool { return k == KindTerrain || k == KindSnow }

func isStructure(k Kind) bool { return k == KindWall || k == KindTower }

func TestGenerateDeterministic(t *testing.T) {
	for _, opts := range []Options{{}, {NoVegetation: true}} {
		a := mustGenerate(t, smallConfig(), opts)
		b := mustGenerate(t, smallConfig(), opts)
		if len(a.Bricks) != len(b.Bricks) {
			t.Fatalf("len mismatch: %d vs %d", len(a.Bricks), len(b.Bricks))
		}
		for i := range a.Bricks {
			if a.Bricks[i] != b.Bricks[i] {
				t.Fatalf("brick %d differs: %+v vs %+v", i, a.Bricks[i], b.Bricks[i])
			}
		}
		if a.Digest != b.Digest {
			t.Fatalf("digest mismatch")
		}
	}
}

func TestVegetationSeedOnlyChangesVegetation(t *testing.T) {
	cfg := tuning.DefaultWorldGen()
	a := mustGenerate(t, cfg, Options{})
	cfg.VegetationSeed = 99
	b := mustGenerate(t, cfg, Options{})
	if a.Counts.Trees == 0 {
		t.Fatalf("expected trees in the default scene")
	}
	if a.Counts.Trees != b.Counts.Trees || a.Counts.Bushes != b.Counts.Bushes {
		t.Fatalf("placement must depend on position only: trees %d/%d bushes %d/%d",
			a.Counts.Trees, b.Counts.Trees, a.Counts.Bushes, b.Counts.Bushes)
	}
	if a.Digest == b.Digest {
		t.Fatalf("expected tree heights or leaf colours to change with the seed")
	}
	na := mustGenerate(t, cfg, Options{NoVegetation: true})
	cfg.VegetationSeed = 1
	nb := mustGenerate(t, cfg, Options{NoVegetation: true})
	if na.Digest != nb.Digest {
		t.Fatalf("seed leaked into non-vegetation bricks")
	}
}

func TestTerrainColumnsAreContiguousAndFilled(t *testing.T) {
	cfg := smallConfig()
	res := mustGenerate(t, cfg, Options{NoVegetation: true})
	ix := NewIndex(res.Bricks)

	for x := -cfg.SizeX; x <= cfg.SizeX; x++ {
		for z := -cfg.SizeZ; z <= cfg.SizeZ; z++ {
			top, ok := ix.SurfaceAt(x, z)
			if !ok {
				t.Fatalf("column (%d,%d) has no terrain", x, z)
			}
			var ys []int
			for _, i := range ix.Column(x, z) {
				if isGround(res.Bricks[i].Kind) {
					ys = append(ys, res.Bricks[i].Pos[1])
				}
			}
			for i, y := range ys {
				if y != top-i {
					t.Fatalf("column (%d,%d) not contiguous: %v", x, z, ys)
				}
			}

			minN := top
			for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				if ny, ok := ix.SurfaceAt(x+d[0], z+d[1]); ok && ny < minN {
					minN = ny
				}
			}
			if want := FillLayers(top, minN, cfg.FillCap); len(ys) != want {
				t.Fatalf("column (%d,%d): %d layers want %d", x, z, len(ys), want)
			}
			bottom := ys[len(ys)-1]
			for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				ny, ok := ix.SurfaceAt(x+d[0], z+d[1])
				if !ok {
					continue
				}
				if top-ny <= cfg.FillCap && bottom > ny {
					t.Fatalf("gap between (%d,%d) bottom=%d and neighbour top=%d", x, z, bottom, ny)
				}
			}
		}
	}
}

func TestMinimumElevation(t *testing.T) {
	res := mustGenerate(t, tuning.DefaultWorldGen(), Options{})
	for i, b := range res.Bricks {
		if isGround(b.Kind) && b.Pos[1] < 1 {
			t.Fatalf("brick %d below elevation 1: %+v", i, b)
		}
	}
}

func TestNoDuplicateLayersInColumn(t *testing.T) {
	res := mustGenerate(t, tuning.DefaultWorldGen(), Options{NoVegetation: true})
	seen := map[[3]int]int{}
	for i, b := range res.Bricks {
		if prev, dup := seen[b.Pos]; dup {
			t.Fatalf("bricks %d and %d share %v", prev, i, b.Pos)
		}
		seen[b.Pos] = i
	}
}

func TestTerrainOrderIsColumnMajor(t *testing.T) {
	cfg := smallConfig()
	res := mustGenerate(t, cfg, Options{})
	first := res.Bricks[0]
	if first.Pos[0] != -cfg.SizeX || first.Pos[2] != -cfg.SizeZ {
		t.Fatalf("first brick at %v", first.Pos)
	}
	px, pz := -cfg.SizeX, -cfg.SizeZ
	for _, b := range res.Bricks {
		if !isGround(b.Kind) {
			continue
		}
		x, z := b.Pos[0], b.Pos[2]
		if x < px || (x == px && z < pz) {
			t.Fatalf("terrain out of order: (%d,%d) after (%d,%d)", x, z, px, pz)
		}
		px, pz = x, z
	}
}

func structureLayers(res Result, ix *Index, x, z int) map[int]Brick {
	out := map[int]Brick{}
	for _, i := range ix.Column(x, z) {
		if isStructure(res.Bricks[i].Kind) {
			out[res.Bricks[i].Pos[1]] = res.Bricks[i]
		}
	}
	return out
}

func TestCrenellationAndWindows(t *testing.T) {
	cfg := tuning.DefaultWorldGen()
	res := mustGenerate(t, cfg, Options{NoVegetation: true})
	ix := NewIndex(res.Bricks)

	checkedWindows := 0
	for x := -cfg.SizeX; x <= cfg.SizeX; x++ {
		for z := -cfg.SizeZ; z <= cfg.SizeZ; z++ {
			fp := genpkg.FootprintAt(cfg, x, z)
			layers := structureLayers(res, ix, x, z)
			if fp.Kind == genpkg.StructureNone {
				if len(layers) != 0 {
					t.Fatalf("structure bricks outside footprint at (%d,%d)", x, z)
				}
				continue
			}
			surface, _ := ix.SurfaceAt(x, z)
			height := genpkg.StructureHeight(cfg, fp.Kind)
			topY := surface + height

			top, hasTop := layers[topY]
			wantTop := fp.Edge && (x+z)%2 == 0
			if hasTop != wantTop {
				t.Fatalf("(%d,%d) edge=%v: top brick present=%v", x, z, fp.Edge, hasTop)
			}
			if hasTop && top.Name != "Battlement" {
				t.Fatalf("top brick named %q", top.Name)
			}

			for h := 0; h < height-1; h++ {
				_, present := layers[surface+1+h]
				carved := fp.Kind == genpkg.StructureTower && fp.Edge && h > 4 && h < height-2 && h%3 == 0
				if carved {
					checkedWindows++
				}
				if present == carved {
					t.Fatalf("(%d,%d) %v layer h=%d present=%v carved=%v", x, z, fp.Kind, h, present, carved)
				}
			}

			if fp.Kind == genpkg.StructureWall {
				walk := layers[surface+height-1]
				if walk.Name != "Walkway Paving" || walk.Color != catalogs.Default().Hex(catalogs.DarkTan) {
					t.Fatalf("(%d,%d) walkway=%+v", x, z, walk)
				}
			}
		}
	}
	if checkedWindows == 0 {
		t.Fatalf("default scene produced no tower windows")
	}
}

func TestSmallGridWallScenario(t *testing.T) {
	cfg := tuning.DefaultWorldGen()
	cfg.SizeX = 2
	cfg.SizeZ = 2
	cfg.TowerZoneHalfWidth = 0
	res := mustGenerate(t, cfg, Options{})

	wallCols := map[ColumnKey]bool{}
	for _, b := range res.Bricks {
		switch b.Kind {
		case KindTower:
			t.Fatalf("tower brick with tower zone disabled: %+v", b)
		case KindWall:
			wallCols[ColumnKey{X: b.Pos[0], Z: b.Pos[2]}] = true
		}
	}
	for x := -2; x <= 2; x++ {
		for z := -2; z <= 2; z++ {
			want := genpkg.DistanceToWall(x, z) < 1.5
			if wallCols[ColumnKey{X: x, Z: z}] != want {
				t.Fatalf("(%d,%d) wall=%v want %v", x, z, wallCols[ColumnKey{X: x, Z: z}], want)
			}
		}
	}
	if len(wallCols) == 0 {
		t.Fatalf("expected at least one wall column")
	}
	if res.Counts.Columns != 25 {
		t.Fatalf("columns=%d", res.Counts.Columns)
	}
}

func TestTreesHaveTwoTrunkBricks(t *testing.T) {
	res := mustGenerate(t, tuning.DefaultWorldGen(), Options{})
	trunks, shrubs := 0, 0
	for _, b := range res.Bricks {
		switch b.Name {
		case "Pine Trunk":
			trunks++
		case "Mountain Shrub":
			shrubs++
		}
	}
	if trunks != 2*res.Counts.Trees {
		t.Fatalf("trunks=%d trees=%d", trunks, res.Counts.Trees)
	}
	if shrubs != res.Counts.Bushes {
		t.Fatalf("shrubs=%d bushes=%d", shrubs, res.Counts.Bushes)
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	cfg := tuning.DefaultWorldGen()
	cfg.SizeX = -1
	if _, err := Generate(cfg, catalogs.Default(), Options{}); err == nil {
		t.Fatalf("expected negative extent error")
	}
	cfg = tuning.DefaultWorldGen()
	cfg.TowerInterval = 0
	if _, err := Generate(cfg, catalogs.Default(), Options{}); err == nil {
		t.Fatalf("expected zero interval error")
	}
	if _, err := Generate(tuning.DefaultWorldGen(), nil, Options{}); err == nil {
		t.Fatalf("expected nil catalog error")
	}
}

func TestFillLayersAndCanopy(t *testing.T) {
	cases := []struct{ y, minN, cap, want int }{
		{y: 10, minN: 10, cap: 6, want: 1},
		{y: 10, minN: 12, cap: 6, want: 1},
		{y: 10, minN: 7, cap: 6, want: 4},
		{y: 30, minN: 2, cap: 6, want: 7},
	}
	for _, c := range cases {
		if got := FillLayers(c.y, c.minN, c.cap); got != c.want {
			t.Fatalf("FillLayers(%d,%d,%d)=%d want %d", c.y, c.minN, c.cap, got, c.want)
		}
	}
	if CanopyRadius(6, 0) != 3 || CanopyRadius(6, 5) != 0 || CanopyRadius(3, 0) != 1 {
		t.Fatalf("unexpected canopy radii")
	}
}

func TestVegetationPlacementRules(t *testing.T) {
	cfg := tuning.DefaultWorldGen()
	cat := catalogs.Default()
	res := mustGenerate(t, cfg, Options{})
	field, err := genpkg.NewField(cfg)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	trunks := map[ColumnKey][]int{}
	shrubs := map[ColumnKey][]int{}
	for _, b := range res.Bricks {
		k := ColumnKey{X: b.Pos[0], Z: b.Pos[2]}
		switch b.Name {
		case "Pine Trunk":
			trunks[k] = append(trunks[k], b.Pos[1])
		case "Mountain Shrub":
			shrubs[k] = append(shrubs[k], b.Pos[1])
		}
	}
	if len(trunks) == 0 || len(shrubs) == 0 {
		t.Fatalf("default scene should hold trees and shrubs: trees=%d shrubs=%d", len(trunks), len(shrubs))
	}

	eligible := func(k ColumnKey) (y int, fp genpkg.Footprint, roll float64, ok bool) {
		y = field.TerrainElevation(k.X, k.Z)
		fp = genpkg.FootprintAt(cfg, k.X, k.Z)
		roll = noise.Hash2(float64(k.X), float64(k.Z))
		ok = fp.Kind == genpkg.StructureNone &&
			!genpkg.Classify(cfg, cat, k.X, k.Z, y).Snow &&
			y < cfg.VegetationMaxElevation
		return y, fp, roll, ok
	}

	for k, ys := range trunks {
		y, fp, roll, ok := eligible(k)
		if !ok {
			t.Fatalf("tree at %+v on ineligible ground (y=%d kind=%v)", k, y, fp.Kind)
		}
		if len(ys) != 2 || ys[0] != y+1 || ys[1] != y+2 {
			t.Fatalf("tree at %+v trunk=%v surface=%d", k, ys, y)
		}
		if fp.Dist <= cfg.TreeMinDistance {
			t.Fatalf("tree at %+v only %.2f from the wall", k, fp.Dist)
		}
		if roll <= cfg.TreeThreshold {
			t.Fatalf("tree at %+v with roll %.3f", k, roll)
		}
		if _, both := shrubs[k]; both {
			t.Fatalf("column %+v holds a tree and a shrub", k)
		}
	}
	for k, ys := range shrubs {
		y, fp, roll, ok := eligible(k)
		if !ok {
			t.Fatalf("shrub at %+v on ineligible ground (y=%d kind=%v)", k, y, fp.Kind)
		}
		if len(ys) != 1 || ys[0] != y+1 {
			t.Fatalf("shrub at %+v ys=%v surface=%d", k, ys, y)
		}
		if fp.Dist <= cfg.BushMinDistance {
			t.Fatalf("shrub at %+v only %.2f from the wall", k, fp.Dist)
		}
		if roll <= cfg.BushThreshold {
			t.Fatalf("shrub at %+v with roll %.3f", k, roll)
		}
		if roll > cfg.TreeThreshold && fp.Dist > cfg.TreeMinDistance {
			t.Fatalf("shrub at %+v where a tree belongs", k)
		}
	}

	// Every column that passes the rules is planted.
	for x := -cfg.SizeX; x <= cfg.SizeX; x++ {
		for z := -cfg.SizeZ; z <= cfg.SizeZ; z++ {
			k := ColumnKey{X: x, Z: z}
			_, fp, roll, ok := eligible(k)
			if !ok {
				continue
			}
			_, tree := trunks[k]
			_, shrub := shrubs[k]
			wantTree := roll > cfg.TreeThreshold && fp.Dist > cfg.TreeMinDistance
			wantShrub := !wantTree && roll > cfg.BushThreshold && fp.Dist > cfg.BushMinDistance
			if tree != wantTree || shrub != wantShrub {
				t.Fatalf("column %+v tree=%v shrub=%v want %v/%v", k, tree, shrub, wantTree, wantShrub)
			}
		}
	}
}

func TestVegetationRespectsElevationCap(t *testing.T) {
	cfg := smallConfig()
	cfg.VegetationMaxElevation = 0
	res := mustGenerate(t, cfg, Options{})
	if res.Counts.Trees != 0 || res.Counts.Bushes != 0 {
		t.Fatalf("trees=%d bushes=%d above the elevation cap", res.Counts.Trees, res.Counts.Bushes)
	}
	for _, b := range res.Bricks {
		if b.Kind == KindFoliage {
			t.Fatalf("foliage brick %+v", b)
		}
	}
}

func TestTreeCanopyLayers(t *testing.T) {
	cfg := tuning.DefaultWorldGen()
	cfg.TreeMinHeight = 4
	cfg.TreeHeightRange = 1
	g := &generator{
		cfg:    cfg,
		cat:    catalogs.Default(),
		dig:    newDigester(),
		counts: Counts{ByKind: map[Kind]int{}},
	}
	const base = 10
	g.tree(0, 0, base)

	// Height 4 gives radii 2, 1, 1, 0 on layers base+2 .. base+5.
	wantPerLayer := map[int]int{base + 2: 12, base + 3: 4, base + 4: 4, base + 5: 1}
	radius := map[int]int{base + 2: 2, base + 3: 1, base + 4: 1, base + 5: 0}
	perLayer := map[int]int{}
	trunk := 0
	seen := map[[3]int]bool{}
	for _, b := range g.bricks {
		if seen[b.Pos] {
			t.Fatalf("duplicate brick at %v", b.Pos)
		}
		seen[b.Pos] = true
		switch b.Name {
		case "Pine Trunk":
			trunk++
			if b.Pos[0] != 0 || b.Pos[2] != 0 || (b.Pos[1] != base+1 && b.Pos[1] != base+2) {
				t.Fatalf("trunk at %v", b.Pos)
			}
		case "Pine Needles":
			perLayer[b.Pos[1]]++
			if d := mathx.AbsInt(b.Pos[0]) + mathx.AbsInt(b.Pos[2]); d > radius[b.Pos[1]] {
				t.Fatalf("needle %v outside the diamond of radius %d", b.Pos, radius[b.Pos[1]])
			}
			if b.Pos[0] == 0 && b.Pos[2] == 0 && b.Pos[1] != base+5 {
				t.Fatalf("needle in the trunk column below the tip at %v", b.Pos)
			}
			if b.Description != needleDescription {
				t.Fatalf("needle description=%q", b.Description)
			}
		default:
			t.Fatalf("unexpected brick %+v", b)
		}
	}
	if trunk != 2 || g.counts.Trees != 1 {
		t.Fatalf("trunk=%d trees=%d", trunk, g.counts.Trees)
	}
	for y, want := range wantPerLayer {
		if perLayer[y] != want {
			t.Fatalf("layer %d has %d needles want %d (all=%v)", y, perLayer[y], want, perLayer)
		}
	}
	if len(perLayer) != len(wantPerLayer) {
		t.Fatalf("needle layers=%v", perLayer)
	}
	if !seen[[3]int{0, base + 5, 0}] {
		t.Fatalf("crown tip missing")
	}
}
