package store

import (
	"sort"

	genpkg "brickwall.dev/internal/sim/world/terrain/gen"
)

// Index groups a brick sequence by streaming chunk and by column. It holds indices into
// the sequence it was built from and never copies or mutates bricks.
type Index struct {
	chunks  map[ChunkKey][]int
	keys    []ChunkKey
	surface map[ColumnKey]int
	columns map[ColumnKey][]int
}

func ChunkOf(x, z int) ChunkKey {
	return ChunkKey{CX: genpkg.FloorDiv(x, ChunkSize), CZ: genpkg.FloorDiv(z, ChunkSize)}
}

func NewIndex(bricks []Brick) *Index {
	ix := &Index{
		chunks:  map[ChunkKey][]int{},
		surface: map[ColumnKey]int{},
		columns: map[ColumnKey][]int{},
	}
	for i, b := range bricks {
		k := ChunkOf(b.Pos[0], b.Pos[2])
		ix.chunks[k] = append(ix.chunks[k], i)

		col := ColumnKey{X: b.Pos[0], Z: b.Pos[2]}
		ix.columns[col] = append(ix.columns[col], i)
		if b.Kind == KindTerrain || b.Kind == KindSnow {
			if top, ok := ix.surface[col]; !ok || b.Pos[1] > top {
				ix.surface[col] = b.Pos[1]
			}
		}
	}
	ix.keys = make([]ChunkKey, 0, len(ix.chunks))
	for k := range ix.chunks {
		ix.keys = append(ix.keys, k)
	}
	sort.Slice(ix.keys, func(i, j int) bool {
		if ix.keys[i].CX != ix.keys[j].CX {
			return ix.keys[i].CX < ix.keys[j].CX
		}
		return ix.keys[i].CZ < ix.keys[j].CZ
	})
	return ix
}

func (ix *Index) ChunkKeys() []ChunkKey {
	out := make([]ChunkKey, len(ix.keys))
	copy(out, ix.keys)
	return out
}

// Chunk returns the brick indices of a chunk in generation order.
func (ix *Index) Chunk(k ChunkKey) []int {
	return ix.chunks[k]
}

// Column returns the brick indices at (x, z) in generation order.
func (ix *Index) Column(x, z int) []int {
	return ix.columns[ColumnKey{X: x, Z: z}]
}

// SurfaceAt is the topmost terrain (or snow) brick of a column.
func (ix *Index) SurfaceAt(x, z int) (int, bool) {
	y, ok := ix.surface[ColumnKey{X: x, Z: z}]
	return y, ok
}

// KeysNear lists chunks within a Chebyshev radius of (cx, cz), nearest first.
func (ix *Index) KeysNear(cx, cz, radius int) []ChunkKey {
	out := make([]ChunkKey, 0, len(ix.keys))
	for _, k := range ix.keys {
		if cheb(k.CX-cx, k.CZ-cz) <= radius {
			out = append(out, k)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return cheb(out[i].CX-cx, out[i].CZ-cz) < cheb(out[j].CX-cx, out[j].CZ-cz)
	})
	return out
}

func cheb(dx, dz int) int {
	if dx < 0 {
		dx = -dx
	}
	if dz < 0 {
		dz = -dz
	}
	if dx > dz {
		return dx
	}
	return dz
}
