package store

import (
	"fmt"

	"brickwall.dev/internal/sim/catalogs"
)

// ChunkExport is the renderer-facing view of one chunk: parallel arrays over the
// chunk's bricks in generation order.
type ChunkExport struct {
	Key       ChunkKey
	Indices   []int
	Positions [][3]int
	ColorIDs  []uint16
	KindIDs   []uint16
}

// ExportChunk converts the bricks of a chunk into palette and kind ids.
func ExportChunk(bricks []Brick, ix *Index, k ChunkKey, cat *catalogs.Catalogs) (ChunkExport, error) {
	idx := ix.Chunk(k)
	out := ChunkExport{
		Key:       k,
		Indices:   make([]int, 0, len(idx)),
		Positions: make([][3]int, 0, len(idx)),
		ColorIDs:  make([]uint16, 0, len(idx)),
		KindIDs:   make([]uint16, 0, len(idx)),
	}
	for _, i := range idx {
		b := bricks[i]
		cid, ok := cat.PaletteID(b.Color)
		if !ok {
			return ChunkExport{}, fmt.Errorf("brick %d: colour %s not in palette", i, b.Color)
		}
		kid := KindID(b.Kind)
		if kid < 0 {
			return ChunkExport{}, fmt.Errorf("brick %d: unknown kind %q", i, b.Kind)
		}
		out.Indices = append(out.Indices, i)
		out.Positions = append(out.Positions, b.Pos)
		out.ColorIDs = append(out.ColorIDs, cid)
		out.KindIDs = append(out.KindIDs, uint16(kid))
	}
	return out, nil
}
