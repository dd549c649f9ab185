package store

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
)

// Kind discriminates render and interaction semantics of a brick.
type Kind string

const (
	KindTerrain Kind = "terrain"
	KindWall    Kind = "wall"
	KindTower   Kind = "tower"
	KindWater   Kind = "water"
	KindFoliage Kind = "foliage"
	KindSnow    Kind = "snow"
	KindPath    Kind = "path"
)

// Kinds lists every kind in wire order; the position is the kind's id on the wire.
var Kinds = []Kind{KindTerrain, KindWall, KindTower, KindWater, KindFoliage, KindSnow, KindPath}

// KindID is the wire id of k, or -1 for an unknown kind.
func KindID(k Kind) int {
	for i, v := range Kinds {
		if v == k {
			return i
		}
	}
	return -1
}

// Brick is one placed unit of the generated world. Y is vertical.
type Brick struct {
	Pos         [3]int `json:"pos"`
	Color       string `json:"color"`
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type ChunkKey struct {
	CX int
	CZ int
}

// ChunkSize is the column width of a streaming chunk.
const ChunkSize = 16

type ColumnKey struct {
	X int
	Z int
}

// Counts tallies a generated world.
type Counts struct {
	Columns int          `json:"columns"`
	Bricks  int          `json:"bricks"`
	ByKind  map[Kind]int `json:"by_kind"`
	Towers  int          `json:"tower_columns"`
	Walls   int          `json:"wall_columns"`
	Trees   int          `json:"trees"`
	Bushes  int          `json:"bushes"`
	PeakY   int          `json:"peak_y"`
}

// digester hashes bricks in generation order.
type digester struct {
	h   hash.Hash
	tmp [8]byte
}

func newDigester() *digester {
	return &digester{h: sha256.New()}
}

func (d *digester) add(b Brick) {
	for _, v := range b.Pos {
		binary.LittleEndian.PutUint64(d.tmp[:], uint64(int64(v)))
		d.h.Write(d.tmp[:])
	}
	d.h.Write([]byte(b.Color))
	d.h.Write([]byte{0})
	d.h.Write([]byte(b.Kind))
	d.h.Write([]byte{0})
	d.h.Write([]byte(b.Name))
	d.h.Write([]byte{0})
	d.h.Write([]byte(b.Description))
	d.h.Write([]byte{0})
}

func (d *digester) sum() [32]byte {
	var out [32]byte
	copy(out[:], d.h.Sum(nil))
	return out
}
