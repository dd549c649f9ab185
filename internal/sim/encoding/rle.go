package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// MaxDecoded bounds the number of values a single payload may expand to.
const MaxDecoded = 1 << 22

// EncodeRLE encodes a sequence of ids (palette or kind) as base64 varint pairs
// (id, run_len).
func EncodeRLE(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(ids) {
		v := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == v; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func DecodeRLE(b64 string) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint16
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if v > 0xFFFF {
			return nil, fmt.Errorf("id too large: %d", v)
		}
		if run == 0 || uint64(len(out))+run > MaxDecoded {
			return nil, fmt.Errorf("bad run length %d at %d", run, i)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(v))
		}
	}
	return out, nil
}

// EncodePositions packs brick positions as base64 zigzag varint deltas against the
// previous position. Bricks of one column differ by a single y step, so most triples
// fit in three bytes.
func EncodePositions(pos [][3]int) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	var prev [3]int
	for _, p := range pos {
		for a := 0; a < 3; a++ {
			n := binary.PutVarint(tmp[:], int64(p[a]-prev[a]))
			buf.Write(tmp[:n])
		}
		prev = p
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func DecodePositions(b64 string) ([][3]int, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out [][3]int
	var cur [3]int
	for i := 0; i < len(raw); {
		for a := 0; a < 3; a++ {
			if i >= len(raw) {
				return nil, fmt.Errorf("truncated position at %d", i)
			}
			d, n := binary.Varint(raw[i:])
			if n <= 0 {
				return nil, fmt.Errorf("bad varint at %d", i)
			}
			i += n
			cur[a] += int(d)
		}
		if len(out) >= MaxDecoded {
			return nil, fmt.Errorf("too many positions")
		}
		out = append(out, cur)
	}
	return out, nil
}
