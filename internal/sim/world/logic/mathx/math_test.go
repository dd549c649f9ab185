package mathx

import "testing"

func TestFloorDiv(t *testing.T) {
	cases := []struct {
		a, b, div int
	}{
		{a: 0, b: 16, div: 0},
		{a: 15, b: 16, div: 0},
		{a: 16, b: 16, div: 1},
		{a: -1, b: 16, div: -1},
		{a: -16, b: 16, div: -1},
		{a: -17, b: 16, div: -2},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.div {
			t.Fatalf("FloorDiv(%d,%d)=%d want %d", c.a, c.b, got, c.div)
		}
	}
}

func TestFractRange(t *testing.T) {
	for _, v := range []float64{-3.25, -1, 0, 0.5, 7.999, 1e6 + 0.125} {
		f := Fract(v)
		if f < 0 || f >= 1 {
			t.Fatalf("Fract(%v)=%v out of [0,1)", v, f)
		}
	}
	if got := Fract(-3.25); got != 0.75 {
		t.Fatalf("Fract(-3.25)=%v want 0.75", got)
	}
}

func TestHash3DeterministicAndSeeded(t *testing.T) {
	if Hash3(42, 1, 2, 3) != Hash3(42, 1, 2, 3) {
		t.Fatalf("Hash3 not deterministic")
	}
	if Hash3(42, 1, 2, 3) == Hash3(43, 1, 2, 3) {
		t.Fatalf("Hash3 ignores seed")
	}
	if Hash3(42, 1, 2, 3) == Hash3(42, 3, 2, 1) {
		t.Fatalf("Hash3 axes interchangeable")
	}
	for i := 0; i < 1000; i++ {
		u := Unit(Hash3(7, i, 0, -i))
		if u < 0 || u >= 1 {
			t.Fatalf("Unit out of range: %v", u)
		}
	}
}
