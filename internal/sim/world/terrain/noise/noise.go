// Package noise implements the value noise used by the brick terrain: a sine hash, a
// smoothstep-blended lattice noise and its fractal sum. Alternative smooth-noise backends
// (perlin, opensimplex) can be swapped in for the terrain elevation terms.
package noise

import (
	"fmt"
	"math"

	perlin "github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"

	"brickwall.dev/internal/sim/world/logic/mathx"
)

// Hash2 is a pure pseudo-random scalar in [0,1) for a 2D position.
func Hash2(x, z float64) float64 {
	return mathx.Fract(math.Sin(x*12.9898+z*78.233) * 43758.5453)
}

// Smooth interpolates Hash2 between the four surrounding lattice points.
func Smooth(x, z float64) float64 {
	i := math.Floor(x)
	j := math.Floor(z)
	f := x - i
	g := z - j

	a := Hash2(i, j)
	b := Hash2(i+1, j)
	c := Hash2(i, j+1)
	d := Hash2(i+1, j+1)

	u := f * f * (3 - 2*f)
	v := g * g * (3 - 2*g)
	return (a*(1-u)+b*u)*(1-v) + (c*(1-u)+d*u)*v
}

// Fractal sums octaves of Smooth, doubling frequency and halving amplitude from 0.5.
func Fractal(x, z float64, octaves int) float64 {
	return FractalOf(Value, x, z, octaves)
}

// Source is a smooth 2D noise in [0,1].
type Source interface {
	Smooth(x, z float64) float64
}

type valueSource struct{}

func (valueSource) Smooth(x, z float64) float64 { return Smooth(x, z) }

// Value is the reference lattice value noise.
var Value Source = valueSource{}

func FractalOf(src Source, x, z float64, octaves int) float64 {
	value := 0.0
	amplitude := 0.5
	frequency := 1.0
	for i := 0; i < octaves; i++ {
		value += amplitude * src.Smooth(x*frequency, z*frequency)
		frequency *= 2
		amplitude *= 0.5
	}
	return value
}

type perlinSource struct {
	p *perlin.Perlin
}

func (s perlinSource) Smooth(x, z float64) float64 {
	return clamp01((s.p.Noise2D(x, z) + 1) * 0.5)
}

type simplexSource struct {
	n opensimplex.Noise
}

func (s simplexSource) Smooth(x, z float64) float64 {
	return clamp01(s.n.Eval2(x, z))
}

// NewSource builds a backend by name. "" and "value" return Value; the seed only
// affects the perlin and simplex backends.
func NewSource(backend string, seed int64) (Source, error) {
	switch backend {
	case "", "value":
		return Value, nil
	case "perlin":
		// One octave: FractalOf does the octave summing.
		return perlinSource{p: perlin.NewPerlin(2, 2, 1, seed)}, nil
	case "simplex":
		return simplexSource{n: opensimplex.NewNormalized(seed)}, nil
	default:
		return nil, fmt.Errorf("unknown noise backend %q", backend)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
