package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`
	WorldID         string `yaml:"world_id"`

	WorldGen WorldGen `yaml:"worldgen"`
	Guide    Guide    `yaml:"guide"`
	Server   Server   `yaml:"server"`
}

// WorldGen holds every constant the brick generator reads. Defaults reproduce the
// Great Wall scene: a 161x101 column grid with a serpentine wall along the ridge.
type WorldGen struct {
	SizeX int `yaml:"size_x"`
	SizeZ int `yaml:"size_z"`

	// NoiseBackend drives the slope and roughness terms: "value", "perlin" or "simplex".
	NoiseBackend string `yaml:"noise_backend"`
	NoiseSeed    int64  `yaml:"noise_seed"`

	FillCap int `yaml:"fill_cap"`

	SnowElevation    int     `yaml:"snow_elevation"`
	SnowMinDistance  float64 `yaml:"snow_min_distance"`
	RockElevation    int     `yaml:"rock_elevation"`
	GraniteThreshold float64 `yaml:"granite_threshold"`
	LimestoneThresh  float64 `yaml:"limestone_threshold"`

	WallHeightBase     int     `yaml:"wall_height_base"`
	TowerHeightBonus   int     `yaml:"tower_height_bonus"`
	TowerInterval      int     `yaml:"tower_interval"`
	TowerZoneHalfWidth int     `yaml:"tower_zone_half_width"`
	WallHalfWidth      float64 `yaml:"wall_half_width"`
	TowerHalfWidth     float64 `yaml:"tower_half_width"`
	WallEdgeDistance   float64 `yaml:"wall_edge_distance"`
	TowerEdgeDistance  float64 `yaml:"tower_edge_distance"`
	TowerEdgePhase     int     `yaml:"tower_edge_phase"`
	WindowMinHeight    int     `yaml:"window_min_height"`
	WindowEvery        int     `yaml:"window_every"`

	VegetationMaxElevation int     `yaml:"vegetation_max_elevation"`
	VegetationSeed         int64   `yaml:"vegetation_seed"`
	TreeThreshold          float64 `yaml:"tree_threshold"`
	TreeMinDistance        float64 `yaml:"tree_min_distance"`
	TreeMinHeight          int     `yaml:"tree_min_height"`
	TreeHeightRange        int     `yaml:"tree_height_range"`
	BushThreshold          float64 `yaml:"bush_threshold"`
	BushMinDistance        float64 `yaml:"bush_min_distance"`
}

type Guide struct {
	Model      string `yaml:"model"`
	TimeoutMS  int    `yaml:"timeout_ms"`
	MaxHistory int    `yaml:"max_history"`
}

func (g Guide) Timeout() time.Duration {
	return time.Duration(g.TimeoutMS) * time.Millisecond
}

type Server struct {
	ChunkRadius    int `yaml:"chunk_radius"`
	MaxChunkRadius int `yaml:"max_chunk_radius"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		WorldID:         "great_wall",
		WorldGen:        DefaultWorldGen(),
		Guide: Guide{
			Model:      "gemini-2.5-flash",
			TimeoutMS:  20_000,
			MaxHistory: 32,
		},
		Server: Server{
			ChunkRadius:    8,
			MaxChunkRadius: 32,
		},
	}
}

func DefaultWorldGen() WorldGen {
	return WorldGen{
		SizeX:        80,
		SizeZ:        50,
		NoiseBackend: "value",
		NoiseSeed:    1337,
		FillCap:      6,

		SnowElevation:    28,
		SnowMinDistance:  10,
		RockElevation:    15,
		GraniteThreshold: 0.6,
		LimestoneThresh:  0.3,

		WallHeightBase:     7,
		TowerHeightBonus:   5,
		TowerInterval:      35,
		TowerZoneHalfWidth: 4,
		WallHalfWidth:      1.5,
		TowerHalfWidth:     4.5,
		WallEdgeDistance:   0.5,
		TowerEdgeDistance:  3.5,
		TowerEdgePhase:     2,
		WindowMinHeight:    4,
		WindowEvery:        3,

		VegetationMaxElevation: 25,
		VegetationSeed:         1337,
		TreeThreshold:          0.97,
		TreeMinDistance:        3,
		TreeMinHeight:          3,
		TreeHeightRange:        4,
		BushThreshold:          0.90,
		BushMinDistance:        2,
	}
}

// Load reads a tuning file on top of Defaults. Read errors are returned unwrapped so
// callers can test them with os.IsNotExist.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.WorldID == "" {
		return fmt.Errorf("world_id must be set")
	}
	if err := t.WorldGen.Validate(); err != nil {
		return err
	}
	if t.Guide.TimeoutMS <= 0 {
		return fmt.Errorf("guide.timeout_ms must be positive")
	}
	if t.Guide.MaxHistory < 0 {
		return fmt.Errorf("guide.max_history cannot be negative")
	}
	if t.Server.ChunkRadius <= 0 || t.Server.MaxChunkRadius < t.Server.ChunkRadius {
		return fmt.Errorf("server.chunk_radius must be positive and <= server.max_chunk_radius")
	}
	return nil
}

// Validate rejects configurations the generator cannot run with. These are programming
// errors, so the generator refuses to start rather than clamping.
func (g WorldGen) Validate() error {
	switch {
	case g.SizeX < 0:
		return fmt.Errorf("worldgen.size_x must be >= 0, got %d", g.SizeX)
	case g.SizeZ < 0:
		return fmt.Errorf("worldgen.size_z must be >= 0, got %d", g.SizeZ)
	case g.TowerInterval <= 0:
		return fmt.Errorf("worldgen.tower_interval must be positive, got %d", g.TowerInterval)
	case g.TowerZoneHalfWidth < 0:
		return fmt.Errorf("worldgen.tower_zone_half_width cannot be negative")
	case g.WallHeightBase < 2:
		return fmt.Errorf("worldgen.wall_height_base must be >= 2, got %d", g.WallHeightBase)
	case g.TowerHeightBonus < 0:
		return fmt.Errorf("worldgen.tower_height_bonus cannot be negative")
	case g.WallHalfWidth <= 0 || g.TowerHalfWidth <= 0:
		return fmt.Errorf("worldgen wall/tower half widths must be positive")
	case g.FillCap < 0:
		return fmt.Errorf("worldgen.fill_cap cannot be negative")
	case g.WindowEvery <= 0:
		return fmt.Errorf("worldgen.window_every must be positive, got %d", g.WindowEvery)
	case g.TreeMinHeight < 1 || g.TreeHeightRange < 1:
		return fmt.Errorf("worldgen tree heights must be positive")
	case g.BushThreshold > g.TreeThreshold:
		return fmt.Errorf("worldgen.bush_threshold must be <= tree_threshold")
	}
	switch g.NoiseBackend {
	case "", "value", "perlin", "simplex":
	default:
		return fmt.Errorf("worldgen.noise_backend %q unknown (value, perlin, simplex)", g.NoiseBackend)
	}
	return nil
}

// Digest identifies a generator configuration in logs and the run index.
func (g WorldGen) Digest() string {
	b, err := yaml.Marshal(g)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
