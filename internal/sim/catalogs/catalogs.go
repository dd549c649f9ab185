package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Colour ids the generator references directly. A palette file must define all of them.
const (
	DarkGreen     = "DARK_GREEN"
	Green         = "GREEN"
	Olive         = "OLIVE"
	BrightGreen   = "BRIGHT_GREEN"
	SandGreen     = "SAND_GREEN"
	Brown         = "BROWN"
	DarkBrown     = "DARK_BROWN"
	DarkTan       = "DARK_TAN"
	Tan           = "TAN"
	WarmTan       = "WARM_TAN"
	LightGray     = "LIGHT_GRAY"
	DarkGray      = "DARK_GRAY"
	VeryLightGray = "VERY_LIGHT_GRAY"
	BluishGray    = "BLUISH_GRAY"
	Black         = "BLACK"
	Water         = "WATER"
	Foam          = "FOAM"
	Red           = "RED"
	Gold          = "GOLD"
	Snow          = "SNOW"
)

var required = []string{DarkGreen, Green, Olive, Brown, DarkTan, DarkGray, BluishGray, Snow}

type Catalogs struct {
	Colors ColorCatalog

	// StoneVariants and FoliageVariants hold hex colours, in selection order.
	StoneVariants   []string
	FoliageVariants []string
	Highlight       string
}

type ColorCatalog struct {
	// Palette lists hex colours by palette id (file order).
	Palette       []string
	Index         map[string]uint16 // hex -> palette id
	ByID          map[string]string // colour id -> hex
	PaletteDigest string
	DefsDigest    string
}

type ColorDef struct {
	ID  string `json:"id"`
	Hex string `json:"hex"`
}

type paletteFile struct {
	Colors          []ColorDef `json:"colors"`
	StoneVariants   []string   `json:"stone_variants"`
	FoliageVariants []string   `json:"foliage_variants"`
	Highlight       string     `json:"highlight"`
}

// Load reads <configDir>/palette.json. A missing file falls back to the built-in palette.
func Load(configDir string) (*Catalogs, error) {
	raw, err := os.ReadFile(filepath.Join(configDir, "palette.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalogs, error) {
	var f paletteFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("palette.json: %w", err)
	}
	c, err := build(f)
	if err != nil {
		return nil, fmt.Errorf("palette.json: %w", err)
	}
	c.Colors.DefsDigest = sha256Hex(raw)
	return c, nil
}

// Default is the built-in LEGO-approximation palette.
func Default() *Catalogs {
	raw, _ := json.Marshal(defaultPalette)
	c, err := build(defaultPalette)
	if err != nil {
		panic(err)
	}
	c.Colors.DefsDigest = sha256Hex(raw)
	return c
}

var defaultPalette = paletteFile{
	Colors: []ColorDef{
		{ID: DarkGreen, Hex: "#2E5543"},
		{ID: Green, Hex: "#237841"},
		{ID: Olive, Hex: "#6B8E23"},
		{ID: BrightGreen, Hex: "#4B9F4A"},
		{ID: SandGreen, Hex: "#A0BCAC"},
		{ID: Brown, Hex: "#582A12"},
		{ID: DarkBrown, Hex: "#352100"},
		{ID: DarkTan, Hex: "#958A73"},
		{ID: Tan, Hex: "#E4CD9E"},
		{ID: WarmTan, Hex: "#D6C595"},
		{ID: LightGray, Hex: "#9BA19D"},
		{ID: DarkGray, Hex: "#635F52"},
		{ID: VeryLightGray, Hex: "#E5E4DE"},
		{ID: BluishGray, Hex: "#6C6E68"},
		{ID: Black, Hex: "#1B2A34"},
		{ID: Water, Hex: "#0055BF"},
		{ID: Foam, Hex: "#C0DFF6"},
		{ID: Red, Hex: "#C91A09"},
		{ID: Gold, Hex: "#C2B280"},
		{ID: Snow, Hex: "#FFFFFF"},
	},
	// Tans and grays of a sunlit wall.
	StoneVariants:   []string{LightGray, Tan, WarmTan, DarkTan, LightGray},
	FoliageVariants: []string{DarkGreen, Green, Olive, BrightGreen, SandGreen},
	Highlight:       "#FFDD00",
}

func build(f paletteFile) (*Catalogs, error) {
	c := &Catalogs{
		Colors: ColorCatalog{
			Index: map[string]uint16{},
			ByID:  map[string]string{},
		},
	}
	for i, d := range f.Colors {
		if d.ID == "" {
			return nil, fmt.Errorf("colors[%d]: empty id", i)
		}
		h := strings.ToUpper(d.Hex)
		if !isHexColor(h) {
			return nil, fmt.Errorf("colors[%d] %s: %q is not #RRGGBB", i, d.ID, d.Hex)
		}
		if _, dup := c.Colors.ByID[d.ID]; dup {
			return nil, fmt.Errorf("colors[%d]: duplicate id %s", i, d.ID)
		}
		c.Colors.ByID[d.ID] = h
		if _, ok := c.Colors.Index[h]; !ok {
			c.Colors.Index[h] = uint16(len(c.Colors.Palette))
			c.Colors.Palette = append(c.Colors.Palette, h)
		}
	}
	for _, id := range required {
		if _, ok := c.Colors.ByID[id]; !ok {
			return nil, fmt.Errorf("missing colour %s", id)
		}
	}

	var err error
	if c.StoneVariants, err = c.resolve("stone_variants", f.StoneVariants); err != nil {
		return nil, err
	}
	if c.FoliageVariants, err = c.resolve("foliage_variants", f.FoliageVariants); err != nil {
		return nil, err
	}

	c.Highlight = strings.ToUpper(f.Highlight)
	if c.Highlight == "" {
		c.Highlight = "#FFDD00"
	}
	if !isHexColor(c.Highlight) {
		return nil, fmt.Errorf("highlight %q is not #RRGGBB", f.Highlight)
	}

	palJSON, _ := json.Marshal(c.Colors.Palette)
	c.Colors.PaletteDigest = sha256Hex(palJSON)
	return c, nil
}

func (c *Catalogs) resolve(field string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", field)
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		h, ok := c.Colors.ByID[id]
		if !ok {
			return nil, fmt.Errorf("%s: unknown colour %s", field, id)
		}
		out = append(out, h)
	}
	return out, nil
}

// Hex returns the hex colour of a colour id, or "" if the id is unknown.
func (c *Catalogs) Hex(id string) string {
	return c.Colors.ByID[id]
}

// PaletteID maps a hex colour to its palette id.
func (c *Catalogs) PaletteID(hex string) (uint16, bool) {
	id, ok := c.Colors.Index[strings.ToUpper(hex)]
	return id, ok
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, ch := range s[1:] {
		switch {
		case ch >= '0' && ch <= '9':
		case ch >= 'A' && ch <= 'F':
		default:
			return false
		}
	}
	return true
}
