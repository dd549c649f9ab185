package world

import (
	"sync"

	"brickwall.dev/internal/sim/world/terrain/store"
)

// DefaultDescription is shown by inspectors for bricks without their own description.
const DefaultDescription = "A standard high-quality ABS plastic brick used to construct this procedural world."

// DisplayChange tells the renderer to show a brick in a colour.
type DisplayChange struct {
	Index int    `json:"index"`
	Color string `json:"color"`
}

// Inspection is the full record of a selected brick.
type Inspection struct {
	Index       int         `json:"index"`
	Brick       store.Brick `json:"brick"`
	Description string      `json:"description"`
}

// DisplayState is one viewer's interaction state: a hover highlight held as a transient
// colour override and a selection. Canonical bricks are never modified.
type DisplayState struct {
	mu sync.Mutex
	w  *World

	highlight string
	override  map[int]string
	hovered   int
	selected  int
}

func NewDisplayState(w *World) *DisplayState {
	return &DisplayState{
		w:         w,
		highlight: w.catalogs.Highlight,
		override:  map[int]string{},
		hovered:   -1,
		selected:  -1,
	}
}

// Hover highlights brick i and restores the previously hovered brick, if any.
func (d *DisplayState) Hover(i int) ([]DisplayChange, error) {
	if _, err := d.w.Brick(i); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hovered == i {
		return nil, nil
	}
	var out []DisplayChange
	if d.hovered >= 0 {
		out = append(out, d.restoreLocked(d.hovered))
	}
	d.hovered = i
	d.override[i] = d.highlight
	out = append(out, DisplayChange{Index: i, Color: d.highlight})
	return out, nil
}

// Unhover restores brick i. It reports false when i carried no override.
func (d *DisplayState) Unhover(i int) (DisplayChange, bool, error) {
	if _, err := d.w.Brick(i); err != nil {
		return DisplayChange{}, false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.override[i]; !ok {
		return DisplayChange{}, false, nil
	}
	if d.hovered == i {
		d.hovered = -1
	}
	return d.restoreLocked(i), true, nil
}

func (d *DisplayState) restoreLocked(i int) DisplayChange {
	delete(d.override, i)
	b := d.w.bricks[i]
	return DisplayChange{Index: i, Color: b.Color}
}

// Select makes brick i the selection and returns its canonical record.
func (d *DisplayState) Select(i int) (Inspection, error) {
	b, err := d.w.Brick(i)
	if err != nil {
		return Inspection{}, err
	}
	d.mu.Lock()
	d.selected = i
	d.mu.Unlock()

	desc := b.Description
	if desc == "" {
		desc = DefaultDescription
	}
	return Inspection{Index: i, Brick: b, Description: desc}, nil
}

// Deselect clears the selection and returns the index that was selected.
func (d *DisplayState) Deselect() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.selected
	d.selected = -1
	return prev, prev >= 0
}
