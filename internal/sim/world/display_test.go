package world

import (
	"errors"
	"testing"
)

// shown is the colour brick i is currently displayed in.
func shown(d *DisplayState, i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.override[i]; ok {
		return c
	}
	return d.w.bricks[i].Color
}

func TestHoverRestoresCanonicalColour(t *testing.T) {
	w := newTestWorld(t, 6, 6)
	d := NewDisplayState(w)
	b0, _ := w.Brick(0)
	b1, _ := w.Brick(1)

	ch, err := d.Hover(0)
	if err != nil {
		t.Fatalf("Hover: %v", err)
	}
	if len(ch) != 1 || ch[0].Color != "#FFDD00" {
		t.Fatalf("hover changes=%+v", ch)
	}
	if c := shown(d, 0); c != "#FFDD00" {
		t.Fatalf("displayed=%s", c)
	}
	if got, _ := w.Brick(0); got.Color != b0.Color {
		t.Fatalf("canonical colour mutated")
	}

	// Moving the hover restores the previous brick.
	ch, _ = d.Hover(1)
	if len(ch) != 2 || ch[0] != (DisplayChange{Index: 0, Color: b0.Color}) || ch[1].Index != 1 {
		t.Fatalf("hover move changes=%+v", ch)
	}
	if ch, _ := d.Hover(1); ch != nil {
		t.Fatalf("re-hover should be a no-op, got %+v", ch)
	}

	restored, ok, err := d.Unhover(1)
	if err != nil || !ok || restored.Color != b1.Color {
		t.Fatalf("Unhover=%+v,%v,%v", restored, ok, err)
	}
	if d.hovered >= 0 {
		t.Fatalf("still hovering %d", d.hovered)
	}
	if _, ok, _ := d.Unhover(1); ok {
		t.Fatalf("second unhover reported a change")
	}
	if c := shown(d, 1); c != b1.Color {
		t.Fatalf("displayed=%s want %s", c, b1.Color)
	}
}

func TestSelectAndDeselect(t *testing.T) {
	w := newTestWorld(t, 6, 6)
	d := NewDisplayState(w)

	if _, ok := d.Deselect(); ok {
		t.Fatalf("nothing was selected")
	}
	ins, err := d.Select(3)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	b3, _ := w.Brick(3)
	if ins.Index != 3 || ins.Brick != b3 || ins.Description == "" {
		t.Fatalf("inspection=%+v", ins)
	}
	if d.selected != 3 {
		t.Fatalf("selected=%d", d.selected)
	}
	if i, ok := d.Deselect(); !ok || i != 3 {
		t.Fatalf("Deselect=%d,%v", i, ok)
	}
}

func TestSelectDefaultsDescription(t *testing.T) {
	w := newTestWorld(t, 30, 20)
	d := NewDisplayState(w)
	for i, b := range w.Bricks() {
		if b.Description != "" {
			continue
		}
		ins, err := d.Select(i)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if ins.Description != DefaultDescription {
			t.Fatalf("description=%q", ins.Description)
		}
		return
	}
	t.Fatalf("no brick without a description")
}

func TestDisplayRejectsOutOfRange(t *testing.T) {
	w := newTestWorld(t, 4, 4)
	d := NewDisplayState(w)
	if _, err := d.Hover(w.Len()); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("Hover err=%v", err)
	}
	if _, _, err := d.Unhover(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("Unhover err=%v", err)
	}
	if _, err := d.Select(w.Len() + 5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("Select err=%v", err)
	}
	if d.selected != -1 || d.hovered != -1 {
		t.Fatalf("failed calls changed state: selected=%d hovered=%d", d.selected, d.hovered)
	}
}
