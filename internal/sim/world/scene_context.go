package world

import "fmt"

// SceneContext is the short description of the current scene handed to the guide.
func (w *World) SceneContext(t TimeOfDay) string {
	if t == "" {
		t = Day
	}
	s := fmt.Sprintf("Time of day: %s. The user is looking at a procedural LEGO model of the Great Wall, showing watchtowers on varied terrain.", t)
	if w == nil {
		return s
	}
	return s + fmt.Sprintf(" The model has %d watchtowers along %d wall columns, %d trees, and its highest ground reaches %d bricks.",
		w.watchtowers, w.counts.Walls, w.counts.Trees, w.counts.PeakY)
}
