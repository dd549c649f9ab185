package world

import (
	"fmt"
	"strings"
)

type TimeOfDay string

const (
	Day    TimeOfDay = "day"
	Sunset TimeOfDay = "sunset"
	Night  TimeOfDay = "night"
)

var TimesOfDay = []TimeOfDay{Day, Sunset, Night}

// ParseTimeOfDay accepts day, sunset or night in any case. Empty means day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	switch TimeOfDay(strings.ToLower(strings.TrimSpace(s))) {
	case "", Day:
		return Day, nil
	case Sunset:
		return Sunset, nil
	case Night:
		return Night, nil
	}
	return "", fmt.Errorf("unknown time of day %q (day, sunset, night)", s)
}

type Light struct {
	Color     string     `json:"color"`
	Intensity float64    `json:"intensity"`
	Position  [3]float64 `json:"position,omitempty"`
}

// Lighting is the render preset for a time of day. The renderer owns the actual lights;
// these are the values it should use.
type Lighting struct {
	TimeOfDay   TimeOfDay  `json:"time_of_day"`
	Background  string     `json:"background"`
	Fog         [2]float64 `json:"fog"`
	Environment string     `json:"environment"`
	Ambient     Light      `json:"ambient"`
	Sun         Light      `json:"sun"`
	Spot        Light      `json:"spot"`
}

func LightingFor(t TimeOfDay) Lighting {
	l := Lighting{
		TimeOfDay:   Day,
		Background:  "#87CEEB",
		Fog:         [2]float64{50, 200},
		Environment: "park",
		Ambient:     Light{Color: "#CCCCFF", Intensity: 0.3},
		Sun:         Light{Color: "#FFF5E0", Intensity: 2.5, Position: [3]float64{80, 60, 50}},
		Spot:        Light{Color: "#FFFFFF", Intensity: 0.5, Position: [3]float64{-100, 80, -100}},
	}
	switch t {
	case Sunset:
		l.TimeOfDay = Sunset
		l.Background = "#5D2E1F"
		l.Environment = "sunset"
		l.Sun = Light{Color: "#FFAA00", Intensity: 2.0, Position: [3]float64{-80, 30, -20}}
		l.Spot.Color = "#FF6600"
		l.Spot.Intensity = 1.5
	case Night:
		l.TimeOfDay = Night
		l.Background = "#050510"
		l.Environment = "city"
		l.Ambient = Light{Color: "#111133", Intensity: 0.1}
		l.Sun = Light{Color: "#8899FF", Intensity: 0.5, Position: [3]float64{50, 80, 50}}
	}
	return l
}
