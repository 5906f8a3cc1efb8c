// Package session bundles the process-lifetime state shared by every
// connection. Each resource carries its own lock; nothing here serializes
// unrelated operations.
package session

import (
	"deskrelay/internal/canvas"
	"deskrelay/internal/capture"
	"deskrelay/internal/settings"
)

type State struct {
	Scale    *canvas.ScaleState
	Mapper   *canvas.Mapper
	Frames   *capture.Cache
	Settings *settings.Store
	Script   *Script
}

// New returns fresh state. The mapper is the identity until the first
// capture reports the physical resolution.
func New(initialSettings map[string]any, turns [][]string) *State {
	scale := canvas.NewScaleState()
	return &State{
		Scale:    scale,
		Mapper:   canvas.NewMapper(scale),
		Frames:   capture.NewCache(),
		Settings: settings.NewStore(initialSettings),
		Script:   NewScript(turns),
	}
}
