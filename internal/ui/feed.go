package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/and161185/wave-portal/internal/controller"
)

// StateMsg carries a controller state into the program.
type StateMsg controller.State

// Feed hands the newest controller state to the UI. Publish never blocks, so it is safe as a
// controller.Config.OnChange hook; intermediate states may be skipped.
type Feed struct{ ch chan controller.State }

// NewFeed creates an empty feed.
func NewFeed() *Feed { return &Feed{ch: make(chan controller.State, 1)} }

// Publish replaces any unread state with s. It must have a single caller goroutine.
func (f *Feed) Publish(s controller.State) {
	select {
	case <-f.ch:
	default:
	}
	f.ch <- s
}

func (f *Feed) next() tea.Cmd {
	return func() tea.Msg { return StateMsg(<-f.ch) }
}
