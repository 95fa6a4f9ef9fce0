// Package view tracks which studio screen a session has open.
package view

import (
	"errors"
	"slices"
	"sync"
)

var ErrUnknownTab = errors.New("unknown tab")

type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabImages    Tab = "images"
	TabVideos    Tab = "videos"
	TabText      Tab = "text"
	TabSocial    Tab = "social"
	TabGallery   Tab = "gallery"
	TabCredits   Tab = "credits"
)

var Tabs = []Tab{TabDashboard, TabImages, TabVideos, TabText, TabSocial, TabGallery, TabCredits}

var labels = map[Tab]string{
	TabDashboard: "Dashboard",
	TabImages:    "Imágenes",
	TabVideos:    "Videos",
	TabText:      "Texto",
	TabSocial:    "Redes Sociales",
	TabGallery:   "Galería",
	TabCredits:   "Créditos",
}

func (t Tab) Label() string {
	return labels[t]
}

func (t Tab) Valid() bool {
	return slices.Contains(Tabs, t)
}

// Coordinator only records the active tab. Switching never touches credits,
// content, payments or running generations.
type Coordinator struct {
	mu     sync.RWMutex
	active Tab
}

func NewCoordinator() *Coordinator {
	return &Coordinator{active: TabDashboard}
}

func (c *Coordinator) Active() Tab {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Select switches tabs and reports whether the active tab changed.
func (c *Coordinator) Select(t Tab) (bool, error) {
	if !t.Valid() {
		return false, ErrUnknownTab
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := c.active != t
	c.active = t
	return changed, nil
}
