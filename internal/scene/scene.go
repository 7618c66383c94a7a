// Package scene holds a base photo and the ordered list of panels placed on
// it. List order is paint order: later panels are drawn on top.
package scene

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"panelviz/internal/catalog"
	"panelviz/pkg/geometry"

	"github.com/google/uuid"
)

var (
	ErrPanelNotFound  = errors.New("panel not found")
	ErrDuplicatePanel = errors.New("duplicate panel id")
	ErrNoBaseImage    = errors.New("scene needs a base image")
)

// Surface is what the photo shows.
type Surface int

const (
	SurfaceWall Surface = iota
	SurfaceCeiling
)

func (s Surface) String() string {
	switch s {
	case SurfaceCeiling:
		return "ceiling"
	default:
		return "wall"
	}
}

// ParseSurface maps "wall" / "ceiling" (case-insensitive) to a Surface.
// An empty string means wall.
func ParseSurface(s string) (Surface, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wall":
		return SurfaceWall, nil
	case "ceiling":
		return SurfaceCeiling, nil
	default:
		return SurfaceWall, fmt.Errorf("unknown surface %q", s)
	}
}

// Position is a panel's placement. Depending on the deployment's position
// mode it is either a percentage of the free range on each axis (0-100) or
// the top-left corner in pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Panel is one placed panel.
type Panel struct {
	ID       string            `json:"id"`
	Type     catalog.PanelType `json:"type"`
	Texture  catalog.Texture   `json:"texture"`
	Position Position          `json:"position"`
	Rotated  bool              `json:"rotated"`
}

// PositionUpdate moves one panel. It is what a drag produces.
type PositionUpdate struct {
	PanelID  string   `json:"panel_id"`
	Position Position `json:"position"`
}

// Scene is a base image plus its panels. A Scene is not safe for
// concurrent mutation; its owner serialises access.
type Scene struct {
	base    image.Image
	surface Surface
	panels  []Panel
}

// New creates an empty scene over base.
func New(base image.Image, surface Surface) (*Scene, error) {
	if base == nil || base.Bounds().Empty() {
		return nil, ErrNoBaseImage
	}
	return &Scene{base: base, surface: surface}, nil
}

// Base returns the photo the scene is drawn on.
func (s *Scene) Base() image.Image {
	return s.base
}

// Size returns the base image size in pixels.
func (s *Scene) Size() geometry.SizeInt {
	return geometry.SizeOf(s.base.Bounds())
}

// Surface returns what the photo shows.
func (s *Scene) Surface() Surface {
	return s.surface
}

// SetSurface changes what the photo shows.
func (s *Scene) SetSurface(surface Surface) {
	s.surface = surface
}

// Len returns the number of panels.
func (s *Scene) Len() int {
	return len(s.panels)
}

// Panels returns a copy of the panels in paint order.
func (s *Scene) Panels() []Panel {
	out := make([]Panel, len(s.panels))
	copy(out, s.panels)
	return out
}

// Panel returns the panel with id.
func (s *Scene) Panel(id string) (Panel, bool) {
	i := s.index(id)
	if i < 0 {
		return Panel{}, false
	}
	return s.panels[i], true
}

// Add appends p on top of the existing panels. An empty ID is replaced by a
// fresh UUID; a given ID must not already be present.
func (s *Scene) Add(p Panel) (Panel, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if s.index(p.ID) >= 0 {
		return Panel{}, fmt.Errorf("%w: %s", ErrDuplicatePanel, p.ID)
	}
	s.panels = append(s.panels, p)
	return p, nil
}

// Remove deletes the panel with id, keeping the order of the others.
func (s *Scene) Remove(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}
	s.panels = append(s.panels[:i:i], s.panels[i+1:]...)
	return nil
}

// Update applies fn to the panel with id in place. The ID cannot be changed
// and the panel keeps its position in paint order.
func (s *Scene) Update(id string, fn func(*Panel)) (Panel, error) {
	i := s.index(id)
	if i < 0 {
		return Panel{}, fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}
	p := s.panels[i]
	fn(&p)
	p.ID = id
	s.panels[i] = p
	return p, nil
}

// Apply moves a panel according to u.
func (s *Scene) Apply(u PositionUpdate) (Panel, error) {
	return s.Update(u.PanelID, func(p *Panel) {
		p.Position = u.Position
	})
}

// Rotate toggles the 90 degree rotation of a panel.
func (s *Scene) Rotate(id string) (Panel, error) {
	return s.Update(id, func(p *Panel) {
		p.Rotated = !p.Rotated
	})
}

func (s *Scene) index(id string) int {
	for i := range s.panels {
		if s.panels[i].ID == id {
			return i
		}
	}
	return -1
}
