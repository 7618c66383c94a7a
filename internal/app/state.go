// Package app holds the editing session: the current scene, the user's
// selections and the events hosts listen to.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"panelviz/internal/catalog"
	"panelviz/internal/compositor"
	pvimage "panelviz/internal/image"
	"panelviz/internal/project"
	"panelviz/internal/scale"
	"panelviz/internal/scene"
	"panelviz/pkg/geometry"

	"github.com/rs/zerolog"
)

// ErrNoScene is returned by operations that need a base image first.
var ErrNoScene = errors.New("no scene: load a photo first")

// Where new panels land, in pixels from the top-left of the photo.
var initialOrigin = geometry.PointInt{X: 50, Y: 50}

// EventType identifies state changes.
type EventType int

const (
	EventSceneCreated EventType = iota
	EventPanelsChanged
	EventScaleChanged
	EventSelectionChanged
	EventSceneLoaded
	EventSceneSaved
	EventModified
)

// EventListener is called after the change it was registered for. It runs
// on the goroutine that made the change.
type EventListener func(data any)

// Deps are the collaborators a State needs.
type Deps struct {
	Catalog       *catalog.Catalog
	Textures      compositor.TextureSource
	Scale         *scale.Resolver
	Render        compositor.Options // Scale is ignored; the resolved one is used
	InitialPanels int
	JPEGQuality   int
	Log           zerolog.Logger
}

// Selection is what the next added panel will look like.
type Selection struct {
	Surface   scene.Surface
	PanelType string
	Rotated   bool
	Texture   string
}

// NewPanel describes a panel to add. Empty fields fall back to the current
// selection; a nil Position puts the panel near the top-left corner.
type NewPanel struct {
	Type     string
	Texture  string
	Rotated  *bool
	Position *scene.Position
}

// Snapshot is a consistent copy of the session for display.
type Snapshot struct {
	Size            geometry.SizeInt `json:"size"`
	Surface         string           `json:"surface"`
	DeclaredWidthCm float64          `json:"declared_width_cm,omitempty"`
	Scale           float64          `json:"px_per_cm"`
	ScaleStrategy   string           `json:"scale_strategy"`
	PositionMode    string           `json:"position_mode"`
	Panels          []scene.Panel    `json:"panels"`
	Modified        bool             `json:"modified"`
}

// State is one editing session. It is safe for concurrent use.
type State struct {
	mu sync.RWMutex

	deps Deps
	log  zerolog.Logger

	scene           *scene.Scene
	basePath        string
	declaredWidthCm float64
	scale           scale.Result
	selection       Selection

	projectPath string
	modified    bool

	listeners map[EventType][]EventListener
}

// NewState creates a session with the first panel type and texture of the
// catalog selected.
func NewState(deps Deps) (*State, error) {
	if deps.Catalog == nil {
		return nil, errors.New("app: catalog is required")
	}
	if deps.Textures == nil {
		return nil, errors.New("app: texture source is required")
	}
	if len(deps.Catalog.PanelTypes) == 0 || len(deps.Catalog.Textures) == 0 {
		return nil, errors.New("app: catalog needs at least one panel type and one texture")
	}
	if deps.Scale == nil {
		deps.Scale = scale.NewResolver(scale.Config{Strategy: scale.KindManual}, nil, deps.Log)
	}
	if deps.JPEGQuality <= 0 {
		deps.JPEGQuality = pvimage.DefaultJPEGQuality
	}
	if deps.InitialPanels < 0 {
		deps.InitialPanels = 0
	}

	return &State{
		deps: deps,
		log:  deps.Log.With().Str("component", "state").Logger(),
		selection: Selection{
			Surface:   scene.SurfaceWall,
			PanelType: deps.Catalog.PanelTypes[0].Name,
			Texture:   deps.Catalog.Textures[0].Name,
		},
		listeners: make(map[EventType][]EventListener),
	}, nil
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data any) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

func (s *State) setModified(modified bool) {
	s.mu.Lock()
	s.modified = modified
	s.mu.Unlock()
	s.Emit(EventModified, modified)
}

// Catalog returns the catalog the session was created with.
func (s *State) Catalog() *catalog.Catalog {
	return s.deps.Catalog
}

// HasScene reports whether a photo has been loaded.
func (s *State) HasScene() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scene != nil
}

// Modified reports unsaved changes.
func (s *State) Modified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// ProjectPath is the file the scene was last saved to or loaded from.
func (s *State) ProjectPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectPath
}

// Selection returns the current selection.
func (s *State) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// SetSelection validates and stores sel. The surface also applies to the
// current scene.
func (s *State) SetSelection(sel Selection) error {
	cat := s.deps.Catalog
	if _, err := cat.PanelType(sel.PanelType); err != nil {
		return err
	}
	if _, err := cat.Texture(sel.Texture); err != nil {
		return err
	}

	s.mu.Lock()
	s.selection = sel
	if s.scene != nil {
		s.scene.SetSurface(sel.Surface)
	}
	s.mu.Unlock()

	s.Emit(EventSelectionChanged, sel)
	return nil
}

// DeclaredWidth returns the wall or ceiling width the user entered, or 0.
func (s *State) DeclaredWidth() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.declaredWidthCm
}

// Scale returns the resolved scale of the current scene.
func (s *State) Scale() scale.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scale
}

// Panels returns the panels in paint order, or nil without a scene.
func (s *State) Panels() []scene.Panel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.scene == nil {
		return nil
	}
	return s.scene.Panels()
}

// Panel returns one panel.
func (s *State) Panel(id string) (scene.Panel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.scene == nil {
		return scene.Panel{}, ErrNoScene
	}
	p, ok := s.scene.Panel(id)
	if !ok {
		return scene.Panel{}, fmt.Errorf("%w: %s", scene.ErrPanelNotFound, id)
	}
	return p, nil
}

// Snapshot returns a copy of the session for display.
func (s *State) Snapshot() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.scene == nil {
		return Snapshot{}, ErrNoScene
	}
	return Snapshot{
		Size:            s.scene.Size(),
		Surface:         s.scene.Surface().String(),
		DeclaredWidthCm: s.declaredWidthCm,
		Scale:           s.scale.PxPerCm,
		ScaleStrategy:   s.scale.Strategy,
		PositionMode:    s.deps.Render.Mode.String(),
		Panels:          s.scene.Panels(),
		Modified:        s.modified,
	}, nil
}

// LoadImage decodes the photo at path and starts a new scene on it.
func (s *State) LoadImage(ctx context.Context, path string) error {
	img, err := pvimage.Load(path)
	if err != nil {
		return err
	}
	return s.SetBaseImage(ctx, img, path)
}

// SetBaseImage starts a new scene on img, replacing the current one. The
// new scene is seeded with the configured number of panels of the current
// selection. source is remembered for saving and may be empty.
func (s *State) SetBaseImage(ctx context.Context, img image.Image, source string) error {
	s.mu.RLock()
	sel := s.selection
	width := s.declaredWidthCm
	s.mu.RUnlock()

	sc, err := scene.New(img, sel.Surface)
	if err != nil {
		return err
	}
	res := s.deps.Scale.Resolve(ctx, scale.Input{Image: img, DeclaredWidthCm: width})

	for i := 0; i < s.deps.InitialPanels; i++ {
		p, err := s.panelFromSelection(sc, sel, res.PxPerCm, NewPanel{})
		if err != nil {
			return err
		}
		if _, err := sc.Add(p); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.scene = sc
	s.basePath = source
	s.scale = res
	s.projectPath = ""
	s.mu.Unlock()

	s.log.Info().
		Str("source", source).
		Int("width", sc.Size().Width).
		Int("height", sc.Size().Height).
		Float64("px_per_cm", res.PxPerCm).
		Str("strategy", res.Strategy).
		Msg("Scene created")

	s.Emit(EventSceneCreated, sc.Size())
	s.Emit(EventScaleChanged, res)
	s.setModified(true)
	return nil
}

// SetDeclaredWidth records the real width of the photographed surface and
// re-resolves the scale. 0 means unknown.
func (s *State) SetDeclaredWidth(ctx context.Context, cm float64) error {
	if cm < 0 {
		return &scale.InvalidScaleError{Strategy: string(scale.KindManual), Reason: fmt.Sprintf("declared width %g cm is negative", cm)}
	}

	s.mu.Lock()
	s.declaredWidthCm = cm
	sc := s.scene
	s.mu.Unlock()

	if sc == nil {
		return nil
	}

	res := s.deps.Scale.Resolve(ctx, scale.Input{Image: sc.Base(), DeclaredWidthCm: cm})

	s.mu.Lock()
	if s.scene != sc {
		// Replaced while resolving; the new scene has its own scale.
		s.mu.Unlock()
		return nil
	}
	s.scale = res
	s.mu.Unlock()

	s.Emit(EventScaleChanged, res)
	s.setModified(true)
	return nil
}

// AddPanel appends a panel on top of the others.
func (s *State) AddPanel(np NewPanel) (scene.Panel, error) {
	s.mu.Lock()
	if s.scene == nil {
		s.mu.Unlock()
		return scene.Panel{}, ErrNoScene
	}
	p, err := s.panelFromSelection(s.scene, s.selection, s.scale.PxPerCm, np)
	if err == nil {
		p, err = s.scene.Add(p)
	}
	s.mu.Unlock()
	if err != nil {
		return scene.Panel{}, err
	}

	s.log.Debug().Str("panel", p.ID).Str("type", p.Type.Name).Str("texture", p.Texture.Name).Msg("Panel added")
	s.panelsChanged()
	return p, nil
}

// panelFromSelection resolves np against the catalog, filling gaps from sel.
func (s *State) panelFromSelection(sc *scene.Scene, sel Selection, pxPerCm float64, np NewPanel) (scene.Panel, error) {
	cat := s.deps.Catalog

	typeName := np.Type
	if typeName == "" {
		typeName = sel.PanelType
	}
	t, err := cat.PanelType(typeName)
	if err != nil {
		return scene.Panel{}, err
	}

	texName := np.Texture
	if texName == "" {
		texName = sel.Texture
	}
	tex, err := cat.Texture(texName)
	if err != nil {
		return scene.Panel{}, err
	}

	rotated := sel.Rotated
	if np.Rotated != nil {
		rotated = *np.Rotated
	}

	var pos scene.Position
	if np.Position != nil {
		pos = s.clampPosition(*np.Position)
	} else {
		size := compositor.PixelSize(t, rotated, pxPerCm)
		pos = compositor.NormalizePosition(sc.Size(), size, initialOrigin, s.deps.Render.Mode)
	}

	return scene.Panel{Type: t, Texture: tex, Position: pos, Rotated: rotated}, nil
}

func (s *State) clampPosition(p scene.Position) scene.Position {
	if s.deps.Render.Mode != compositor.PositionNormalized {
		return p
	}
	return scene.Position{
		X: geometry.ClampFloat(p.X, 0, 100),
		Y: geometry.ClampFloat(p.Y, 0, 100),
	}
}

// RemovePanel deletes a panel by id.
func (s *State) RemovePanel(id string) error {
	s.mu.Lock()
	if s.scene == nil {
		s.mu.Unlock()
		return ErrNoScene
	}
	err := s.scene.Remove(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.log.Debug().Str("panel", id).Msg("Panel removed")
	s.panelsChanged()
	return nil
}

// ApplyUpdate moves a panel. In normalized mode the position is clamped to
// 0-100 before it is stored.
func (s *State) ApplyUpdate(u scene.PositionUpdate) (scene.Panel, error) {
	u.Position = s.clampPosition(u.Position)
	return s.updatePanel(u.PanelID, func(p *scene.Panel) {
		p.Position = u.Position
	})
}

// MovePanelTo moves a panel so its top-left corner lands on origin, in
// photo pixels.
func (s *State) MovePanelTo(id string, origin geometry.PointInt) (scene.Panel, error) {
	s.mu.RLock()
	if s.scene == nil {
		s.mu.RUnlock()
		return scene.Panel{}, ErrNoScene
	}
	p, ok := s.scene.Panel(id)
	sceneSize := s.scene.Size()
	pxPerCm := s.scale.PxPerCm
	s.mu.RUnlock()
	if !ok {
		return scene.Panel{}, fmt.Errorf("%w: %s", scene.ErrPanelNotFound, id)
	}

	size := compositor.PixelSize(p.Type, p.Rotated, pxPerCm)
	pos := compositor.NormalizePosition(sceneSize, size, origin, s.deps.Render.Mode)
	return s.ApplyUpdate(scene.PositionUpdate{PanelID: id, Position: pos})
}

// RotatePanel toggles a panel between its upright and 90 degree forms.
func (s *State) RotatePanel(id string) (scene.Panel, error) {
	return s.updatePanel(id, func(p *scene.Panel) {
		p.Rotated = !p.Rotated
	})
}

// SetPanelTexture changes the fabric of one panel.
func (s *State) SetPanelTexture(id, textureName string) (scene.Panel, error) {
	tex, err := s.deps.Catalog.Texture(textureName)
	if err != nil {
		return scene.Panel{}, err
	}
	return s.updatePanel(id, func(p *scene.Panel) {
		p.Texture = tex
	})
}

func (s *State) updatePanel(id string, fn func(*scene.Panel)) (scene.Panel, error) {
	s.mu.Lock()
	if s.scene == nil {
		s.mu.Unlock()
		return scene.Panel{}, ErrNoScene
	}
	p, err := s.scene.Update(id, fn)
	s.mu.Unlock()
	if err != nil {
		return scene.Panel{}, err
	}

	s.panelsChanged()
	return p, nil
}

func (s *State) panelsChanged() {
	s.Emit(EventPanelsChanged, s.Panels())
	s.setModified(true)
}

// PanelAt returns the topmost panel under pt.
func (s *State) PanelAt(pt geometry.PointInt) (scene.Panel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.scene == nil {
		return scene.Panel{}, false
	}
	return compositor.HitTest(s.scene, pt, s.renderOptions())
}

// PanelBounds returns where a panel is drawn in the rendered image.
func (s *State) PanelBounds(id string) (geometry.RectInt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.scene == nil {
		return geometry.RectInt{}, ErrNoScene
	}
	p, ok := s.scene.Panel(id)
	if !ok {
		return geometry.RectInt{}, fmt.Errorf("%w: %s", scene.ErrPanelNotFound, id)
	}
	return compositor.PanelBounds(s.scene.Size(), p, s.renderOptions()), nil
}

func (s *State) renderOptions() compositor.Options {
	opts := s.deps.Render
	opts.Scale = s.scale.PxPerCm
	return opts
}

// Render composites the current scene.
func (s *State) Render() (*image.RGBA, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.scene == nil {
		return nil, ErrNoScene
	}
	return compositor.RenderScene(s.scene, s.renderOptions(), s.deps.Textures)
}

// ExportJPEG renders the scene and writes it to w as JPEG.
func (s *State) ExportJPEG(w io.Writer) error {
	img, err := s.Render()
	if err != nil {
		return err
	}
	return pvimage.EncodeJPEG(w, img, s.deps.JPEGQuality)
}

// ExportJPEGFile renders the scene into a JPEG file.
func (s *State) ExportJPEGFile(path string) error {
	img, err := s.Render()
	if err != nil {
		return err
	}
	if err := pvimage.SaveJPEG(path, img, s.deps.JPEGQuality); err != nil {
		return err
	}
	s.log.Info().Str("path", path).Msg("Render exported")
	return nil
}

// SaveScene writes the scene to a project file.
func (s *State) SaveScene(path string) error {
	s.mu.RLock()
	if s.scene == nil {
		s.mu.RUnlock()
		return ErrNoScene
	}
	if s.basePath == "" {
		s.mu.RUnlock()
		return errors.New("scene has no base image file to refer to")
	}
	proj := project.New(project.NameFromPath(path), s.scene.Surface())
	proj.SetBaseImage(path, s.basePath)
	proj.DeclaredWidthCm = s.declaredWidthCm
	proj.PositionMode = s.deps.Render.Mode.String()
	proj.SetPanels(s.scene)
	s.mu.RUnlock()

	if err := proj.Save(path); err != nil {
		return err
	}

	s.mu.Lock()
	s.projectPath = path
	s.modified = false
	s.mu.Unlock()

	s.Emit(EventSceneSaved, path)
	s.Emit(EventModified, false)
	return nil
}

// LoadScene replaces the session with a saved scene. On error the current
// scene is kept.
func (s *State) LoadScene(ctx context.Context, path string) error {
	proj, err := project.Load(path)
	if err != nil {
		return err
	}
	if proj.PositionMode != "" && proj.PositionMode != s.deps.Render.Mode.String() {
		return fmt.Errorf("%s was saved with %s positions, this session uses %s",
			path, proj.PositionMode, s.deps.Render.Mode)
	}

	surface, err := proj.SceneSurface()
	if err != nil {
		return err
	}
	panels, err := proj.ScenePanels(s.deps.Catalog)
	if err != nil {
		return err
	}

	basePath := proj.GetBaseImagePath(path)
	if basePath == "" {
		return fmt.Errorf("%s has no base image", path)
	}
	img, err := pvimage.Load(basePath)
	if err != nil {
		return err
	}

	sc, err := scene.New(img, surface)
	if err != nil {
		return err
	}
	for _, p := range panels {
		if _, err := sc.Add(p); err != nil {
			return err
		}
	}
	res := s.deps.Scale.Resolve(ctx, scale.Input{Image: img, DeclaredWidthCm: proj.DeclaredWidthCm})

	s.mu.Lock()
	s.scene = sc
	s.basePath = basePath
	s.declaredWidthCm = proj.DeclaredWidthCm
	s.scale = res
	s.selection.Surface = surface
	s.projectPath = path
	s.modified = false
	s.mu.Unlock()

	s.log.Info().Str("path", path).Int("panels", len(panels)).Msg("Scene loaded")

	s.Emit(EventSceneLoaded, path)
	s.Emit(EventScaleChanged, res)
	s.Emit(EventPanelsChanged, sc.Panels())
	s.Emit(EventModified, false)
	return nil
}
