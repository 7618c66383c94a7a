package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"panelviz/internal/catalog"
	"panelviz/internal/compositor"
	pvimage "panelviz/internal/image"
	"panelviz/internal/scale"
	"panelviz/internal/scene"
	"panelviz/internal/texture"
	"panelviz/pkg/geometry"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTextures map[string]image.Image

func (m memTextures) Texture(t catalog.Texture) (image.Image, error) {
	img, ok := m[t.Name]
	if !ok {
		return nil, &texture.LoadError{Name: t.Name, Path: t.AssetPath, Err: os.ErrNotExist}
	}
	return img, nil
}

func swatch(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func newTestState(t *testing.T, initial int) *State {
	t.Helper()
	cat, err := catalog.Build(catalog.File{
		Textures: []catalog.Texture{
			{Name: "Sand", AssetPath: "/tex/sand.jpg"},
			{Name: "Grey", AssetPath: "/tex/grey.jpg"},
			{Name: "Missing", AssetPath: "/tex/missing.jpg"},
		},
	}, "")
	require.NoError(t, err)

	log := zerolog.Nop()
	st, err := NewState(Deps{
		Catalog: cat,
		Textures: memTextures{
			"Sand": swatch(color.RGBA{R: 210, G: 190, B: 150, A: 255}),
			"Grey": swatch(color.RGBA{R: 120, G: 120, B: 120, A: 255}),
		},
		Scale:         scale.NewResolver(scale.Config{Strategy: scale.KindManual, DefaultPxPerCm: 1}, nil, log),
		Render:        compositor.DefaultOptions(0),
		InitialPanels: initial,
		Log:           log,
	})
	require.NoError(t, err)
	return st
}

func photo(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 240, 235, 225, 255
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestNewStateValidatesDeps(t *testing.T) {
	_, err := NewState(Deps{})
	assert.Error(t, err)

	cat, err := catalog.Build(catalog.File{Textures: []catalog.Texture{{Name: "Sand", AssetPath: "s.jpg"}}}, "")
	require.NoError(t, err)
	_, err = NewState(Deps{Catalog: cat})
	assert.Error(t, err)

	st, err := NewState(Deps{Catalog: cat, Textures: memTextures{}})
	require.NoError(t, err)
	sel := st.Selection()
	assert.Equal(t, "M", sel.PanelType)
	assert.Equal(t, "Sand", sel.Texture)
	assert.Equal(t, scene.SurfaceWall, sel.Surface)
}

func TestOperationsNeedScene(t *testing.T) {
	st := newTestState(t, 0)

	_, err := st.AddPanel(NewPanel{})
	assert.ErrorIs(t, err, ErrNoScene)
	assert.ErrorIs(t, st.RemovePanel("x"), ErrNoScene)
	_, err = st.RotatePanel("x")
	assert.ErrorIs(t, err, ErrNoScene)
	_, err = st.Render()
	assert.ErrorIs(t, err, ErrNoScene)
	_, err = st.Snapshot()
	assert.ErrorIs(t, err, ErrNoScene)
	assert.Nil(t, st.Panels())
	assert.False(t, st.HasScene())

	// Declaring a width before any photo is fine.
	require.NoError(t, st.SetDeclaredWidth(context.Background(), 400))
	assert.Equal(t, 400.0, st.DeclaredWidth())
}

func TestSetBaseImageSeedsPanels(t *testing.T) {
	st := newTestState(t, 3)

	var created, scaled, changed int
	st.On(EventSceneCreated, func(any) { created++ })
	st.On(EventScaleChanged, func(any) { scaled++ })
	st.On(EventModified, func(any) { changed++ })

	require.NoError(t, st.SetBaseImage(context.Background(), photo(900, 600), ""))

	assert.Equal(t, 1, created)
	assert.Equal(t, 1, scaled)
	assert.Equal(t, 1, changed)
	assert.True(t, st.Modified())

	panels := st.Panels()
	require.Len(t, panels, 3)
	ids := map[string]bool{}
	for _, p := range panels {
		ids[p.ID] = true
		assert.Equal(t, "M", p.Type.Name)
	}
	assert.Len(t, ids, 3)

	// No declared width: manual fails and the fixed default is used.
	res := st.Scale()
	assert.Equal(t, 1.0, res.PxPerCm)
	assert.Equal(t, "fixed", res.Strategy)
	assert.Len(t, res.Fallbacks, 1)

	// New panels start 50px from the top-left corner.
	b, err := st.PanelBounds(panels[0].ID)
	require.NoError(t, err)
	assert.Equal(t, geometry.RectInt{X: 50, Y: 50, Width: 60, Height: 60}, b)
}

func TestWallScenario(t *testing.T) {
	st := newTestState(t, 0)
	ctx := context.Background()
	require.NoError(t, st.SetDeclaredWidth(ctx, 400))
	require.NoError(t, st.SetBaseImage(ctx, photo(900, 600), ""))

	res := st.Scale()
	assert.InDelta(t, 2.25, res.PxPerCm, 1e-12)
	assert.Equal(t, "manual", res.Strategy)

	p, err := st.AddPanel(NewPanel{Type: "L", Texture: "Sand"})
	require.NoError(t, err)

	b, err := st.PanelBounds(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 135, b.Width)
	assert.Equal(t, 270, b.Height)

	_, err = st.RotatePanel(p.ID)
	require.NoError(t, err)
	b, err = st.PanelBounds(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 270, b.Width)
	assert.Equal(t, 135, b.Height)

	img, err := st.Render()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 900, 600), img.Bounds())
}

func TestSetDeclaredWidthRescales(t *testing.T) {
	st := newTestState(t, 0)
	ctx := context.Background()
	require.NoError(t, st.SetBaseImage(ctx, photo(900, 600), ""))

	var got scale.Result
	st.On(EventScaleChanged, func(data any) { got = data.(scale.Result) })

	require.NoError(t, st.SetDeclaredWidth(ctx, 300))
	assert.InDelta(t, 3.0, got.PxPerCm, 1e-12)
	assert.InDelta(t, 3.0, st.Scale().PxPerCm, 1e-12)

	var invalid *scale.InvalidScaleError
	assert.True(t, errors.As(st.SetDeclaredWidth(ctx, -1), &invalid))
	assert.InDelta(t, 3.0, st.Scale().PxPerCm, 1e-12)
}

func TestAddAndRemovePanels(t *testing.T) {
	st := newTestState(t, 0)
	require.NoError(t, st.SetBaseImage(context.Background(), photo(900, 600), ""))

	rotated := true
	a, err := st.AddPanel(NewPanel{Type: "XL", Texture: "Grey", Rotated: &rotated, Position: &scene.Position{X: 20, Y: 30}})
	require.NoError(t, err)
	b, err := st.AddPanel(NewPanel{})
	require.NoError(t, err)

	require.NoError(t, st.RemovePanel(b.ID))

	panels := st.Panels()
	require.Len(t, panels, 1)
	assert.Equal(t, a, panels[0])
	assert.Equal(t, "XL", panels[0].Type.Name)
	assert.True(t, panels[0].Rotated)
	assert.Equal(t, scene.Position{X: 20, Y: 30}, panels[0].Position)

	assert.ErrorIs(t, st.RemovePanel(b.ID), scene.ErrPanelNotFound)

	_, err = st.AddPanel(NewPanel{Type: "Huge"})
	assert.ErrorIs(t, err, catalog.ErrUnknownPanelType)
	_, err = st.AddPanel(NewPanel{Texture: "Plaid"})
	assert.ErrorIs(t, err, catalog.ErrUnknownTexture)
	assert.Len(t, st.Panels(), 1)
}

func TestApplyUpdateClampsNormalized(t *testing.T) {
	st := newTestState(t, 1)
	require.NoError(t, st.SetBaseImage(context.Background(), photo(900, 600), ""))
	id := st.Panels()[0].ID

	var events int
	st.On(EventPanelsChanged, func(any) { events++ })

	p, err := st.ApplyUpdate(scene.PositionUpdate{PanelID: id, Position: scene.Position{X: 140, Y: -3}})
	require.NoError(t, err)
	assert.Equal(t, scene.Position{X: 100, Y: 0}, p.Position)
	assert.Equal(t, 1, events)

	_, err = st.ApplyUpdate(scene.PositionUpdate{PanelID: "nope"})
	assert.ErrorIs(t, err, scene.ErrPanelNotFound)
	assert.Equal(t, 1, events)
}

func TestMovePanelTo(t *testing.T) {
	st := newTestState(t, 0)
	ctx := context.Background()
	require.NoError(t, st.SetDeclaredWidth(ctx, 400))
	require.NoError(t, st.SetBaseImage(ctx, photo(900, 600), ""))

	p, err := st.AddPanel(NewPanel{Type: "L"})
	require.NoError(t, err)

	moved, err := st.MovePanelTo(p.ID, geometry.PointInt{X: 765, Y: 330})
	require.NoError(t, err)
	assert.InDelta(t, 100, moved.Position.X, 1e-9)
	assert.InDelta(t, 100, moved.Position.Y, 1e-9)

	b, err := st.PanelBounds(p.ID)
	require.NoError(t, err)
	assert.Equal(t, geometry.RectInt{X: 765, Y: 330, Width: 135, Height: 270}, b)

	got, ok := st.PanelAt(geometry.PointInt{X: 800, Y: 400})
	require.True(t, ok)
	assert.Equal(t, p.ID, got.ID)
	_, ok = st.PanelAt(geometry.PointInt{X: 10, Y: 10})
	assert.False(t, ok)
}

func TestSetPanelTexture(t *testing.T) {
	st := newTestState(t, 1)
	require.NoError(t, st.SetBaseImage(context.Background(), photo(300, 300), ""))
	id := st.Panels()[0].ID

	p, err := st.SetPanelTexture(id, "Sand")
	require.NoError(t, err)
	assert.Equal(t, "Sand", p.Texture.Name)

	_, err = st.SetPanelTexture(id, "Plaid")
	assert.ErrorIs(t, err, catalog.ErrUnknownTexture)
	got, err := st.Panel(id)
	require.NoError(t, err)
	assert.Equal(t, "Sand", got.Texture.Name)
}

func TestRenderMissingTexture(t *testing.T) {
	st := newTestState(t, 0)
	require.NoError(t, st.SetBaseImage(context.Background(), photo(300, 300), ""))
	_, err := st.AddPanel(NewPanel{Texture: "Missing"})
	require.NoError(t, err)

	img, err := st.Render()
	assert.Nil(t, img)
	var loadErr *texture.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "Missing", loadErr.Name)

	var buf bytes.Buffer
	assert.Error(t, st.ExportJPEG(&buf))
	assert.Zero(t, buf.Len())
}

func TestExportJPEG(t *testing.T) {
	st := newTestState(t, 2)
	require.NoError(t, st.SetBaseImage(context.Background(), photo(320, 240), ""))

	var buf bytes.Buffer
	require.NoError(t, st.ExportJPEG(&buf))
	img, err := jpeg.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 320, 240), img.Bounds())

	path := filepath.Join(t.TempDir(), "out.jpg")
	require.NoError(t, st.ExportJPEGFile(path))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadImageDecodeErrorKeepsScene(t *testing.T) {
	st := newTestState(t, 1)
	dir := t.TempDir()
	good := filepath.Join(dir, "wall.png")
	writePNG(t, good, photo(200, 100))
	require.NoError(t, st.LoadImage(context.Background(), good))
	before := st.Panels()

	bad := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0644))

	err := st.LoadImage(context.Background(), bad)
	var decodeErr *pvimage.DecodeError
	require.True(t, errors.As(err, &decodeErr))

	snap, err := st.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, geometry.SizeInt{Width: 200, Height: 100}, snap.Size)
	assert.Equal(t, before, st.Panels())
}

func TestSaveAndLoadScene(t *testing.T) {
	dir := t.TempDir()
	photoPath := filepath.Join(dir, "ceiling.png")
	writePNG(t, photoPath, photo(900, 600))

	ctx := context.Background()
	st := newTestState(t, 0)
	require.NoError(t, st.SetSelection(Selection{Surface: scene.SurfaceCeiling, PanelType: "Moon", Texture: "Sand"}))
	require.NoError(t, st.SetDeclaredWidth(ctx, 400))
	require.NoError(t, st.LoadImage(ctx, photoPath))
	a, err := st.AddPanel(NewPanel{Position: &scene.Position{X: 25, Y: 75}})
	require.NoError(t, err)
	b, err := st.AddPanel(NewPanel{Type: "L", Texture: "Grey"})
	require.NoError(t, err)
	_, err = st.RotatePanel(b.ID)
	require.NoError(t, err)
	want := st.Panels()

	projPath := filepath.Join(dir, "room.pvproj")
	var saved string
	st.On(EventSceneSaved, func(data any) { saved = data.(string) })
	require.NoError(t, st.SaveScene(projPath))
	assert.Equal(t, projPath, saved)
	assert.False(t, st.Modified())

	other := newTestState(t, 0)
	var loaded string
	other.On(EventSceneLoaded, func(data any) { loaded = data.(string) })
	require.NoError(t, other.LoadScene(ctx, projPath))
	assert.Equal(t, projPath, loaded)
	assert.Equal(t, projPath, other.ProjectPath())

	assert.Equal(t, want, other.Panels())
	assert.Equal(t, a.ID, other.Panels()[0].ID)
	assert.Equal(t, 400.0, other.DeclaredWidth())
	assert.InDelta(t, 2.25, other.Scale().PxPerCm, 1e-12)

	snap, err := other.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "ceiling", snap.Surface)
}

func TestLoadSceneFailureKeepsCurrent(t *testing.T) {
	st := newTestState(t, 2)
	require.NoError(t, st.SetBaseImage(context.Background(), photo(100, 100), ""))
	before := st.Panels()

	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pvproj")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"surface":"wall","base_image":"gone.png","panels":[]}`), 0644))

	assert.Error(t, st.LoadScene(context.Background(), path))
	assert.Equal(t, before, st.Panels())

	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"surface":"wall","base_image":"gone.png","panels":[{"id":"1","type":"Huge","texture":"Sand"}]}`), 0644))
	assert.ErrorIs(t, st.LoadScene(context.Background(), path), catalog.ErrUnknownPanelType)
	assert.Equal(t, before, st.Panels())
}

func TestSaveSceneNeedsBaseFile(t *testing.T) {
	st := newTestState(t, 0)
	assert.ErrorIs(t, st.SaveScene(filepath.Join(t.TempDir(), "x.pvproj")), ErrNoScene)

	require.NoError(t, st.SetBaseImage(context.Background(), photo(10, 10), ""))
	assert.Error(t, st.SaveScene(filepath.Join(t.TempDir(), "x.pvproj")))
}
