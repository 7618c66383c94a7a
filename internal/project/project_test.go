package project

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"panelviz/internal/catalog"
	"panelviz/internal/scene"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Build(catalog.File{
		Textures: []catalog.Texture{
			{Name: "Sand", AssetPath: "/tex/sand.jpg"},
			{Name: "Grey", AssetPath: "/tex/grey.jpg"},
		},
	}, "")
	require.NoError(t, err)
	return cat
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cat := testCatalog(t)
	l, err := cat.PanelType("L")
	require.NoError(t, err)
	moon, err := cat.PanelType("Moon")
	require.NoError(t, err)
	sand, err := cat.Texture("Sand")
	require.NoError(t, err)
	grey, err := cat.Texture("Grey")
	require.NoError(t, err)

	s, err := scene.New(image.NewRGBA(image.Rect(0, 0, 900, 600)), scene.SurfaceCeiling)
	require.NoError(t, err)
	a, err := s.Add(scene.Panel{Type: l, Texture: sand, Position: scene.Position{X: 10, Y: 20}, Rotated: true})
	require.NoError(t, err)
	b, err := s.Add(scene.Panel{Type: moon, Texture: grey, Position: scene.Position{X: 80, Y: 5}})
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "living"+Extension)
	proj := New("living", s.Surface())
	proj.SetBaseImage(path, filepath.Join(dir, "photos", "wall.jpg"))
	proj.DeclaredWidthCm = 400
	proj.SetPanels(s)
	require.NoError(t, proj.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, loaded.Version)
	assert.Equal(t, "living", loaded.Name)
	assert.Equal(t, 400.0, loaded.DeclaredWidthCm)
	assert.Equal(t, filepath.Join("photos", "wall.jpg"), loaded.BaseImagePath)
	assert.Equal(t, filepath.Join(dir, "photos", "wall.jpg"), loaded.GetBaseImagePath(path))

	surface, err := loaded.SceneSurface()
	require.NoError(t, err)
	assert.Equal(t, scene.SurfaceCeiling, surface)

	panels, err := loaded.ScenePanels(cat)
	require.NoError(t, err)
	assert.Equal(t, []scene.Panel{a, b}, panels)
}

func TestScenePanelsReportsUnknownEntries(t *testing.T) {
	cat := testCatalog(t)
	proj := New("x", scene.SurfaceWall)
	proj.Panels = []PanelRecord{
		{ID: "1", Type: "L", Texture: "Sand"},
		{ID: "2", Type: "Huge", Texture: "Sand"},
		{ID: "3", Type: "M", Texture: "Plaid"},
	}

	panels, err := proj.ScenePanels(cat)
	assert.Nil(t, panels)
	assert.ErrorIs(t, err, catalog.ErrUnknownPanelType)
	assert.ErrorIs(t, err, catalog.ErrUnknownTexture)
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.pvproj")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "panels": []}`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pvproj")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestAbsoluteBaseImagePath(t *testing.T) {
	proj := New("x", scene.SurfaceWall)
	proj.BaseImagePath = "/photos/wall.jpg"
	assert.Equal(t, "/photos/wall.jpg", proj.GetBaseImagePath("/projects/x.pvproj"))

	proj.BaseImagePath = ""
	assert.Empty(t, proj.GetBaseImagePath("/projects/x.pvproj"))
}

func TestNameHelpers(t *testing.T) {
	assert.Equal(t, "living", NameFromPath("/a/b/living.pvproj"))
	assert.Equal(t, "/a/b/living.pvproj", WithExtension("/a/b/living"))
	assert.Equal(t, "/a/b/living.PVPROJ", WithExtension("/a/b/living.PVPROJ"))
}
