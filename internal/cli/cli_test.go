package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"panelviz/internal/catalog"
	"panelviz/internal/scene"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir    string
	config string
	photo  string
}

func writeImage(t *testing.T, path string, w, h int, c color.RGBA, asPNG bool) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	if asPNG {
		require.NoError(t, png.Encode(f, img))
	} else {
		require.NoError(t, jpeg.Encode(f, img, nil))
	}
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	texDir := filepath.Join(dir, "textures")
	require.NoError(t, os.Mkdir(texDir, 0755))
	writeImage(t, filepath.Join(texDir, "Blazer Lite-Sand.jpg"), 8, 8, color.RGBA{200, 180, 140, 255}, false)
	writeImage(t, filepath.Join(texDir, "Blazer Lite-Grey.jpg"), 8, 8, color.RGBA{120, 120, 120, 255}, false)

	photo := filepath.Join(dir, "wall.png")
	writeImage(t, photo, 900, 500, color.RGBA{240, 240, 240, 255}, true)

	cfgPath := filepath.Join(dir, "panelviz.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("catalog:\n  texture_dir: "+texDir+"\nlogging:\n  level: error\n"), 0644))

	return fixture{dir: dir, config: cfgPath, photo: photo}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("1.2.3", "abc", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "panelviz 1.2.3")
	assert.Contains(t, out, "commit: abc")
}

func TestCatalogCmd(t *testing.T) {
	fx := newFixture(t)

	out, err := run(t, "catalog", "--config", fx.config)
	require.NoError(t, err)
	assert.Contains(t, out, "Sand")
	assert.Contains(t, out, "XL")
	assert.NotContains(t, out, "missing")

	out, err = run(t, "catalog", "--config", fx.config, "--json")
	require.NoError(t, err)
	var cat catalog.Catalog
	require.NoError(t, json.Unmarshal([]byte(out), &cat))
	assert.Equal(t, []string{"Grey", "Sand"}, cat.TextureNames())
}

func TestRenderCmdWithPanels(t *testing.T) {
	fx := newFixture(t)
	outPath := filepath.Join(fx.dir, "out.jpg")

	out, err := run(t, "render", "--config", fx.config,
		"--image", fx.photo, "--width", "400", "--out", outPath,
		"--panel", "type=L,texture=Sand,x=0,y=0",
		"--panel", "type=M,texture=Grey,x=100,y=100,rotated=true")
	require.NoError(t, err)
	assert.Contains(t, out, "2 panels")
	assert.Contains(t, out, "2.250 px/cm via manual")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 900, 500), img.Bounds())

	// The L panel covers the top-left 135x270 px.
	r, g, b, _ := img.At(60, 120).RGBA()
	assert.InDelta(t, 200, r>>8, 12)
	assert.InDelta(t, 180, g>>8, 12)
	assert.InDelta(t, 140, b>>8, 12)
}

func TestRenderCmdSeedsInitialPanels(t *testing.T) {
	fx := newFixture(t)

	out, err := run(t, "render", "--config", fx.config, "--image", fx.photo)
	require.NoError(t, err)
	assert.Contains(t, out, "3 panels")
	assert.Contains(t, out, "via fixed")
	assert.FileExists(t, filepath.Join(fx.dir, "wall-panelviz.jpg"))
}

func TestRenderCmdRequiresOneSource(t *testing.T) {
	_, err := run(t, "render")
	assert.Error(t, err)

	_, err = run(t, "render", "--image", "a.png", "--scene", "b.pvproj")
	assert.Error(t, err)
}

func TestRenderCmdUnknownTexture(t *testing.T) {
	fx := newFixture(t)
	_, err := run(t, "render", "--config", fx.config, "--image", fx.photo,
		"--out", filepath.Join(fx.dir, "x.jpg"), "--panel", "texture=Velvet")
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUnknownTexture)
	assert.NoFileExists(t, filepath.Join(fx.dir, "x.jpg"))
}

func TestParsePanelFlag(t *testing.T) {
	np, err := parsePanelFlag("type=XL, texture=Sand ,X=10,y=20,rotated=true")
	require.NoError(t, err)
	assert.Equal(t, "XL", np.Type)
	assert.Equal(t, "Sand", np.Texture)
	require.NotNil(t, np.Rotated)
	assert.True(t, *np.Rotated)
	assert.Equal(t, &scene.Position{X: 10, Y: 20}, np.Position)

	np, err = parsePanelFlag("")
	require.NoError(t, err)
	assert.Nil(t, np.Position)

	for _, bad := range []string{"type", "x=1", "x=a,y=1", "rotated=maybe", "colour=red"} {
		_, err := parsePanelFlag(bad)
		assert.Error(t, err, bad)
	}
}
