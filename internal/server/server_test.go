package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"panelviz/internal/app"
	"panelviz/internal/catalog"
	"panelviz/internal/compositor"
	"panelviz/internal/scale"
	"panelviz/internal/texture"

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

func testServer(t *testing.T, maxScenes int) *Server {
	t.Helper()
	cat, err := catalog.Build(catalog.File{
		Textures: []catalog.Texture{
			{Name: "Grey", AssetPath: "/tex/grey.jpg"},
			{Name: "Missing", AssetPath: "/tex/missing.jpg"},
		},
	}, "")
	require.NoError(t, err)

	swatch := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(swatch.Pix); i += 4 {
		swatch.Pix[i], swatch.Pix[i+1], swatch.Pix[i+2], swatch.Pix[i+3] = 120, 120, 120, 255
	}
	textures := memTextures{"Grey": swatch}
	log := zerolog.Nop()

	factory := func() (*app.State, error) {
		return app.NewState(app.Deps{
			Catalog:       cat,
			Textures:      textures,
			Scale:         scale.NewResolver(scale.Config{Strategy: scale.KindManual}, nil, log),
			Render:        compositor.DefaultOptions(0),
			InitialPanels: 1,
			Log:           log,
		})
	}

	s, err := New(Config{MaxScenes: maxScenes}, cat, factory, log)
	require.NoError(t, err)
	return s
}

func photoPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("image", "wall.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/scenes", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type createdScene struct {
	ID string `json:"id"`
	app.Snapshot
}

func createScene(t *testing.T, s *Server, width string) createdScene {
	t.Helper()
	resp, err := s.App().Test(uploadRequest(t, photoPNG(t, 900, 500), map[string]string{"width_cm": width}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[createdScene](t, resp)
}

func TestHealth(t *testing.T) {
	s := testServer(t, 4)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, 0.0, body["scenes"])
}

func TestCatalog(t *testing.T) {
	s := testServer(t, 4)
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[catalogResponse](t, resp)
	assert.Equal(t, []string{"Grey", "Missing"}, body.Textures)
	assert.Len(t, body.PanelTypes, 5)
}

func TestCreateSceneResolvesScale(t *testing.T) {
	s := testServer(t, 4)
	sc := createScene(t, s, "400")

	assert.NotEmpty(t, sc.ID)
	assert.Equal(t, 900, sc.Size.Width)
	assert.InDelta(t, 2.25, sc.Scale, 1e-9)
	assert.Equal(t, "manual", sc.ScaleStrategy)
	assert.Equal(t, "wall", sc.Surface)
	require.Len(t, sc.Panels, 1)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/scenes/"+sc.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateSceneRejectsBadInput(t *testing.T) {
	s := testServer(t, 4)

	tests := []struct {
		name   string
		data   []byte
		fields map[string]string
	}{
		{"not an image", []byte("hello"), nil},
		{"bad surface", photoPNG(t, 10, 10), map[string]string{"surface": "floor"}},
		{"bad width", photoPNG(t, 10, 10), map[string]string{"width_cm": "wide"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.App().Test(uploadRequest(t, tt.data, tt.fields))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	resp, err := s.App().Test(uploadRequest(t, photoPNG(t, 10, 10), map[string]string{"width_cm": "-5"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, 0, s.scenes.Len())
}

func TestPanelLifecycle(t *testing.T) {
	s := testServer(t, 4)
	sc := createScene(t, s, "400")
	base := "/api/scenes/" + sc.ID

	resp, err := s.App().Test(jsonRequest(http.MethodPost, base+"/panels",
		`{"type":"L","texture":"Grey","position":{"x":150,"y":50}}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	added := decode[map[string]any](t, resp)
	id := added["id"].(string)
	assert.Equal(t, 100.0, added["position"].(map[string]any)["x"])

	resp, err = s.App().Test(jsonRequest(http.MethodPut, base+"/panels/"+id+"/position", `{"x":25,"y":75}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	moved := decode[map[string]any](t, resp)
	assert.Equal(t, 25.0, moved["position"].(map[string]any)["x"])

	resp, err = s.App().Test(jsonRequest(http.MethodPatch, base+"/panels/"+id, `{"rotated":true}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode[map[string]any](t, resp)["rotated"])

	resp, err = s.App().Test(httptest.NewRequest(http.MethodDelete, base+"/panels/"+id, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = s.App().Test(httptest.NewRequest(http.MethodDelete, base+"/panels/"+id, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPanelErrors(t *testing.T) {
	s := testServer(t, 4)
	sc := createScene(t, s, "400")
	base := "/api/scenes/" + sc.ID

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"unknown type", jsonRequest(http.MethodPost, base+"/panels", `{"type":"XXL"}`), http.StatusUnprocessableEntity},
		{"unknown texture", jsonRequest(http.MethodPost, base+"/panels", `{"texture":"Velvet"}`), http.StatusUnprocessableEntity},
		{"bad json", jsonRequest(http.MethodPost, base+"/panels", `{`), http.StatusBadRequest},
		{"empty body", jsonRequest(http.MethodPut, base+"/width", ``), http.StatusBadRequest},
		{"unknown panel", jsonRequest(http.MethodPut, base+"/panels/nope/position", `{"x":1,"y":1}`), http.StatusNotFound},
		{"unknown scene", httptest.NewRequest(http.MethodGet, "/api/scenes/nope", nil), http.StatusNotFound},
		{"negative width", jsonRequest(http.MethodPut, base+"/width", `{"width_cm":-1}`), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.App().Test(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestPutWidthRescales(t *testing.T) {
	s := testServer(t, 4)
	sc := createScene(t, s, "")
	assert.InDelta(t, 1.0, sc.Scale, 1e-9)
	assert.Equal(t, "fixed", sc.ScaleStrategy)

	resp, err := s.App().Test(jsonRequest(http.MethodPut, "/api/scenes/"+sc.ID+"/width", `{"width_cm":300}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[createdScene](t, resp)
	assert.InDelta(t, 3.0, snap.Scale, 1e-9)
	assert.Equal(t, "manual", snap.ScaleStrategy)
}

func TestRenderJPEG(t *testing.T) {
	s := testServer(t, 4)
	sc := createScene(t, s, "400")

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/scenes/"+sc.ID+"/render.jpg", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "panelviz-"+sc.ID+".jpg")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 900, 500), img.Bounds())
}

func TestRenderMissingTexture(t *testing.T) {
	s := testServer(t, 4)
	sc := createScene(t, s, "400")
	base := "/api/scenes/" + sc.ID

	resp, err := s.App().Test(jsonRequest(http.MethodPost, base+"/panels", `{"texture":"Missing"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, base+"/render.jpg", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, decode[map[string]string](t, resp)["error"], "Missing")
}

func TestSceneEviction(t *testing.T) {
	s := testServer(t, 2)
	first := createScene(t, s, "400")
	createScene(t, s, "400")
	createScene(t, s, "400")

	assert.Equal(t, 2, s.scenes.Len())
	_, ok := s.scenes.Get(first.ID)
	assert.False(t, ok)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodDelete, "/api/scenes/"+first.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{}, nil, nil, zerolog.Nop())
	assert.Error(t, err)
}
