package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"panelviz/internal/app"
	"panelviz/internal/catalog"
	pvimage "panelviz/internal/image"
	"panelviz/internal/scale"
	"panelviz/internal/scene"
	"panelviz/internal/texture"

	"github.com/gofiber/fiber/v3"
)

var errSceneNotFound = errors.New("scene not found")

type catalogResponse struct {
	PanelTypes []catalog.PanelType `json:"panel_types"`
	Textures   []string            `json:"textures"`
}

type sceneResponse struct {
	ID string `json:"id"`
	app.Snapshot
}

type addPanelRequest struct {
	Type     string          `json:"type"`
	Texture  string          `json:"texture"`
	Rotated  *bool           `json:"rotated"`
	Position *scene.Position `json:"position"`
}

type patchPanelRequest struct {
	Texture *string `json:"texture"`
	Rotated *bool   `json:"rotated"`
}

type widthRequest struct {
	WidthCm float64 `json:"width_cm"`
}

func (s *Server) getCatalog(c fiber.Ctx) error {
	return c.JSON(catalogResponse{
		PanelTypes: s.catalog.PanelTypes,
		Textures:   s.catalog.TextureNames(),
	})
}

func (s *Server) createScene(c fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return badRequest(c, "image file required in multipart/form-data")
	}

	surface, err := scene.ParseSurface(c.FormValue("surface"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	var widthCm float64
	if raw := c.FormValue("width_cm"); raw != "" {
		widthCm, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return badRequest(c, fmt.Sprintf("width_cm: %q is not a number", raw))
		}
	}

	f, err := file.Open()
	if err != nil {
		return s.fail(c, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return s.fail(c, err)
	}
	img, err := pvimage.DecodeBytes(data, file.Filename)
	if err != nil {
		return s.fail(c, err)
	}

	st, err := s.newState()
	if err != nil {
		return s.fail(c, err)
	}
	sel := st.Selection()
	sel.Surface = surface
	if err := st.SetSelection(sel); err != nil {
		return s.fail(c, err)
	}
	ctx := c.Context()
	if err := st.SetDeclaredWidth(ctx, widthCm); err != nil {
		return s.fail(c, err)
	}
	if err := st.SetBaseImage(ctx, img, ""); err != nil {
		return s.fail(c, err)
	}

	id, evicted := s.scenes.Put(st)
	if evicted != "" {
		s.log.Info().Str("scene_id", evicted).Msg("Scene evicted")
	}
	s.log.Info().Str("scene_id", id).Str("file", file.Filename).Msg("Scene created")

	snap, err := st.Snapshot()
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sceneResponse{ID: id, Snapshot: snap})
}

func (s *Server) getScene(c fiber.Ctx) error {
	id, st, err := s.state(c)
	if err != nil {
		return s.fail(c, err)
	}
	return s.sendSnapshot(c, id, st)
}

func (s *Server) deleteScene(c fiber.Ctx) error {
	if !s.scenes.Delete(c.Params("id")) {
		return s.fail(c, errSceneNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) putWidth(c fiber.Ctx) error {
	id, st, err := s.state(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req widthRequest
	if err := decodeBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := st.SetDeclaredWidth(c.Context(), req.WidthCm); err != nil {
		return s.fail(c, err)
	}
	return s.sendSnapshot(c, id, st)
}

func (s *Server) renderScene(c fiber.Ctx) error {
	id, st, err := s.state(c)
	if err != nil {
		return s.fail(c, err)
	}

	var buf bytes.Buffer
	if err := st.ExportJPEG(&buf); err != nil {
		return s.fail(c, err)
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Attachment(fmt.Sprintf("panelviz-%s.jpg", id))
	return c.Send(buf.Bytes())
}

func (s *Server) addPanel(c fiber.Ctx) error {
	_, st, err := s.state(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req addPanelRequest
	if err := decodeBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	p, err := st.AddPanel(app.NewPanel{
		Type:     req.Type,
		Texture:  req.Texture,
		Rotated:  req.Rotated,
		Position: req.Position,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (s *Server) patchPanel(c fiber.Ctx) error {
	_, st, err := s.state(c)
	if err != nil {
		return s.fail(c, err)
	}
	panelID := c.Params("panelID")
	var req patchPanelRequest
	if err := decodeBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	p, err := st.Panel(panelID)
	if err != nil {
		return s.fail(c, err)
	}
	if req.Texture != nil {
		if p, err = st.SetPanelTexture(panelID, *req.Texture); err != nil {
			return s.fail(c, err)
		}
	}
	if req.Rotated != nil && *req.Rotated != p.Rotated {
		if p, err = st.RotatePanel(panelID); err != nil {
			return s.fail(c, err)
		}
	}
	return c.JSON(p)
}

func (s *Server) putPosition(c fiber.Ctx) error {
	_, st, err := s.state(c)
	if err != nil {
		return s.fail(c, err)
	}
	var pos scene.Position
	if err := decodeBody(c, &pos); err != nil {
		return badRequest(c, err.Error())
	}

	p, err := st.ApplyUpdate(scene.PositionUpdate{PanelID: c.Params("panelID"), Position: pos})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(p)
}

func (s *Server) deletePanel(c fiber.Ctx) error {
	_, st, err := s.state(c)
	if err != nil {
		return s.fail(c, err)
	}
	if err := st.RemovePanel(c.Params("panelID")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) state(c fiber.Ctx) (string, *app.State, error) {
	id := c.Params("id")
	st, ok := s.scenes.Get(id)
	if !ok {
		return id, nil, fmt.Errorf("%w: %s", errSceneNotFound, id)
	}
	return id, st, nil
}

func (s *Server) sendSnapshot(c fiber.Ctx, id string, st *app.State) error {
	snap, err := st.Snapshot()
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(sceneResponse{ID: id, Snapshot: snap})
}

func decodeBody(c fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return errors.New("body required")
	}
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return errors.New("invalid JSON payload")
	}
	return nil
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// fail maps domain errors to HTTP statuses.
func (s *Server) fail(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	} else {
		s.log.Debug().Err(err).Int("status", status).Str("path", c.Path()).Msg("Request rejected")
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		decodeErr  *pvimage.DecodeError
		invalid    *scale.InvalidScaleError
		textureErr *texture.LoadError
	)
	switch {
	case errors.Is(err, errSceneNotFound), errors.Is(err, scene.ErrPanelNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &decodeErr), errors.Is(err, scene.ErrNoBaseImage):
		return fiber.StatusBadRequest
	case errors.Is(err, app.ErrNoScene):
		return fiber.StatusConflict
	case errors.Is(err, catalog.ErrUnknownPanelType),
		errors.Is(err, catalog.ErrUnknownTexture),
		errors.Is(err, scene.ErrDuplicatePanel),
		errors.As(err, &invalid),
		errors.As(err, &textureErr):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
