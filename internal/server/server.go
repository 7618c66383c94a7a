// Package server exposes scenes over HTTP.
package server

import (
	"context"
	"errors"
	"time"

	"panelviz/internal/app"
	"panelviz/internal/catalog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/rs/zerolog"
)

// Config controls the listener.
type Config struct {
	Addr         string
	BodyLimitMB  int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxScenes    int
	CORSOrigins  []string
}

// StateFactory creates a fresh editing session for a new scene.
type StateFactory func() (*app.State, error)

// Server is the HTTP API.
type Server struct {
	app      *fiber.App
	cfg      Config
	catalog  *catalog.Catalog
	newState StateFactory
	scenes   *SceneStore
	log      zerolog.Logger
}

// New wires the routes. cat is served from /api/catalog; newState is
// called once per uploaded photo.
func New(cfg Config, cat *catalog.Catalog, newState StateFactory, log zerolog.Logger) (*Server, error) {
	if cat == nil || newState == nil {
		return nil, errors.New("server: catalog and state factory are required")
	}
	if cfg.BodyLimitMB <= 0 {
		cfg.BodyLimitMB = 25
	}

	s := &Server{
		cfg:      cfg,
		catalog:  cat,
		newState: newState,
		scenes:   NewSceneStore(cfg.MaxScenes),
		log:      log.With().Str("component", "server").Logger(),
	}

	s.app = fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
		AppName:      "panelviz",
	})

	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if len(cfg.CORSOrigins) > 0 {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		}))
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})
	s.app.Get("/health/ready", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready", "scenes": s.scenes.Len()})
	})

	api := s.app.Group("/api")
	api.Get("/catalog", s.getCatalog)

	api.Post("/scenes", s.createScene)
	api.Get("/scenes/:id", s.getScene)
	api.Delete("/scenes/:id", s.deleteScene)
	api.Put("/scenes/:id/width", s.putWidth)
	api.Get("/scenes/:id/render.jpg", s.renderScene)

	api.Post("/scenes/:id/panels", s.addPanel)
	api.Patch("/scenes/:id/panels/:panelID", s.patchPanel)
	api.Put("/scenes/:id/panels/:panelID/position", s.putPosition)
	api.Delete("/scenes/:id/panels/:panelID", s.deletePanel)
}

// App returns the underlying fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	s.log.Info().Str("addr", s.cfg.Addr).Msg("Starting HTTP API")
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
