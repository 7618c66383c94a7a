package cli

import (
	"context"
	"errors"
	"fmt"

	"panelviz/internal/app"
	"panelviz/internal/catalog"
	"panelviz/internal/config"
	"panelviz/internal/logging"
	"panelviz/internal/scale"
	"panelviz/internal/segment"
	"panelviz/internal/texture"

	"github.com/rs/zerolog"
)

// Runtime holds the long-lived collaborators built from configuration.
// Every editing session shares them.
type Runtime struct {
	Config   *config.Config
	Log      zerolog.Logger
	Catalog  *catalog.Catalog
	Textures *texture.Store
	Resolver *scale.Resolver

	detector *segment.Detector
}

// LoadConfig reads configuration from file, or from the default search
// path when file is empty.
func LoadConfig(file string) (*config.Manager, error) {
	m, err := config.NewManager(file)
	if err != nil {
		return nil, err
	}
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewRuntime wires the catalog, texture cache, segmentation and scale
// resolver described by cfg.
func NewRuntime(cfg *config.Config) (*Runtime, error) {
	log := logging.New(cfg.LoggerConfig())

	cat, err := cfg.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	rc, err := cfg.ResolverConfig()
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:   cfg,
		Log:      log,
		Catalog:  cat,
		Textures: texture.NewStore(log),
	}

	// A nil *Detector must not reach the resolver as a non-nil interface.
	var detector scale.WallDetector
	if d, err := segment.NewDetector(cfg.SegmentConfig(), log); err == nil {
		rt.detector = d
		detector = d
	} else if rc.Strategy == scale.KindDetected {
		log.Warn().Err(err).Msg("Wall detection unavailable, scale falls back to manual width")
	}
	rt.Resolver = scale.NewResolver(rc, detector, log)

	log.Debug().
		Int("panel_types", len(cat.PanelTypes)).
		Int("textures", len(cat.Textures)).
		Strs("scale_chain", rt.Resolver.Strategies()).
		Msg("Runtime ready")
	return rt, nil
}

// NewState starts an empty editing session.
func (r *Runtime) NewState() (*app.State, error) {
	opts, err := r.Config.RenderOptions()
	if err != nil {
		return nil, err
	}
	st, err := app.NewState(app.Deps{
		Catalog:       r.Catalog,
		Textures:      r.Textures,
		Scale:         r.Resolver,
		Render:        opts,
		InitialPanels: r.Config.Scene.InitialPanels,
		JPEGQuality:   r.Config.Render.JPEGQuality,
		Log:           r.Log,
	})
	if err != nil {
		return nil, err
	}

	sel := st.Selection()
	sel.Surface = r.Config.DefaultSurface()
	if err := st.SetSelection(sel); err != nil {
		return nil, err
	}
	return st, nil
}

// Preload decodes every catalog texture. Missing assets are logged rather
// than returned; they only fail the renders that use them.
func (r *Runtime) Preload(ctx context.Context) {
	if err := r.Textures.Preload(ctx, r.Catalog.Textures); err != nil {
		var le *texture.LoadError
		if errors.As(err, &le) {
			r.Log.Warn().Str("texture", le.Name).Str("path", le.Path).Msg("Texture asset unavailable")
			return
		}
		r.Log.Warn().Err(err).Msg("Texture preload interrupted")
	}
}

// WatchTextures invalidates cached textures when their files change, if
// catalog.watch is set. It returns immediately.
func (r *Runtime) WatchTextures(ctx context.Context) {
	if !r.Config.Catalog.Watch {
		return
	}
	if dir := r.Config.Catalog.TextureDir; dir != "" {
		r.Textures.WatchDir(dir)
	}
	go func() {
		if err := r.Textures.Watch(ctx); err != nil {
			r.Log.Error().Err(err).Msg("Texture watcher stopped")
		}
	}()
	r.Log.Info().Str("dir", r.Config.Catalog.TextureDir).Msg("Watching textures for changes")
}

// Close releases the segmentation network.
func (r *Runtime) Close() error {
	if r.detector != nil {
		return r.detector.Close()
	}
	return nil
}
