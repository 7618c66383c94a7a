// Package texture loads fabric swatch images and keeps them cached until the
// file behind them changes.
package texture

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"panelviz/internal/catalog"
	pvimage "panelviz/internal/image"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// LoadError names a texture whose asset is missing or unreadable.
type LoadError struct {
	Name string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("texture %q (%s) could not be loaded: %v", e.Name, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Store is a read-through cache of decoded textures keyed by asset path.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	cache   map[string]image.Image
	watcher *fsnotify.Watcher
	dirs    map[string]bool
	log     zerolog.Logger
}

// NewStore creates an empty store.
func NewStore(log zerolog.Logger) *Store {
	return &Store{
		cache: make(map[string]image.Image),
		dirs:  make(map[string]bool),
		log:   log.With().Str("component", "texture").Logger(),
	}
}

// Texture returns the decoded image for t, loading it on first use.
func (s *Store) Texture(t catalog.Texture) (image.Image, error) {
	key := filepath.Clean(t.AssetPath)

	s.mu.RLock()
	img, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return img, nil
	}

	img, err := pvimage.Load(key)
	if err != nil {
		return nil, &LoadError{Name: t.Name, Path: t.AssetPath, Err: err}
	}

	s.mu.Lock()
	s.cache[key] = img
	s.watchDirLocked(filepath.Dir(key))
	s.mu.Unlock()

	s.log.Debug().Str("texture", t.Name).Str("path", key).Msg("texture loaded")
	return img, nil
}

// Preload decodes textures in parallel and returns the first failure.
func (s *Store) Preload(ctx context.Context, textures []catalog.Texture) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, t := range textures {
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := s.Texture(t)
			return err
		})
	}
	return g.Wait()
}

// Invalidate drops the cached image for path.
func (s *Store) Invalidate(path string) {
	key := filepath.Clean(path)
	s.mu.Lock()
	_, had := s.cache[key]
	delete(s.cache, key)
	s.mu.Unlock()
	if had {
		s.log.Debug().Str("path", key).Msg("texture invalidated")
	}
}

// Cached reports whether path currently has a cached image.
func (s *Store) Cached(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[filepath.Clean(path)]
	return ok
}

// Watch invalidates cache entries when their files change. It blocks until
// ctx is cancelled. Directories of textures loaded later are added as they
// appear.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create texture watcher: %w", err)
	}

	s.mu.Lock()
	s.watcher = w
	for dir := range s.dirs {
		if err := w.Add(dir); err != nil {
			s.log.Warn().Err(err).Str("dir", dir).Msg("cannot watch texture directory")
		}
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.watcher = nil
		s.mu.Unlock()
		w.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
				ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				s.Invalidate(ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("texture watcher error")
		}
	}
}

// WatchDir registers dir for change notifications ahead of any load.
func (s *Store) WatchDir(dir string) {
	s.mu.Lock()
	s.watchDirLocked(filepath.Clean(dir))
	s.mu.Unlock()
}

func (s *Store) watchDirLocked(dir string) {
	if s.dirs[dir] {
		return
	}
	s.dirs[dir] = true
	if s.watcher != nil {
		if err := s.watcher.Add(dir); err != nil {
			s.log.Warn().Err(err).Str("dir", dir).Msg("cannot watch texture directory")
		}
	}
}
