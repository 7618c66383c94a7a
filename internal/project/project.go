// Package project reads and writes saved scenes (.pvproj).
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"panelviz/internal/catalog"
	"panelviz/internal/scene"
)

// Extension is the file extension of saved scenes.
const Extension = ".pvproj"

// CurrentVersion is written to every saved file.
const CurrentVersion = 1

// File is a saved scene. Panels refer to catalog entries by name, so a
// file stays valid when asset directories move.
type File struct {
	Version  int       `json:"version"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	Surface  string    `json:"surface"`

	// Relative to the project file unless absolute.
	BaseImagePath string `json:"base_image,omitempty"`

	DeclaredWidthCm float64 `json:"declared_width_cm,omitempty"`
	PositionMode    string  `json:"position_mode,omitempty"`

	Panels []PanelRecord `json:"panels"`
}

// PanelRecord is one panel as stored on disk.
type PanelRecord struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Texture string  `json:"texture"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Rotated bool    `json:"rotated,omitempty"`
}

// New creates an empty project.
func New(name string, surface scene.Surface) *File {
	now := time.Now()
	return &File{
		Version:  CurrentVersion,
		Name:     name,
		Created:  now,
		Modified: now,
		Surface:  surface.String(),
	}
}

// Load reads a project file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var proj File
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if proj.Version > CurrentVersion {
		return nil, fmt.Errorf("%s: unsupported project version %d", path, proj.Version)
	}
	return &proj, nil
}

// Save writes the project to path.
func (p *File) Save(path string) error {
	p.Modified = time.Now()
	if p.Version == 0 {
		p.Version = CurrentVersion
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SetBaseImage stores imagePath relative to the project file when possible.
func (p *File) SetBaseImage(projectPath, imagePath string) {
	rel, err := filepath.Rel(filepath.Dir(projectPath), imagePath)
	if err != nil || imagePath == "" {
		p.BaseImagePath = imagePath
	} else {
		p.BaseImagePath = rel
	}
	p.Modified = time.Now()
}

// GetBaseImagePath returns the absolute path to the base image.
func (p *File) GetBaseImagePath(projectPath string) string {
	if p.BaseImagePath == "" {
		return ""
	}
	if filepath.IsAbs(p.BaseImagePath) {
		return p.BaseImagePath
	}
	return filepath.Join(filepath.Dir(projectPath), p.BaseImagePath)
}

// SetPanels replaces the stored panels with those of s, in paint order.
func (p *File) SetPanels(s *scene.Scene) {
	p.Surface = s.Surface().String()
	p.Panels = p.Panels[:0]
	for _, panel := range s.Panels() {
		p.Panels = append(p.Panels, PanelRecord{
			ID:      panel.ID,
			Type:    panel.Type.Name,
			Texture: panel.Texture.Name,
			X:       panel.Position.X,
			Y:       panel.Position.Y,
			Rotated: panel.Rotated,
		})
	}
	p.Modified = time.Now()
}

// ScenePanels resolves the stored panels against cat. Every unknown panel
// type or texture is reported; the result is only usable when err is nil.
func (p *File) ScenePanels(cat *catalog.Catalog) ([]scene.Panel, error) {
	panels := make([]scene.Panel, 0, len(p.Panels))
	var errs []error
	for i, rec := range p.Panels {
		t, err := cat.PanelType(rec.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("panel %d: %w", i, err))
			continue
		}
		tex, err := cat.Texture(rec.Texture)
		if err != nil {
			errs = append(errs, fmt.Errorf("panel %d: %w", i, err))
			continue
		}
		panels = append(panels, scene.Panel{
			ID:       rec.ID,
			Type:     t,
			Texture:  tex,
			Position: scene.Position{X: rec.X, Y: rec.Y},
			Rotated:  rec.Rotated,
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return panels, nil
}

// SceneSurface parses the stored surface.
func (p *File) SceneSurface() (scene.Surface, error) {
	return scene.ParseSurface(p.Surface)
}

// NameFromPath derives a project name from a file path.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WithExtension makes sure path ends in Extension.
func WithExtension(path string) string {
	if strings.EqualFold(filepath.Ext(path), Extension) {
		return path
	}
	return path + Extension
}
