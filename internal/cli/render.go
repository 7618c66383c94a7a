package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"panelviz/internal/app"
	"panelviz/internal/scene"

	"github.com/spf13/cobra"
)

type renderFlags struct {
	image   string
	scene   string
	width   float64
	surface string
	out     string
	panels  []string
}

func newRenderCmd(g *globals) *cobra.Command {
	f := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a photo or saved scene to JPEG",
		Long: `Render composites panels onto a photo and writes a JPEG.

Either --scene loads a saved .pvproj file, or --image starts a new scene
seeded with the configured initial panels. Each --panel replaces the seeded
panels and takes comma-separated key=value pairs, for example:

  --panel type=L,texture=Sand,x=25,y=40,rotated=true`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (f.image == "") == (f.scene == "") {
				return errors.New("exactly one of --image or --scene is required")
			}
			rt, err := g.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			st, err := rt.NewState()
			if err != nil {
				return err
			}
			if err := buildScene(cmd, st, f); err != nil {
				return err
			}

			out := f.out
			if out == "" {
				out = defaultOutput(f)
			}
			if err := st.ExportJPEGFile(out); err != nil {
				return err
			}

			res := st.Scale()
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d panels, %.3f px/cm via %s)\n",
				out, len(st.Panels()), res.PxPerCm, res.Strategy)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.image, "image", "", "photo to place panels on")
	cmd.Flags().StringVar(&f.scene, "scene", "", "saved scene file to render")
	cmd.Flags().Float64Var(&f.width, "width", 0, "real width of the photographed surface in cm")
	cmd.Flags().StringVar(&f.surface, "surface", "", "wall or ceiling (default scene.default_surface)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output JPEG path")
	cmd.Flags().StringArrayVar(&f.panels, "panel", nil, "panel to place (repeatable)")
	return cmd
}

func buildScene(cmd *cobra.Command, st *app.State, f *renderFlags) error {
	ctx := cmd.Context()

	if f.surface != "" {
		surface, err := scene.ParseSurface(f.surface)
		if err != nil {
			return err
		}
		sel := st.Selection()
		sel.Surface = surface
		if err := st.SetSelection(sel); err != nil {
			return err
		}
	}

	if f.scene != "" {
		if err := st.LoadScene(ctx, f.scene); err != nil {
			return err
		}
		if cmd.Flags().Changed("width") {
			return st.SetDeclaredWidth(ctx, f.width)
		}
		return nil
	}

	if err := st.SetDeclaredWidth(ctx, f.width); err != nil {
		return err
	}
	if err := st.LoadImage(ctx, f.image); err != nil {
		return err
	}
	if len(f.panels) == 0 {
		return nil
	}

	for _, p := range st.Panels() {
		if err := st.RemovePanel(p.ID); err != nil {
			return err
		}
	}
	for _, raw := range f.panels {
		np, err := parsePanelFlag(raw)
		if err != nil {
			return err
		}
		if _, err := st.AddPanel(np); err != nil {
			return fmt.Errorf("--panel %q: %w", raw, err)
		}
	}
	return nil
}

// parsePanelFlag parses "type=L,texture=Sand,x=10,y=20,rotated=true".
// x and y must be given together.
func parsePanelFlag(raw string) (app.NewPanel, error) {
	var (
		np   app.NewPanel
		x, y *float64
	)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return app.NewPanel{}, fmt.Errorf("--panel %q: expected key=value, got %q", raw, part)
		}
		key = strings.ToLower(key)
		switch key {
		case "type":
			np.Type = value
		case "texture":
			np.Texture = value
		case "rotated":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return app.NewPanel{}, fmt.Errorf("--panel %q: rotated: %w", raw, err)
			}
			np.Rotated = &b
		case "x", "y":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return app.NewPanel{}, fmt.Errorf("--panel %q: %s: %w", raw, key, err)
			}
			if key == "x" {
				x = &v
			} else {
				y = &v
			}
		default:
			return app.NewPanel{}, fmt.Errorf("--panel %q: unknown key %q", raw, key)
		}
	}

	if (x == nil) != (y == nil) {
		return app.NewPanel{}, fmt.Errorf("--panel %q: x and y must be given together", raw)
	}
	if x != nil {
		np.Position = &scene.Position{X: *x, Y: *y}
	}
	return np, nil
}

func defaultOutput(f *renderFlags) string {
	src := f.image
	if src == "" {
		src = f.scene
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(filepath.Dir(src), base+"-panelviz.jpg")
}
