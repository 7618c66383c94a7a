// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"panelviz/internal/app"
	pvimage "panelviz/internal/image"
	"panelviz/internal/project"
	"panelviz/internal/texture"
	"panelviz/internal/version"
	"panelviz/pkg/geometry"
	"panelviz/ui/canvas"
	"panelviz/ui/panels"
	"panelviz/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	prefKeyLastDir   = "lastDirectory"
	prefKeyLastPhoto = "lastPhoto"
	prefKeyWidth     = "windowWidth"
	prefKeyHeight    = "windowHeight"

	appTitle = "panelviz"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	canvas    *canvas.SceneCanvas
	sidePanel *panels.SidePanel
	statusBar *widget.Label

	// Panel being edited, and the drag in progress
	selected   string
	dragPanel  string
	dragOrigin geometry.PointInt

	// Menu items that need state tracking
	fitToWindowItem *fyne.MenuItem
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	w := p.FloatWithFallback(prefKeyWidth, 1280)
	h := p.FloatWithFallback(prefKeyHeight, 800)
	mw.Resize(fyne.NewSize(float32(w), float32(h)))
	mw.SetCloseIntercept(mw.onClose)

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewSceneCanvas()
	mw.canvas.OnTap(mw.onCanvasTap)
	mw.canvas.OnDragStart(mw.onDragStart)
	mw.canvas.OnDrag(mw.onDrag)
	mw.canvas.OnDragEnd(mw.onDragEnd)
	mw.canvas.OnZoomChange(func(zoom float64) {
		mw.updateStatus(fmt.Sprintf("Zoom: %.0f%%", zoom*100))
	})

	mw.sidePanel = panels.NewSidePanel(mw.state, mw.selectPanel)
	mw.sidePanel.SetWindow(mw.Window)

	mw.statusBar = widget.NewLabel("Open a photo of a wall or ceiling to begin")

	canvasArea := container.NewBorder(
		mw.createToolbar(),    // top
		nil,                   // bottom
		nil,                   // left
		nil,                   // right
		mw.canvas.Container(), // center
	)

	split := container.NewHSplit(mw.sidePanel.Container(), canvasArea)
	split.SetOffset(0.25)

	content := container.NewBorder(
		nil,                               // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		split,                             // center
	)

	mw.SetContent(content)
}

// createToolbar creates the toolbar with zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	return container.NewHBox(
		widget.NewButton("Open Photo...", mw.onOpenPhoto),
		widget.NewButton("Export JPEG...", mw.onExport),
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		widget.NewButton("-", mw.onZoomOut),
		widget.NewButton("+", mw.onZoomIn),
		widget.NewButton("Fit", mw.onToggleFitToWindow),
		widget.NewButton("1:1", mw.onActualSize),
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Photo...", mw.onOpenPhoto),
		fyne.NewMenuItem("Open Scene...", mw.onOpenScene),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Scene", mw.onSaveScene),
		fyne.NewMenuItem("Save Scene As...", mw.onSaveSceneAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export JPEG...", mw.onExport),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Add Panel", mw.onAddPanel),
		fyne.NewMenuItem("Rotate Selected", mw.onRotateSelected),
		fyne.NewMenuItem("Remove Selected", mw.onRemoveSelected),
	)

	mw.fitToWindowItem = fyne.NewMenuItem("  Fit to Window", mw.onToggleFitToWindow)
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		mw.fitToWindowItem,
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	rerender := func(any) { mw.rerender() }

	mw.state.On(app.EventSceneCreated, func(data any) {
		mw.selected = ""
		if size, ok := data.(geometry.SizeInt); ok {
			mw.updateStatus(fmt.Sprintf("Photo loaded: %d x %d px", size.Width, size.Height))
		}
		mw.SetTitle(appTitle + " - new scene")
		mw.canvas.SetFitToWindow(true)
		mw.fitToWindowItem.Label = "✓ Fit to Window"
	})
	mw.state.On(app.EventSceneCreated, rerender)
	mw.state.On(app.EventPanelsChanged, rerender)
	mw.state.On(app.EventScaleChanged, rerender)

	mw.state.On(app.EventSelectionChanged, func(any) {
		mw.sidePanel.Refresh()
	})

	mw.state.On(app.EventSceneLoaded, func(data any) {
		mw.selected = ""
		if path, ok := data.(string); ok {
			mw.SetTitle(appTitle + " - " + project.NameFromPath(path))
			mw.updateStatus("Scene loaded: " + path)
		}
		mw.rerender()
	})

	mw.state.On(app.EventSceneSaved, func(data any) {
		if path, ok := data.(string); ok {
			mw.SetTitle(appTitle + " - " + project.NameFromPath(path))
			mw.updateStatus("Scene saved: " + path)
		}
	})

	mw.state.On(app.EventModified, func(data any) {
		if modified, ok := data.(bool); ok && modified {
			title := mw.Title()
			if !strings.HasSuffix(title, "*") {
				mw.SetTitle(title + " *")
			}
		}
	})
}

// rerender composites the scene and pushes it to the canvas. A failed
// render keeps the previous image on screen.
func (mw *MainWindow) rerender() {
	if !mw.state.HasScene() {
		mw.canvas.SetScene(nil)
		return
	}
	img, err := mw.state.Render()
	if err != nil {
		mw.updateStatus("Render failed: " + err.Error())
		var le *texture.LoadError
		if errors.As(err, &le) {
			dialog.ShowError(err, mw.Window)
		}
		return
	}
	mw.canvas.SetScene(img)
	mw.updateSelection()
	mw.sidePanel.Refresh()
}

// selectPanel makes id the panel being edited. An empty id clears it.
func (mw *MainWindow) selectPanel(id string) {
	mw.selected = id
	mw.updateSelection()
	mw.sidePanel.SetSelectedPanel(id)
}

func (mw *MainWindow) updateSelection() {
	if mw.selected == "" {
		mw.canvas.ClearSelection()
		return
	}
	bounds, err := mw.state.PanelBounds(mw.selected)
	if err != nil {
		mw.selected = ""
		mw.canvas.ClearSelection()
		return
	}
	p, _ := mw.state.Panel(mw.selected)
	mw.canvas.SetSelection(bounds, p.Type.IsCircle())
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// Canvas interaction

func (mw *MainWindow) onCanvasTap(pt geometry.Point2D) {
	if p, ok := mw.state.PanelAt(pt.Round()); ok {
		mw.selectPanel(p.ID)
		return
	}
	mw.selectPanel("")
}

func (mw *MainWindow) onDragStart(pt geometry.Point2D) {
	p, ok := mw.state.PanelAt(pt.Round())
	if !ok {
		mw.dragPanel = ""
		return
	}
	bounds, err := mw.state.PanelBounds(p.ID)
	if err != nil {
		return
	}
	mw.dragPanel = p.ID
	mw.dragOrigin = geometry.PointInt{X: bounds.X, Y: bounds.Y}
	mw.selectPanel(p.ID)
}

func (mw *MainWindow) onDrag(delta geometry.Point2D) {
	if mw.dragPanel == "" {
		return
	}
	d := delta.Round()
	origin := geometry.PointInt{X: mw.dragOrigin.X + d.X, Y: mw.dragOrigin.Y + d.Y}
	if _, err := mw.state.MovePanelTo(mw.dragPanel, origin); err != nil {
		mw.updateStatus("Move failed: " + err.Error())
	}
}

func (mw *MainWindow) onDragEnd() {
	if mw.dragPanel == "" {
		return
	}
	if p, err := mw.state.Panel(mw.dragPanel); err == nil {
		mw.updateStatus(fmt.Sprintf("Moved %s to (%.1f, %.1f)", p.Type.Name, p.Position.X, p.Position.Y))
	}
	mw.dragPanel = ""
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefKeyLastDir, filepath.Dir(filePath))
}

// RestoreLastPhoto reopens the photo from the previous session, if any.
func (mw *MainWindow) RestoreLastPhoto() {
	path := mw.prefs.String(prefKeyLastPhoto)
	if path == "" {
		return
	}
	mw.loadPhoto(path)
}

// File actions

func (mw *MainWindow) onOpenPhoto() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		mw.loadPhoto(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(pvimage.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// loadPhoto decodes path off the UI goroutine; wall detection may take a
// few seconds.
func (mw *MainWindow) loadPhoto(path string) {
	mw.updateStatus("Loading " + filepath.Base(path) + "...")
	go func() {
		if err := mw.state.LoadImage(context.Background(), path); err != nil {
			mw.updateStatus("Could not open photo")
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.prefs.SetString(prefKeyLastPhoto, path)
	}()
}

func (mw *MainWindow) onOpenScene() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		if err := mw.state.LoadScene(context.Background(), path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{project.Extension}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveScene() {
	path := mw.state.ProjectPath()
	if path == "" {
		mw.onSaveSceneAs()
		return
	}
	if err := mw.state.SaveScene(path); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onSaveSceneAs() {
	if !mw.state.HasScene() {
		dialog.ShowError(app.ErrNoScene, mw.Window)
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := project.WithExtension(writer.URI().Path())
		mw.saveLastDir(path)
		if err := mw.state.SaveScene(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName("scene" + project.Extension)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExport() {
	if !mw.state.HasScene() {
		dialog.ShowError(app.ErrNoScene, mw.Window)
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()
		if err := mw.state.ExportJPEG(writer); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.saveLastDir(writer.URI().Path())
		mw.updateStatus("Exported " + writer.URI().Path())
	}, mw.Window)
	fd.SetFileName("panelviz.jpg")
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".jpg", ".jpeg"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// Edit actions

func (mw *MainWindow) onAddPanel() {
	p, err := mw.state.AddPanel(app.NewPanel{})
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.selectPanel(p.ID)
}

func (mw *MainWindow) onRotateSelected() {
	if mw.selected == "" {
		return
	}
	if _, err := mw.state.RotatePanel(mw.selected); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onRemoveSelected() {
	if mw.selected == "" {
		return
	}
	if err := mw.state.RemovePanel(mw.selected); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.selectPanel("")
}

// View actions

func (mw *MainWindow) onZoomIn() {
	mw.disableFitToWindow()
	mw.canvas.ZoomIn()
}

func (mw *MainWindow) onZoomOut() {
	mw.disableFitToWindow()
	mw.canvas.ZoomOut()
}

func (mw *MainWindow) onToggleFitToWindow() {
	enabled := !mw.canvas.FitsToWindow()
	mw.canvas.SetFitToWindow(enabled)
	if enabled {
		mw.fitToWindowItem.Label = "✓ Fit to Window"
	} else {
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}

func (mw *MainWindow) onActualSize() {
	mw.disableFitToWindow()
	mw.canvas.SetZoom(1.0)
}

func (mw *MainWindow) disableFitToWindow() {
	if mw.canvas.FitsToWindow() {
		mw.canvas.SetFitToWindow(false)
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About panelviz",
		fmt.Sprintf("panelviz v%s\n\n"+
			"Preview acoustic panels on a photo of your wall or ceiling.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}

// onClose saves window preferences and asks before dropping unsaved work.
func (mw *MainWindow) onClose() {
	size := mw.Canvas().Size()
	mw.prefs.SetFloat(prefKeyWidth, float64(size.Width))
	mw.prefs.SetFloat(prefKeyHeight, float64(size.Height))
	if err := mw.prefs.Save(); err != nil {
		fmt.Printf("Failed to save preferences: %v\n", err)
	}

	if !mw.state.Modified() {
		mw.Close()
		return
	}
	dialog.ShowConfirm("Unsaved changes", "Discard changes to this scene?", func(discard bool) {
		if discard {
			mw.Close()
		}
	}, mw.Window)
}
