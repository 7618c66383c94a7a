// Package canvas provides a zoomable view of a rendered scene with panel
// selection and dragging.
package canvas

import (
	"image"

	"panelviz/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	xdraw "golang.org/x/image/draw"
)

const (
	minZoom  = 0.1
	maxZoom  = 8.0
	zoomStep = 1.25
)

// SceneCanvas shows the composited scene. Coordinates passed to callbacks
// are photo pixels, independent of zoom.
type SceneCanvas struct {
	widget.BaseWidget

	// Last composite from the renderer
	scene *image.RGBA

	// Outline of the selected panel, in photo pixels
	selection    geometry.RectInt
	hasSelection bool
	circle       bool

	// Display state
	raster *fynecanvas.Raster
	zoom   float64

	// Container
	scroll  *zoomScroll
	content *draggableContent
	imgSize fyne.Size

	// Fit to window
	fitToWindow    bool
	lastScrollSize fyne.Size

	// Drag state
	dragging  bool
	dragStart geometry.Point2D

	// Callbacks
	onZoomChange func(zoom float64)
	onTap        func(pt geometry.Point2D)
	onDragStart  func(pt geometry.Point2D)
	onDrag       func(delta geometry.Point2D)
	onDragEnd    func()
}

// zoomScroll wraps a scroll container but uses the wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *SceneCanvas
}

func newZoomScroll(content fyne.CanvasObject, canvas *SceneCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: canvas}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		zs.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		zs.canvas.ZoomOut()
	}
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

// Offset returns the scroll container's current offset.
func (zs *zoomScroll) Offset() fyne.Position {
	return zs.scroll.Offset
}

// Size returns the scroll container's size.
func (zs *zoomScroll) Size() fyne.Size {
	return zs.scroll.Size()
}

func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
}

// draggableContent wraps the raster to receive pointer events.
type draggableContent struct {
	widget.BaseWidget
	canvas *SceneCanvas
	raster *fynecanvas.Raster
}

func newDraggableContent(sc *SceneCanvas, raster *fynecanvas.Raster) *draggableContent {
	dc := &draggableContent{canvas: sc, raster: raster}
	dc.ExtendBaseWidget(dc)
	return dc
}

func (dc *draggableContent) CreateRenderer() fyne.WidgetRenderer {
	return &draggableContentRenderer{content: dc}
}

func (dc *draggableContent) MinSize() fyne.Size {
	return dc.raster.MinSize()
}

// toImage converts a position relative to the content widget into photo
// pixels.
func (dc *draggableContent) toImage(pos fyne.Position) geometry.Point2D {
	return dc.canvas.CanvasToImage(float64(pos.X), float64(pos.Y))
}

func (dc *draggableContent) Dragged(ev *fyne.DragEvent) {
	sc := dc.canvas
	if sc.scene == nil {
		return
	}
	if !sc.dragging {
		// ev.Position is already past the first Dragged delta.
		start := fyne.NewPos(ev.Position.X-ev.Dragged.DX, ev.Position.Y-ev.Dragged.DY)
		sc.dragging = true
		sc.dragStart = dc.toImage(start)
		if sc.onDragStart != nil {
			sc.onDragStart(sc.dragStart)
		}
	}
	if sc.onDrag != nil {
		cur := dc.toImage(ev.Position)
		sc.onDrag(geometry.Point2D{X: cur.X - sc.dragStart.X, Y: cur.Y - sc.dragStart.Y})
	}
}

func (dc *draggableContent) DragEnd() {
	sc := dc.canvas
	if !sc.dragging {
		return
	}
	sc.dragging = false
	if sc.onDragEnd != nil {
		sc.onDragEnd()
	}
}

func (dc *draggableContent) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		dc.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		dc.canvas.ZoomOut()
	}
}

func (dc *draggableContent) Tapped(ev *fyne.PointEvent) {
	if dc.canvas.onTap == nil {
		return
	}

	// Fyne occasionally delivers taps outside the widget.
	size := dc.Size()
	if ev.Position.X < 0 || ev.Position.Y < 0 ||
		ev.Position.X > size.Width || ev.Position.Y > size.Height {
		return
	}
	dc.canvas.onTap(dc.toImage(ev.Position))
}

type draggableContentRenderer struct {
	content *draggableContent
}

func (r *draggableContentRenderer) Layout(size fyne.Size) {
	r.content.raster.Resize(size)
}

func (r *draggableContentRenderer) MinSize() fyne.Size {
	return r.content.raster.MinSize()
}

func (r *draggableContentRenderer) Refresh() {
	r.content.raster.Refresh()
}

func (r *draggableContentRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.content.raster}
}

func (r *draggableContentRenderer) Destroy() {}

// NewSceneCanvas creates an empty canvas.
func NewSceneCanvas() *SceneCanvas {
	sc := &SceneCanvas{
		zoom:    1.0,
		imgSize: fyne.NewSize(400, 300),
	}

	sc.raster = fynecanvas.NewRaster(sc.draw)
	sc.raster.ScaleMode = fynecanvas.ImageScaleSmooth
	sc.raster.SetMinSize(sc.imgSize)

	sc.content = newDraggableContent(sc, sc.raster)
	sc.scroll = newZoomScroll(sc.content, sc)

	sc.ExtendBaseWidget(sc)
	return sc
}

// Container returns the canvas container for embedding in layouts.
func (sc *SceneCanvas) Container() fyne.CanvasObject {
	return sc.scroll
}

// SetScene replaces the displayed composite. nil clears the view.
func (sc *SceneCanvas) SetScene(img *image.RGBA) {
	sizeChanged := sc.scene == nil || img == nil || sc.scene.Bounds() != img.Bounds()
	sc.scene = img
	if sizeChanged {
		sc.updateContentSize()
		if sc.fitToWindow {
			sc.FitToWindow()
		}
		return
	}
	sc.Refresh()
}

// Scene returns the displayed composite.
func (sc *SceneCanvas) Scene() *image.RGBA {
	return sc.scene
}

// SetSelection outlines r. circle draws an ellipse instead of a rectangle.
func (sc *SceneCanvas) SetSelection(r geometry.RectInt, circle bool) {
	sc.selection = r
	sc.circle = circle
	sc.hasSelection = true
	sc.Refresh()
}

// ClearSelection removes the outline.
func (sc *SceneCanvas) ClearSelection() {
	sc.hasSelection = false
	sc.Refresh()
}

// SetZoom sets the zoom level.
func (sc *SceneCanvas) SetZoom(zoom float64) {
	zoom = geometry.ClampFloat(zoom, minZoom, maxZoom)
	sc.zoom = zoom
	sc.updateContentSize()

	if sc.onZoomChange != nil {
		sc.onZoomChange(zoom)
	}
}

// Zoom returns the current zoom level.
func (sc *SceneCanvas) Zoom() float64 {
	return sc.zoom
}

// ZoomIn increases the zoom level.
func (sc *SceneCanvas) ZoomIn() {
	sc.SetZoom(sc.zoom * zoomStep)
}

// ZoomOut decreases the zoom level.
func (sc *SceneCanvas) ZoomOut() {
	sc.SetZoom(sc.zoom / zoomStep)
}

// FitToWindow adjusts zoom to fit the scene in the visible area.
func (sc *SceneCanvas) FitToWindow() {
	if sc.scene == nil {
		return
	}
	b := sc.scene.Bounds()
	viewSize := sc.scroll.Size()
	if b.Dx() == 0 || b.Dy() == 0 || viewSize.Width <= 0 || viewSize.Height <= 0 {
		return
	}
	sc.SetZoom(fitZoom(geometry.SizeOf(b), float64(viewSize.Width), float64(viewSize.Height)))
}

// fitZoom is the zoom that shows size inside a viewW x viewH viewport with
// a small margin.
func fitZoom(size geometry.SizeInt, viewW, viewH float64) float64 {
	zoomX := viewW / float64(size.Width)
	zoomY := viewH / float64(size.Height)
	zoom := zoomX
	if zoomY < zoomX {
		zoom = zoomY
	}
	return zoom * 0.95
}

// SetFitToWindow enables or disables auto-fit on resize.
func (sc *SceneCanvas) SetFitToWindow(fit bool) {
	sc.fitToWindow = fit
	if fit {
		sc.FitToWindow()
	}
}

// FitsToWindow returns the current fit-to-window state.
func (sc *SceneCanvas) FitsToWindow() bool {
	return sc.fitToWindow
}

// OnZoomChange sets a callback for zoom changes.
func (sc *SceneCanvas) OnZoomChange(callback func(zoom float64)) {
	sc.onZoomChange = callback
}

// OnTap sets a callback for clicks.
func (sc *SceneCanvas) OnTap(callback func(pt geometry.Point2D)) {
	sc.onTap = callback
}

// OnDragStart sets a callback for the first event of a drag.
func (sc *SceneCanvas) OnDragStart(callback func(pt geometry.Point2D)) {
	sc.onDragStart = callback
}

// OnDrag sets a callback receiving the offset from the drag start.
func (sc *SceneCanvas) OnDrag(callback func(delta geometry.Point2D)) {
	sc.onDrag = callback
}

// OnDragEnd sets a callback for the end of a drag.
func (sc *SceneCanvas) OnDragEnd(callback func()) {
	sc.onDragEnd = callback
}

// Refresh refreshes the canvas display.
func (sc *SceneCanvas) Refresh() {
	sc.raster.Refresh()
}

// ImageToCanvas converts photo pixels to canvas coordinates.
func (sc *SceneCanvas) ImageToCanvas(imgX, imgY float64) (canvasX, canvasY float64) {
	return imgX * sc.zoom, imgY * sc.zoom
}

// CanvasToImage converts canvas coordinates to photo pixels.
func (sc *SceneCanvas) CanvasToImage(canvasX, canvasY float64) geometry.Point2D {
	return geometry.Point2D{X: canvasX / sc.zoom, Y: canvasY / sc.zoom}
}

func (sc *SceneCanvas) updateContentSize() {
	if sc.scene == nil {
		sc.imgSize = fyne.NewSize(400, 300)
	} else {
		b := sc.scene.Bounds()
		sc.imgSize = fyne.NewSize(float32(float64(b.Dx())*sc.zoom), float32(float64(b.Dy())*sc.zoom))
	}

	sc.raster.SetMinSize(sc.imgSize)
	sc.raster.Resize(sc.imgSize)
	if sc.content != nil {
		sc.content.Resize(sc.imgSize)
		sc.content.Refresh()
	}
	sc.raster.Refresh()
	if sc.scroll != nil {
		sc.scroll.Refresh()
	}
}

// draw is the raster drawing function. w and h are device pixels, which
// may differ from the logical content size on HiDPI screens.
func (sc *SceneCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(output.Pix); i += 4 {
		output.Pix[i] = 255
	}
	if sc.scene == nil || w == 0 || h == 0 {
		return output
	}

	src := sc.scene
	xdraw.ApproxBiLinear.Scale(output, output.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	if sc.hasSelection {
		sx := float64(w) / float64(src.Bounds().Dx())
		sy := float64(h) / float64(src.Bounds().Dy())
		r := sc.selection.Scale(sx, sy)
		if sc.circle {
			drawEllipseOutline(output, r, selectionColor, selectionThickness)
		} else {
			drawRectOutline(output, r, selectionColor, selectionThickness)
		}
		drawHandles(output, r, selectionColor)
	}
	return output
}

func (sc *SceneCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(sc.scroll)
}
