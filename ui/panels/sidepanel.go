// Package panels provides UI panels for the application.
package panels

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"panelviz/internal/app"
	"panelviz/internal/scale"
	"panelviz/internal/scene"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	state     *app.State
	container *container.AppTabs

	scenePanel  *ScenePanel
	panelsPanel *PanelsPanel
}

// NewSidePanel creates a new side panel. onSelect is called when the user
// picks a panel from the list; an empty id clears the selection.
func NewSidePanel(state *app.State, onSelect func(id string)) *SidePanel {
	sp := &SidePanel{state: state}

	sp.scenePanel = NewScenePanel(state)
	sp.panelsPanel = NewPanelsPanel(state, onSelect)

	sp.container = container.NewAppTabs(
		container.NewTabItem("Scene", sp.scenePanel.Container()),
		container.NewTabItem("Panels", sp.panelsPanel.Container()),
	)
	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// SetWindow sets the parent window for dialogs.
func (sp *SidePanel) SetWindow(w fyne.Window) {
	sp.scenePanel.window = w
	sp.panelsPanel.window = w
}

// SetSelectedPanel shows id as the panel being edited.
func (sp *SidePanel) SetSelectedPanel(id string) {
	sp.panelsPanel.SetSelected(id)
}

// Refresh re-reads the session into every tab.
func (sp *SidePanel) Refresh() {
	sp.scenePanel.Refresh()
	sp.panelsPanel.Refresh()
}

// ScenePanel edits the surface and its real width.
type ScenePanel struct {
	state     *app.State
	window    fyne.Window
	container fyne.CanvasObject

	surfaceRadio *widget.RadioGroup
	widthEntry   *widget.Entry
	scaleLabel   *widget.Label
	sizeLabel    *widget.Label
}

// NewScenePanel creates the scene tab.
func NewScenePanel(state *app.State) *ScenePanel {
	sp := &ScenePanel{state: state}

	sp.scaleLabel = widget.NewLabel("Scale: no photo loaded")
	sp.scaleLabel.Wrapping = fyne.TextWrapWord
	sp.sizeLabel = widget.NewLabel("")

	sp.surfaceRadio = widget.NewRadioGroup([]string{"Wall", "Ceiling"}, func(selected string) {
		if selected == "" {
			return
		}
		surface, err := scene.ParseSurface(selected)
		if err != nil {
			return
		}
		sel := state.Selection()
		if sel.Surface == surface {
			return
		}
		sel.Surface = surface
		if err := state.SetSelection(sel); err != nil {
			sp.showError(err)
		}
	})
	sp.surfaceRadio.Horizontal = true

	sp.widthEntry = widget.NewEntry()
	sp.widthEntry.SetPlaceHolder("e.g. 400")
	sp.widthEntry.OnSubmitted = func(string) { sp.applyWidth() }
	applyButton := widget.NewButton("Apply", sp.applyWidth)

	sp.container = container.NewVBox(
		widget.NewLabelWithStyle("Surface", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		sp.surfaceRadio,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Real width (cm)", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, nil, applyButton, sp.widthEntry),
		sp.scaleLabel,
		sp.sizeLabel,
	)

	sp.Refresh()
	return sp
}

// Container returns the panel container.
func (sp *ScenePanel) Container() fyne.CanvasObject {
	return sp.container
}

func (sp *ScenePanel) applyWidth() {
	width, err := parseWidth(sp.widthEntry.Text)
	if err != nil {
		sp.showError(err)
		return
	}
	if err := sp.state.SetDeclaredWidth(context.Background(), width); err != nil {
		sp.showError(err)
	}
}

// parseWidth accepts an empty string as "unknown" and a comma as decimal
// separator.
func parseWidth(text string) (float64, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
	if text == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a width in cm", text)
	}
	return v, nil
}

// Refresh updates the widgets from state.
func (sp *ScenePanel) Refresh() {
	sel := sp.state.Selection()
	if sel.Surface == scene.SurfaceCeiling {
		sp.surfaceRadio.SetSelected("Ceiling")
	} else {
		sp.surfaceRadio.SetSelected("Wall")
	}

	if w := sp.state.DeclaredWidth(); w > 0 {
		sp.widthEntry.SetText(strconv.FormatFloat(w, 'f', -1, 64))
	}

	snap, err := sp.state.Snapshot()
	if err != nil {
		sp.scaleLabel.SetText("Scale: no photo loaded")
		sp.sizeLabel.SetText("")
		return
	}
	sp.scaleLabel.SetText(scaleText(sp.state.Scale()))
	sp.sizeLabel.SetText(fmt.Sprintf("Photo: %d x %d px", snap.Size.Width, snap.Size.Height))
}

func scaleText(res scale.Result) string {
	text := fmt.Sprintf("Scale: %.2f px/cm (%s)", res.PxPerCm, res.Strategy)
	if len(res.Fallbacks) > 0 && res.Strategy == scale.KindFixed.String() {
		text += "\nEnter the real width for accurate panel sizes."
	}
	return text
}

func (sp *ScenePanel) showError(err error) {
	if sp.window != nil {
		dialog.ShowError(err, sp.window)
	}
}
