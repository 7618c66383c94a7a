package panels

import (
	"fmt"

	"panelviz/internal/app"
	"panelviz/internal/scene"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// PanelsPanel picks the panel type and texture for new panels and edits
// the selected one.
type PanelsPanel struct {
	state     *app.State
	window    fyne.Window
	container fyne.CanvasObject
	onSelect  func(id string)

	// New panel
	typeSelect    *widget.Select
	textureSelect *widget.Select
	rotatedCheck  *widget.Check
	addButton     *widget.Button

	// Placed panels
	list     *widget.List
	panels   []scene.Panel
	selected string

	// Selected panel
	selectedLabel   *widget.Label
	selectedTexture *widget.Select
	rotateButton    *widget.Button
	removeButton    *widget.Button

	// Guards against Select callbacks fired by Refresh.
	syncing bool
}

// NewPanelsPanel creates the panels tab.
func NewPanelsPanel(state *app.State, onSelect func(id string)) *PanelsPanel {
	pp := &PanelsPanel{state: state, onSelect: onSelect}
	cat := state.Catalog()

	pp.typeSelect = widget.NewSelect(cat.PanelTypeNames(), func(string) { pp.applySelection() })
	pp.textureSelect = widget.NewSelect(cat.TextureNames(), func(string) { pp.applySelection() })
	pp.rotatedCheck = widget.NewCheck("Rotate 90°", func(bool) { pp.applySelection() })
	pp.addButton = widget.NewButton("Add panel", pp.addPanel)

	pp.list = widget.NewList(
		func() int { return len(pp.panels) },
		func() fyne.CanvasObject { return widget.NewLabel("template") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i < len(pp.panels) {
				o.(*widget.Label).SetText(panelLabel(i, pp.panels[i]))
			}
		},
	)
	pp.list.OnSelected = func(i widget.ListItemID) {
		if pp.syncing || i >= len(pp.panels) {
			return
		}
		if pp.onSelect != nil {
			pp.onSelect(pp.panels[i].ID)
		}
	}

	pp.selectedLabel = widget.NewLabel("No panel selected")
	pp.selectedTexture = widget.NewSelect(cat.TextureNames(), func(name string) {
		if pp.syncing || pp.selected == "" {
			return
		}
		if _, err := state.SetPanelTexture(pp.selected, name); err != nil {
			pp.showError(err)
		}
	})
	pp.rotateButton = widget.NewButton("Rotate", func() {
		if pp.selected == "" {
			return
		}
		if _, err := state.RotatePanel(pp.selected); err != nil {
			pp.showError(err)
		}
	})
	pp.removeButton = widget.NewButton("Remove", func() {
		if pp.selected == "" {
			return
		}
		if err := state.RemovePanel(pp.selected); err != nil {
			pp.showError(err)
			return
		}
		if pp.onSelect != nil {
			pp.onSelect("")
		}
	})

	form := widget.NewForm(
		widget.NewFormItem("Type", pp.typeSelect),
		widget.NewFormItem("Texture", pp.textureSelect),
	)

	top := container.NewVBox(
		widget.NewLabelWithStyle("New panel", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		form,
		pp.rotatedCheck,
		pp.addButton,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Selected", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		pp.selectedLabel,
		pp.selectedTexture,
		container.NewGridWithColumns(2, pp.rotateButton, pp.removeButton),
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Placed panels", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	)
	pp.container = container.NewBorder(top, nil, nil, nil, pp.list)

	pp.Refresh()
	return pp
}

// Container returns the panel container.
func (pp *PanelsPanel) Container() fyne.CanvasObject {
	return pp.container
}

func (pp *PanelsPanel) applySelection() {
	if pp.syncing {
		return
	}
	sel := pp.state.Selection()
	sel.PanelType = pp.typeSelect.Selected
	sel.Texture = pp.textureSelect.Selected
	sel.Rotated = pp.rotatedCheck.Checked
	if err := pp.state.SetSelection(sel); err != nil {
		pp.showError(err)
	}
}

func (pp *PanelsPanel) addPanel() {
	p, err := pp.state.AddPanel(app.NewPanel{})
	if err != nil {
		pp.showError(err)
		return
	}
	if pp.onSelect != nil {
		pp.onSelect(p.ID)
	}
}

// SetSelected shows id as the panel being edited.
func (pp *PanelsPanel) SetSelected(id string) {
	pp.selected = id
	pp.Refresh()
}

// Refresh updates the widgets from state.
func (pp *PanelsPanel) Refresh() {
	pp.syncing = true
	defer func() { pp.syncing = false }()

	sel := pp.state.Selection()
	pp.typeSelect.SetSelected(sel.PanelType)
	pp.textureSelect.SetSelected(sel.Texture)
	pp.rotatedCheck.SetChecked(sel.Rotated)

	hasScene := pp.state.HasScene()
	if hasScene {
		pp.addButton.Enable()
	} else {
		pp.addButton.Disable()
	}

	pp.panels = pp.state.Panels()
	pp.list.Refresh()

	p, err := pp.state.Panel(pp.selected)
	if pp.selected == "" || err != nil {
		pp.selected = ""
		pp.list.UnselectAll()
		pp.selectedLabel.SetText("No panel selected")
		pp.selectedTexture.ClearSelected()
		pp.selectedTexture.Disable()
		pp.rotateButton.Disable()
		pp.removeButton.Disable()
		return
	}

	for i := range pp.panels {
		if pp.panels[i].ID == p.ID {
			pp.list.Select(i)
			pp.selectedLabel.SetText(panelLabel(i, p))
			break
		}
	}
	pp.selectedTexture.SetSelected(p.Texture.Name)
	pp.selectedTexture.Enable()
	pp.rotateButton.Enable()
	pp.removeButton.Enable()
}

func panelLabel(i int, p scene.Panel) string {
	orientation := ""
	if p.Rotated {
		orientation = ", rotated"
	}
	return fmt.Sprintf("%d. %s %s (%.0f, %.0f%s)", i+1, p.Type.Name, p.Texture.Name, p.Position.X, p.Position.Y, orientation)
}

func (pp *PanelsPanel) showError(err error) {
	if pp.window != nil {
		dialog.ShowError(err, pp.window)
	}
}
