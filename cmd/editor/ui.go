package main

import (
	"bytes"

	"github.com/ebitenui/ebitenui"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"
)

// BuildEditorUI lays out the palette panel on the left and the tool bar at
// the top. The canvas is drawn underneath by the editor.
func BuildEditorUI(actions panelActions, onToolSelected func(Tool), initialTool Tool) (*ebitenui.UI, *ToolBar, *PalettePanel, error) {
	src, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, nil, nil, err
	}
	var fontFace text.Face = &text.GoTextFace{Source: src, Size: 14}

	ui := &ebitenui.UI{}
	style := newUIStyle(&fontFace)
	ui.PrimaryTheme = style.listTheme()

	panel, palettePanel := buildPalettePanel(style, actions)
	toolbar, toolBar := buildToolBar(style, onToolSelected, initialTool)

	root := widget.NewContainer(widget.ContainerOpts.Layout(widget.NewAnchorLayout()))
	panel.GetWidget().LayoutData = widget.AnchorLayoutData{
		HorizontalPosition: widget.AnchorLayoutPositionStart,
		VerticalPosition:   widget.AnchorLayoutPositionStart,
		StretchVertical:    true,
	}
	toolbar.GetWidget().LayoutData = widget.AnchorLayoutData{
		HorizontalPosition: widget.AnchorLayoutPositionCenter,
		VerticalPosition:   widget.AnchorLayoutPositionStart,
	}
	root.AddChild(panel)
	root.AddChild(toolbar)
	ui.Container = root

	return ui, toolBar, palettePanel, nil
}
