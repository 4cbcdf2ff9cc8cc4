package main

import "github.com/ebitenui/ebitenui/widget"

// Tool is the active left-button action on the canvas.
type Tool int

const (
	ToolBrush Tool = iota
	ToolErase
	ToolFill
	ToolLine
)

var toolNames = []string{"Brush", "Erase", "Fill", "Line"}

func (t Tool) String() string {
	if t < 0 || int(t) >= len(toolNames) {
		return "Unknown"
	}
	return toolNames[t]
}

const (
	leftPanelWidth = 200
	statusHeight   = 20

	minZoom       = 0.125
	maxZoom       = 8
	zoomStep      = 1.25
	zoomSeconds   = 0.15
	gridMinPixels = 10

	generateSize = 64
)

// ToolBar contains the radio-group state for the floating tool buttons.
type ToolBar struct {
	group   *widget.RadioGroup
	buttons []*widget.Button
}

func (tb *ToolBar) SetTool(t Tool) {
	idx := int(t)
	if tb == nil || tb.group == nil || idx < 0 || idx >= len(tb.buttons) {
		return
	}
	tb.group.SetActive(tb.buttons[idx])
}
