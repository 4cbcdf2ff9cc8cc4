package main

import (
	"fmt"

	"github.com/ebitenui/ebitenui/widget"

	"github.com/milk9111/tilecanvas/assets"
	"github.com/milk9111/tilecanvas/gen"
	"github.com/milk9111/tilecanvas/tilemap"
)

// paletteEntry is one row of the palette list.
type paletteEntry struct {
	Index int
	Type  string
	Name  string
}

// PalettePanel lists the palette types and the canvas actions.
type PalettePanel struct {
	list        *widget.List
	entries     []any
	autotileBtn *widget.Button
	brushLabel  *widget.Label

	// suppress keeps programmatic selections from reaching onSelect.
	suppress bool
	onSelect func(idx int)
}

func (pp *PalettePanel) SetPalette(p tilemap.Palette) {
	if pp == nil || pp.list == nil {
		return
	}
	pp.suppress = true
	defer func() { pp.suppress = false }()
	entries := make([]any, len(p))
	for i, pc := range p {
		name := pc.Name
		if name == "" {
			name = pc.Type
		}
		entries[i] = paletteEntry{Index: i, Type: pc.Type, Name: name}
	}
	pp.entries = entries
	pp.list.SetEntries(entries)
}

func (pp *PalettePanel) SetSelected(idx int) {
	if pp == nil || pp.list == nil || idx < 0 || idx >= len(pp.entries) {
		return
	}
	pp.suppress = true
	pp.list.SetSelectedEntry(pp.entries[idx])
	pp.suppress = false
}

func (pp *PalettePanel) SetAutotile(on bool) {
	if pp == nil || pp.autotileBtn == nil {
		return
	}
	label := "Autotile Off"
	if on {
		label = "Autotile On"
	}
	if t := pp.autotileBtn.Text(); t != nil {
		t.Label = label
	}
}

func (pp *PalettePanel) SetBrush(n int) {
	if pp == nil || pp.brushLabel == nil {
		return
	}
	pp.brushLabel.Label = fmt.Sprintf("Brush %dx%d", n, n)
}

type panelActions struct {
	onSelect   func(idx int)
	onUndo     func()
	onRedo     func()
	onAutotile func()
	onBrush    func(delta int)
	onGenerate func(algorithm string)
	onScript   func(name string)
	onCopy     func()
	onPaste    func()
}

func button(st *uiStyle, label string, fn func()) *widget.Button {
	return widget.NewButton(
		widget.ButtonOpts.Image(st.action),
		widget.ButtonOpts.Text(label, st.face, st.actionText),
		widget.ButtonOpts.ClickedHandler(func(args *widget.ButtonClickedEventArgs) {
			if fn != nil {
				fn()
			}
		}),
	)
}

func row(children ...widget.PreferredSizeLocateableWidget) *widget.Container {
	c := widget.NewContainer(
		widget.ContainerOpts.Layout(
			widget.NewRowLayout(
				widget.RowLayoutOpts.Direction(widget.DirectionHorizontal),
				widget.RowLayoutOpts.Spacing(6),
			),
		),
	)
	for _, ch := range children {
		c.AddChild(ch)
	}
	return c
}

func buildPalettePanel(st *uiStyle, actions panelActions) (*widget.Container, *PalettePanel) {
	pp := &PalettePanel{onSelect: actions.onSelect}

	panel := widget.NewContainer(
		widget.ContainerOpts.WidgetOpts(widget.WidgetOpts.MinSize(leftPanelWidth, 400)),
		widget.ContainerOpts.BackgroundImage(st.panelBG),
		widget.ContainerOpts.Layout(
			widget.NewRowLayout(
				widget.RowLayoutOpts.Direction(widget.DirectionVertical),
				widget.RowLayoutOpts.Spacing(8),
				widget.RowLayoutOpts.Padding(&widget.Insets{Top: 8, Bottom: 8, Left: 8, Right: 8}),
			),
		),
	)

	panel.AddChild(widget.NewLabel(widget.LabelOpts.Text("Tiles", st.face, st.label)))
	pp.list = widget.NewList(
		widget.ListOpts.Entries([]any{}),
		widget.ListOpts.EntryLabelFunc(func(e any) string {
			if entry, ok := e.(paletteEntry); ok {
				return fmt.Sprintf("%d. %s", entry.Index+1, entry.Name)
			}
			return ""
		}),
		widget.ListOpts.EntrySelectedHandler(func(args *widget.ListEntrySelectedEventArgs) {
			entry, ok := args.Entry.(paletteEntry)
			if !ok || pp.suppress || pp.onSelect == nil {
				return
			}
			pp.onSelect(entry.Index)
		}),
		widget.ListOpts.ContainerOpts(widget.ContainerOpts.WidgetOpts(widget.WidgetOpts.MinSize(leftPanelWidth-16, 180))),
	)
	panel.AddChild(pp.list)

	panel.AddChild(row(
		button(st, "Undo", actions.onUndo),
		button(st, "Redo", actions.onRedo),
	))

	pp.autotileBtn = button(st, "Autotile On", actions.onAutotile)
	panel.AddChild(pp.autotileBtn)

	pp.brushLabel = widget.NewLabel(widget.LabelOpts.Text("Brush 1x1", st.face, st.label))
	panel.AddChild(pp.brushLabel)
	panel.AddChild(row(
		button(st, "-", func() { actions.onBrush(-1) }),
		button(st, "+", func() { actions.onBrush(1) }),
	))

	panel.AddChild(widget.NewLabel(widget.LabelOpts.Text("Generate", st.face, st.label)))
	for _, algo := range gen.Algorithms() {
		if algo == gen.AlgorithmScript {
			continue
		}
		panel.AddChild(button(st, algo, func() { actions.onGenerate(algo) }))
	}
	for _, name := range assets.Scripts() {
		panel.AddChild(button(st, "script: "+name, func() { actions.onScript(name) }))
	}

	panel.AddChild(row(
		button(st, "Copy", actions.onCopy),
		button(st, "Paste", actions.onPaste),
	))

	return panel, pp
}
