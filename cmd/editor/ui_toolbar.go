package main

import "github.com/ebitenui/ebitenui/widget"

func buildToolBar(st *uiStyle, onToolSelected func(tool Tool), initialTool Tool) (*widget.Container, *ToolBar) {
	toolbar := widget.NewContainer(
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(240, 44),
		),
		widget.ContainerOpts.Layout(
			widget.NewRowLayout(
				widget.RowLayoutOpts.Direction(widget.DirectionHorizontal),
				widget.RowLayoutOpts.Spacing(6),
				widget.RowLayoutOpts.Padding(&widget.Insets{Top: 4, Bottom: 4, Left: 6, Right: 6}),
			),
		),
		widget.ContainerOpts.BackgroundImage(st.toolbarBG),
	)

	buttons := make([]*widget.Button, 0, len(toolNames))
	elements := make([]widget.RadioGroupElement, 0, len(toolNames))
	for _, name := range toolNames {
		btn := widget.NewButton(
			widget.ButtonOpts.Image(st.tool),
			widget.ButtonOpts.Text(name, st.face, st.toolText),
			widget.ButtonOpts.ToggleMode(),
			widget.ButtonOpts.WidgetOpts(widget.WidgetOpts.MinSize(52, 36)),
		)
		buttons = append(buttons, btn)
		elements = append(elements, btn)
		toolbar.AddChild(btn)
	}

	group := widget.NewRadioGroup(
		widget.RadioGroupOpts.Elements(elements...),
		widget.RadioGroupOpts.ChangedHandler(func(args *widget.RadioGroupChangedEventArgs) {
			if onToolSelected == nil {
				return
			}
			for idx, b := range buttons {
				if args.Active == b {
					onToolSelected(Tool(idx))
					return
				}
			}
		}),
	)

	tb := &ToolBar{group: group, buttons: buttons}
	tb.SetTool(initialTool)
	return toolbar, tb
}
