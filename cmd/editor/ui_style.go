package main

import (
	"image/color"

	"github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// uiStyle holds the looks shared by the palette panel and the tool bar. The
// panel is dark with light text; the tool bar is light so the active tool
// stands out against the canvas.
type uiStyle struct {
	face *text.Face

	panelBG   *image.NineSlice
	toolbarBG *image.NineSlice
	label     *widget.LabelColor

	action     *widget.ButtonImage
	actionText *widget.ButtonTextColor

	// Pressed marks the selected tool in the radio group.
	tool     *widget.ButtonImage
	toolText *widget.ButtonTextColor
}

func newUIStyle(face *text.Face) *uiStyle {
	return &uiStyle{
		face:      face,
		panelBG:   image.NewNineSliceColor(color.RGBA{36, 38, 44, 240}),
		toolbarBG: image.NewNineSliceColor(color.RGBA{220, 220, 232, 255}),
		label:     &widget.LabelColor{Idle: color.White, Disabled: color.Gray{Y: 140}},
		action: &widget.ButtonImage{
			Idle:    image.NewNineSliceColor(color.RGBA{64, 68, 80, 255}),
			Hover:   image.NewNineSliceColor(color.RGBA{84, 90, 106, 255}),
			Pressed: image.NewNineSliceColor(color.RGBA{48, 110, 90, 255}),
		},
		actionText: &widget.ButtonTextColor{Idle: color.White, Disabled: color.Gray{Y: 120}},
		tool: &widget.ButtonImage{
			Idle:    image.NewNineSliceColor(color.RGBA{196, 196, 206, 255}),
			Hover:   image.NewNineSliceColor(color.RGBA{212, 212, 222, 255}),
			Pressed: image.NewNineSliceColor(color.RGBA{120, 190, 150, 255}),
		},
		toolText: &widget.ButtonTextColor{
			Idle:     color.Black,
			Hover:    color.Black,
			Pressed:  color.RGBA{0, 60, 30, 255},
			Disabled: color.Gray{Y: 128},
		},
	}
}

// listTheme colors the palette list: one row per palette entry, with the
// current paint type highlighted.
func (st *uiStyle) listTheme() *widget.Theme {
	bg := image.NewNineSliceColor(color.RGBA{28, 30, 34, 255})
	return &widget.Theme{
		ListTheme: &widget.ListParams{
			EntryFace: st.face,
			EntryColor: &widget.ListEntryColor{
				Unselected:          color.RGBA{210, 214, 222, 255},
				Selected:            color.Black,
				DisabledUnselected:  color.Gray{Y: 110},
				DisabledSelected:    color.Gray{Y: 70},
				SelectingBackground: color.RGBA{80, 140, 112, 255},
				SelectedBackground:  color.RGBA{120, 190, 150, 255},
			},
			ScrollContainerImage: &widget.ScrollContainerImage{Idle: bg, Mask: bg},
		},
	}
}
