package main

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"github.com/ebitenui/ebitenui"
	ebuiinput "github.com/ebitenui/ebitenui/input"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font/basicfont"

	"github.com/milk9111/tilecanvas/gen"
	"github.com/milk9111/tilecanvas/session"
	"github.com/milk9111/tilecanvas/tilemap"
)

var (
	backgroundColor = color.RGBA{24, 26, 30, 255}
	gridColor       = color.RGBA{255, 255, 255, 24}
	boundsColor     = color.RGBA{255, 200, 80, 200}
	hoverColor      = color.RGBA{255, 255, 255, 160}
	lineColor       = color.RGBA{120, 200, 255, 120}
)

// Editor is the ebiten game driving one local session.
type Editor struct {
	sess    *session.Session
	log     logrus.FieldLogger
	cam     *camera
	sprites *spriteCache
	remote  *remote

	ui           *ebitenui.UI
	toolBar      *ToolBar
	palettePanel *PalettePanel
	face         text.Face

	palette     tilemap.Palette
	metaVersion int
	selected    int
	tool        Tool
	autotile    bool

	painting  bool
	lineStart *tilemap.Pos
	hover     tilemap.Pos
	hoverOK   bool

	panning          bool
	lastMX, lastMY   int
	width, height    int
	status           string
	statusUntil      time.Time
	clipboardOK      bool
	generateSeed     int64
	lastFrame        time.Time
	lastChunkRequest tilemap.Rect
}

func NewEditor(sess *session.Session, log logrus.FieldLogger, clipboardOK bool) (*Editor, error) {
	meta := sess.Meta()
	g := &Editor{
		sess:         sess,
		log:          log,
		cam:          newCamera(meta.TileSize),
		sprites:      newSpriteCache(log),
		face:         text.NewGoXFace(basicfont.Face7x13),
		autotile:     true,
		clipboardOK:  clipboardOK,
		generateSeed: time.Now().UnixNano(),
		width:        1280,
		height:       800,
	}

	ui, toolBar, pp, err := BuildEditorUI(panelActions{
		onSelect:   g.selectType,
		onUndo:     g.undo,
		onRedo:     g.redo,
		onAutotile: g.toggleAutotile,
		onBrush:    g.changeBrush,
		onGenerate: func(algo string) { g.generate(algo, nil) },
		onScript: func(name string) {
			g.generate(gen.AlgorithmScript, map[string]any{"script": name})
		},
		onCopy:  g.copyExport,
		onPaste: g.pasteImport,
	}, g.setTool, ToolBrush)
	if err != nil {
		return nil, fmt.Errorf("build ui: %w", err)
	}
	g.ui, g.toolBar, g.palettePanel = ui, toolBar, pp
	g.refreshPalette(meta)
	g.palettePanel.SetBrush(sess.BrushSize())
	return g, nil
}

func (g *Editor) setStatus(msg string) {
	g.status = msg
	g.statusUntil = time.Now().Add(4 * time.Second)
}

func (g *Editor) refreshPalette(meta tilemap.Meta) {
	g.metaVersion = meta.Version
	g.palette = meta.Palette.Clone()
	g.sprites.reset()
	g.palettePanel.SetPalette(g.palette)
	if g.selected >= len(g.palette) {
		g.selected = 0
	}
	g.palettePanel.SetSelected(g.selected)
}

func (g *Editor) selectedType() string {
	if g.selected < 0 || g.selected >= len(g.palette) {
		return ""
	}
	return g.palette[g.selected].Type
}

func (g *Editor) selectType(idx int) {
	if idx < 0 || idx >= len(g.palette) {
		return
	}
	g.selected = idx
	g.palettePanel.SetSelected(idx)
	if g.tool == ToolErase {
		g.setTool(ToolBrush)
		g.toolBar.SetTool(ToolBrush)
	}
}

func (g *Editor) setTool(t Tool) {
	if g.painting {
		g.sess.EndStroke()
		g.painting = false
	}
	g.lineStart = nil
	g.tool = t
}

func (g *Editor) undo() {
	if !g.sess.Undo() {
		g.setStatus("nothing to undo")
	}
}

func (g *Editor) redo() {
	if !g.sess.Redo() {
		g.setStatus("nothing to redo")
	}
}

func (g *Editor) toggleAutotile() {
	g.autotile = !g.autotile
	g.sess.SetAutoTile(g.autotile)
	g.palettePanel.SetAutotile(g.autotile)
}

func (g *Editor) changeBrush(delta int) {
	n := g.sess.BrushSize() + delta
	if n < 1 || n > g.sess.Limits().MaxBrushSize {
		return
	}
	if err := g.sess.SetBrushSize(n); err != nil {
		g.setStatus(err.Error())
		return
	}
	g.palettePanel.SetBrush(n)
}

func (g *Editor) generate(algorithm string, params map[string]any) {
	g.generateSeed++
	if params == nil {
		params = map[string]any{}
	}
	params["seed"] = g.generateSeed
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := g.sess.Generate(ctx, generateSize, generateSize, algorithm, params)
	if err != nil {
		g.setStatus(err.Error())
		return
	}
	g.cam.centerOn(generateSize/2, generateSize/2, float64(g.width+leftPanelWidth)/2, float64(g.height)/2)
	g.setStatus(fmt.Sprintf("%s: %d tiles changed", algorithm, res.Changed))
}

func (g *Editor) Update() error {
	g.ui.Update()

	now := time.Now()
	dt := float32(1.0 / float64(ebiten.TPS()))
	if !g.lastFrame.IsZero() {
		dt = float32(now.Sub(g.lastFrame).Seconds())
	}
	g.lastFrame = now

	if meta := g.sess.Meta(); meta.Version != g.metaVersion {
		g.refreshPalette(meta)
	}
	g.cam.update(dt)

	visible := g.cam.view.VisibleTiles(g.width, g.height)
	if visible != g.lastChunkRequest {
		g.sess.LoadViewport(visible)
		g.lastChunkRequest = visible
	}
	g.sess.Pump()

	g.handleKeys()
	g.handleMouse()
	return nil
}

func ctrlPressed() bool {
	return ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
}

func (g *Editor) handleKeys() {
	ctrl := ctrlPressed()
	switch {
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyZ) && ebiten.IsKeyPressed(ebiten.KeyShift):
		g.redo()
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyZ):
		g.undo()
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyY):
		g.redo()
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyC):
		g.copyExport()
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyV):
		g.pasteImport()
	}
	if ctrl {
		return
	}

	tools := map[ebiten.Key]Tool{ebiten.KeyB: ToolBrush, ebiten.KeyE: ToolErase, ebiten.KeyF: ToolFill, ebiten.KeyL: ToolLine}
	for k, t := range tools {
		if inpututil.IsKeyJustPressed(k) {
			g.setTool(t)
			g.toolBar.SetTool(t)
		}
	}
	for i := 0; i < 9; i++ {
		if inpututil.IsKeyJustPressed(ebiten.Key1 + ebiten.Key(i)) {
			g.selectType(i)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketLeft) {
		g.changeBrush(-1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketRight) {
		g.changeBrush(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyA) {
		g.toggleAutotile()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		if g.painting {
			g.sess.CancelStroke()
			g.painting = false
		}
		g.lineStart = nil
	}
}

func (g *Editor) handleMouse() {
	mx, my := ebiten.CursorPosition()
	sx, sy := float64(mx), float64(my)
	x, y := g.cam.view.ScreenToTile(sx, sy)
	g.hover = tilemap.Pos{X: x, Y: y}
	g.hoverOK = !ebuiinput.UIHovered

	if _, wy := ebiten.Wheel(); wy != 0 && g.hoverOK {
		factor := zoomStep
		if wy < 0 {
			factor = 1 / zoomStep
		}
		g.cam.zoomBy(factor, sx, sy)
	}

	panHeld := ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle) || ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	if panHeld {
		if g.panning {
			g.cam.pan(float64(mx-g.lastMX), float64(my-g.lastMY))
		}
		g.panning = true
		g.lastMX, g.lastMY = mx, my
	} else {
		g.panning = false
	}

	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	justPressed := inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft)
	justReleased := inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft)

	switch g.tool {
	case ToolBrush, ToolErase:
		if justPressed && g.hoverOK {
			typ := g.selectedType()
			if g.tool == ToolErase {
				typ = ""
			}
			if err := g.sess.BeginStroke(x, y, typ, ""); err != nil {
				g.setStatus(err.Error())
				return
			}
			g.painting = true
			return
		}
		if g.painting && left {
			if err := g.sess.StrokeTo(x, y); err != nil {
				g.setStatus(err.Error())
			}
		}
		if g.painting && !left {
			g.sess.EndStroke()
			g.painting = false
		}
	case ToolFill:
		if justPressed && g.hoverOK {
			res, err := g.sess.Fill(x, y, g.selectedType(), "")
			if err != nil {
				g.setStatus(err.Error())
				return
			}
			if res.Truncated {
				g.setStatus(fmt.Sprintf("fill stopped after %d tiles", res.Filled))
			}
		}
	case ToolLine:
		if justPressed && g.hoverOK {
			g.lineStart = &tilemap.Pos{X: x, Y: y}
		}
		if justReleased && g.lineStart != nil {
			g.drawLine(*g.lineStart, tilemap.Pos{X: x, Y: y})
			g.lineStart = nil
		}
	}
}

// drawLine paints a straight line as a single stroke.
func (g *Editor) drawLine(from, to tilemap.Pos) {
	if err := g.sess.BeginStroke(from.X, from.Y, g.selectedType(), ""); err != nil {
		g.setStatus(err.Error())
		return
	}
	if err := g.sess.StrokeTo(to.X, to.Y); err != nil {
		g.sess.CancelStroke()
		g.setStatus(err.Error())
		return
	}
	g.sess.EndStroke()
}

func (g *Editor) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	view := g.cam.view
	px := g.cam.tilePixels()
	visible := view.VisibleTiles(g.width, g.height)
	g.sess.View(func(st *tilemap.Store) {
		st.EachInRect(visible, func(x, y int, t tilemap.Tile) {
			wx, wy := view.TileToWorld(x, y)
			sx, sy := view.WorldToScreen(wx, wy)
			g.sprites.draw(screen, g.palette, t, sx, sy, px)
		})
	})

	if px >= gridMinPixels {
		g.drawGrid(screen, visible, px)
	}
	g.drawBounds(screen, px)
	g.drawCursor(screen, px)

	g.ui.Draw(screen)
	g.drawStatus(screen)
}

func (g *Editor) drawGrid(screen *ebiten.Image, r tilemap.Rect, px float64) {
	view := g.cam.view
	for x := r.MinX; x <= r.MaxX+1; x++ {
		sx, _ := view.WorldToScreen(view.TileToWorld(x, 0))
		vector.StrokeLine(screen, float32(sx), 0, float32(sx), float32(g.height), 1, gridColor, false)
	}
	for y := r.MinY; y <= r.MaxY+1; y++ {
		_, sy := view.WorldToScreen(view.TileToWorld(0, y))
		vector.StrokeLine(screen, 0, float32(sy), float32(g.width), float32(sy), 1, gridColor, false)
	}
}

func (g *Editor) drawBounds(screen *ebiten.Image, px float64) {
	meta := g.sess.Meta()
	if !meta.Bounded() {
		return
	}
	sx, sy := g.cam.view.WorldToScreen(0, 0)
	w, h := float64(meta.Width)*px, float64(meta.Height)*px
	vector.StrokeRect(screen, float32(sx), float32(sy), float32(w), float32(h), 2, boundsColor, false)
}

func (g *Editor) drawCursor(screen *ebiten.Image, px float64) {
	if !g.hoverOK {
		return
	}
	view := g.cam.view
	if g.lineStart != nil {
		for _, p := range bresenhamLine(g.lineStart.X, g.lineStart.Y, g.hover.X, g.hover.Y) {
			sx, sy := view.WorldToScreen(view.TileToWorld(p[0], p[1]))
			vector.DrawFilledRect(screen, float32(sx), float32(sy), float32(px), float32(px), lineColor, false)
		}
	}
	size := 1
	if g.tool == ToolBrush || g.tool == ToolErase {
		size = g.sess.BrushSize()
	}
	half := size / 2
	sx, sy := view.WorldToScreen(view.TileToWorld(g.hover.X-half, g.hover.Y-half))
	side := float32(px * float64(size))
	vector.StrokeRect(screen, float32(sx), float32(sy), side, side, 1, hoverColor, false)
}

func (g *Editor) drawStatus(screen *ebiten.Image) {
	st := g.sess.Status()
	line := fmt.Sprintf("%s  %s  (%d,%d)  zoom %.2f  tiles %d  undo %d  redo %d",
		g.tool, g.selectedType(), g.hover.X, g.hover.Y, g.cam.view.Zoom, st.Tiles, st.UndoLen, st.RedoLen)
	if st.Pending > 0 {
		line += fmt.Sprintf("  loading %d", st.Pending)
	}
	if g.remote != nil {
		line += "  online"
	}
	if g.status != "" && time.Now().Before(g.statusUntil) {
		line += "  | " + g.status
	}

	y := float64(g.height - statusHeight)
	vector.DrawFilledRect(screen, 0, float32(y), float32(g.width), statusHeight, color.RGBA{0, 0, 0, 200}, false)
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(leftPanelWidth+8), y+4)
	op.ColorScale.ScaleWithColor(color.White)
	text.Draw(screen, line, g.face, op)
}

func (g *Editor) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.width, g.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

// bresenhamLine returns the tiles on the line from (x0, y0) to (x1, y1).
func bresenhamLine(x0, y0, x1, y1 int) [][2]int {
	var points [][2]int
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 >= x1 {
		sx = -1
	}
	sy := 1
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy
	for {
		points = append(points, [2]int{x0, y0})
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
	return points
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
