package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/milk9111/tilecanvas/tilemap"
)

type paintReq struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Type  string `json:"type"`
	Color string `json:"color"`
}

type strokeReq struct {
	Type   string        `json:"type"`
	Color  string        `json:"color"`
	Brush  int           `json:"brush"`
	Points []tilemap.Pos `json:"points" binding:"required,min=1"`
}

type regionReq struct {
	StartRow int    `json:"startRow"`
	StartCol int    `json:"startCol"`
	EndRow   int    `json:"endRow"`
	EndCol   int    `json:"endCol"`
	Type     string `json:"type"`
}

type generateReq struct {
	Width     int            `json:"width" binding:"required"`
	Height    int            `json:"height" binding:"required"`
	Algorithm string         `json:"algorithm" binding:"required"`
	Params    map[string]any `json:"params"`
}

type resizeReq struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) routes(api *gin.RouterGroup) {
	canvas := api.Group("/canvas")
	canvas.GET("/meta", s.meta)
	canvas.GET("/status", s.status)
	canvas.GET("/tiles", s.tiles)
	canvas.POST("/paint", s.paint)
	canvas.POST("/erase", s.erase)
	canvas.POST("/fill", s.fill)
	canvas.POST("/stroke", s.stroke)
	canvas.POST("/region/paint", s.paintRegion)
	canvas.POST("/region/erase", s.eraseRegion)
	canvas.POST("/generate", s.generate)
	canvas.POST("/undo", s.undo)
	canvas.POST("/redo", s.redo)
	canvas.GET("/export", s.export)
	canvas.POST("/import", s.importDoc)
	canvas.GET("/preview.png", s.preview)
	canvas.PUT("/palette", s.palette)
	canvas.PUT("/size", s.resize)
}

func (s *Server) meta(c *gin.Context) {
	ok(c, s.sess.Meta())
}

func (s *Server) status(c *gin.Context) {
	st := s.sess.Status()
	ok(c, gin.H{"session": st, "clients": s.hub.Clients()})
}

func queryInt(c *gin.Context, key string) (int, error) {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", key, err)
	}
	return v, nil
}

func (s *Server) tiles(c *gin.Context) {
	var coords [4]int
	for i, key := range []string{"minX", "minY", "maxX", "maxY"} {
		v, err := queryInt(c, key)
		if err != nil {
			badRequest(c, err)
			return
		}
		coords[i] = v
	}
	r := tilemap.NewRect(coords[0], coords[1], coords[2], coords[3])
	if limit := s.sess.Limits().MaxRegionTiles; r.Area() > limit {
		badRequest(c, fmt.Errorf("region has %d tiles, the limit is %d", r.Area(), limit))
		return
	}
	tiles, err := s.sess.Tiles(c.Request.Context(), r)
	if err != nil {
		failErr(c, err)
		return
	}
	if tiles == nil {
		tiles = []tilemap.Placement{}
	}
	ok(c, gin.H{"tiles": tiles})
}

func (s *Server) paint(c *gin.Context) {
	var req paintReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.sess.PaintTile(req.X, req.Y, req.Type, req.Color); err != nil {
		failErr(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) erase(c *gin.Context) {
	var req paintReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.sess.EraseTile(req.X, req.Y); err != nil {
		failErr(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) fill(c *gin.Context) {
	var req paintReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.sess.Fill(req.X, req.Y, req.Type, req.Color)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"filled": res.Filled, "changed": len(res.Changes), "truncated": res.Truncated})
}

func (s *Server) stroke(c *gin.Context) {
	var req strokeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Brush > 0 {
		if err := s.sess.SetBrushSize(req.Brush); err != nil {
			failErr(c, err)
			return
		}
	}
	first := req.Points[0]
	if err := s.sess.BeginStroke(first.X, first.Y, req.Type, req.Color); err != nil {
		failErr(c, err)
		return
	}
	for _, p := range req.Points[1:] {
		if err := s.sess.StrokeTo(p.X, p.Y); err != nil {
			s.sess.CancelStroke()
			failErr(c, err)
			return
		}
	}
	ok(c, gin.H{"recorded": s.sess.EndStroke()})
}

func (s *Server) paintRegion(c *gin.Context) {
	var req regionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.sess.PaintRegion(c.Request.Context(), req.StartRow, req.StartCol, req.EndRow, req.EndCol, req.Type)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, res)
}

func (s *Server) eraseRegion(c *gin.Context) {
	var req regionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.sess.EraseRegion(c.Request.Context(), req.StartRow, req.StartCol, req.EndRow, req.EndCol)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, res)
}

func (s *Server) generate(c *gin.Context) {
	var req generateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.sess.Generate(c.Request.Context(), req.Width, req.Height, req.Algorithm, req.Params)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, res)
}

func (s *Server) undo(c *gin.Context) {
	ok(c, gin.H{"applied": s.sess.Undo(), "canUndo": s.sess.CanUndo(), "canRedo": s.sess.CanRedo()})
}

func (s *Server) redo(c *gin.Context) {
	ok(c, gin.H{"applied": s.sess.Redo(), "canUndo": s.sess.CanUndo(), "canRedo": s.sess.CanRedo()})
}

func (s *Server) export(c *gin.Context) {
	format := c.DefaultQuery("format", tilemap.FormatSparse)
	data, err := s.sess.Export(c.Request.Context(), format)
	if err != nil {
		failErr(c, err)
		return
	}
	if c.Query("download") != "" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.sess.CanvasID()+".json"))
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) importDoc(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.sess.Import(c.Request.Context(), data); err != nil {
		failErr(c, err)
		return
	}
	ok(c, s.sess.Status())
}

func (s *Server) preview(c *gin.Context) {
	opts := tilemap.PreviewOptions{}
	if w := c.Query("width"); w != "" {
		v, err := strconv.Atoi(w)
		if err != nil || v <= 0 || v > tilemap.MaxPreviewSide {
			badRequest(c, fmt.Errorf("width must be within 1..%d", tilemap.MaxPreviewSide))
			return
		}
		opts.Width = v
	}
	var buf bytes.Buffer
	if err := s.sess.Preview(c.Request.Context(), &buf, opts); err != nil {
		failErr(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) palette(c *gin.Context) {
	var p tilemap.Palette
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.sess.SetPalette(p); err != nil {
		failErr(c, err)
		return
	}
	ok(c, s.sess.Meta())
}

func (s *Server) resize(c *gin.Context) {
	var req resizeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.sess.Resize(c.Request.Context(), req.Width, req.Height); err != nil {
		failErr(c, err)
		return
	}
	ok(c, s.sess.Meta())
}
