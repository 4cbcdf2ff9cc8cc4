package main

import (
	"context"
	"fmt"
	"time"

	"golang.design/x/clipboard"

	"github.com/milk9111/tilecanvas/tilemap"
)

const clipboardTimeout = 5 * time.Second

// copyExport puts the sparse export of the canvas on the system clipboard.
func (g *Editor) copyExport() {
	if !g.clipboardOK {
		g.setStatus("clipboard unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), clipboardTimeout)
	defer cancel()
	data, err := g.sess.Export(ctx, tilemap.FormatSparse)
	if err != nil {
		g.setStatus(err.Error())
		return
	}
	clipboard.Write(clipboard.FmtText, data)
	g.setStatus(fmt.Sprintf("copied %d bytes", len(data)))
}

// pasteImport replaces the canvas with a document from the clipboard.
func (g *Editor) pasteImport() {
	if !g.clipboardOK {
		g.setStatus("clipboard unavailable")
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		g.setStatus("clipboard is empty")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), clipboardTimeout)
	defer cancel()
	if err := g.sess.Import(ctx, data); err != nil {
		g.setStatus(err.Error())
		return
	}
	g.setStatus("imported from clipboard")
}
