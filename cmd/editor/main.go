package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.design/x/clipboard"

	"github.com/milk9111/tilecanvas/app"
	"github.com/milk9111/tilecanvas/config"
)

func main() {
	configPath := flag.String("config", "", "config file (yaml); defaults and TILECANVAS_* env apply without one")
	canvasID := flag.String("canvas", "", "canvas id, overrides the config")
	palettePath := flag.String("palette", "", "palette yaml, overrides the config")
	remoteURL := flag.String("server", "", "tilecanvas server to sync with, e.g. http://localhost:8080")
	flag.Parse()

	a, err := app.Open(*configPath, func(c *config.Config) {
		if *canvasID != "" {
			c.Canvas.ID = *canvasID
		}
		if *palettePath != "" {
			c.Canvas.Palette = *palettePath
		}
	})
	if err != nil {
		log.Fatalf("editor: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(ctx); err != nil {
			log.Printf("editor: close: %v", err)
		}
	}()

	clipboardOK := true
	if err := clipboard.Init(); err != nil {
		a.Log.WithError(err).Warn("clipboard unavailable")
		clipboardOK = false
	}

	game, err := NewEditor(a.Session, a.Log, clipboardOK)
	if err != nil {
		a.Log.WithError(err).Error("editor init failed")
		return
	}

	if *remoteURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		r, err := dialRemote(ctx, *remoteURL, a.Session, a.Log)
		cancel()
		if err != nil {
			a.Log.WithError(err).Error("remote sync unavailable, editing locally")
		} else {
			game.remote = r
			defer r.Close()
		}
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(1280, 800)
	ebiten.SetWindowTitle("tilecanvas")

	if err := ebiten.RunGame(game); err != nil {
		a.Log.WithError(err).Error("editor stopped")
	}
}
