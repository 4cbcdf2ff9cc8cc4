package main

import (
	"context"
	"flag"
	"log"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/milk9111/tilecanvas/app"
	"github.com/milk9111/tilecanvas/config"
	"github.com/milk9111/tilecanvas/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "config file (yaml); defaults and TILECANVAS_* env apply without one")
	canvasID := flag.String("canvas", "", "canvas id, overrides the config")
	flag.Parse()

	a, err := app.Open(*configPath, func(c *config.Config) {
		if *canvasID != "" {
			c.Canvas.ID = *canvasID
		}
	})
	if err != nil {
		log.Fatalf("tilemcp: %v", err)
	}

	s := server.NewMCPServer(a.Session, Version)
	serveErr := mcpserver.ServeStdio(s)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		a.Log.WithError(err).Error("close failed")
	}
	if serveErr != nil {
		log.Fatalf("tilemcp: %v", serveErr)
	}
}
